package businessflow

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/drift-bottle/models"
	"github.com/amirphl/drift-bottle/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryBottleRepo is an in-memory BottleRepository. MarkPicked is atomic under mu,
// mirroring the store's single-document conditional update.
type memoryBottleRepo struct {
	mu      sync.Mutex
	bottles []*models.Bottle

	// staleSample makes SampleUnpicked ignore picked and return bottles in id order,
	// so concurrent callers all race for the same candidates.
	staleSample bool
	failWith    error
}

func newMemoryBottleRepo() *memoryBottleRepo {
	return &memoryBottleRepo{}
}

func (r *memoryBottleRepo) Save(ctx context.Context, bottle *models.Bottle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	bottle.ObjectID = primitive.NewObjectID()
	cp := *bottle
	r.bottles = append(r.bottles, &cp)
	return nil
}

func (r *memoryBottleRepo) Count(ctx context.Context, filter models.BottleFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	var n int64
	for _, b := range r.bottles {
		if matches(b, filter) {
			n++
		}
	}
	return n, nil
}

// byBottleID returns a copy of the stored bottle, nil when absent
func (r *memoryBottleRepo) byBottleID(bottleID int64) *models.Bottle {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bottles {
		if b.BottleID == bottleID {
			cp := *b
			return &cp
		}
	}
	return nil
}

func (r *memoryBottleRepo) SampleUnpicked(ctx context.Context, excludedSenderID string, size int) ([]*models.Bottle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}

	var eligible []*models.Bottle
	for _, b := range r.bottles {
		if b.SenderID == excludedSenderID {
			continue
		}
		if b.Picked && !r.staleSample {
			continue
		}
		cp := *b
		cp.Picked = false
		eligible = append(eligible, &cp)
	}

	if r.staleSample {
		sort.Slice(eligible, func(i, j int) bool { return eligible[i].BottleID < eligible[j].BottleID })
	} else {
		rand.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	}
	if len(eligible) > size {
		eligible = eligible[:size]
	}
	return eligible, nil
}

func (r *memoryBottleRepo) MarkPicked(ctx context.Context, objectID primitive.ObjectID, pickedBy string, pickedAt time.Time) (*models.Bottle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, b := range r.bottles {
		if b.ObjectID != objectID {
			continue
		}
		if b.Picked {
			return nil, nil
		}
		b.Picked = true
		b.PickedAt = &pickedAt
		b.PickedBy = &pickedBy
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryBottleRepo) EnsureIndexes(ctx context.Context) error {
	return nil
}

func matches(b *models.Bottle, f models.BottleFilter) bool {
	if f.Picked != nil && b.Picked != *f.Picked {
		return false
	}
	if f.ExcludeSenderID != nil && b.SenderID == *f.ExcludeSenderID {
		return false
	}
	return true
}

type memorySequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	failWith error
}

func newMemorySequenceRepo() *memorySequenceRepo {
	return &memorySequenceRepo{counters: map[string]int64{}}
}

func (r *memorySequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	r.counters[name]++
	return r.counters[name], nil
}

var errStoreDown = fmt.Errorf("bottles.insert: %w: connection refused", repository.ErrStorageUnavailable)
