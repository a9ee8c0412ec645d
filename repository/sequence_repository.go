package repository

import (
	"context"

	"github.com/amirphl/drift-bottle/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SequenceRepositoryImpl implements SequenceRepository over a counters collection
type SequenceRepositoryImpl struct {
	*BaseRepository[models.SequenceCounter, struct{}]
}

// NewSequenceRepository creates a new sequence repository over the named counters collection
func NewSequenceRepository(store *Store, collection string) SequenceRepository {
	return &SequenceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SequenceCounter, struct{}](store, collection),
	}
}

// Next atomically increments the named counter and returns the new value.
// The first call for a name upserts the counter document at 1.
func (r *SequenceRepositoryImpl) Next(ctx context.Context, name string) (int64, error) {
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	res, err := r.execute(ctx, "counters.next", func(ctx context.Context) (any, error) {
		var counter models.SequenceCounter
		if err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
			return nil, err
		}
		return counter.Seq, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}
