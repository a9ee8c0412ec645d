package businessflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amirphl/drift-bottle/app/dto"
	"github.com/amirphl/drift-bottle/config"
	"github.com/amirphl/drift-bottle/models"
	"github.com/amirphl/drift-bottle/repository"
	"github.com/amirphl/drift-bottle/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlow(bottles *memoryBottleRepo, seq *memorySequenceRepo, claim config.ClaimConfig) BottleFlow {
	return NewBottleFlow(bottles, seq, nil, config.CacheConfig{}, claim, nil)
}

func defaultClaimConfig() config.ClaimConfig {
	return config.ClaimConfig{SampleSize: 5, MaxAttempts: 3}
}

func throwBottle(t *testing.T, flow BottleFlow, content, senderID string) *dto.BottleResponse {
	t.Helper()
	resp, err := flow.CreateBottle(context.Background(), &dto.CreateBottleRequest{
		Content:  content,
		Sender:   "sender " + senderID,
		SenderID: senderID,
		Poke:     utils.ToPtr(false),
	}, NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)
	return resp
}

func pick(flow BottleFlow, senderID string) (*dto.BottleResponse, error) {
	return flow.PickBottle(context.Background(), &dto.PickBottleRequest{SenderID: senderID}, NewClientMetadata("127.0.0.1", "test"))
}

func TestCreateBottle(t *testing.T) {
	t.Run("assigns increasing ids and defaults", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())

		first, err := flow.CreateBottle(context.Background(), &dto.CreateBottleRequest{
			Content:  "hello sea",
			Images:   []dto.ImageDTO{{Type: "png", Data: "aGVsbG8="}},
			Sender:   "alice",
			SenderID: "u1",
			Poke:     utils.ToPtr(true),
		}, nil)
		require.NoError(t, err)
		second := throwBottle(t, flow, "second", "u1")

		assert.Equal(t, int64(1), first.BottleID)
		assert.Equal(t, int64(2), second.BottleID)
		assert.False(t, first.Picked)
		assert.True(t, first.Poke)
		assert.Equal(t, []dto.ImageDTO{{Type: "png", Data: "aGVsbG8="}}, first.Images)
		assert.NotNil(t, second.Images)
		assert.Empty(t, second.Images)
		assert.Len(t, first.Timestamp, len(utils.TimestampLayout))
	})

	t.Run("validation", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		cases := []struct {
			name  string
			req   *dto.CreateBottleRequest
			check func(error) bool
		}{
			{"nil request", nil, IsContentRequired},
			{"missing content", &dto.CreateBottleRequest{Sender: "a", SenderID: "u1", Poke: utils.ToPtr(false)}, IsContentRequired},
			{"missing sender", &dto.CreateBottleRequest{Content: "c", SenderID: "u1", Poke: utils.ToPtr(false)}, IsSenderRequired},
			{"missing sender id", &dto.CreateBottleRequest{Content: "c", Sender: "a", Poke: utils.ToPtr(false)}, IsSenderIDRequired},
			{"missing poke", &dto.CreateBottleRequest{Content: "c", Sender: "a", SenderID: "u1"}, IsPokeRequired},
			{"bad image", &dto.CreateBottleRequest{Content: "c", Sender: "a", SenderID: "u1", Poke: utils.ToPtr(false), Images: []dto.ImageDTO{{Type: "png"}}}, IsInvalidImage},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := flow.CreateBottle(context.Background(), tc.req, nil)
				require.Error(t, err)
				assert.True(t, tc.check(err), err.Error())
			})
		}
	})

	t.Run("allocation failure persists nothing", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		seq := newMemorySequenceRepo()
		seq.failWith = errStoreDown
		flow := newTestFlow(bottles, seq, defaultClaimConfig())

		_, err := flow.CreateBottle(context.Background(), &dto.CreateBottleRequest{
			Content: "c", Sender: "a", SenderID: "u1", Poke: utils.ToPtr(false),
		}, nil)
		require.Error(t, err)
		assert.True(t, repository.IsStorageUnavailable(err))

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "BOTTLE_ID_ALLOCATION_FAILED", be.Code)

		n, _ := bottles.Count(context.Background(), models.BottleFilter{})
		assert.Zero(t, n)
	})

	t.Run("id allocated before a failed save is skipped", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		seq := newMemorySequenceRepo()
		flow := newTestFlow(bottles, seq, defaultClaimConfig())

		first := throwBottle(t, flow, "one", "u1")

		bottles.failWith = errStoreDown
		_, err := flow.CreateBottle(context.Background(), &dto.CreateBottleRequest{
			Content: "lost", Sender: "a", SenderID: "u1", Poke: utils.ToPtr(false),
		}, nil)
		require.Error(t, err)
		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "CREATE_BOTTLE_FAILED", be.Code)
		bottles.failWith = nil

		next := throwBottle(t, flow, "two", "u1")
		assert.Equal(t, first.BottleID+2, next.BottleID)
		assert.Nil(t, bottles.byBottleID(first.BottleID+1))

		n, err := bottles.Count(context.Background(), models.BottleFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("concurrent creates get unique ids", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())

		const workers = 50
		ids := make(chan int64, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp, err := flow.CreateBottle(context.Background(), &dto.CreateBottleRequest{
					Content: fmt.Sprintf("bottle %d", i), Sender: "s", SenderID: "u1", Poke: utils.ToPtr(false),
				}, nil)
				if err == nil {
					ids <- resp.BottleID
				}
			}(i)
		}
		wg.Wait()
		close(ids)

		seen := map[int64]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, workers)
	})
}

func TestPickBottle(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		throwBottle(t, flow, "A", "u1")
		b := throwBottle(t, flow, "B", "u2")

		got, err := pick(flow, "u1")
		require.NoError(t, err)
		assert.Equal(t, b.BottleID, got.BottleID)
		assert.Equal(t, "B", got.Content)
		assert.True(t, got.Picked)

		_, err = pick(flow, "u1")
		require.Error(t, err)
		assert.True(t, IsNoBottlesAvailable(err))

		count, err := flow.CountActiveBottles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), count.TotalActiveBottles)
	})

	t.Run("empty set", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		_, err := pick(flow, "u1")
		require.Error(t, err)
		assert.True(t, IsNoBottlesAvailable(err))

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "NO_BOTTLES_AVAILABLE", be.Code)
	})

	t.Run("requester never gets own bottle", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		for i := 0; i < 10; i++ {
			throwBottle(t, flow, "mine", "u1")
		}
		_, err := pick(flow, "u1")
		assert.True(t, IsNoBottlesAvailable(err))

		throwBottle(t, flow, "theirs", "u2")
		got, err := pick(flow, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u2", got.SenderID)
	})

	t.Run("picked bottles are never returned again", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		for i := 0; i < 20; i++ {
			throwBottle(t, flow, fmt.Sprintf("b%d", i), "u2")
		}

		seen := map[int64]bool{}
		for i := 0; i < 20; i++ {
			got, err := pick(flow, "u1")
			require.NoError(t, err)
			assert.False(t, seen[got.BottleID])
			seen[got.BottleID] = true
		}
		_, err := pick(flow, "u1")
		assert.True(t, IsNoBottlesAvailable(err))
	})

	t.Run("records who picked", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		flow := newTestFlow(bottles, newMemorySequenceRepo(), defaultClaimConfig())
		b := throwBottle(t, flow, "x", "u2")

		_, err := pick(flow, "u9")
		require.NoError(t, err)

		stored := bottles.byBottleID(b.BottleID)
		require.NotNil(t, stored)
		require.NotNil(t, stored.PickedBy)
		require.NotNil(t, stored.PickedAt)
		assert.Equal(t, "u9", *stored.PickedBy)
	})

	t.Run("missing sender id", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		_, err := pick(flow, "")
		assert.True(t, IsSenderIDRequired(err))
	})

	t.Run("storage failure", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		bottles.failWith = errStoreDown
		flow := newTestFlow(bottles, newMemorySequenceRepo(), defaultClaimConfig())

		_, err := pick(flow, "u1")
		require.Error(t, err)
		assert.True(t, repository.IsStorageUnavailable(err))
		assert.False(t, IsNoBottlesAvailable(err))

		var be *BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "PICK_BOTTLE_FAILED", be.Code)
	})
}

func TestPickBottleConcurrent(t *testing.T) {
	t.Run("random sampling never double claims", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		flow := newTestFlow(bottles, newMemorySequenceRepo(), defaultClaimConfig())
		const bottlesN, pickers = 30, 60
		for i := 0; i < bottlesN; i++ {
			throwBottle(t, flow, fmt.Sprintf("b%d", i), "author")
		}

		results := runPickers(flow, pickers)
		assert.Equal(t, pickers, len(results.claimed)+results.notFound+results.contention)
		assert.Zero(t, results.other)

		picked, err := bottles.Count(context.Background(), models.BottleFilter{Picked: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(len(results.claimed)), picked)
		assert.GreaterOrEqual(t, results.notFound+results.contention, pickers-bottlesN)
	})

	t.Run("every picker samples the same single candidate", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		bottles.staleSample = true
		flow := newTestFlow(bottles, newMemorySequenceRepo(), config.ClaimConfig{SampleSize: 1, MaxAttempts: 3})
		for i := 0; i < 3; i++ {
			throwBottle(t, flow, fmt.Sprintf("b%d", i), "author")
		}

		results := runPickers(flow, 10)
		require.Len(t, results.claimed, 1)
		assert.Equal(t, 9, results.contention)
		for id := range results.claimed {
			assert.Equal(t, int64(1), id)
		}
	})

	t.Run("every picker samples the same candidate batch", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		bottles.staleSample = true
		flow := newTestFlow(bottles, newMemorySequenceRepo(), config.ClaimConfig{SampleSize: 10, MaxAttempts: 2})
		for i := 0; i < 3; i++ {
			throwBottle(t, flow, fmt.Sprintf("b%d", i), "author")
		}

		results := runPickers(flow, 10)
		assert.Len(t, results.claimed, 3)
		assert.Equal(t, 7, results.notFound)
		assert.Zero(t, results.contention)
	})
}

type pickResults struct {
	claimed    map[int64]int
	notFound   int
	contention int
	other      int
}

func runPickers(flow BottleFlow, pickers int) pickResults {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = pickResults{claimed: map[int64]int{}}
	)
	for i := 0; i < pickers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := pick(flow, fmt.Sprintf("picker-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				out.claimed[got.BottleID]++
			case IsNoBottlesAvailable(err):
				out.notFound++
			case IsClaimContention(err):
				out.contention++
			default:
				out.other++
			}
		}(i)
	}
	wg.Wait()

	for id, n := range out.claimed {
		if n > 1 {
			panic(fmt.Sprintf("bottle %d claimed %d times", id, n))
		}
	}
	return out
}

func TestCountActiveBottles(t *testing.T) {
	t.Run("rises by K after K creates", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())

		before, err := flow.CountActiveBottles(context.Background())
		require.NoError(t, err)

		const k = 7
		for i := 0; i < k; i++ {
			throwBottle(t, flow, "c", "u1")
		}

		after, err := flow.CountActiveBottles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, before.TotalActiveBottles+k, after.TotalActiveBottles)
	})

	t.Run("storage failure", func(t *testing.T) {
		bottles := newMemoryBottleRepo()
		bottles.failWith = errStoreDown
		flow := newTestFlow(bottles, newMemorySequenceRepo(), defaultClaimConfig())

		_, err := flow.CountActiveBottles(context.Background())
		require.Error(t, err)
		assert.True(t, repository.IsStorageUnavailable(err))

		_, err = flow.RefreshActiveCount(context.Background())
		require.Error(t, err)
		assert.True(t, repository.IsStorageUnavailable(err))
	})

	t.Run("refresh ignores picked bottles", func(t *testing.T) {
		flow := newTestFlow(newMemoryBottleRepo(), newMemorySequenceRepo(), defaultClaimConfig())
		throwBottle(t, flow, "c", "u1")
		throwBottle(t, flow, "c", "u1")

		_, err := pick(flow, "u2")
		require.NoError(t, err)

		count, err := flow.RefreshActiveCount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestToBottleDTO(t *testing.T) {
	b := models.Bottle{BottleID: 3, Content: "c", Sender: "s", SenderID: "u1"}
	out := ToBottleDTO(b)
	assert.NotNil(t, out.Images)
	assert.Equal(t, "0001-01-01 00:00:00", out.Timestamp)
}
