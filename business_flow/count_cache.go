package businessflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/amirphl/drift-bottle/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// errActiveCountStale aborts a cache write whose count was taken before the latest invalidation
var errActiveCountStale = errors.New("active count generation changed")

func (f *BottleFlowImpl) cacheEnabled() bool {
	return f.rc != nil && f.cacheCfg.Enabled && f.cacheCfg.CountTTL > 0
}

func (f *BottleFlowImpl) cachedActiveCount(ctx context.Context) (int64, bool) {
	if !f.cacheEnabled() {
		return 0, false
	}

	raw, err := f.rc.Get(ctx, redisKey(f.cacheCfg, utils.ActiveBottleCountCacheKey)).Result()
	if errors.Is(err, redis.Nil) {
		activeCountCacheTotal.WithLabelValues("miss").Inc()
		return 0, false
	}
	if err != nil {
		activeCountCacheTotal.WithLabelValues("error").Inc()
		f.logger.Warn("active count cache read failed", zap.Error(err))
		return 0, false
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		activeCountCacheTotal.WithLabelValues("error").Inc()
		return 0, false
	}
	activeCountCacheTotal.WithLabelValues("hit").Inc()
	return count, true
}

// activeCountGeneration reads the invalidation generation. It must be read before the
// store count so that storeActiveCount can detect writes that raced the count.
// The second result is false when the cache is off or unreachable.
func (f *BottleFlowImpl) activeCountGeneration(ctx context.Context) (int64, bool) {
	if !f.cacheEnabled() {
		return 0, false
	}

	generation, err := f.rc.Get(ctx, redisKey(f.cacheCfg, utils.ActiveBottleCountGenerationKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		activeCountCacheTotal.WithLabelValues("error").Inc()
		f.logger.Warn("active count generation read failed", zap.Error(err))
		return 0, false
	}
	return generation, true
}

// storeActiveCount caches count only if the generation still equals the one read before
// counting. WATCH makes the compare and the SET a single transaction against concurrent
// invalidations.
func (f *BottleFlowImpl) storeActiveCount(ctx context.Context, generation, count int64) {
	if !f.cacheEnabled() {
		return
	}
	countKey := redisKey(f.cacheCfg, utils.ActiveBottleCountCacheKey)
	generationKey := redisKey(f.cacheCfg, utils.ActiveBottleCountGenerationKey)

	err := f.rc.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errActiveCountStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, countKey, count, f.cacheCfg.CountTTL)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errActiveCountStale), errors.Is(err, redis.TxFailedErr):
		activeCountCacheTotal.WithLabelValues("stale").Inc()
	default:
		activeCountCacheTotal.WithLabelValues("error").Inc()
		f.logger.Warn("active count cache write failed", zap.Error(err))
	}
}

// invalidateActiveCount bumps the generation and drops the cached count after any write
// that changes the unpicked set
func (f *BottleFlowImpl) invalidateActiveCount(ctx context.Context) {
	if !f.cacheEnabled() {
		return
	}
	_, err := f.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisKey(f.cacheCfg, utils.ActiveBottleCountGenerationKey))
		pipe.Del(ctx, redisKey(f.cacheCfg, utils.ActiveBottleCountCacheKey))
		return nil
	})
	if err != nil {
		activeCountCacheTotal.WithLabelValues("error").Inc()
		f.logger.Warn("active count cache invalidation failed", zap.Error(err))
	}
}
