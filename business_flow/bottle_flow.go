package businessflow

import (
	"context"

	"github.com/amirphl/drift-bottle/app/dto"
	"github.com/amirphl/drift-bottle/config"
	"github.com/amirphl/drift-bottle/models"
	"github.com/amirphl/drift-bottle/repository"
	"github.com/amirphl/drift-bottle/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BottleFlow defines operations for throwing, picking and counting bottles
type BottleFlow interface {
	CreateBottle(ctx context.Context, req *dto.CreateBottleRequest, metadata *ClientMetadata) (*dto.BottleResponse, error)
	PickBottle(ctx context.Context, req *dto.PickBottleRequest, metadata *ClientMetadata) (*dto.BottleResponse, error)
	CountActiveBottles(ctx context.Context) (*dto.BottleCountResponse, error)
	RefreshActiveCount(ctx context.Context) (int64, error)
}

// BottleFlowImpl implements BottleFlow
type BottleFlowImpl struct {
	bottleRepo repository.BottleRepository
	seqRepo    repository.SequenceRepository
	rc         *redis.Client
	cacheCfg   config.CacheConfig
	claimCfg   config.ClaimConfig
	logger     *zap.Logger
}

// NewBottleFlow creates a new bottle flow. rc may be nil, in which case counts are always read from the store.
func NewBottleFlow(
	bottleRepo repository.BottleRepository,
	seqRepo repository.SequenceRepository,
	rc *redis.Client,
	cacheCfg config.CacheConfig,
	claimCfg config.ClaimConfig,
	logger *zap.Logger,
) BottleFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BottleFlowImpl{
		bottleRepo: bottleRepo,
		seqRepo:    seqRepo,
		rc:         rc,
		cacheCfg:   cacheCfg,
		claimCfg:   claimCfg,
		logger:     logger,
	}
}

// CreateBottle allocates the next bottle id and persists a new unpicked bottle
func (f *BottleFlowImpl) CreateBottle(ctx context.Context, req *dto.CreateBottleRequest, metadata *ClientMetadata) (result *dto.BottleResponse, err error) {
	if err := validateCreateBottleRequest(req); err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			f.logger.Error("failed to create bottle",
				zap.String("request_id", requestIDFrom(ctx, metadata)),
				zap.String("sender_id", req.SenderID),
				zap.Error(err))
		}
	}()

	bottleID, err := f.seqRepo.Next(ctx, models.BottleSequenceName)
	if err != nil {
		return nil, NewBusinessError("BOTTLE_ID_ALLOCATION_FAILED", "Failed to allocate bottle id", err)
	}

	bottle := models.Bottle{
		BottleID:  bottleID,
		Content:   req.Content,
		Images:    toImageModels(req.Images),
		Sender:    req.Sender,
		SenderID:  req.SenderID,
		Poke:      *req.Poke,
		Picked:    false,
		CreatedAt: models.NewTimestamp(utils.UTCNowMillis()),
	}

	if err = f.bottleRepo.Save(ctx, &bottle); err != nil {
		return nil, NewBusinessError("CREATE_BOTTLE_FAILED", "Failed to create bottle", err)
	}

	bottlesCreatedTotal.Inc()
	f.invalidateActiveCount(ctx)

	f.logger.Info("bottle created",
		zap.String("request_id", requestIDFrom(ctx, metadata)),
		zap.Int64("bottle_id", bottle.BottleID),
		zap.String("sender_id", bottle.SenderID),
		zap.Int("images", len(bottle.Images)))

	resp := ToBottleDTO(bottle)
	return &resp, nil
}

// PickBottle claims one random unpicked bottle not sent by the requester
func (f *BottleFlowImpl) PickBottle(ctx context.Context, req *dto.PickBottleRequest, metadata *ClientMetadata) (*dto.BottleResponse, error) {
	if req == nil || req.SenderID == "" {
		return nil, NewBusinessError("SENDER_ID_REQUIRED", "sender_id is required", ErrSenderIDRequired)
	}

	bottle, err := f.claimRandom(ctx, req.SenderID)
	if err != nil {
		switch {
		case IsNoBottlesAvailable(err):
			bottleClaimsTotal.WithLabelValues(claimResultEmpty).Inc()
			return nil, NewBusinessError("NO_BOTTLES_AVAILABLE", "No bottles available", err)
		case IsClaimContention(err):
			bottleClaimsTotal.WithLabelValues(claimResultContention).Inc()
			f.logger.Warn("bottle claim gave up under contention",
				zap.String("request_id", requestIDFrom(ctx, metadata)),
				zap.String("sender_id", req.SenderID),
				zap.Int("max_attempts", f.maxAttempts()))
			return nil, NewBusinessError("CLAIM_CONTENTION", "Too many concurrent picks, try again", err)
		default:
			bottleClaimsTotal.WithLabelValues(claimResultError).Inc()
			f.logger.Error("failed to pick bottle",
				zap.String("request_id", requestIDFrom(ctx, metadata)),
				zap.String("sender_id", req.SenderID),
				zap.Error(err))
			return nil, NewBusinessError("PICK_BOTTLE_FAILED", "Failed to pick bottle", err)
		}
	}

	bottleClaimsTotal.WithLabelValues(claimResultClaimed).Inc()
	f.invalidateActiveCount(ctx)

	f.logger.Info("bottle picked",
		zap.String("request_id", requestIDFrom(ctx, metadata)),
		zap.Int64("bottle_id", bottle.BottleID),
		zap.String("picked_by", req.SenderID))

	resp := ToBottleDTO(*bottle)
	return &resp, nil
}

// claimRandom samples candidates and claims the first one whose conditional update matches.
// A candidate that no longer matches was taken by a concurrent pick; the next one is tried,
// and the sample is redrawn up to maxAttempts times.
func (f *BottleFlowImpl) claimRandom(ctx context.Context, excludedSenderID string) (*models.Bottle, error) {
	attempts := f.maxAttempts()
	for round := 1; round <= attempts; round++ {
		candidates, err := f.bottleRepo.SampleUnpicked(ctx, excludedSenderID, f.sampleSize())
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, ErrNoBottlesAvailable
		}

		for _, candidate := range candidates {
			if candidate.SenderID == excludedSenderID {
				continue
			}
			claimed, err := f.bottleRepo.MarkPicked(ctx, candidate.ObjectID, excludedSenderID, utils.UTCNowMillis())
			if err != nil {
				return nil, err
			}
			if claimed != nil {
				bottleClaimRounds.Observe(float64(round))
				return claimed, nil
			}
			bottleClaimLostRacesTotal.Inc()
		}
	}

	remaining, err := f.bottleRepo.Count(ctx, models.BottleFilter{
		Picked:          utils.ToPtr(false),
		ExcludeSenderID: &excludedSenderID,
	})
	if err != nil {
		return nil, err
	}
	if remaining == 0 {
		return nil, ErrNoBottlesAvailable
	}
	return nil, ErrClaimContention
}

// CountActiveBottles returns the number of unpicked bottles
func (f *BottleFlowImpl) CountActiveBottles(ctx context.Context) (*dto.BottleCountResponse, error) {
	if count, ok := f.cachedActiveCount(ctx); ok {
		return &dto.BottleCountResponse{TotalActiveBottles: count}, nil
	}

	count, err := f.RefreshActiveCount(ctx)
	if err != nil {
		f.logger.Error("failed to count active bottles", zap.Error(err))
		return nil, err
	}
	return &dto.BottleCountResponse{TotalActiveBottles: count}, nil
}

// RefreshActiveCount recounts unpicked bottles in the store, bypassing the cache.
// The result is cached only when no create or pick invalidated the count while it ran.
func (f *BottleFlowImpl) RefreshActiveCount(ctx context.Context) (int64, error) {
	generation, cacheable := f.activeCountGeneration(ctx)

	count, err := f.bottleRepo.Count(ctx, models.BottleFilter{Picked: utils.ToPtr(false)})
	if err != nil {
		return 0, NewBusinessError("COUNT_BOTTLES_FAILED", "Failed to count active bottles", err)
	}
	activeBottlesGauge.Set(float64(count))

	if cacheable {
		f.storeActiveCount(ctx, generation, count)
	}
	return count, nil
}

func (f *BottleFlowImpl) sampleSize() int {
	if f.claimCfg.SampleSize < 1 {
		return 1
	}
	return f.claimCfg.SampleSize
}

func (f *BottleFlowImpl) maxAttempts() int {
	if f.claimCfg.MaxAttempts < 1 {
		return 1
	}
	return f.claimCfg.MaxAttempts
}

func validateCreateBottleRequest(req *dto.CreateBottleRequest) error {
	if req == nil || req.Content == "" {
		return NewBusinessError("CONTENT_REQUIRED", "content is required", ErrContentRequired)
	}
	if req.Sender == "" {
		return NewBusinessError("SENDER_REQUIRED", "sender is required", ErrSenderRequired)
	}
	if req.SenderID == "" {
		return NewBusinessError("SENDER_ID_REQUIRED", "sender_id is required", ErrSenderIDRequired)
	}
	if req.Poke == nil {
		return NewBusinessError("POKE_REQUIRED", "poke is required", ErrPokeRequired)
	}
	for i, img := range req.Images {
		if img.Type == "" || img.Data == "" {
			return NewBusinessErrorf("INVALID_IMAGE", "images[%d]: type and data are required", ErrInvalidImage, i)
		}
	}
	return nil
}
