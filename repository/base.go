// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/drift-bottle/config"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrStorageUnavailable is returned when the document store cannot serve an operation:
// connection failures, timeouts, an open circuit breaker or any other driver error.
var ErrStorageUnavailable = errors.New("storage unavailable")

// IsStorageUnavailable reports whether err originates from a failed store operation
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// Store bundles the shared, concurrency-safe handles every repository needs.
// It is built once at startup and injected into repositories.
type Store struct {
	DB               *mongo.Database
	OperationTimeout time.Duration
	Breaker          *gobreaker.CircuitBreaker[any]
	Logger           *zap.Logger
}

// NewStore creates a store over the given database
func NewStore(db *mongo.Database, operationTimeout time.Duration, breaker *gobreaker.CircuitBreaker[any], logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		DB:               db,
		OperationTimeout: operationTimeout,
		Breaker:          breaker,
		Logger:           logger,
	}
}

// NewStoreBreaker creates the circuit breaker guarding store calls. Returns nil when disabled.
func NewStoreBreaker(cfg config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[any] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "mongodb",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// BaseRepository provides common repository functionality over one collection
type BaseRepository[T any, F any] struct {
	Collection *mongo.Collection
	store      *Store
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](store *Store, collection string) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		Collection: store.DB.Collection(collection),
		store:      store,
	}
}

// withTimeout bounds a single store operation by the configured operation timeout.
// A tighter caller deadline still wins.
func (r *BaseRepository[T, F]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.store.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.store.OperationTimeout)
}

// execute runs fn under the operation timeout and the circuit breaker and
// normalizes failures into ErrStorageUnavailable.
func (r *BaseRepository[T, F]) execute(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	opCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		res any
		err error
	)
	if r.store.Breaker != nil {
		res, err = r.store.Breaker.Execute(func() (any, error) { return fn(opCtx) })
	} else {
		res, err = fn(opCtx)
	}
	if err != nil {
		return nil, r.wrapError(op, err)
	}
	return res, nil
}

func (r *BaseRepository[T, F]) wrapError(op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		r.store.Logger.Warn("store call rejected by circuit breaker", zap.String("op", op), zap.Error(err))
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		r.store.Logger.Error("store operation timed out", zap.String("op", op), zap.Error(err))
	case mongo.IsNetworkError(err):
		r.store.Logger.Error("store network failure", zap.String("op", op), zap.Error(err))
	default:
		r.store.Logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// count returns the number of documents matching a raw filter
func (r *BaseRepository[T, F]) count(ctx context.Context, op string, filter bson.M) (int64, error) {
	res, err := r.execute(ctx, op, func(ctx context.Context) (any, error) {
		return r.Collection.CountDocuments(ctx, filter)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}
