// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/drift-bottle/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the write and count surface shared by entity repositories
type Repository[T any, F any] interface {
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// BottleRepository defines operations for bottles
type BottleRepository interface {
	Repository[models.Bottle, models.BottleFilter]
	// SampleUnpicked draws up to size unpicked bottles uniformly at random,
	// skipping bottles sent by excludedSenderID.
	SampleUnpicked(ctx context.Context, excludedSenderID string, size int) ([]*models.Bottle, error)
	// MarkPicked flips picked to true only if the bottle is still unpicked.
	// Returns nil without error when another request already picked it.
	MarkPicked(ctx context.Context, objectID primitive.ObjectID, pickedBy string, pickedAt time.Time) (*models.Bottle, error)
	EnsureIndexes(ctx context.Context) error
}

// SequenceRepository defines operations for named monotonic counters
type SequenceRepository interface {
	// Next atomically increments the named counter, creating it at 1 when absent.
	Next(ctx context.Context, name string) (int64, error)
}
