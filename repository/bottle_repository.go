// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/drift-bottle/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BottleRepositoryImpl implements BottleRepository interface
type BottleRepositoryImpl struct {
	*BaseRepository[models.Bottle, models.BottleFilter]
}

// NewBottleRepository creates a new bottle repository over the named collection
func NewBottleRepository(store *Store, collection string) BottleRepository {
	return &BottleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Bottle, models.BottleFilter](store, collection),
	}
}

// Save inserts a new bottle and records its storage identity on the entity
func (r *BottleRepositoryImpl) Save(ctx context.Context, bottle *models.Bottle) error {
	if bottle.Images == nil {
		bottle.Images = []models.Image{}
	}

	res, err := r.execute(ctx, "bottles.insert", func(ctx context.Context) (any, error) {
		return r.Collection.InsertOne(ctx, bottle)
	})
	if err != nil {
		return err
	}

	if inserted, ok := res.(*mongo.InsertOneResult); ok {
		if oid, ok := inserted.InsertedID.(primitive.ObjectID); ok {
			bottle.ObjectID = oid
		}
	}
	return nil
}

// applyFilter converts filter criteria into a bson query
func (r *BottleRepositoryImpl) applyFilter(filter models.BottleFilter) bson.M {
	query := bson.M{}
	if filter.ExcludeSenderID != nil {
		query["sender_id"] = bson.M{"$ne": *filter.ExcludeSenderID}
	}
	if filter.Picked != nil {
		query["picked"] = *filter.Picked
	}
	return query
}

// Count returns the number of bottles matching the filter
func (r *BottleRepositoryImpl) Count(ctx context.Context, filter models.BottleFilter) (int64, error) {
	return r.count(ctx, "bottles.count", r.applyFilter(filter))
}

// SampleUnpicked draws up to size random unpicked bottles not sent by excludedSenderID
func (r *BottleRepositoryImpl) SampleUnpicked(ctx context.Context, excludedSenderID string, size int) ([]*models.Bottle, error) {
	if size <= 0 {
		size = 1
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "picked", Value: false},
			{Key: "sender_id", Value: bson.D{{Key: "$ne", Value: excludedSenderID}}},
		}}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: size}}}},
	}

	res, err := r.execute(ctx, "bottles.sample", func(ctx context.Context) (any, error) {
		cur, err := r.Collection.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, err
		}
		var out []*models.Bottle
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]*models.Bottle), nil
}

// MarkPicked conditionally flips picked on one bottle identified by its storage identity.
// The picked=false predicate is evaluated by the store at write time, so two concurrent
// callers can never both win the same bottle.
func (r *BottleRepositoryImpl) MarkPicked(ctx context.Context, objectID primitive.ObjectID, pickedBy string, pickedAt time.Time) (*models.Bottle, error) {
	filter := bson.M{"_id": objectID, "picked": false}
	update := bson.M{"$set": bson.M{
		"picked":    true,
		"picked_at": pickedAt,
		"picked_by": pickedBy,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	res, err := r.execute(ctx, "bottles.mark_picked", func(ctx context.Context) (any, error) {
		var bottle models.Bottle
		err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&bottle)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return (*models.Bottle)(nil), nil
		}
		if err != nil {
			return nil, err
		}
		return &bottle, nil
	})
	if err != nil {
		return nil, err
	}
	bottle, _ := res.(*models.Bottle)
	return bottle, nil
}

// EnsureIndexes creates the indexes the bottle queries rely on
func (r *BottleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bottle_id", Value: 1}},
			Options: options.Index().SetName("uk_bottles_bottle_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "picked", Value: 1}, {Key: "sender_id", Value: 1}},
			Options: options.Index().SetName("idx_bottles_picked_sender_id"),
		},
	}

	_, err := r.execute(ctx, "bottles.ensure_indexes", func(ctx context.Context) (any, error) {
		return r.Collection.Indexes().CreateMany(ctx, indexes)
	})
	return err
}
