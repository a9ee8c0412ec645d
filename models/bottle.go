// Package models contains domain entities persisted in the document store
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image is one attachment of a bottle. Order within a bottle is display order.
type Image struct {
	Type string `bson:"type" json:"type"`
	Data string `bson:"data" json:"data"`
}

// Bottle represents a drift bottle message
// Collection: configured by COLLECTION_NAME
// Unique by BottleID
// Picked flips false -> true exactly once and never reverts
// ObjectID is the storage identity and is never exposed to clients
type Bottle struct {
	ObjectID primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BottleID int64              `bson:"bottle_id" json:"bottle_id"`

	Content  string  `bson:"content" json:"content"`
	Images   []Image `bson:"images" json:"images"`
	Sender   string  `bson:"sender" json:"sender"`
	SenderID string  `bson:"sender_id" json:"sender_id"`
	Poke     bool    `bson:"poke" json:"poke"`

	Picked    bool       `bson:"picked" json:"picked"`
	PickedAt  *time.Time `bson:"picked_at,omitempty" json:"-"`
	PickedBy  *string    `bson:"picked_by,omitempty" json:"-"`
	CreatedAt Timestamp  `bson:"timestamp" json:"timestamp"`
}

// BottleFilter represents filter criteria for bottle counts
type BottleFilter struct {
	ExcludeSenderID *string
	Picked          *bool
}
