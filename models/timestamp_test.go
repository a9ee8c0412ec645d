package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBottleTimestampDecoding(t *testing.T) {
	t.Run("bson date", func(t *testing.T) {
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		raw, err := bson.Marshal(Bottle{BottleID: 1, Content: "c", CreatedAt: NewTimestamp(created)})
		require.NoError(t, err)

		var doc bson.M
		require.NoError(t, bson.Unmarshal(raw, &doc))
		assert.IsType(t, primitive.DateTime(0), doc["timestamp"])

		var got Bottle
		require.NoError(t, bson.Unmarshal(raw, &got))
		assert.True(t, created.Equal(got.CreatedAt.Time))
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
	})

	t.Run("legacy local string", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{
			"bottle_id": int32(3),
			"content":   "old",
			"images":    bson.A{},
			"sender":    "s",
			"sender_id": "u1",
			"poke":      false,
			"picked":    false,
			"timestamp": "2023-11-20 08:30:15",
		})
		require.NoError(t, err)

		var got Bottle
		require.NoError(t, bson.Unmarshal(raw, &got))
		want := time.Date(2023, 11, 20, 8, 30, 15, 0, time.Local)
		assert.True(t, want.Equal(got.CreatedAt.Time))
		assert.Equal(t, int64(3), got.BottleID)
	})

	t.Run("malformed string", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"timestamp": "yesterday"})
		require.NoError(t, err)

		var got Bottle
		assert.Error(t, bson.Unmarshal(raw, &got))
	})

	t.Run("unsupported type", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"timestamp": 42})
		require.NoError(t, err)

		var got Bottle
		assert.Error(t, bson.Unmarshal(raw, &got))
	})
}
