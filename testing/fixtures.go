package testing

import (
	"context"
	"fmt"

	"github.com/amirphl/drift-bottle/models"
	"github.com/amirphl/drift-bottle/repository"
	"github.com/amirphl/drift-bottle/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	Bottles  repository.BottleRepository
	Counters repository.SequenceRepository
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(bottles repository.BottleRepository, counters repository.SequenceRepository) *TestFixtures {
	return &TestFixtures{Bottles: bottles, Counters: counters}
}

// CreateTestBottle stores an unpicked bottle from senderID with the next bottle id
func (tf *TestFixtures) CreateTestBottle(ctx context.Context, senderID string) (*models.Bottle, error) {
	id, err := tf.Counters.Next(ctx, models.BottleSequenceName)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate bottle id: %w", err)
	}

	bottle := &models.Bottle{
		BottleID:  id,
		Content:   fmt.Sprintf("message %d from %s", id, senderID),
		Images:    []models.Image{{Type: "png", Data: "iVBORw0KGgo="}},
		Sender:    "Sender " + senderID,
		SenderID:  senderID,
		Poke:      id%2 == 0,
		CreatedAt: models.NewTimestamp(utils.UTCNowMillis()),
	}
	if err := tf.Bottles.Save(ctx, bottle); err != nil {
		return nil, fmt.Errorf("failed to save bottle: %w", err)
	}
	return bottle, nil
}

// CreateMultipleTestBottles stores n bottles from senderID
func (tf *TestFixtures) CreateMultipleTestBottles(ctx context.Context, senderID string, n int) ([]*models.Bottle, error) {
	out := make([]*models.Bottle, 0, n)
	for i := 0; i < n; i++ {
		b, err := tf.CreateTestBottle(ctx, senderID)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
