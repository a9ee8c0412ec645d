// Package testing provides test utilities and database setup for repository integration tests
package testing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/amirphl/drift-bottle/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNoTestDB is returned when no MongoDB server is configured or reachable for tests
var ErrNoTestDB = errors.New("test database not available")

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	URI            string
	ConnectTimeout time.Duration
}

// GetTestDBConfig loads test database configuration from environment variables
func GetTestDBConfig() *TestDBConfig {
	return &TestDBConfig{
		URI:            getEnv("TEST_MONGO_URI", ""),
		ConnectTimeout: 3 * time.Second,
	}
}

// TestDB represents a test database instance
type TestDB struct {
	Client *mongo.Client
	DB     *mongo.Database
	Name   string
}

// Store wraps the test database in a repository store without a circuit breaker
func (tdb *TestDB) Store() *repository.Store {
	return repository.NewStore(tdb.DB, 5*time.Second, nil, nil)
}

// SetupTestDB connects to the test server and selects a database with a unique name
func SetupTestDB() (*TestDB, error) {
	cfg := GetTestDBConfig()
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: TEST_MONGO_URI is not set", ErrNoTestDB)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTestDB, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %w", ErrNoTestDB, err)
	}

	dbName := fmt.Sprintf("driftbottle_test_%d_%d", time.Now().Unix(), rand.Intn(10000))
	return &TestDB{
		Client: client,
		DB:     client.Database(dbName),
		Name:   dbName,
	}, nil
}

// TeardownTestDB drops the test database and disconnects
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tdb.DB.Drop(ctx); err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
	}
	return tdb.Client.Disconnect(ctx)
}

// ClearAllCollections removes every document while keeping indexes
func (tdb *TestDB) ClearAllCollections(ctx context.Context) error {
	names, err := tdb.DB.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := tdb.DB.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear collection %s: %w", name, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up.
// Returns an error wrapping ErrNoTestDB when no server is available.
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
