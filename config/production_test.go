package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DATABASE_NAME", "drift")
	t.Setenv("COLLECTION_NAME", "bottles")
}

func TestLoadProductionConfig(t *testing.T) {
	t.Run("defaults with required settings", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadProductionConfig()
		require.NoError(t, err)

		assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
		assert.Equal(t, "drift", cfg.Database.Name)
		assert.Equal(t, "bottles", cfg.Database.Collection)
		assert.Equal(t, "counters", cfg.Database.CountersCollection)
		assert.Equal(t, 5*time.Second, cfg.Database.OperationTimeout)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, 5, cfg.Claim.SampleSize)
		assert.Equal(t, 3, cfg.Claim.MaxAttempts)
		assert.False(t, cfg.Cache.Enabled)
	})

	t.Run("overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SERVER_PORT", "9001")
		t.Setenv("DB_OPERATION_TIMEOUT", "750ms")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("CLAIM_MAX_ATTEMPTS", "7")

		cfg, err := LoadProductionConfig()
		require.NoError(t, err)

		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, 750*time.Millisecond, cfg.Database.OperationTimeout)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
		assert.Equal(t, 7, cfg.Claim.MaxAttempts)
	})

	missing := []string{"MONGO_URI", "DATABASE_NAME", "COLLECTION_NAME"}
	for _, key := range missing {
		t.Run("missing "+key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			cfg, err := LoadProductionConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), key+" is required")
		})
	}
}

func TestValidateProductionConfig(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	t.Run("collects every violation", func(t *testing.T) {
		bad := *cfg
		bad.Database.URI = ""
		bad.Server.Port = 0
		bad.Claim.SampleSize = 0
		bad.Logging.Level = "verbose"

		err := ValidateProductionConfig(&bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MONGO_URI is required")
		assert.Contains(t, err.Error(), "SERVER_PORT must be between 1 and 65535")
		assert.Contains(t, err.Error(), "CLAIM_SAMPLE_SIZE must be between 1 and 100")
		assert.Contains(t, err.Error(), "LOG_LEVEL must be one of")
	})

	t.Run("counters collection must be separate", func(t *testing.T) {
		bad := *cfg
		bad.Database.CountersCollection = bad.Database.Collection

		err := ValidateProductionConfig(&bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COUNTERS_COLLECTION_NAME must differ")
	})

	t.Run("cache requires url", func(t *testing.T) {
		bad := *cfg
		bad.Cache.Enabled = true
		bad.Cache.RedisURL = ""

		err := ValidateProductionConfig(&bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_REDIS_URL is required")
	})

	t.Run("negative count refresh interval", func(t *testing.T) {
		bad := *cfg
		bad.Cache.CountRefreshInterval = -time.Second

		err := ValidateProductionConfig(&bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_COUNT_REFRESH_INTERVAL must not be negative")
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nDRIFT_TEST_FROM_FILE=\"from-file\"\nDRIFT_TEST_PRESET=from-file\n"), 0o600))

	t.Setenv("DRIFT_TEST_PRESET", "from-env")
	t.Setenv("DRIFT_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("DRIFT_TEST_FROM_FILE"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("DRIFT_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", os.Getenv("DRIFT_TEST_PRESET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}
