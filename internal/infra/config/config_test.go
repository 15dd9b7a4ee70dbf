package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIRESTORE_PROJECT_ID", "")
	t.Setenv("HISTORY_COLLECTION", "")
	t.Setenv("FSCONNECTOR_RETRY_SLEEP", "")

	cfg := Load()
	assert.Equal(t, "history", cfg.HistoryCollection)
	assert.Equal(t, 5*time.Second, cfg.RetrySleep)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FIRESTORE_PROJECT_ID", "my-project")
	t.Setenv("HISTORY_COLLECTION", "history_test")
	t.Setenv("FSCONNECTOR_RETRY_SLEEP", "250ms")

	cfg := Load()
	assert.Equal(t, "my-project", cfg.FirestoreProjectID)
	assert.Equal(t, "history_test", cfg.HistoryCollection)
	assert.Equal(t, 250*time.Millisecond, cfg.RetrySleep)
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("FSCONNECTOR_RETRY_SLEEP", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.RetrySleep)
}
