// internal/infra/config/config.go
package config

import (
	"os"
	"time"
)

// Config holds the environment-driven settings of the connector and its tools.
type Config struct {
	GCPCreds                 string
	FirestoreProjectID       string
	FirestoreCredentialsFile string

	// Secret Manager secret holding a service-account JSON key.
	// Empty means file/ADC credentials are used instead.
	CredentialsSecret string

	// Collection holding history documents.
	HistoryCollection string

	// Bucket for history exports (cmd/histexport).
	ExportBucket string

	// Delay between the two attempts of a retried call.
	RetrySleep time.Duration

	LogLevel string
}

// Load reads the environment and returns a Config.
func Load() *Config {
	defaultProject := getenvDefault("GCP_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT"))

	return &Config{
		GCPCreds:                 os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		CredentialsSecret:        os.Getenv("FIRESTORE_CREDENTIALS_SECRET"),
		HistoryCollection:        getenvDefault("HISTORY_COLLECTION", "history"),
		ExportBucket:             os.Getenv("HISTORY_EXPORT_BUCKET"),
		RetrySleep:               getenvDuration("FSCONNECTOR_RETRY_SLEEP", 5*time.Second),
		LogLevel:                 getenvDefault("LOG_LEVEL", "info"),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
