// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs to start.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// DBPath is the SQLite file holding automation records and categories.
	DBPath string

	// APIKeys maps bearer keys to accounts, as "key:account:provider"
	// entries joined by commas.
	APIKeys string

	// GoogleConfigDir holds the Gmail OAuth credential files.
	GoogleConfigDir string
	// GraphToken is a bearer token for the Microsoft Graph API. Empty
	// disables the graph provider.
	GraphToken string
	// GraphBaseURL overrides the Graph endpoint, for testing.
	GraphBaseURL string

	// RequestTimeout bounds one aggregation request end to end.
	RequestTimeout time.Duration
	// ProviderRPS throttles calls to each upstream provider.
	ProviderRPS int
	// MaxConcurrentLoads caps in-flight per-thread message fetches.
	MaxConcurrentLoads int
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getEnvString("MAILFOLD_ADDR", ":8080"),
		DBPath:             getEnvString("MAILFOLD_DB_PATH", "mailfold.db"),
		APIKeys:            getEnvString("MAILFOLD_API_KEYS", ""),
		GoogleConfigDir:    getEnvString("MAILFOLD_GOOGLE_CONFIG_DIR", ""),
		GraphToken:         getEnvString("MAILFOLD_GRAPH_TOKEN", ""),
		GraphBaseURL:       getEnvString("MAILFOLD_GRAPH_BASE_URL", ""),
		ProviderRPS:        getEnvInt("MAILFOLD_PROVIDER_RPS", 10),
		MaxConcurrentLoads: getEnvInt("MAILFOLD_MAX_CONCURRENT_LOADS", 10),
	}

	timeoutSec := getEnvInt("MAILFOLD_REQUEST_TIMEOUT_SECONDS", 30)
	if timeoutSec <= 0 {
		return Config{}, fmt.Errorf("MAILFOLD_REQUEST_TIMEOUT_SECONDS must be positive, got %d", timeoutSec)
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	if cfg.ProviderRPS <= 0 {
		return Config{}, fmt.Errorf("MAILFOLD_PROVIDER_RPS must be positive, got %d", cfg.ProviderRPS)
	}
	if cfg.MaxConcurrentLoads <= 0 {
		return Config{}, fmt.Errorf("MAILFOLD_MAX_CONCURRENT_LOADS must be positive, got %d", cfg.MaxConcurrentLoads)
	}
	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
