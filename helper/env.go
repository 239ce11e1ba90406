package helper

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EmbedderConfiguration holds the settings of the remote embedding provider.
// An empty URL means the local sentence transformer is used instead.
type EmbedderConfiguration struct {
	URL            string
	Model          string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	Workers        int
}

// NewEmbedderConfiguration reads the embedding provider settings from the environment.
func NewEmbedderConfiguration() (*EmbedderConfiguration, error) {
	_ = godotenv.Load()

	config := &EmbedderConfiguration{
		URL:            getEnv("EMBED_URL", ""),
		Model:          getEnv("EMBED_MODEL", "bge-m3"),
		APIKey:         getEnv("EMBED_API_KEY", ""),
		Timeout:        getEnvAsDuration("EMBED_TIMEOUT", 45*time.Second),
		MaxAttempts:    getEnvAsInt("EMBED_MAX_ATTEMPTS", 3),
		InitialBackoff: getEnvAsDuration("EMBED_INITIAL_BACKOFF", 500*time.Millisecond),
		Workers:        getEnvAsInt("EMBED_WORKERS", 4),
	}

	if config.MaxAttempts < 1 {
		return nil, NewError("embedder configuration", fmt.Errorf("EMBED_MAX_ATTEMPTS must be at least 1, got %d", config.MaxAttempts))
	}
	if config.Workers < 1 {
		return nil, NewError("embedder configuration", fmt.Errorf("EMBED_WORKERS must be at least 1, got %d", config.Workers))
	}
	if config.URL != "" && config.Model == "" {
		return nil, NewError("embedder configuration", fmt.Errorf("EMBED_MODEL is required when EMBED_URL is set"))
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
