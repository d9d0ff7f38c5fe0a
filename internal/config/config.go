package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Remote API
	APIBaseURL string
	APITimeout time.Duration

	// Session persistence
	SessionDBPath string

	// Upload limits
	MaxUploadBytes int64
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:4000"),
		APITimeout:     getEnvDuration("API_TIMEOUT", 30*time.Second),
		SessionDBPath:  getEnv("SESSION_DB_PATH", "./data/gibrocash.db"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate API base URL
	if c.APIBaseURL == "" {
		errors = append(errors, "API base URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}

	// Validate session database path
	if c.SessionDBPath == "" {
		errors = append(errors, "session database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SessionDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create session database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1 byte", c.MaxUploadBytes))
	} else if c.MaxUploadBytes > 100<<20 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at most 100 MiB", c.MaxUploadBytes))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
