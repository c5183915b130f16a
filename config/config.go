package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/junzhij/esports-tournament-live/storage"
)

// Config holds all runtime configuration. Everything has a sane local
// default except the R2 credentials, which are simply absent when logo
// upload is not configured.
type Config struct {
	ServerPort int
	DBPath     string

	// Nil when the R2 variables are unset.
	R2 *storage.CloudflareR2Config
}

// Load reads configuration from environment variables, optionally
// seeded from a .env file. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/live.db"
	}

	cfg := &Config{
		ServerPort: port,
		DBPath:     dbPath,
	}

	r2 := storage.CloudflareR2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
		PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	if r2.AccountID != "" || r2.AccessKeyID != "" || r2.SecretAccessKey != "" || r2.BucketName != "" || r2.PublicBaseURL != "" {
		if r2.AccountID == "" || r2.AccessKeyID == "" || r2.SecretAccessKey == "" || r2.BucketName == "" || r2.PublicBaseURL == "" {
			return nil, fmt.Errorf("incomplete Cloudflare R2 configuration: set all R2_* variables or none")
		}
		cfg.R2 = &r2
	}

	return cfg, nil
}
