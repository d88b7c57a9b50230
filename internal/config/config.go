// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "CREDREVIEW_"

// MaxBatchLimit is the largest batch the fallback endpoint may accept.
const MaxBatchLimit = 500

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string
	DBPath            string
	RangeAPIURL       string
	FallbackURL       string
	LookupConcurrency int
	MaxBatch          int
	ProbeTimeout      time.Duration
	ExportPartBytes   int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
}

// HasGoogleClient reports whether enough OAuth configuration is present to
// build consent URLs.
func (c *Config) HasGoogleClient() bool {
	return c.GoogleClientID != ""
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads CREDREVIEW_* variables and returns a validated Config. Every
// variable is optional:
// LISTEN_ADDR (127.0.0.1:8080), DB_PATH (credreview.db),
// RANGE_API_URL (https://api.pwnedpasswords.com),
// FALLBACK_URL (http://127.0.0.1:8080), LOOKUP_CONCURRENCY (6),
// MAX_BATCH (500, at most 500), PROBE_TIMEOUT (8s), EXPORT_PART_BYTES (153600),
// GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URI.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         stringVar("LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:             stringVar("DB_PATH", "credreview.db"),
		RangeAPIURL:        stringVar("RANGE_API_URL", "https://api.pwnedpasswords.com"),
		FallbackURL:        stringVar("FALLBACK_URL", "http://127.0.0.1:8080"),
		GoogleClientID:     os.Getenv(envPrefix + "GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv(envPrefix + "GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv(envPrefix + "GOOGLE_REDIRECT_URI"),
	}

	var err error
	if cfg.LookupConcurrency, err = positiveIntVar("LOOKUP_CONCURRENCY", 6); err != nil {
		return nil, err
	}
	if cfg.MaxBatch, err = positiveIntVar("MAX_BATCH", MaxBatchLimit); err != nil {
		return nil, err
	}
	if cfg.MaxBatch > MaxBatchLimit {
		return nil, fmt.Errorf("%sMAX_BATCH must be at most %d, got %d", envPrefix, MaxBatchLimit, cfg.MaxBatch)
	}
	if cfg.ExportPartBytes, err = positiveIntVar("EXPORT_PART_BYTES", 150*1024); err != nil {
		return nil, err
	}

	cfg.ProbeTimeout = 8 * time.Second
	if v, ok := os.LookupEnv(envPrefix + "PROBE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%sPROBE_TIMEOUT has invalid duration %q: %w", envPrefix, v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%sPROBE_TIMEOUT must be positive, got %s", envPrefix, parsed)
		}
		cfg.ProbeTimeout = parsed
	}

	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = "http://" + cfg.ListenAddr + "/api/auth/callback"
	}

	return cfg, nil
}

func stringVar(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		return v
	}
	return def
}

func positiveIntVar(key string, def int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s has invalid integer %q: %w", envPrefix, key, v, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s%s must be positive, got %d", envPrefix, key, n)
	}
	return n, nil
}
