// Package config reads the server settings from LEAKZONE_* environment
// variables, optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/leakzone-mcp/internal/export"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// DefaultCanonicalWidth is the canonical coordinate width used when
// LEAKZONE_CANONICAL_WIDTH is unset.
const DefaultCanonicalWidth = 1200

// Config holds all server settings.
type Config struct {
	FloorPlan      string
	CanonicalWidth float64
	Store          StoreConfig
	Export         export.Options
	MetricsAddr    string
	LogLevel       string
}

// StoreConfig selects the zone store backend.
type StoreConfig struct {
	Driver string
	DSN    string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv reads the environment without validating.
func FromEnv() *Config {
	return &Config{
		FloorPlan:      getEnv("LEAKZONE_FLOORPLAN", ""),
		CanonicalWidth: getFloatEnv("LEAKZONE_CANONICAL_WIDTH", DefaultCanonicalWidth),
		Store: StoreConfig{
			Driver: getEnv("LEAKZONE_STORE_DRIVER", store.DriverSQLite),
			DSN:    getEnv("LEAKZONE_STORE_DSN", "leakzones.db"),
		},
		Export: export.Options{
			Driver: getEnv("LEAKZONE_EXPORT_DRIVER", export.DriverFS),
			Root:   getEnv("LEAKZONE_EXPORT_ROOT", "./exports"),
			S3: export.S3Config{
				Bucket:          getEnv("LEAKZONE_EXPORT_S3_BUCKET", ""),
				Region:          getEnv("LEAKZONE_EXPORT_S3_REGION", "us-east-1"),
				Endpoint:        getEnv("LEAKZONE_EXPORT_S3_ENDPOINT", ""),
				Prefix:          getEnv("LEAKZONE_EXPORT_S3_PREFIX", ""),
				AccessKeyID:     getEnv("LEAKZONE_EXPORT_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("LEAKZONE_EXPORT_S3_SECRET_ACCESS_KEY", ""),
				PathStyle:       getBoolEnv("LEAKZONE_EXPORT_S3_PATH_STYLE", false),
			},
		},
		MetricsAddr: getEnv("LEAKZONE_METRICS_ADDR", ""),
		LogLevel:    strings.ToLower(getEnv("LEAKZONE_LOG_LEVEL", "info")),
	}
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	if c.FloorPlan == "" {
		return fmt.Errorf("LEAKZONE_FLOORPLAN is required")
	}
	if c.CanonicalWidth <= 0 {
		return fmt.Errorf("LEAKZONE_CANONICAL_WIDTH must be positive, got %v", c.CanonicalWidth)
	}
	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("LEAKZONE_STORE_DSN is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown LEAKZONE_STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Export.Driver {
	case export.DriverFS:
	case export.DriverS3:
		if c.Export.S3.Bucket == "" {
			return fmt.Errorf("LEAKZONE_EXPORT_S3_BUCKET is required for the s3 export driver")
		}
	default:
		return fmt.Errorf("unknown LEAKZONE_EXPORT_DRIVER %q", c.Export.Driver)
	}
	switch c.LogLevel {
	case "debug", "info":
	default:
		return fmt.Errorf("unknown LEAKZONE_LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// Debug reports whether debug logging is on.
func (c *Config) Debug() bool { return c.LogLevel == "debug" }

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid number for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}
