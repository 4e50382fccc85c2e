// Package config loads the server's runtime configuration from
// environment variables with a dev/production default split: permissive
// defaults in development, explicit opt-in required in production for
// anything with a security surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissingCORSOrigins is returned when running in production without an
// explicit CORS allow-list.
var ErrMissingCORSOrigins = errors.New("ORBIT_CORS_ALLOWED_ORIGINS must be set explicitly in production")

// Config is the server's fully resolved runtime configuration.
type Config struct {
	Env string // "development" or "production"

	Port        string
	MetricsPort string

	TickHz float64

	LogLevel  string
	LogOutput string

	JournalDir     string
	JournalEnabled bool

	CORSAllowedOrigins []string
}

func isDevelopmentMode() bool {
	return os.Getenv("ORBIT_ENV") != "production"
}

// Load reads ORBIT_* environment variables into a Config, applying
// development-friendly defaults unless ORBIT_ENV=production, in which case
// a CORS allow-list must be set explicitly.
func Load() (*Config, error) {
	isDev := isDevelopmentMode()
	env := "development"
	if !isDev {
		env = "production"
	}

	tickHz, err := getFloatEnv("ORBIT_TICK_HZ", 20.0)
	if err != nil {
		return nil, fmt.Errorf("parse ORBIT_TICK_HZ: %w", err)
	}
	if tickHz <= 0 {
		return nil, fmt.Errorf("ORBIT_TICK_HZ must be positive, got %g", tickHz)
	}

	journalEnabled, err := getBoolEnv("ORBIT_JOURNAL_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("parse ORBIT_JOURNAL_ENABLED: %w", err)
	}

	corsOrigins := os.Getenv("ORBIT_CORS_ALLOWED_ORIGINS")
	var origins []string
	if !isDev {
		if corsOrigins == "" {
			return nil, ErrMissingCORSOrigins
		}
		origins = splitCSV(corsOrigins)
	} else {
		if corsOrigins == "" {
			origins = []string{"*"}
		} else {
			origins = splitCSV(corsOrigins)
		}
	}

	cfg := &Config{
		Env:                env,
		Port:               getEnv("ORBIT_PORT", "8080"),
		MetricsPort:        getEnv("ORBIT_METRICS_PORT", "9090"),
		TickHz:             tickHz,
		LogLevel:           getEnv("ORBIT_LOG_LEVEL", "info"),
		LogOutput:          getEnv("ORBIT_LOG_OUTPUT", "stdout"),
		JournalDir:         getEnv("ORBIT_JOURNAL_DIR", "simulation_logs"),
		JournalEnabled:     journalEnabled,
		CORSAllowedOrigins: origins,
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(v)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
