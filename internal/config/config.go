// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server configuration.
type Config struct {
	DBPath          string // empty means db.DefaultPath()
	Port            int
	BasePath        string // e.g. /remote.php/dav
	DevMode         bool
	AuthDisabled    bool
	ShutdownTimeout time.Duration
}

// FromEnv creates a Config from FC_* environment variables.
func FromEnv() (Config, error) {
	port, err := strconv.Atoi(envOrDefault("FC_PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid FC_PORT %q", os.Getenv("FC_PORT"))
	}

	timeout, err := time.ParseDuration(envOrDefault("FC_SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return Config{
		DBPath:          os.Getenv("FC_DB_PATH"),
		Port:            port,
		BasePath:        NormalizeBasePath(envOrDefault("FC_BASE_PATH", "/remote.php/dav")),
		DevMode:         os.Getenv("FC_DEV_MODE") == "true",
		AuthDisabled:    os.Getenv("FC_AUTH_DISABLED") == "true",
		ShutdownTimeout: timeout,
	}, nil
}

// NormalizeBasePath returns p with a leading slash and no trailing slash.
// The root path normalizes to "".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
