package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"pecadir/internal/logger"
)

// Config holds all application configuration loaded from environment variables
type Config struct {
	// Database configuration
	DatabasePath string

	// Directory sources
	SourcesPath string

	// PeerCast configuration
	PeerCastURL string

	// Server configuration
	ListenAddr string

	// Load cycle configuration
	SyncInterval         time.Duration
	NotificationsEnabled bool

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and returns a Config instance
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/pecadir.db"),
		SourcesPath:  getEnvOrDefault("SOURCES_PATH", ""),
		PeerCastURL:  getEnvOrDefault("PEERCAST_URL", "http://localhost:7144/"),
		ListenAddr:   getEnvOrDefault("LISTEN_ADDR", ":7180"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
	}

	minutes, err := strconv.Atoi(getEnvOrDefault("SYNC_INTERVAL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL_MINUTES format: %w", err)
	}
	cfg.SyncInterval = time.Duration(minutes) * time.Minute

	notify, err := strconv.ParseBool(getEnvOrDefault("NOTIFICATIONS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATIONS_ENABLED format: %w", err)
	}
	cfg.NotificationsEnabled = notify

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration values are present and valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH cannot be empty")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR cannot be empty")
	}

	u, err := url.Parse(c.PeerCastURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PEERCAST_URL must be an http(s) URL, got %q", c.PeerCastURL)
	}

	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL_MINUTES must be positive, got %s", c.SyncInterval)
	}

	return nil
}

// LogConfiguration logs the loaded configuration values
func (c *Config) LogConfiguration(log *logger.Logger) {
	log.Info("configuration loaded", map[string]interface{}{
		"database_path": c.DatabasePath,
		"sources_path":  c.SourcesPath,
		"peercast_url":  c.PeerCastURL,
		"listen_addr":   c.ListenAddr,
		"sync_interval": c.SyncInterval.String(),
		"notifications": c.NotificationsEnabled,
		"log_level":     c.LogLevel,
	})

	if c.SourcesPath == "" {
		log.Warn("SOURCES_PATH not set, falling back to built-in yellow pages", nil)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
