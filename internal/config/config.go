// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Package config loads and validates application configuration.
//
// Configuration is merged from three layers, later layers overriding
// earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML config file (config.yaml, or COURSEPULSE_CONFIG path)
//  3. Environment variables prefixed with COURSEPULSE_, using "__" as the
//     section separator (e.g. COURSEPULSE_SERVER__PORT=9090)
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	NATS      NATSConfig      `koanf:"nats"`
	Database  DatabaseConfig  `koanf:"database"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSAllowedOrigins lists origins permitted to call the API from a
	// browser. Empty means same-origin only.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitPerMinute bounds requests per client IP per minute.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig holds NATS JetStream settings for the activity channel.
type NATSConfig struct {
	// URL is the NATS server connection URL. Ignored when EmbeddedServer
	// is true (the embedded server's client URL is used instead).
	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server with JetStream so a
	// single binary needs no external broker.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory / MaxStore bound embedded JetStream resource usage in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamName is the durable stream holding activity messages.
	StreamName string `koanf:"stream_name"`

	// Subject is the routing subject for activity events.
	Subject string `koanf:"subject"`

	// DLQSubject receives messages that exhaust delivery attempts.
	DLQSubject string `koanf:"dlq_subject"`

	// MessageTTL bounds how long an unconsumed message is retained.
	MessageTTL time.Duration `koanf:"message_ttl"`

	// DurableName is the JetStream consumer durable name.
	DurableName string `koanf:"durable_name"`

	// QueueGroup load-balances deliveries across consumer instances.
	QueueGroup string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent message processors.
	// Values above 1 trade message ordering for throughput.
	SubscribersCount int `koanf:"subscribers_count"`

	// MaxDeliver is the maximum delivery attempts before the broker stops
	// redelivering and the message is routed to the dead-letter subject.
	MaxDeliver int `koanf:"max_deliver"`

	// AckWait is how long the broker waits for an ack before redelivery.
	AckWait time.Duration `koanf:"ack_wait"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for an in-memory store.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker thread count. 0 means NumCPU.
	Threads int `koanf:"threads"`
}

// TelemetryConfig holds ingest and presentation settings.
type TelemetryConfig struct {
	// Timezone is the civil time zone used to interpret client-supplied
	// timestamps and to localize presentation output.
	Timezone string `koanf:"timezone"`

	// MaxBatchSize bounds how many raw events one batch request may carry.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with production defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8086,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 600,
		},
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        1 << 30,  // 1GB
			MaxStore:         10 << 30, // 10GB
			StreamName:       "ACTIVITY",
			Subject:          "activity.events",
			DLQSubject:       "dlq.activity",
			MessageTTL:       24 * time.Hour,
			DurableName:      "activity-persister",
			QueueGroup:       "persisters",
			SubscribersCount: 4,
			MaxDeliver:       5,
			AckWait:          30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/coursepulse/activity.db",
			MaxMemory: "1GB",
		},
		Telemetry: TelemetryConfig{
			Timezone:     "Asia/Ho_Chi_Minh",
			MaxBatchSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("nats.stream_name is required")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	if c.NATS.MessageTTL <= 0 {
		return fmt.Errorf("nats.message_ttl must be positive, got %s", c.NATS.MessageTTL)
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("nats.subscribers_count must be at least 1, got %d", c.NATS.SubscribersCount)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Telemetry.MaxBatchSize < 1 {
		return fmt.Errorf("telemetry.max_batch_size must be at least 1, got %d", c.Telemetry.MaxBatchSize)
	}
	if _, err := c.Telemetry.Location(); err != nil {
		return fmt.Errorf("telemetry.timezone: %w", err)
	}
	return nil
}

// Location resolves the configured presentation time zone.
func (c TelemetryConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
