// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Package database is the activity store: a DuckDB-backed document table
// written only by the stream consumer and read by the query engine.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/coursepulse/coursepulse/internal/config"
	"github.com/coursepulse/coursepulse/internal/logging"
)

// DB wraps the DuckDB connection and provides activity data access.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// location is the presentation zone used for hour-of-day bucketing.
	location *time.Location
}

// New opens (or creates) the activity database and initializes the schema.
// loc is the presentation zone for localized aggregates.
func New(cfg *config.DatabaseConfig, loc *time.Location) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	if loc == nil {
		loc = time.UTC
	}

	// Ensure the parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Auto-install/auto-load are disabled so startup never reaches for the
	// network; the schema uses core DuckDB features only.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:     conn,
		cfg:      cfg,
		location: loc,
	}

	// DuckDB is embedded; a small pool is enough and avoids CGO contention.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	if err := db.initialize(); err != nil {
		if cerr := conn.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close database after init error")
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Activity database ready")
	return db, nil
}

// initialize creates the schema and indexes. Idempotent.
func (db *DB) initialize() error {
	schema := `
CREATE TABLE IF NOT EXISTS activity_logs (
    id               UUID PRIMARY KEY,
    actor_id         BIGINT,
    session_id       VARCHAR,
    activity_type    VARCHAR NOT NULL,
    action           VARCHAR,
    page_url         VARCHAR,
    page_title       VARCHAR,
    element_id       VARCHAR,
    element_text     VARCHAR,
    api_endpoint     VARCHAR,
    http_method      VARCHAR,
    response_status  INTEGER,
    response_time_ms BIGINT,
    metadata         VARCHAR,
    course_id        BIGINT,
    ip_address       VARCHAR,
    user_agent       VARCHAR,
    device_type      VARCHAR,
    browser          VARCHAR,
    os               VARCHAR,
    screen_width     INTEGER,
    screen_height    INTEGER,
    event_time       TIMESTAMP NOT NULL,
    duration_ms      BIGINT
)`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create activity_logs table: %w", err)
	}

	// course_id is denormalized out of metadata at insert time so course
	// feed queries never parse JSON.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_activity_actor ON activity_logs (actor_id, event_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_session ON activity_logs (session_id, event_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_type_time ON activity_logs (activity_type, event_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_course ON activity_logs (course_id, event_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_time ON activity_logs (event_time)`,
	}
	for _, idx := range indexes {
		if _, err := db.conn.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Location returns the presentation zone the store aggregates in.
func (db *DB) Location() *time.Location {
	return db.location
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
