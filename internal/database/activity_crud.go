// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coursepulse/coursepulse/internal/logging"
	"github.com/coursepulse/coursepulse/internal/metrics"
	"github.com/coursepulse/coursepulse/internal/models"
)

const (
	// MaxPageSize caps list query page sizes.
	MaxPageSize = 100

	// DefaultPageSize applies when a caller sends no size.
	DefaultPageSize = 20
)

// activityColumns is the canonical select list, matching scanActivity.
const activityColumns = `id, actor_id, session_id, activity_type, action,
    page_url, page_title, element_id, element_text, api_endpoint, http_method,
    response_status, response_time_ms, metadata, ip_address, user_agent,
    device_type, browser, os, screen_width, screen_height, event_time, duration_ms`

// InsertActivity commits one activity record. The consumer is the sole
// writer; an error here must propagate back to the broker for redelivery.
func (db *DB) InsertActivity(ctx context.Context, rec *models.ActivityRecord) error {
	start := time.Now()

	metadataJSON, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
INSERT INTO activity_logs (
    id, actor_id, session_id, activity_type, action,
    page_url, page_title, element_id, element_text, api_endpoint, http_method,
    response_status, response_time_ms, metadata, course_id, ip_address, user_agent,
    device_type, browser, os, screen_width, screen_height, event_time, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ActorID, nullString(rec.SessionID), string(rec.ActivityType), nullString(rec.Action),
		nullString(rec.PageURL), nullString(rec.PageTitle), nullString(rec.ElementID),
		nullString(rec.ElementText), nullString(rec.APIEndpoint), nullString(rec.HTTPMethod),
		rec.ResponseStatus, rec.ResponseTimeMS, metadataJSON, rec.CourseID(),
		nullString(rec.IPAddress), nullString(rec.UserAgent),
		nullString(rec.DeviceType), nullString(rec.Browser), nullString(rec.OS),
		rec.ScreenWidth, rec.ScreenHeight, rec.Timestamp.UTC(), rec.DurationMS,
	)

	metrics.RecordDBQuery("insert", "activity_logs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// GetActorActivities returns one actor's activities, newest first.
// page is zero-based; size is clamped to [1, MaxPageSize]. hasMore reports
// whether another page exists.
func (db *DB) GetActorActivities(ctx context.Context, actorID int64, page, size int) ([]models.ActivityRecord, bool, error) {
	page, size = clampPage(page, size)
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
SELECT `+activityColumns+`
FROM activity_logs
WHERE actor_id = ?
ORDER BY event_time DESC
LIMIT ? OFFSET ?`,
		actorID, size+1, page*size,
	)
	metrics.RecordDBQuery("select_actor", "activity_logs", time.Since(start), err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query actor activities: %w", err)
	}
	defer closeRows(rows)

	return collectPage(rows, size)
}

// GetSessionActivities returns all activities of one session in
// chronological order. Sessions are bounded by the client tracker, so no
// pagination is applied.
func (db *DB) GetSessionActivities(ctx context.Context, sessionID string) ([]models.ActivityRecord, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
SELECT `+activityColumns+`
FROM activity_logs
WHERE session_id = ?
ORDER BY event_time ASC`,
		sessionID,
	)
	metrics.RecordDBQuery("select_session", "activity_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query session activities: %w", err)
	}
	defer closeRows(rows)

	return collectAll(rows)
}

// GetActorCourseActivities returns one student's activities within one
// course, newest first. A non-empty types list filters to those activity
// types (course feeds pass models.CourseActivityTypes).
func (db *DB) GetActorCourseActivities(ctx context.Context, actorID, courseID int64, types []models.ActivityType, page, size int) ([]models.ActivityRecord, bool, error) {
	page, size = clampPage(page, size)
	start := time.Now()

	query := `
SELECT ` + activityColumns + `
FROM activity_logs
WHERE actor_id = ? AND course_id = ?`
	args := []interface{}{actorID, courseID}

	if len(types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(types)), ", ")
		query += ` AND activity_type IN (` + placeholders + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += `
ORDER BY event_time DESC
LIMIT ? OFFSET ?`
	args = append(args, size+1, page*size)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select_course", "activity_logs", time.Since(start), err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query course activities: %w", err)
	}
	defer closeRows(rows)

	return collectPage(rows, size)
}

// GetActivitiesBetween returns records with start <= event_time < end in
// chronological order. This is the input window for stats aggregation.
func (db *DB) GetActivitiesBetween(ctx context.Context, startTime, endTime time.Time) ([]models.ActivityRecord, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
SELECT `+activityColumns+`
FROM activity_logs
WHERE event_time >= ? AND event_time < ?
ORDER BY event_time ASC`,
		startTime.UTC(), endTime.UTC(),
	)
	metrics.RecordDBQuery("select_window", "activity_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity window: %w", err)
	}
	defer closeRows(rows)

	return collectAll(rows)
}

// PurgeOlderThan deletes all records before cutoff and reports how many
// were removed. Destructive; driven by the platform's retention scheduler.
func (db *DB) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE event_time < ?`, cutoff.UTC())
	metrics.RecordDBQuery("purge", "activity_logs", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge activities: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged activities: %w", err)
	}
	metrics.RecordsPurged.Add(float64(deleted))
	return deleted, nil
}

// clampPage normalizes pagination inputs.
func clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// collectPage drains up to size+1 rows, using the extra row only as a
// has-more probe.
func collectPage(rows *sql.Rows, size int) ([]models.ActivityRecord, bool, error) {
	records, err := collectAll(rows)
	if err != nil {
		return nil, false, err
	}
	if len(records) > size {
		return records[:size], true, nil
	}
	return records, false, nil
}

func collectAll(rows *sql.Rows) ([]models.ActivityRecord, error) {
	records := []models.ActivityRecord{}
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return records, nil
}

// scanActivity maps one row back into a record, rehydrating the metadata
// document.
func scanActivity(rows *sql.Rows) (models.ActivityRecord, error) {
	var (
		rec          models.ActivityRecord
		sessionID    sql.NullString
		action       sql.NullString
		pageURL      sql.NullString
		pageTitle    sql.NullString
		elementID    sql.NullString
		elementText  sql.NullString
		apiEndpoint  sql.NullString
		httpMethod   sql.NullString
		metadataJSON sql.NullString
		ipAddress    sql.NullString
		userAgent    sql.NullString
		deviceType   sql.NullString
		browser      sql.NullString
		osName       sql.NullString
		activityType string
		eventTime    time.Time
	)

	err := rows.Scan(
		&rec.ID, &rec.ActorID, &sessionID, &activityType, &action,
		&pageURL, &pageTitle, &elementID, &elementText, &apiEndpoint, &httpMethod,
		&rec.ResponseStatus, &rec.ResponseTimeMS, &metadataJSON, &ipAddress, &userAgent,
		&deviceType, &browser, &osName, &rec.ScreenWidth, &rec.ScreenHeight,
		&eventTime, &rec.DurationMS,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan activity: %w", err)
	}

	rec.SessionID = sessionID.String
	rec.ActivityType = models.ActivityType(activityType)
	rec.Action = action.String
	rec.PageURL = pageURL.String
	rec.PageTitle = pageTitle.String
	rec.ElementID = elementID.String
	rec.ElementText = elementText.String
	rec.APIEndpoint = apiEndpoint.String
	rec.HTTPMethod = httpMethod.String
	rec.IPAddress = ipAddress.String
	rec.UserAgent = userAgent.String
	rec.DeviceType = deviceType.String
	rec.Browser = browser.String
	rec.OS = osName.String
	rec.Timestamp = eventTime.UTC()

	if metadataJSON.Valid && metadataJSON.String != "" {
		var md map[string]interface{}
		if err := json.Unmarshal([]byte(metadataJSON.String), &md); err == nil {
			rec.Metadata = md
		}
	}

	return rec, nil
}

func encodeMetadata(md map[string]interface{}) (interface{}, error) {
	if md == nil {
		return nil, nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close result rows")
	}
}
