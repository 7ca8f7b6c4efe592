// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coursepulse/coursepulse/internal/metrics"
	"github.com/coursepulse/coursepulse/internal/models"
)

// topPagesLimit bounds the top-pages aggregate.
const topPagesLimit = 10

// ComputeStats aggregates the activity window [start, end). The window is
// loaded and folded in one pass in Go rather than in SQL: the per-type and
// top-page aggregates are ordered by first encounter, which SQL GROUP BY
// does not preserve.
func (db *DB) ComputeStats(ctx context.Context, start, end time.Time) (*models.ActivityStats, error) {
	records, err := db.GetActivitiesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return BuildStats(records, db.location), nil
}

// BuildStats folds a chronological record window into aggregate statistics.
// Pure function; loc is the zone used for hour-of-day bucketing.
func BuildStats(records []models.ActivityRecord, loc *time.Location) *models.ActivityStats {
	if loc == nil {
		loc = time.UTC
	}

	stats := &models.ActivityStats{
		TotalActivities:    int64(len(records)),
		ActivityByType:     []models.TypeCount{},
		TopPages:           []models.PageCount{},
		HourlyDistribution: make([]models.HourCount, 24),
	}
	for h := range stats.HourlyDistribution {
		stats.HourlyDistribution[h].Hour = h
	}

	var (
		actors       = map[int64]struct{}{}
		sessions     = map[string]struct{}{}
		typeIndex    = map[models.ActivityType]int{}
		pageIndex    = map[string]int{}
		pageCounts   []models.PageCount
		sessionSpans = map[string]sessionSpan{}
	)

	for i := range records {
		rec := &records[i]

		if rec.ActorID != nil {
			actors[*rec.ActorID] = struct{}{}
		}
		if rec.SessionID != "" {
			sessions[rec.SessionID] = struct{}{}

			span, ok := sessionSpans[rec.SessionID]
			if !ok {
				span = sessionSpan{earliest: rec.Timestamp, latest: rec.Timestamp}
			} else {
				if rec.Timestamp.Before(span.earliest) {
					span.earliest = rec.Timestamp
				}
				if rec.Timestamp.After(span.latest) {
					span.latest = rec.Timestamp
				}
			}
			span.records++
			sessionSpans[rec.SessionID] = span
		}

		// Per-type counts in first-encounter order.
		if idx, ok := typeIndex[rec.ActivityType]; ok {
			stats.ActivityByType[idx].Count++
		} else {
			typeIndex[rec.ActivityType] = len(stats.ActivityByType)
			stats.ActivityByType = append(stats.ActivityByType, models.TypeCount{Type: rec.ActivityType, Count: 1})
		}

		// Page popularity over page views only.
		if rec.ActivityType == models.ActivityPageView && rec.PageURL != "" {
			if idx, ok := pageIndex[rec.PageURL]; ok {
				pageCounts[idx].Count++
			} else {
				pageIndex[rec.PageURL] = len(pageCounts)
				pageCounts = append(pageCounts, models.PageCount{PageURL: rec.PageURL, Count: 1})
			}
		}

		stats.HourlyDistribution[rec.Timestamp.In(loc).Hour()].Count++
	}

	stats.UniqueUsers = int64(len(actors))
	stats.UniqueSessions = int64(len(sessions))
	stats.TopPages = topPages(pageCounts)
	stats.AvgSessionDurationMinutes = avgSessionMinutes(sessionSpans)

	return stats
}

// topPages sorts by count descending, first-seen order breaking ties, and
// keeps the top 10.
func topPages(pages []models.PageCount) []models.PageCount {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Count > pages[j].Count
	})
	if len(pages) > topPagesLimit {
		pages = pages[:topPagesLimit]
	}
	if pages == nil {
		pages = []models.PageCount{}
	}
	return pages
}

// sessionSpan tracks one session's observed extent within the window.
type sessionSpan struct {
	earliest time.Time
	latest   time.Time
	records  int
}

// avgSessionMinutes averages earliest-to-latest elapsed time across sessions
// with at least two records. Single-record sessions have no measurable span
// and contribute nothing, not even a zero.
func avgSessionMinutes(spans map[string]sessionSpan) float64 {
	var total float64
	var counted int
	for _, span := range spans {
		if span.records >= 2 {
			total += span.latest.Sub(span.earliest).Minutes()
			counted++
		}
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// CourseLastAccess reports, per distinct actor, the most recent activity
// timestamp within a course, most recent first. Anonymous activity is
// excluded.
func (db *DB) CourseLastAccess(ctx context.Context, courseID int64) ([]models.CourseLastAccess, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
SELECT actor_id, MAX(event_time) AS last_accessed
FROM activity_logs
WHERE course_id = ? AND actor_id IS NOT NULL
GROUP BY actor_id
ORDER BY last_accessed DESC`,
		courseID,
	)
	metrics.RecordDBQuery("select_last_access", "activity_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query course last access: %w", err)
	}
	defer closeRows(rows)

	result := []models.CourseLastAccess{}
	for rows.Next() {
		var entry models.CourseLastAccess
		var lastAccessed time.Time
		if err := rows.Scan(&entry.ActorID, &lastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan last access: %w", err)
		}
		entry.LastAccessed = lastAccessed.UTC()
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate last access: %w", err)
	}
	return result, nil
}
