// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

// TypeCount is one activity-type bucket in ordered aggregation output.
// Order of appearance in the source window is preserved, which is why these
// are slices rather than maps (Go map iteration would scramble the feed).
type TypeCount struct {
	Type  ActivityType `json:"type"`
	Count int64        `json:"count"`
}

// PageCount is one page bucket in the top-pages aggregate.
type PageCount struct {
	PageURL string `json:"pageUrl"`
	Count   int64  `json:"count"`
}

// HourCount is one hour-of-day bucket (0..23) in the presentation zone.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// ActivityStats is the aggregated view of a time window.
//
// UniqueUsers counts distinct non-anonymous actors; UniqueSessions counts
// distinct non-empty session IDs. AvgSessionDurationMinutes averages the
// earliest-to-latest elapsed time of sessions with at least two records;
// single-record sessions contribute nothing. HourlyDistribution always has
// 24 buckets, zero-filled.
type ActivityStats struct {
	TotalActivities           int64       `json:"totalActivities"`
	UniqueUsers               int64       `json:"uniqueUsers"`
	UniqueSessions            int64       `json:"uniqueSessions"`
	AvgSessionDurationMinutes float64     `json:"avgSessionDurationMinutes"`
	ActivityByType            []TypeCount `json:"activityByType"`
	TopPages                  []PageCount `json:"topPages"`
	HourlyDistribution        []HourCount `json:"hourlyDistribution"`
}
