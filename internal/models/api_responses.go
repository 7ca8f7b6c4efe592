// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only for
// error responses.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": [...],
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z", "query_time_ms": 4}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "invalid date range"},
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error payload.
//
// Common codes: VALIDATION_ERROR, DATABASE_ERROR, NOT_FOUND,
// RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PageInfo is offset-based pagination metadata for list endpoints.
type PageInfo struct {
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// ActivitiesPage wraps a page of activity records.
type ActivitiesPage struct {
	Activities []ActivityRecord `json:"activities"`
	Pagination PageInfo         `json:"pagination"`
}

// CourseActivitiesPage wraps a page of localized course feed entries.
type CourseActivitiesPage struct {
	Activities []CourseActivity `json:"activities"`
	Pagination PageInfo         `json:"pagination"`
}

// CourseLastAccess reports when one student last touched a course.
type CourseLastAccess struct {
	ActorID      int64     `json:"actorId"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// PurgeResult reports the outcome of a retention purge.
type PurgeResult struct {
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}
