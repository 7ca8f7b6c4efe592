// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// civilLayout is the zone-less date-time layout browsers send. Clients report
// wall-clock time in the platform's local zone; the ingest path anchors it to
// the configured zone and converts to UTC.
const civilLayout = "2006-01-02T15:04:05"

// CivilTime is a zone-less local date-time as sent by frontend clients.
// It unmarshals from "2006-01-02T15:04:05" (optionally with fractional
// seconds) and carries no zone information until anchored via In.
type CivilTime struct {
	wall time.Time
}

// NewCivilTime builds a CivilTime from the wall-clock fields of t.
func NewCivilTime(t time.Time) CivilTime {
	return CivilTime{wall: t}
}

// IsZero reports whether the civil time is unset.
func (c CivilTime) IsZero() bool {
	return c.wall.IsZero()
}

// In anchors the civil time to the given zone, producing an absolute instant.
func (c CivilTime) In(loc *time.Location) time.Time {
	return time.Date(
		c.wall.Year(), c.wall.Month(), c.wall.Day(),
		c.wall.Hour(), c.wall.Minute(), c.wall.Second(), c.wall.Nanosecond(),
		loc,
	)
}

// UnmarshalJSON parses a quoted zone-less date-time. Fractional seconds are
// accepted and truncated-preserved; an empty string or null leaves the value
// zero.
func (c *CivilTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		c.wall = time.Time{}
		return nil
	}
	for _, layout := range []string{civilLayout, civilLayout + ".999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			c.wall = t
			return nil
		}
	}
	return fmt.Errorf("invalid local date-time %q, want %s", s, civilLayout)
}

// MarshalJSON emits the zone-less layout.
func (c CivilTime) MarshalJSON() ([]byte, error) {
	if c.wall.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + c.wall.Format(civilLayout) + `"`), nil
}

// RawActivity is the activity payload received from frontend clients.
// Metadata arrives as a raw JSON string (the tracker serializes it client
// side); the ingest gateway parses it into a map. All fields except
// activityType are optional.
type RawActivity struct {
	SessionID      string       `json:"sessionId" validate:"omitempty,max=128"`
	ActivityType   ActivityType `json:"activityType" validate:"required"`
	Action         string       `json:"action" validate:"omitempty,max=255"`
	PageURL        string       `json:"pageUrl" validate:"omitempty,max=2048"`
	PageTitle      string       `json:"pageTitle" validate:"omitempty,max=512"`
	ElementID      string       `json:"elementId" validate:"omitempty,max=255"`
	ElementText    string       `json:"elementText" validate:"omitempty,max=1024"`
	APIEndpoint    string       `json:"apiEndpoint" validate:"omitempty,max=2048"`
	HTTPMethod     string       `json:"httpMethod" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	ResponseStatus *int         `json:"responseStatus" validate:"omitempty,gte=100,lte=599"`
	ResponseTimeMS *int64       `json:"responseTimeMs" validate:"omitempty,gte=0"`
	Metadata       string       `json:"metadata" validate:"omitempty,max=16384"`
	DeviceType     string       `json:"deviceType" validate:"omitempty,max=64"`
	Browser        string       `json:"browser" validate:"omitempty,max=128"`
	OS             string       `json:"os" validate:"omitempty,max=128"`
	ScreenWidth    *int         `json:"screenWidth" validate:"omitempty,gte=0"`
	ScreenHeight   *int         `json:"screenHeight" validate:"omitempty,gte=0"`
	DurationMS     *int64       `json:"durationMs" validate:"omitempty,gte=0"`
	Timestamp      *CivilTime   `json:"timestamp"`
}

// ActivityEvent is the normalized in-flight event published to the activity
// stream. Timestamps are absolute UTC instants; metadata is fully parsed.
// ActorID is nil for anonymous activity.
type ActivityEvent struct {
	ActorID        *int64                 `json:"actorId,omitempty"`
	SessionID      string                 `json:"sessionId,omitempty"`
	ActivityType   ActivityType           `json:"activityType"`
	Action         string                 `json:"action,omitempty"`
	PageURL        string                 `json:"pageUrl,omitempty"`
	PageTitle      string                 `json:"pageTitle,omitempty"`
	ElementID      string                 `json:"elementId,omitempty"`
	ElementText    string                 `json:"elementText,omitempty"`
	APIEndpoint    string                 `json:"apiEndpoint,omitempty"`
	HTTPMethod     string                 `json:"httpMethod,omitempty"`
	ResponseStatus *int                   `json:"responseStatus,omitempty"`
	ResponseTimeMS *int64                 `json:"responseTimeMs,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	IPAddress      string                 `json:"ipAddress,omitempty"`
	UserAgent      string                 `json:"userAgent,omitempty"`
	DeviceType     string                 `json:"deviceType,omitempty"`
	Browser        string                 `json:"browser,omitempty"`
	OS             string                 `json:"os,omitempty"`
	ScreenWidth    *int                   `json:"screenWidth,omitempty"`
	ScreenHeight   *int                   `json:"screenHeight,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	DurationMS     *int64                 `json:"durationMs,omitempty"`
}

// CourseID extracts the numeric course identifier from event metadata, if
// present. Both numeric and string-encoded values are accepted.
func (e *ActivityEvent) CourseID() *int64 {
	return metadataInt64(e.Metadata, "courseId")
}

// ActivityRecord is a persisted activity: the event plus the store-assigned
// identifier. The consumer mints a fresh UUID per delivery, so a redelivered
// message lands as a distinct record (at-least-once, no dedup).
type ActivityRecord struct {
	ID string `json:"id"`
	ActivityEvent
}

// AckStatus values for ingest acknowledgements.
const AckPending = "PENDING"

// PendingAck is the immediate ingest acknowledgement. It echoes the
// identifying fields of the accepted event but carries no storage ID:
// persistence happens asynchronously and may still fail.
type PendingAck struct {
	ActorID      *int64       `json:"actorId,omitempty"`
	SessionID    string       `json:"sessionId,omitempty"`
	ActivityType ActivityType `json:"activityType"`
	Action       string       `json:"action,omitempty"`
	PageURL      string       `json:"pageUrl,omitempty"`
	PageTitle    string       `json:"pageTitle,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       string       `json:"status"`
}

// AckFor builds the pending acknowledgement for an accepted event.
func AckFor(e *ActivityEvent) PendingAck {
	return PendingAck{
		ActorID:      e.ActorID,
		SessionID:    e.SessionID,
		ActivityType: e.ActivityType,
		Action:       e.Action,
		PageURL:      e.PageURL,
		PageTitle:    e.PageTitle,
		Timestamp:    e.Timestamp,
		Status:       AckPending,
	}
}

// metadataInt64 coerces a metadata value to int64, accepting JSON numbers
// and numeric strings.
func metadataInt64(md map[string]interface{}, key string) *int64 {
	if md == nil {
		return nil
	}
	v, ok := md[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int64(n)
		return &i
	case int64:
		return &n
	case int:
		i := int64(n)
		return &i
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return &i
		}
	}
	return nil
}
