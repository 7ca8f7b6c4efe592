// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Package ingest accepts raw activity payloads from clients, validates and
// normalizes them into activity events, and hands them to the publisher.
// Ingest is fire-and-forget: callers get an immediate pending ack and never
// observe downstream failures.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/coursepulse/coursepulse/internal/models"
)

// ValidationError marks a payload rejected before publish. The API layer
// maps it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize turns a raw client payload into a publishable activity event.
// Pure transform: no I/O, no clock reads beyond the `now` fallback.
//
// Rules:
//   - activityType must be a catalog member, otherwise *ValidationError.
//   - Field constraints are checked with go-playground/validator.
//   - The metadata string is parsed as a JSON object; unparseable input is
//     preserved as {"raw": original} rather than dropped.
//   - A client timestamp is civil local time in loc, converted to UTC;
//     an absent timestamp becomes time.Now().UTC().
func Normalize(actorID *int64, raw *models.RawActivity, loc *time.Location) (*models.ActivityEvent, error) {
	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Field: verrs[0].Field(), Reason: verrs[0].Tag()}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}

	if !raw.ActivityType.Valid() {
		return nil, &ValidationError{Field: "activityType", Reason: fmt.Sprintf("unknown activity type %q", raw.ActivityType)}
	}

	var timestamp time.Time
	if raw.Timestamp != nil && !raw.Timestamp.IsZero() {
		timestamp = raw.Timestamp.In(loc).UTC()
	} else {
		timestamp = time.Now().UTC()
	}

	return &models.ActivityEvent{
		ActorID:        actorID,
		SessionID:      raw.SessionID,
		ActivityType:   raw.ActivityType,
		Action:         raw.Action,
		PageURL:        raw.PageURL,
		PageTitle:      raw.PageTitle,
		ElementID:      raw.ElementID,
		ElementText:    raw.ElementText,
		APIEndpoint:    raw.APIEndpoint,
		HTTPMethod:     raw.HTTPMethod,
		ResponseStatus: raw.ResponseStatus,
		ResponseTimeMS: raw.ResponseTimeMS,
		Metadata:       parseMetadata(raw.Metadata),
		DeviceType:     raw.DeviceType,
		Browser:        raw.Browser,
		OS:             raw.OS,
		ScreenWidth:    raw.ScreenWidth,
		ScreenHeight:   raw.ScreenHeight,
		Timestamp:      timestamp,
		DurationMS:     raw.DurationMS,
	}, nil
}

// parseMetadata decodes the client's metadata JSON string. Invalid JSON is
// kept under a "raw" key so diagnostic payloads survive client bugs.
func parseMetadata(raw string) map[string]interface{} {
	if raw == "" {
		return nil
	}
	var md map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return map[string]interface{}{"raw": raw}
	}
	return md
}
