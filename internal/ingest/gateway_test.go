// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package ingest

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coursepulse/coursepulse/internal/models"
)

// capturePublisher records published events and optionally fails.
type capturePublisher struct {
	events []*models.ActivityEvent
	err    error
}

func (p *capturePublisher) PublishEvent(_ context.Context, event *models.ActivityEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishAll(ctx context.Context, events []*models.ActivityEvent) error {
	for _, event := range events {
		if err := p.PublishEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestNormalizeCivilTimestamp(t *testing.T) {
	loc := testLocation(t)
	ct := models.NewCivilTime(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC))

	event, err := Normalize(nil, &models.RawActivity{
		ActivityType: models.ActivityPageView,
		Timestamp:    &ct,
	}, loc)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// 10:30 civil ICT is 03:30 UTC.
	want := time.Date(2026, 3, 15, 3, 30, 0, 0, time.UTC)
	if !event.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", event.Timestamp, want)
	}
	if event.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp zone = %v, want UTC", event.Timestamp.Location())
	}
}

func TestNormalizeDefaultsTimestampToNow(t *testing.T) {
	loc := testLocation(t)
	before := time.Now().UTC()

	event, err := Normalize(nil, &models.RawActivity{ActivityType: models.ActivityLogin}, loc)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	after := time.Now().UTC()
	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Errorf("timestamp %v outside [%v, %v]", event.Timestamp, before, after)
	}
}

func TestNormalizeRejectsUnknownType(t *testing.T) {
	loc := testLocation(t)

	_, err := Normalize(nil, &models.RawActivity{ActivityType: "VIDEO_REWIND"}, loc)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Field != "activityType" {
		t.Errorf("field = %q, want activityType", verr.Field)
	}
}

func TestNormalizeRejectsMissingType(t *testing.T) {
	loc := testLocation(t)

	_, err := Normalize(nil, &models.RawActivity{Action: "click"}, loc)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestNormalizeMetadata(t *testing.T) {
	loc := testLocation(t)

	tests := []struct {
		name     string
		metadata string
		wantKey  string
		wantVal  interface{}
	}{
		{"valid object", `{"courseId": 12, "courseName": "Go"}`, "courseName", "Go"},
		{"invalid json preserved", `{broken`, "raw", `{broken`},
		{"non-object preserved", `[1,2,3]`, "raw", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := Normalize(nil, &models.RawActivity{
				ActivityType: models.ActivityCourseView,
				Metadata:     tt.metadata,
			}, loc)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if got := event.Metadata[tt.wantKey]; got != tt.wantVal {
				t.Errorf("metadata[%s] = %v, want %v", tt.wantKey, got, tt.wantVal)
			}
		})
	}

	event, err := Normalize(nil, &models.RawActivity{ActivityType: models.ActivityLogin}, loc)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if event.Metadata != nil {
		t.Errorf("expected nil metadata for empty string, got %v", event.Metadata)
	}
}

func TestLogOnePublishesAndAcks(t *testing.T) {
	pub := &capturePublisher{}
	gw := NewGateway(pub, testLocation(t), 100)
	actorID := int64(7)

	ack, err := gw.LogOne(context.Background(), &actorID, &models.RawActivity{
		ActivityType: models.ActivityPageView,
		SessionID:    "sess-1",
		PageURL:      "/courses/12",
	}, ClientContext{IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"})
	if err != nil {
		t.Fatalf("LogOne failed: %v", err)
	}

	if ack.Status != models.AckPending {
		t.Errorf("ack status = %q", ack.Status)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	event := pub.events[0]
	if event.IPAddress != "10.0.0.1" || event.UserAgent != "Mozilla/5.0" {
		t.Errorf("client context not attached: ip=%q ua=%q", event.IPAddress, event.UserAgent)
	}
	if event.ActorID == nil || *event.ActorID != 7 {
		t.Errorf("actor ID not propagated: %v", event.ActorID)
	}
}

func TestLogOneSwallowsPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	gw := NewGateway(pub, testLocation(t), 100)

	ack, err := gw.LogOne(context.Background(), nil, &models.RawActivity{
		ActivityType: models.ActivityButtonClick,
	}, ClientContext{})
	if err != nil {
		t.Fatalf("publish failure must be invisible to callers, got %v", err)
	}
	if ack.Status != models.AckPending {
		t.Errorf("ack status = %q", ack.Status)
	}
}

func TestLogBatch(t *testing.T) {
	pub := &capturePublisher{}
	gw := NewGateway(pub, testLocation(t), 100)

	raws := []*models.RawActivity{
		{ActivityType: models.ActivityPageView, PageURL: "/a"},
		{ActivityType: models.ActivityButtonClick, ElementID: "submit"},
	}
	acks, err := gw.LogBatch(context.Background(), nil, raws, ClientContext{IPAddress: "10.0.0.2"})
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	if len(acks) != 2 || len(pub.events) != 2 {
		t.Fatalf("expected 2 acks and 2 events, got %d/%d", len(acks), len(pub.events))
	}
	for _, event := range pub.events {
		if event.IPAddress != "10.0.0.2" {
			t.Errorf("shared client context missing: %q", event.IPAddress)
		}
	}
}

func TestLogBatchAllOrNothing(t *testing.T) {
	pub := &capturePublisher{}
	gw := NewGateway(pub, testLocation(t), 100)

	raws := []*models.RawActivity{
		{ActivityType: models.ActivityPageView},
		{ActivityType: "NOT_A_TYPE"},
	}
	if _, err := gw.LogBatch(context.Background(), nil, raws, ClientContext{}); err == nil {
		t.Fatal("expected batch rejection")
	}
	if len(pub.events) != 0 {
		t.Errorf("no events may publish from a rejected batch, got %d", len(pub.events))
	}
}

func TestLogBatchSizeLimit(t *testing.T) {
	pub := &capturePublisher{}
	gw := NewGateway(pub, testLocation(t), 2)

	raws := []*models.RawActivity{
		{ActivityType: models.ActivityPageView},
		{ActivityType: models.ActivityPageView},
		{ActivityType: models.ActivityPageView},
	}
	_, err := gw.LogBatch(context.Background(), nil, raws, ClientContext{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestLogSystem(t *testing.T) {
	pub := &capturePublisher{}
	gw := NewGateway(pub, testLocation(t), 100)
	actorID := int64(3)

	err := gw.LogSystem(context.Background(), &actorID, models.ActivityPasswordReset, "reset_completed", `{"channel":"email"}`)
	if err != nil {
		t.Fatalf("LogSystem failed: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	event := pub.events[0]
	if event.IPAddress != "system" || event.UserAgent != "system" {
		t.Errorf("system attribution missing: ip=%q ua=%q", event.IPAddress, event.UserAgent)
	}
	if event.Metadata["channel"] != "email" {
		t.Errorf("metadata not parsed: %v", event.Metadata)
	}
}

func TestContextFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		wantIP     string
	}{
		{"forwarded chain", "203.0.113.5, 10.0.0.1", "", "10.0.0.9:1234", "203.0.113.5"},
		{"real ip fallback", "", "203.0.113.7", "10.0.0.9:1234", "203.0.113.7"},
		{"unknown forwarded skipped", "unknown", "203.0.113.7", "10.0.0.9:1234", "203.0.113.7"},
		{"peer fallback", "", "", "10.0.0.9:1234", "10.0.0.9"},
		{"peer without port", "", "", "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/activities", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			r.Header.Set("User-Agent", "test-agent")

			got := ContextFromRequest(r)
			if got.IPAddress != tt.wantIP {
				t.Errorf("IP = %q, want %q", got.IPAddress, tt.wantIP)
			}
			if got.UserAgent != "test-agent" {
				t.Errorf("UA = %q", got.UserAgent)
			}
		})
	}
}
