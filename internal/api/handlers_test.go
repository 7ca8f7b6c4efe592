// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coursepulse/coursepulse/internal/config"
	"github.com/coursepulse/coursepulse/internal/ingest"
	"github.com/coursepulse/coursepulse/internal/models"
)

type fakePublisher struct {
	events []*models.ActivityEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, event *models.ActivityEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) PublishAll(ctx context.Context, events []*models.ActivityEvent) error {
	for _, event := range events {
		if err := f.PublishEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

type fakeStore struct {
	records    []models.ActivityRecord
	hasMore    bool
	stats      *models.ActivityStats
	lastAccess []models.CourseLastAccess
	purged     int64
	err        error

	gotTypes []models.ActivityType
	gotPage  int
	gotSize  int
}

func (f *fakeStore) GetActorActivities(_ context.Context, _ int64, page, size int) ([]models.ActivityRecord, bool, error) {
	f.gotPage, f.gotSize = page, size
	return f.records, f.hasMore, f.err
}

func (f *fakeStore) GetSessionActivities(_ context.Context, _ string) ([]models.ActivityRecord, error) {
	return f.records, f.err
}

func (f *fakeStore) GetActorCourseActivities(_ context.Context, _, _ int64, types []models.ActivityType, page, size int) ([]models.ActivityRecord, bool, error) {
	f.gotTypes = types
	f.gotPage, f.gotSize = page, size
	return f.records, f.hasMore, f.err
}

func (f *fakeStore) ComputeStats(_ context.Context, _, _ time.Time) (*models.ActivityStats, error) {
	return f.stats, f.err
}

func (f *fakeStore) CourseLastAccess(_ context.Context, _ int64) ([]models.CourseLastAccess, error) {
	return f.lastAccess, f.err
}

func (f *fakeStore) PurgeOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return f.purged, f.err
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.err
}

func newTestServer(t *testing.T, store *fakeStore, publisher *fakePublisher) *httptest.Server {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	gateway := ingest.NewGateway(publisher, loc, 100)
	handler := NewHandler(gateway, store, loc)
	router := NewRouter(handler, &config.ServerConfig{})

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, models.APIResponse) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func TestLogActivityAccepted(t *testing.T) {
	publisher := &fakePublisher{}
	srv := newTestServer(t, &fakeStore{}, publisher)

	body := `{"activityType":"PAGE_VIEW","sessionId":"s1","pageUrl":"/courses/12"}`
	resp, envelope := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities", body,
		map[string]string{"X-Actor-ID": "42", "Content-Type": "application/json"})

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if envelope.Status != "success" {
		t.Errorf("envelope status = %q", envelope.Status)
	}

	ack, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	if ack["status"] != models.AckPending {
		t.Errorf("ack status = %v", ack["status"])
	}
	if ack["activityType"] != "PAGE_VIEW" {
		t.Errorf("ack type = %v", ack["activityType"])
	}

	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	event := publisher.events[0]
	if event.ActorID == nil || *event.ActorID != 42 {
		t.Errorf("actor = %v", event.ActorID)
	}
	if event.IPAddress == "" || event.UserAgent == "" {
		t.Errorf("client context not attached: %+v", event)
	}
}

func TestLogActivityValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"activityType":"TELEPORT"}`},
		{"missing type", `{"sessionId":"s1"}`},
		{"broken json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			srv := newTestServer(t, &fakeStore{}, publisher)

			resp, envelope := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities", tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if envelope.Error == nil {
				t.Error("expected error payload")
			}
			if len(publisher.events) != 0 {
				t.Error("invalid activity must not be published")
			}
		})
	}
}

func TestLogActivityBadActorHeader(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakePublisher{})

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities",
		`{"activityType":"LOGIN"}`, map[string]string{"X-Actor-ID": "abc"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLogActivityPublishFailureStillAccepted(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	srv := newTestServer(t, &fakeStore{}, publisher)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities",
		`{"activityType":"LOGIN"}`, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202 despite publish failure", resp.StatusCode)
	}
}

func TestLogActivityBatch(t *testing.T) {
	publisher := &fakePublisher{}
	srv := newTestServer(t, &fakeStore{}, publisher)

	body := `[{"activityType":"LOGIN"},{"activityType":"PAGE_VIEW","pageUrl":"/a"}]`
	resp, envelope := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities/batch", body, nil)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	acks, ok := envelope.Data.([]interface{})
	if !ok || len(acks) != 2 {
		t.Fatalf("data = %#v, want 2 acks", envelope.Data)
	}
	if len(publisher.events) != 2 {
		t.Errorf("published %d events, want 2", len(publisher.events))
	}
}

func TestLogActivityBatchAllOrNothing(t *testing.T) {
	publisher := &fakePublisher{}
	srv := newTestServer(t, &fakeStore{}, publisher)

	body := `[{"activityType":"LOGIN"},{"activityType":"BOGUS"}]`
	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/activities/batch", body, nil)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(publisher.events) != 0 {
		t.Error("a batch with one bad entry must publish nothing")
	}
}

func TestActorActivities(t *testing.T) {
	store := &fakeStore{
		records: []models.ActivityRecord{{
			ID: "rec-1",
			ActivityEvent: models.ActivityEvent{
				ActivityType: models.ActivityPageView,
				Timestamp:    time.Now().UTC(),
			},
		}},
		hasMore: true,
	}
	srv := newTestServer(t, store, &fakePublisher{})

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/users/42?page=1&size=10", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if store.gotPage != 1 || store.gotSize != 10 {
		t.Errorf("pagination = %d/%d", store.gotPage, store.gotSize)
	}

	page, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	pagination, ok := page["pagination"].(map[string]interface{})
	if !ok || pagination["has_more"] != true {
		t.Errorf("pagination = %#v", page["pagination"])
	}
}

func TestActorActivitiesBadID(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakePublisher{})

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/users/abc", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionActivitiesEmptyIsOK(t *testing.T) {
	srv := newTestServer(t, &fakeStore{records: []models.ActivityRecord{}}, &fakePublisher{})

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/sessions/nope", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for empty result", resp.StatusCode)
	}
	if records, ok := envelope.Data.([]interface{}); !ok || len(records) != 0 {
		t.Errorf("data = %#v, want empty array", envelope.Data)
	}
}

func TestStatsValidation(t *testing.T) {
	store := &fakeStore{stats: &models.ActivityStats{TotalActivities: 3}}
	srv := newTestServer(t, store, &fakePublisher{})

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"valid window", "?start=2026-08-01T00:00:00Z&end=2026-08-02T00:00:00Z", http.StatusOK},
		{"missing start", "?end=2026-08-02T00:00:00Z", http.StatusBadRequest},
		{"missing end", "?start=2026-08-01T00:00:00Z", http.StatusBadRequest},
		{"malformed", "?start=yesterday&end=today", http.StatusBadRequest},
		{"inverted", "?start=2026-08-02T00:00:00Z&end=2026-08-01T00:00:00Z", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/stats"+tt.query, "", nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCourseStudentActivitiesTypeFilter(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTypes int
		wantCode  int
	}{
		{"default course filter", "", len(models.CourseActivityTypes), http.StatusOK},
		{"explicit course", "?types=course", len(models.CourseActivityTypes), http.StatusOK},
		{"all", "?types=all", 0, http.StatusOK},
		{"single type", "?types=QUIZ_START", 1, http.StatusOK},
		{"unknown type", "?types=WARP", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{records: []models.ActivityRecord{}}
			srv := newTestServer(t, store, &fakePublisher{})

			url := srv.URL + "/api/v1/activities/courses/12/students/42" + tt.query
			resp, _ := doRequest(t, http.MethodGet, url, "", nil)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && len(store.gotTypes) != tt.wantTypes {
				t.Errorf("filter has %d types, want %d", len(store.gotTypes), tt.wantTypes)
			}
		})
	}
}

func TestCourseStudentActivitiesLocalized(t *testing.T) {
	store := &fakeStore{
		records: []models.ActivityRecord{{
			ID: "rec-1",
			ActivityEvent: models.ActivityEvent{
				ActivityType: models.ActivityCourseView,
				Metadata:     map[string]interface{}{"courseName": "Lập trình Go", "courseId": float64(12)},
				Timestamp:    time.Date(2026, 8, 28, 3, 30, 0, 0, time.UTC),
			},
		}},
	}
	srv := newTestServer(t, store, &fakePublisher{})

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/courses/12/students/42", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	page, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	activities, ok := page["activities"].([]interface{})
	if !ok || len(activities) != 1 {
		t.Fatalf("activities = %#v", page["activities"])
	}
	entry := activities[0].(map[string]interface{})
	want := `Truy cập khóa học "Lập trình Go" vào lúc 10:30 ngày 28/08/2026`
	if entry["formattedTitle"] != want {
		t.Errorf("formatted title = %q, want %q", entry["formattedTitle"], want)
	}
}

func TestCourseLastAccessStoreError(t *testing.T) {
	srv := newTestServer(t, &fakeStore{err: errors.New("io error")}, &fakePublisher{})

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/activities/courses/12/last-access", "", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "QUERY_FAILED" {
		t.Errorf("error = %+v", envelope.Error)
	}
}

func TestPurgeActivities(t *testing.T) {
	store := &fakeStore{purged: 7}
	srv := newTestServer(t, store, &fakePublisher{})

	resp, envelope := doRequest(t, http.MethodDelete,
		srv.URL+"/api/v1/activities/retention?before=2026-08-01T00:00:00Z", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result, ok := envelope.Data.(map[string]interface{})
	if !ok || result["deleted"] != float64(7) {
		t.Errorf("data = %#v", envelope.Data)
	}

	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/activities/retention", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status without cutoff = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakePublisher{})

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	degraded := newTestServer(t, &fakeStore{err: errors.New("closed")}, &fakePublisher{})
	resp, _ = doRequest(t, http.MethodGet, degraded.URL+"/api/v1/health", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakePublisher{})

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/health", "", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
