// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/coursepulse/coursepulse/internal/ingest"
	"github.com/coursepulse/coursepulse/internal/models"
)

// ActivityQuerier is the read surface the handlers need. *database.DB
// satisfies it.
type ActivityQuerier interface {
	GetActorActivities(ctx context.Context, actorID int64, page, size int) ([]models.ActivityRecord, bool, error)
	GetSessionActivities(ctx context.Context, sessionID string) ([]models.ActivityRecord, error)
	GetActorCourseActivities(ctx context.Context, actorID, courseID int64, types []models.ActivityType, page, size int) ([]models.ActivityRecord, bool, error)
	ComputeStats(ctx context.Context, start, end time.Time) (*models.ActivityStats, error)
	CourseLastAccess(ctx context.Context, courseID int64) ([]models.CourseLastAccess, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Handler serves the activity telemetry API.
type Handler struct {
	gateway  *ingest.Gateway
	store    ActivityQuerier
	location *time.Location
}

// NewHandler creates the API handler. loc is the presentation zone used to
// localize course feed entries.
func NewHandler(gateway *ingest.Gateway, store ActivityQuerier, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		gateway:  gateway,
		store:    store,
		location: loc,
	}
}

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondData(w, code, map[string]string{"status": status}, time.Time{})
}

// LogActivity accepts one raw activity. The event is handed to the durable
// channel and the caller gets a pending acknowledgment; broker trouble is
// deliberately invisible here.
func (h *Handler) LogActivity(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	var raw models.RawActivity
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err)
		return
	}

	ack, err := h.gateway.LogOne(r.Context(), actorID, &raw, ingest.ContextFromRequest(r))
	if err != nil {
		respondValidation(w, err)
		return
	}
	respondData(w, http.StatusAccepted, ack, time.Time{})
}

// LogActivityBatch accepts a batch of raw activities. Validation is
// all-or-nothing: one bad entry rejects the whole batch.
func (h *Handler) LogActivityBatch(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	var raws []*models.RawActivity
	if err := json.NewDecoder(r.Body).Decode(&raws); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not a valid JSON array", err)
		return
	}

	acks, err := h.gateway.LogBatch(r.Context(), actorID, raws, ingest.ContextFromRequest(r))
	if err != nil {
		respondValidation(w, err)
		return
	}
	respondData(w, http.StatusAccepted, acks, time.Time{})
}

// ActorActivities lists one actor's activities, newest first.
func (h *Handler) ActorActivities(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathInt64(r, "actorID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "actorID must be an integer", err)
		return
	}
	page, size := pageParams(r)

	start := time.Now()
	records, hasMore, err := h.store.GetActorActivities(r.Context(), actorID, page, size)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load activities", err)
		return
	}

	respondData(w, http.StatusOK, &models.ActivitiesPage{
		Activities: records,
		Pagination: models.PageInfo{
			Page:    page,
			Size:    size,
			Count:   len(records),
			HasMore: hasMore,
		},
	}, start)
}

// SessionActivities lists all activities of one session in chronological
// order.
func (h *Handler) SessionActivities(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "sessionID is required", nil)
		return
	}

	start := time.Now()
	records, err := h.store.GetSessionActivities(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load session activities", err)
		return
	}
	respondData(w, http.StatusOK, records, start)
}

// Stats aggregates the [start, end) window.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	startTime, err := timeParam(r, "start")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "start must be an RFC3339 timestamp", err)
		return
	}
	endTime, err := timeParam(r, "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "end must be an RFC3339 timestamp", err)
		return
	}
	if !startTime.Before(endTime) {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "start must be before end", nil)
		return
	}

	start := time.Now()
	stats, err := h.store.ComputeStats(r.Context(), startTime, endTime)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to compute statistics", err)
		return
	}
	respondData(w, http.StatusOK, stats, start)
}

// CourseStudentActivities returns one student's localized activity feed
// within one course. types=course (default) filters to the engagement
// allow-list, types=all disables filtering, and a concrete activity type
// filters to that type alone.
func (h *Handler) CourseStudentActivities(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathInt64(r, "courseID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "courseID must be an integer", err)
		return
	}
	actorID, err := pathInt64(r, "actorID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "actorID must be an integer", err)
		return
	}

	types, err := typeFilter(r.URL.Query().Get("types"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}
	page, size := pageParams(r)

	start := time.Now()
	records, hasMore, err := h.store.GetActorCourseActivities(r.Context(), actorID, courseID, types, page, size)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load course activities", err)
		return
	}

	activities := make([]models.CourseActivity, 0, len(records))
	for i := range records {
		activities = append(activities, models.CourseActivityFromRecord(&records[i], h.location))
	}

	respondData(w, http.StatusOK, &models.CourseActivitiesPage{
		Activities: activities,
		Pagination: models.PageInfo{
			Page:    page,
			Size:    size,
			Count:   len(activities),
			HasMore: hasMore,
		},
	}, start)
}

// CourseLastAccess reports, per student, the most recent activity within a
// course.
func (h *Handler) CourseLastAccess(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathInt64(r, "courseID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "courseID must be an integer", err)
		return
	}

	start := time.Now()
	entries, err := h.store.CourseLastAccess(r.Context(), courseID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load last access", err)
		return
	}
	respondData(w, http.StatusOK, entries, start)
}

// PurgeActivities deletes all records before the cutoff. Driven by the
// platform's retention scheduler.
func (h *Handler) PurgeActivities(w http.ResponseWriter, r *http.Request) {
	cutoff, err := timeParam(r, "before")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "before must be an RFC3339 timestamp", err)
		return
	}

	start := time.Now()
	deleted, err := h.store.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to purge activities", err)
		return
	}
	respondData(w, http.StatusOK, &models.PurgeResult{
		Deleted: deleted,
		Cutoff:  cutoff.UTC(),
	}, start)
}

// actorID resolves the caller's identity from the X-Actor-ID header set by
// the platform's auth layer. Absent means anonymous.
func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	header := r.Header.Get("X-Actor-ID")
	if header == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ACTOR", "X-Actor-ID must be an integer", err)
		return nil, false
	}
	return &id, true
}

// respondValidation maps gateway errors onto the HTTP surface: validation
// problems are the caller's fault, anything else is not supposed to happen
// because publish failures are swallowed upstream.
func respondValidation(w http.ResponseWriter, err error) {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "INGEST_FAILED", "Failed to accept activity", err)
}

func pathInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func pageParams(r *http.Request) (page, size int) {
	page = queryInt(r, "page", 0)
	size = queryInt(r, "size", 0) // store clamps 0 to its default
	return page, size
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func timeParam(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New("missing parameter " + key)
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// typeFilter interprets the types query parameter.
func typeFilter(value string) ([]models.ActivityType, error) {
	switch value {
	case "", "course":
		return models.CourseActivityTypes, nil
	case "all":
		return nil, nil
	default:
		t := models.ActivityType(value)
		if !t.Valid() {
			return nil, errors.New("unknown activity type " + value)
		}
		return []models.ActivityType{t}, nil
	}
}
