// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursepulse/coursepulse/internal/logging"
	"github.com/coursepulse/coursepulse/internal/metrics"
	"github.com/coursepulse/coursepulse/internal/models"
)

// Publisher is the channel the gateway hands accepted events to. Satisfied
// by eventprocessor.Publisher.
type Publisher interface {
	PublishEvent(ctx context.Context, event *models.ActivityEvent) error
	PublishAll(ctx context.Context, events []*models.ActivityEvent) error
}

// Gateway validates, normalizes, and publishes raw activity payloads.
//
// The gateway is fire-and-forget by contract: a successful return means the
// event was accepted, not persisted. Publish failures are logged and counted
// but never surfaced to the caller; the platform tolerates losing telemetry
// under broker pressure rather than blocking user-facing requests.
type Gateway struct {
	publisher    Publisher
	location     *time.Location
	maxBatchSize int
}

// NewGateway builds an ingest gateway. loc is the zone client civil
// timestamps are interpreted in; maxBatchSize bounds batch ingestion.
func NewGateway(publisher Publisher, loc *time.Location, maxBatchSize int) *Gateway {
	if maxBatchSize < 1 {
		maxBatchSize = 100
	}
	return &Gateway{
		publisher:    publisher,
		location:     loc,
		maxBatchSize: maxBatchSize,
	}
}

// LogOne accepts a single raw activity. Validation failures return
// *ValidationError; publish failures do not.
func (g *Gateway) LogOne(ctx context.Context, actorID *int64, raw *models.RawActivity, client ClientContext) (models.PendingAck, error) {
	event, err := Normalize(actorID, raw, g.location)
	if err != nil {
		metrics.RecordIngestRejection(rejectionReason(err))
		return models.PendingAck{}, err
	}

	g.attribute(event, client)
	g.publish(ctx, event)
	metrics.RecordIngest("single")

	return models.AckFor(event), nil
}

// LogBatch accepts up to maxBatchSize raw activities sharing one client
// context. The batch is all-or-nothing at the validation stage: one invalid
// payload rejects the whole request so clients notice tracker bugs.
func (g *Gateway) LogBatch(ctx context.Context, actorID *int64, raws []*models.RawActivity, client ClientContext) ([]models.PendingAck, error) {
	if len(raws) == 0 {
		return []models.PendingAck{}, nil
	}
	if len(raws) > g.maxBatchSize {
		metrics.RecordIngestRejection("oversized_batch")
		return nil, &ValidationError{
			Field:  "activities",
			Reason: fmt.Sprintf("batch size %d exceeds limit %d", len(raws), g.maxBatchSize),
		}
	}

	events := make([]*models.ActivityEvent, 0, len(raws))
	for i, raw := range raws {
		event, err := Normalize(actorID, raw, g.location)
		if err != nil {
			metrics.RecordIngestRejection(rejectionReason(err))
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		g.attribute(event, client)
		events = append(events, event)
	}

	if err := g.publisher.PublishAll(ctx, events); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Int("batch_size", len(events)).
			Msg("Batch publish incomplete, unsent events dropped")
	}

	acks := make([]models.PendingAck, 0, len(events))
	for _, event := range events {
		acks = append(acks, models.AckFor(event))
	}

	metrics.IngestBatchSize.Observe(float64(len(events)))
	metrics.RecordIngest("batch")
	return acks, nil
}

// LogSystem records a backend-generated activity (password changes, grade
// releases, scheduled jobs). No HTTP context exists; attribution is the
// literal "system".
func (g *Gateway) LogSystem(ctx context.Context, actorID *int64, activityType models.ActivityType, action, metadata string) error {
	raw := &models.RawActivity{
		ActivityType: activityType,
		Action:       action,
		Metadata:     metadata,
	}

	event, err := Normalize(actorID, raw, g.location)
	if err != nil {
		metrics.RecordIngestRejection(rejectionReason(err))
		return err
	}

	g.attribute(event, SystemContext())
	g.publish(ctx, event)
	metrics.RecordIngest("system")

	logging.Ctx(ctx).Debug().
		Str("activity_type", string(activityType)).
		Msg("Queued system activity")
	return nil
}

// attribute stamps the shared client context onto an event.
func (g *Gateway) attribute(event *models.ActivityEvent, client ClientContext) {
	event.IPAddress = client.IPAddress
	if event.UserAgent == "" {
		event.UserAgent = client.UserAgent
	}
}

// publish hands the event to the channel, swallowing failures. Loss is
// visible only through logs and the publish failure counter.
func (g *Gateway) publish(ctx context.Context, event *models.ActivityEvent) {
	if err := g.publisher.PublishEvent(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("activity_type", string(event.ActivityType)).
			Str("session_id", event.SessionID).
			Msg("Activity publish failed, event dropped")
	}
}

// rejectionReason buckets validation errors for the rejection counter.
func rejectionReason(err error) string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return "invalid"
	}
	switch verr.Field {
	case "activityType":
		return "unknown_type"
	case "activities":
		return "oversized_batch"
	default:
		return "invalid"
	}
}
