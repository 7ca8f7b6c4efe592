// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/coursepulse/coursepulse/internal/metrics"
	"github.com/coursepulse/coursepulse/internal/models"
)

// ActivityStore is the persistence surface the handler needs. *database.DB
// satisfies it.
type ActivityStore interface {
	InsertActivity(ctx context.Context, rec *models.ActivityRecord) error
}

// PersistHandler commits consumed activity events to the store. Each
// delivery gets a fresh record ID; a redelivered event therefore lands as a
// separate row, which is the accepted cost of at-least-once delivery.
type PersistHandler struct {
	store  ActivityStore
	logger watermill.LoggerAdapter
}

// NewPersistHandler creates a persist handler backed by the given store.
func NewPersistHandler(store ActivityStore, logger watermill.LoggerAdapter) (*PersistHandler, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store required")
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &PersistHandler{store: store, logger: logger}, nil
}

// Handle processes one delivery. A returned error nacks the message so the
// broker redelivers it (and eventually dead-letters it); there is no
// internal retry loop here beyond the router's middleware.
func (h *PersistHandler) Handle(msg *message.Message) error {
	metrics.EventsConsumed.Inc()

	event, err := DecodeEvent(msg)
	if err != nil {
		metrics.EventsParseFailed.Inc()
		h.logger.Error("Undecodable activity message", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return err
	}

	rec := models.ActivityRecord{
		ID:            uuid.New().String(),
		ActivityEvent: *event,
	}

	start := time.Now()
	err = h.store.InsertActivity(msg.Context(), &rec)
	metrics.RecordPersist(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("persist activity %s: %w", msg.UUID, err)
	}

	h.logger.Trace("Activity persisted", watermill.LogFields{
		"message_uuid":  msg.UUID,
		"activity_type": string(rec.ActivityType),
	})
	return nil
}

// Register wires the handler into a router as the consumer of the activity
// subject.
func (h *PersistHandler) Register(r *Router, subject string, subscriber message.Subscriber) {
	r.AddConsumerHandler("activity-persister", subject, subscriber, h.Handle)
}
