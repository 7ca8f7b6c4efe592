// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coursepulse/coursepulse/internal/models"
)

// EncodeEvent serializes an activity event into a Watermill message with a
// fresh UUID. The UUID doubles as the broker-side deduplication key.
func EncodeEvent(event *models.ActivityEvent) (*message.Message, error) {
	if event == nil {
		return nil, fmt.Errorf("event required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("activity_type", string(event.ActivityType))
	return msg, nil
}

// DecodeEvent deserializes a consumed message back into an activity event.
func DecodeEvent(msg *message.Message) (*models.ActivityEvent, error) {
	var event models.ActivityEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode activity event: %w", err)
	}
	if event.ActivityType == "" {
		return nil, fmt.Errorf("activity event missing activity type")
	}
	return &event, nil
}
