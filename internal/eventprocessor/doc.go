// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Package eventprocessor is the durable activity pipeline: a Watermill
// publisher and subscriber over NATS JetStream, the stream initializer that
// provisions the activity stream, and the persist handler that commits
// consumed events to the activity store.
//
// Delivery is at-least-once. The publisher stamps a Nats-Msg-Id header so
// JetStream can suppress broker-side duplicates inside the dedup window; the
// consumer itself does not deduplicate redeliveries. Messages that keep
// failing are routed to the dead-letter subject by the router's poison-queue
// middleware.
package eventprocessor
