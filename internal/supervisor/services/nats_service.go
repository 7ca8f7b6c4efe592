// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package services

import (
	"context"
	"errors"
	"time"
)

// BrokerRunner matches the embedded NATS server's lifecycle. Satisfied by
// *eventprocessor.EmbeddedServer.
type BrokerRunner interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService supervises an already-started embedded broker. The
// broker is started before the tree so its client URL is known when the
// publisher and subscriber are wired; this service watches its health and
// owns its shutdown.
type EmbeddedNATSService struct {
	broker          BrokerRunner
	checkInterval   time.Duration
	shutdownTimeout time.Duration
}

// NewEmbeddedNATSService wraps a running embedded broker.
func NewEmbeddedNATSService(broker BrokerRunner, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		broker:          broker,
		checkInterval:   5 * time.Second,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service: block while the broker is healthy, shut
// it down when the tree stops. A dead broker surfaces as a service error so
// the failure is visible in supervision logs, though a restart of this
// service cannot resurrect the broker process state.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()

		case <-ticker.C:
			if !s.broker.IsRunning() {
				return errors.New("embedded NATS server stopped unexpectedly")
			}
		}
	}
}

// String identifies the service in suture's logs.
func (s *EmbeddedNATSService) String() string {
	return "embedded-nats"
}
