// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package services

import (
	"context"
	"fmt"
)

// MessageRouter matches the Watermill router wrapper's lifecycle. Satisfied
// by *eventprocessor.Router.
type MessageRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// RouterService runs the stream-processing router under supervision. If the
// router exits with an error, suture restarts it and the durable consumer
// resumes from its last acknowledged message.
type RouterService struct {
	router MessageRouter
}

// NewRouterService wraps a message router.
func NewRouterService(router MessageRouter) *RouterService {
	return &RouterService{router: router}
}

// Serve implements suture.Service. Run blocks until context cancellation or
// a fatal router error.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("message router failed: %w", err)
	}
	return ctx.Err()
}

// String identifies the service in suture's logs.
func (s *RouterService) String() string {
	return "activity-router"
}
