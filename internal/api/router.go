// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

// Package api is the caller-facing HTTP surface: chi routing, CORS, per-IP
// rate limits, Prometheus metrics, and the activity ingest and query
// handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursepulse/coursepulse/internal/config"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates the router around a handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup builds the chi routing tree with the full middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORSHandler(router.cfg.CORSAllowedOrigins))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/v1/health", router.handler.Health)

	r.Route("/api/v1/activities", func(r chi.Router) {
		r.Use(RateLimiter(router.cfg.RateLimitPerMinute))
		r.Use(PrometheusMetrics)

		r.Post("/", router.handler.LogActivity)
		r.Post("/batch", router.handler.LogActivityBatch)

		r.Get("/users/{actorID}", router.handler.ActorActivities)
		r.Get("/sessions/{sessionID}", router.handler.SessionActivities)
		r.Get("/stats", router.handler.Stats)
		r.Get("/courses/{courseID}/students/{actorID}", router.handler.CourseStudentActivities)
		r.Get("/courses/{courseID}/last-access", router.handler.CourseLastAccess)

		r.Delete("/retention", router.handler.PurgeActivities)
	})

	return r
}
