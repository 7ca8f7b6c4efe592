// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package ingest

import (
	"net"
	"net/http"
	"strings"
)

// ClientContext carries the per-request client attribution attached to every
// event from the same HTTP request. System-generated events use
// SystemContext instead.
type ClientContext struct {
	IPAddress string
	UserAgent string
}

// SystemContext attributes events generated by the backend itself, with no
// originating HTTP request.
func SystemContext() ClientContext {
	return ClientContext{IPAddress: "system", UserAgent: "system"}
}

// ContextFromRequest resolves the client IP and User-Agent from an HTTP
// request. IP resolution order: first comma-separated entry of
// X-Forwarded-For, then X-Real-IP, then the peer address.
func ContextFromRequest(r *http.Request) ClientContext {
	return ClientContext{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if ip := headerIP(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}
	if ip := headerIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// headerIP extracts the first usable address from a forwarding header.
// Proxies that can't resolve the client send the literal "unknown".
func headerIP(value string) string {
	if value == "" || strings.EqualFold(value, "unknown") {
		return ""
	}
	if idx := strings.Index(value, ","); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
