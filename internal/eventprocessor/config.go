// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package eventprocessor

import (
	"time"

	"github.com/coursepulse/coursepulse/internal/config"
)

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// ServerConfigFrom derives embedded server settings from the application
// configuration.
func ServerConfigFrom(nc *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              -1, // Random available port
		StoreDir:          nc.StoreDir,
		JetStreamMaxMem:   nc.MaxMemory,
		JetStreamMaxStore: nc.MaxStore,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	Subject          string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// PublisherConfigFrom derives publisher settings from the application
// configuration. url overrides cfg.URL so an embedded server's client URL
// can be injected.
func PublisherConfigFrom(nc *config.NATSConfig, url string) PublisherConfig {
	if url == "" {
		url = nc.URL
	}
	return PublisherConfig{
		URL:              url,
		Subject:          nc.Subject,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// SubscriberConfigFrom derives subscriber settings from the application
// configuration.
func SubscriberConfigFrom(nc *config.NATSConfig, url string) SubscriberConfig {
	if url == "" {
		url = nc.URL
	}
	return SubscriberConfig{
		URL:              url,
		StreamName:       nc.StreamName,
		DurableName:      nc.DurableName,
		QueueGroup:       nc.QueueGroup,
		SubscribersCount: nc.SubscribersCount,
		AckWaitTimeout:   nc.AckWait,
		MaxDeliver:       nc.MaxDeliver,
		MaxAckPending:    1000, // Flow control
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the activity stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// StreamConfigFrom derives the stream layout from the application
// configuration. The activity subject and the dead-letter subject share one
// stream so dead-lettered messages inherit the same retention.
func StreamConfigFrom(nc *config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            nc.StreamName,
		Subjects:        []string{nc.Subject, nc.DLQSubject},
		MaxAge:          nc.MessageTTL,
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,                      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}
