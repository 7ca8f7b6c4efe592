// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/coursepulse/coursepulse/internal/metrics"
	"github.com/coursepulse/coursepulse/internal/models"
)

// Publisher wraps a Watermill NATS publisher with resilience patterns.
// All activity events go to one fixed subject; a circuit breaker sheds load
// when the broker is repeatedly unreachable so the ingest path fails fast
// instead of piling up blocked requests.
type Publisher struct {
	publisher      message.Publisher
	subject        string
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a resilient Watermill NATS publisher.
// The publisher is configured for JetStream with message ID tracking so the
// broker can suppress duplicates within its dedup window.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			logger.Error("NATS error", err, watermill.LogFields{
				"subject": sub.Subject,
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher:      pub,
		subject:        cfg.Subject,
		circuitBreaker: newPublishBreaker(logger),
		logger:         logger,
	}, nil
}

// newPublishBreaker builds the publish-path circuit breaker. Five
// consecutive failures open the circuit; after 30 seconds one probe request
// is allowed through.
func newPublishBreaker(logger watermill.LoggerAdapter) *gobreaker.CircuitBreaker[interface{}] {
	const name = "nats_publish"
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logger.Info("Publish circuit breaker state change", watermill.LogFields{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
}

// Publish sends a message to a subject with circuit breaker protection.
// The message UUID is used as Nats-Msg-Id for deduplication if not already
// set.
func (p *Publisher) Publish(_ context.Context, subject string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(subject, msg)
	})

	if err != nil {
		metrics.PublishFailures.Inc()
		return err
	}
	metrics.EventsPublished.Inc()
	return nil
}

// PublishEvent serializes and publishes one activity event to the configured
// activity subject.
func (p *Publisher) PublishEvent(ctx context.Context, event *models.ActivityEvent) error {
	msg, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, p.subject, msg)
}

// PublishAll publishes events to the activity subject in slice order.
// Publishing stops at the first failure; events already sent stay sent, so
// a mid-batch broker outage loses only the tail.
func (p *Publisher) PublishAll(ctx context.Context, events []*models.ActivityEvent) error {
	for i, event := range events {
		if err := p.PublishEvent(ctx, event); err != nil {
			return fmt.Errorf("event %d of %d: %w", i+1, len(events), err)
		}
	}
	return nil
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher for
// components that require the native message.Publisher interface, such as
// the poison queue middleware.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}
