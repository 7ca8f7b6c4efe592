// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package main

import (
	"context"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/coursepulse/coursepulse/internal/config"
	"github.com/coursepulse/coursepulse/internal/eventprocessor"
	"github.com/coursepulse/coursepulse/internal/logging"
)

// Pipeline bundles the messaging components the supervisor tree runs: the
// optional embedded broker, the publisher the ingest gateway feeds, and the
// router that persists consumed events.
type Pipeline struct {
	Embedded   *eventprocessor.EmbeddedServer
	Publisher  *eventprocessor.Publisher
	Subscriber *eventprocessor.Subscriber
	Router     *eventprocessor.Router

	streamConn *natsgo.Conn
}

// buildPipeline wires broker, stream, publisher, subscriber and router in
// dependency order. The stream is provisioned before anything subscribes so
// BindStream always finds it.
func buildPipeline(ctx context.Context, cfg *config.Config, store eventprocessor.ActivityStore) (*Pipeline, error) {
	wmLogger := logging.NewWatermillAdapter()
	p := &Pipeline{}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.ServerConfigFrom(&cfg.NATS)
		embedded, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		p.Embedded = embedded
		url = embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	if err := p.provisionStream(ctx, cfg, url); err != nil {
		p.Close()
		return nil, err
	}

	publisher, err := eventprocessor.NewPublisher(eventprocessor.PublisherConfigFrom(&cfg.NATS, url), wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	p.Publisher = publisher

	subscriberCfg := eventprocessor.SubscriberConfigFrom(&cfg.NATS, url)
	subscriber, err := eventprocessor.NewSubscriber(&subscriberCfg, wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	p.Subscriber = subscriber

	routerCfg := eventprocessor.DefaultRouterConfig(cfg.NATS.DLQSubject)
	router, err := eventprocessor.NewRouter(&routerCfg, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create router: %w", err)
	}
	p.Router = router

	persister, err := eventprocessor.NewPersistHandler(store, wmLogger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create persist handler: %w", err)
	}
	persister.Register(router, cfg.NATS.Subject, subscriber.WatermillSubscriber())

	return p, nil
}

// provisionStream creates or updates the durable activity stream.
func (p *Pipeline) provisionStream(ctx context.Context, cfg *config.Config, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS for stream init: %w", err)
	}
	p.streamConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventprocessor.StreamConfigFrom(&cfg.NATS)
	init, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		return err
	}
	if _, err := init.EnsureStream(ctx); err != nil {
		return err
	}

	logging.Info().
		Str("stream", streamCfg.Name).
		Strs("subjects", streamCfg.Subjects).
		Dur("max_age", streamCfg.MaxAge).
		Msg("Activity stream ready")
	return nil
}

// Close tears the pipeline down in reverse order of construction. Safe on a
// partially built pipeline.
func (p *Pipeline) Close() {
	if p.Router != nil {
		if err := p.Router.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close router")
		}
	}
	if p.Subscriber != nil {
		if err := p.Subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close subscriber")
		}
	}
	if p.Publisher != nil {
		if err := p.Publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if p.streamConn != nil {
		p.streamConn.Close()
	}
}
