// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/seckc/mhn-relay/internal/api"
	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/broker"
	"github.com/seckc/mhn-relay/internal/cache"
	"github.com/seckc/mhn-relay/internal/config"
	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/relay"
	"github.com/seckc/mhn-relay/internal/supervisor"
	"github.com/seckc/mhn-relay/internal/supervisor/services"
	ws "github.com/seckc/mhn-relay/internal/websocket"
)

// embeddedReadyTimeout bounds the wait for an embedded NATS server.
const embeddedReadyTimeout = 10 * time.Second

// application is every long-lived component, built once and injected.
type application struct {
	tree     *supervisor.SupervisorTree
	events   *cache.RecentEvents
	hub      *ws.Hub
	identity *auth.IdentityClient
	relay    *relay.Relay
	http     *services.HTTPServerService
	embedded *broker.EmbeddedNATS
}

// newApplication builds the component graph and registers every service
// with the supervisor tree. Nothing runs until the tree is served.
func newApplication(cfg *config.Config) (*application, error) {
	tree, err := supervisor.NewSupervisorTree(
		logging.NewComponentSlogLogger("supervisor"),
		supervisor.TreeConfigFrom(cfg.Supervisor),
	)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	app := &application{tree: tree}

	sanitizer := event.NewSanitizer(cfg.Feed.RedactKeys...)

	app.events = cache.NewRecentEvents(
		cache.WithCapacity(cfg.Feed.CacheCapacity),
		cache.WithRetention(cfg.Feed.Retention),
		cache.WithSanitizer(sanitizer),
	)

	app.hub = ws.NewHub(
		ws.WithBroadcastBuffer(cfg.Feed.BroadcastBuffer),
		ws.WithClientBuffer(cfg.Feed.ClientBuffer),
		ws.WithSanitizer(sanitizer),
	)

	app.identity = auth.NewIdentityClient(cfg.Identity)

	feed, err := app.newBroker(cfg.Broker)
	if err != nil {
		app.shutdownEmbedded()
		return nil, err
	}

	app.relay = relay.New(feed, app.events, app.hub, relay.Options{
		Channels:       cfg.Broker.Channels,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
		BackoffInitial: cfg.Broker.Backoff.Initial,
		BackoffMax:     cfg.Broker.Backoff.Max,
	})

	router := api.NewRouter(api.Dependencies{
		Events:     app.events,
		Relay:      app.relay,
		Hub:        app.hub,
		Auth:       auth.NewMiddleware(app.identity),
		Gatekeeper: auth.NewGatekeeper(app.identity, cfg.Security.BotUserAgents),
		Ready:      app.ready,
	}, api.ChiMiddlewareConfigFrom(cfg.Security))

	server := newHTTPServer(cfg.Server, router)
	app.http = services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout)

	if app.embedded != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(app.embedded, cfg.Supervisor.ShutdownTimeout))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(app.hub))
	tree.AddMessagingService(app.identity)
	tree.AddMessagingService(app.relay)
	tree.AddAPIService(app.http)

	return app, nil
}

// newBroker returns nil, nil when the broker section is incomplete: the
// relay then stays idle and the rest of the process serves normally.
func (app *application) newBroker(cfg config.BrokerConfig) (broker.Broker, error) {
	if err := cfg.Complete(); err != nil {
		logging.Warn().Err(err).Msg("Feed relay disabled: broker configuration incomplete")
		return nil, nil
	}

	var natsURL string
	if cfg.Kind == config.BrokerNATS && cfg.NATS.Embedded {
		e, err := broker.StartEmbeddedNATS(cfg.NATS.EmbeddedHost, cfg.NATS.EmbeddedPort, embeddedReadyTimeout)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		app.embedded = e
		natsURL = e.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	b, err := broker.New(cfg, natsURL)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("broker", cfg.String()).Msg("Feed broker configured")
	return b, nil
}

// ready reports whether the HTTP listener is bound.
func (app *application) ready() bool {
	return app.http != nil && app.http.Ready()
}

func (app *application) shutdownEmbedded() {
	if app.embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.embedded.Shutdown(ctx)
}
