// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package supervisor provides process supervision for the relay using suture v4.

Every long-running goroutine in the process is a suture.Service under one
tree, split into two layers so a crash in one does not take down the
other:

	RootSupervisor ("mhn-relay")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedNATSService (if broker.nats.embedded)
	│   ├── WebSocketHubService
	│   ├── IdentityClient cache loop
	│   └── Relay (feed subscription)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A feed relay that keeps failing is restarted with suture's failure
backoff; the HTTP API keeps serving cached events meanwhile. A relay
without a usable broker configuration returns suture.ErrDoNotRestart and
is left stopped.

Supervisor events (restarts, backoff, panics) are logged through
sutureslog into the zerolog-backed slog handler from the logging package.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(
	    logging.NewComponentSlogLogger("supervisor"),
	    supervisor.TreeConfigFrom(cfg.Supervisor),
	)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(feedRelay)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Supervisor.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)
*/
package supervisor
