// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package main is the entry point for the mhn-relay server.

mhn-relay subscribes to a honeypot sensor feed (hpfeeds, or NATS), keeps a
short window of recent events, and pushes every event to live viewers over
a websocket. Viewers with an active session on the identity service see
full events; everyone else sees a redacted copy.

# Application Architecture

	RootSupervisor ("mhn-relay")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS (optional)
	│   ├── WebSocket Hub
	│   ├── Identity verdict cache
	│   └── Feed Relay
	└── APISupervisor ("api-layer")
	    └── HTTP Server

The relay and the HTTP server share only the recent-event cache and the
hub. An incomplete broker section leaves the relay idle while the API and
socket keep serving.

# Configuration

	Priority: Environment variables > Config file > Defaults

	HPFEEDS_HOST, HPFEEDS_PORT, HPFEEDS_CHANNELS, HPFEEDS_IDENT, HPFEEDS_SECRET
	BROKER_KIND=hpfeeds|nats, NATS_URL, NATS_EMBEDDED
	CHN_AUTH_URL                 identity service (GET with the viewer's Cookie)
	HTTP_HOST, HTTP_PORT
	CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, BOT_USER_AGENTS
	FEED_CACHE_CAPACITY, FEED_RETENTION
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER

The config file is --config, else CONFIG_PATH, else ./config.yaml or
/etc/mhn-relay/config.yaml when present.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, the
relay finishes the message in hand, and the hub closes every viewer.
*/
package main
