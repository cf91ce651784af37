// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package api provides the HTTP surface of the relay using the Chi router.

Routes:

	GET /feeds/recent?since=<float>&limit=<int>   cached events, redacted unless authenticated
	GET /feeds/status                             relay state, cache occupancy, room sizes
	GET /auth/me                                  identity verdict for the caller's cookie
	GET /socket, GET /ws                          live push channel (websocket)
	GET /healthz, GET /readyz                     liveness and readiness probes
	GET /metrics                                  Prometheus exposition

Handlers that depend on the caller's session take an auth.AuthContext as
an explicit third parameter and are adapted with auth.Middleware.Wrap.
Everything the handlers touch (cache, relay, hub, gatekeeper) is passed
in through Dependencies; the package holds no global state.

Errors are JSON objects with a single "error" key and a non-2xx status.

Middleware stack, outermost first: request ID, RealIP, access log,
Recoverer, CORS, then per-group rate limiting, security headers and
Prometheus instrumentation.
*/
package api
