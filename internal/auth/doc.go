// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package auth decides what a caller may see.

The relay does not own user accounts. It forwards the caller's Cookie
header to an external identity service and trusts its {"active": bool}
answer. Timeouts, transport errors, non-2xx answers and malformed bodies
all count as "not active".

Key Components:

  - IdentityClient: HTTP client for the identity service, behind a
    sony/gobreaker circuit breaker and a short-lived jellydator/ttlcache
    verdict cache keyed by a SHA-256 of the cookie
  - Middleware: resolves an AuthContext per request and passes it to
    handlers explicitly (see Handler and Wrap)
  - Gatekeeper: classifies live-viewer connections as authenticated,
    anonymous or no room (automated clients, by user-agent prefix)

Usage Example:

	identity := auth.NewIdentityClient(cfg.Identity)
	mw := auth.NewMiddleware(identity)
	r.Get("/feeds/recent", mw.Wrap(h.RecentEvents))

	gk := auth.NewGatekeeper(identity, cfg.Security.BotUserAgents)
	switch gk.ClassifyRequest(r) {
	case auth.AdmitAuthenticated:
	    // full events
	case auth.AdmitAnonymous:
	    // sanitized events
	case auth.AdmitNone:
	    // no live push
	}
*/
package auth
