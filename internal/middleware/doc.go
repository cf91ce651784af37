// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package middleware provides the HTTP middleware shared by every relay
endpoint.

Key Components:

  - RequestID: accepts or mints an X-Request-ID and threads it, plus a
    fresh correlation ID, into the logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge keyed
    by the chi route pattern rather than the raw path
  - SecurityHeaders: nosniff, frame denial, referrer policy and HSTS
    behind TLS
  - AccessLog: one structured zerolog line per request

All middleware has the chi signature func(http.Handler) http.Handler and
keeps http.Hijacker available so websocket upgrades pass through.

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Route("/feeds", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Use(middleware.SecurityHeaders)
	    r.Get("/recent", h.Recent)
	})
*/
package middleware
