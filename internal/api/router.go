// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router. A nil config uses DefaultChiMiddlewareConfig.
func NewRouter(deps Dependencies, cfg *ChiMiddlewareConfig) *Router {
	mw := NewChiMiddleware(cfg)
	authMW := deps.Auth
	if authMW == nil {
		authMW = auth.NewMiddleware(nil)
	}
	return &Router{
		handler:       NewHandler(deps, mw),
		auth:          authMW,
		chiMiddleware: mw,
	}
}

// Handler returns the HTTP handler serving every route.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/healthz", router.handler.Healthz)
		r.Get("/readyz", router.handler.Readyz)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/feeds", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/recent", router.auth.Wrap(router.handler.Recent))
		r.Get("/status", router.handler.Status)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/me", router.auth.Wrap(router.handler.AuthMe))
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebSocket())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/socket", router.handler.WebSocket)
		r.Get("/ws", router.handler.WebSocket)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
