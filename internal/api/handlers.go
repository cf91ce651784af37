// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/cache"
	"github.com/seckc/mhn-relay/internal/relay"
	ws "github.com/seckc/mhn-relay/internal/websocket"
)

// EventStore is the read side of the recent-event cache.
type EventStore interface {
	Query(authenticated bool, since *float64) []cache.CachedEvent
	Status() cache.Status
}

// RelayStatus exposes the feed relay's lifecycle state.
type RelayStatus interface {
	State() relay.State
}

// LiveHub is the broadcast hub as seen by the socket endpoint.
type LiveHub interface {
	Serve(conn *websocket.Conn, room ws.Room) (*ws.Client, bool)
	RoomCounts() ws.RoomCounts
}

// Dependencies are the collaborators the handlers need, built once in
// main and injected.
type Dependencies struct {
	Events     EventStore
	Relay      RelayStatus
	Hub        LiveHub
	Auth       *auth.Middleware
	Gatekeeper *auth.Gatekeeper

	// Ready reports whether the HTTP listener is bound. Nil means always
	// ready.
	Ready func() bool
}

// Handler serves the relay's HTTP endpoints.
type Handler struct {
	events     EventStore
	relay      RelayStatus
	hub        LiveHub
	gatekeeper *auth.Gatekeeper
	ready      func() bool
	upgrader   websocket.Upgrader
	startTime  time.Time
	now        func() time.Time
}

// NewHandler creates a Handler. Origin checks for socket upgrades are
// delegated to mw so they follow the CORS configuration.
func NewHandler(deps Dependencies, mw *ChiMiddleware) *Handler {
	h := &Handler{
		events:     deps.Events,
		relay:      deps.Relay,
		hub:        deps.Hub,
		gatekeeper: deps.Gatekeeper,
		ready:      deps.Ready,
		startTime:  time.Now(),
		now:        time.Now,
	}
	if h.gatekeeper == nil {
		h.gatekeeper = auth.NewGatekeeper(nil, nil)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return mw.AllowsOrigin(r.Header.Get("Origin"))
		},
	}
	return h
}

func (h *Handler) relayState() relay.State {
	if h.relay == nil {
		return relay.StateIdle
	}
	return h.relay.State()
}
