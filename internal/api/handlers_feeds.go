// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"

	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/cache"
	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/logging"
	ws "github.com/seckc/mhn-relay/internal/websocket"
)

// RecentResponse is the body of GET /feeds/recent.
type RecentResponse struct {
	Events        []cache.CachedEvent `json:"events"`
	Count         int                 `json:"count"`
	Authenticated bool                `json:"authenticated"`
	ServerTime    float64             `json:"server_time"`
}

// StatusResponse is the body of GET /feeds/status.
type StatusResponse struct {
	State string `json:"status"`
	cache.Status
	Rooms ws.RoomCounts `json:"rooms"`
}

// Recent returns cached events newer than since, redacted unless the
// caller is authenticated. When more than limit events match, the most
// recent limit are returned, still oldest first.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request, ac auth.AuthContext) {
	req, err := parseRecentRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events := h.events.Query(ac.Active, req.Since)
	if len(events) > req.Limit {
		events = events[len(events)-req.Limit:]
	}

	logging.Ctx(r.Context()).Debug().
		Int("count", len(events)).
		Bool("authenticated", ac.Active).
		Msg("Recent events served")

	respondJSON(w, http.StatusOK, RecentResponse{
		Events:        events,
		Count:         len(events),
		Authenticated: ac.Active,
		ServerTime:    event.EpochSeconds(h.now()),
	})
}

// Status reports relay state, cache occupancy and live room sizes.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		State:  h.relayState().String(),
		Status: h.events.Status(),
	}
	if h.hub != nil {
		resp.Rooms = h.hub.RoomCounts()
	}
	respondJSON(w, http.StatusOK, resp)
}

// AuthMe echoes the identity service's verdict for the caller's session.
func (h *Handler) AuthMe(w http.ResponseWriter, _ *http.Request, ac auth.AuthContext) {
	respondJSON(w, http.StatusOK, ac)
}
