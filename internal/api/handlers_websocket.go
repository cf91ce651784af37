// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
	ws "github.com/seckc/mhn-relay/internal/websocket"
)

// roomFor maps a gatekeeper admission to a hub room. AdmitNone maps to
// the empty room: the connection stays open but receives nothing.
func roomFor(a auth.Admission) ws.Room {
	switch a {
	case auth.AdmitAuthenticated:
		return ws.RoomAuthenticated
	case auth.AdmitAnonymous:
		return ws.RoomAnonymous
	default:
		return ""
	}
}

// WebSocket upgrades the request to the live push channel. The caller is
// classified before the upgrade so the identity lookup happens while the
// request can still be rejected cleanly.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "live feed unavailable")
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		respondError(w, http.StatusBadRequest, "websocket upgrade required")
		return
	}
	if !h.upgrader.CheckOrigin(r) {
		metrics.HubConnectionsRejected.WithLabelValues("origin").Inc()
		logging.Ctx(r.Context()).Warn().
			Str("origin", sanitizeLogValue(r.Header.Get("Origin"))).
			Msg("WebSocket connection rejected from unauthorized origin")
		respondError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	admission := h.gatekeeper.ClassifyRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client, ok := h.hub.Serve(conn, roomFor(admission))
	if !ok {
		logging.Ctx(r.Context()).Debug().Msg("WebSocket connection refused: hub shutting down")
		return
	}

	logging.Ctx(r.Context()).Debug().
		Uint64("client_id", client.ID()).
		Str("admission", admission.String()).
		Str("remote", r.RemoteAddr).
		Msg("Live viewer connected")
}

// sanitizeLogValue strips control characters so header values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	const maxLen = 256
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			continue
		}
		out = append(out, c)
		if len(out) == maxLen {
			break
		}
	}
	return string(out)
}
