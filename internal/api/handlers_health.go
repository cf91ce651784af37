// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of the liveness and readiness probes.
type HealthResponse struct {
	Status string  `json:"status"`
	Relay  string  `json:"relay"`
	Uptime float64 `json:"uptime_seconds"`
}

// Healthz reports liveness. It succeeds whenever the process can answer.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Relay:  h.relayState().String(),
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// Readyz reports readiness: the HTTP listener is bound. An idle relay
// does not make the process unready, since the query API and live
// socket still serve.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ready",
		Relay:  h.relayState().String(),
		Uptime: time.Since(h.startTime).Seconds(),
	}
	if h.ready != nil && !h.ready() {
		resp.Status = "starting"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
