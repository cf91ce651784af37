// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/seckc/mhn-relay/internal/validation"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 100
)

// RecentRequest holds the parsed recent-events query.
type RecentRequest struct {
	Since *float64 `query:"since"`
	Limit int      `query:"limit" validate:"min=1"`
}

var errBadSince = errors.New("since must be a number of seconds since the epoch")

// parseRecentRequest reads since and limit from the query string. A limit
// above MaxRecentLimit is capped rather than rejected.
func parseRecentRequest(r *http.Request) (RecentRequest, error) {
	q := r.URL.Query()
	req := RecentRequest{Limit: DefaultRecentLimit}

	if raw := q.Get("since"); raw != "" {
		since, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(since) || math.IsInf(since, 0) {
			return req, errBadSince
		}
		req.Since = &since
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("limit must be an integer")
		}
		req.Limit = limit
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, verr
	}
	if req.Limit > MaxRecentLimit {
		req.Limit = MaxRecentLimit
	}
	return req, nil
}
