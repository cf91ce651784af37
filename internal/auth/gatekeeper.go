// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
)

// DefaultBotUserAgents are user-agent prefixes of automated clients.
var DefaultBotUserAgents = []string{"python-requests"}

// Admission is the gatekeeper's verdict for a live connection.
type Admission int

const (
	// AdmitNone keeps the connection out of every room.
	AdmitNone Admission = iota
	AdmitAnonymous
	AdmitAuthenticated
)

func (a Admission) String() string {
	switch a {
	case AdmitAuthenticated:
		return "authenticated"
	case AdmitAnonymous:
		return "anonymous"
	default:
		return "none"
	}
}

// Gatekeeper classifies live-viewer connections. Active sessions are
// authenticated; otherwise automated clients are refused a room and
// everyone else is anonymous. Any failure lands on the less privileged
// outcome.
type Gatekeeper struct {
	checker     Checker
	botPrefixes []string
}

// NewGatekeeper builds a gatekeeper. botUserAgents are matched as
// case-insensitive prefixes; nil uses DefaultBotUserAgents.
func NewGatekeeper(checker Checker, botUserAgents []string) *Gatekeeper {
	if botUserAgents == nil {
		botUserAgents = DefaultBotUserAgents
	}
	prefixes := make([]string, 0, len(botUserAgents))
	for _, ua := range botUserAgents {
		if ua = strings.ToLower(strings.TrimSpace(ua)); ua != "" {
			prefixes = append(prefixes, ua)
		}
	}
	return &Gatekeeper{checker: checker, botPrefixes: prefixes}
}

// IsAutomated reports whether userAgent matches a bot signature.
func (g *Gatekeeper) IsAutomated(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	for _, p := range g.botPrefixes {
		if strings.HasPrefix(ua, p) {
			return true
		}
	}
	return false
}

// Classify decides the admission for a connection carrying cookie and
// userAgent.
func (g *Gatekeeper) Classify(ctx context.Context, cookie, userAgent string) Admission {
	if cookie != "" && g.checker != nil && g.checker.IsActive(ctx, cookie) {
		return AdmitAuthenticated
	}
	if g.IsAutomated(userAgent) {
		metrics.HubConnectionsRejected.WithLabelValues("bot").Inc()
		logging.Ctx(ctx).Debug().Str("user_agent", userAgent).Msg("automated client gets no live feed")
		return AdmitNone
	}
	return AdmitAnonymous
}

// ClassifyRequest classifies an upgrade request. An AuthContext already
// resolved by Middleware is reused instead of asking the identity
// service again.
func (g *Gatekeeper) ClassifyRequest(r *http.Request) Admission {
	if ac, ok := FromContext(r.Context()); ok {
		if ac.Active {
			return AdmitAuthenticated
		}
		return g.Classify(r.Context(), "", r.UserAgent())
	}
	return g.Classify(r.Context(), r.Header.Get("Cookie"), r.UserAgent())
}
