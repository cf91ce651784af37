// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package auth

import (
	"context"
	"net/http"
)

type contextKey string

const authContextKey contextKey = "auth-context"

// AuthContext is the resolved authentication state of one request.
type AuthContext struct {
	Active bool `json:"active"`
}

// Handler is an HTTP handler that receives the caller's AuthContext
// explicitly.
type Handler func(w http.ResponseWriter, r *http.Request, ac AuthContext)

// Middleware resolves the AuthContext for each request from its Cookie
// header.
type Middleware struct {
	checker Checker
}

// NewMiddleware creates the middleware over checker.
func NewMiddleware(checker Checker) *Middleware {
	return &Middleware{checker: checker}
}

// Resolve asks the identity checker about r's session. A request without
// a Cookie header is inactive.
func (m *Middleware) Resolve(r *http.Request) AuthContext {
	if ac, ok := FromContext(r.Context()); ok {
		return ac
	}
	cookie := r.Header.Get("Cookie")
	if cookie == "" || m.checker == nil {
		return AuthContext{}
	}
	return AuthContext{Active: m.checker.IsActive(r.Context(), cookie)}
}

// Wrap adapts h to http.HandlerFunc, resolving the AuthContext first. The
// resolved value is also stored on the request context.
func (m *Middleware) Wrap(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := m.Resolve(r)
		r = r.WithContext(WithAuthContext(r.Context(), ac))
		h(w, r, ac)
	}
}

// WithAuthContext stores ac on ctx.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext returns the AuthContext stored by Wrap.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(AuthContext)
	return ac, ok
}
