// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// IdentityServer stands in for the session identity service. Requests
// whose Cookie header is in Active get {"active": true}; everything else
// gets {"active": false}.
type IdentityServer struct {
	Server *httptest.Server

	mu      sync.Mutex
	active  map[string]bool
	cookies []string

	calls atomic.Int64

	// Status overrides the response code when non-zero.
	Status atomic.Int32
	// Delay is applied before answering.
	Delay atomic.Int64
	// Body replaces the JSON body when non-empty.
	Body atomic.Value
}

// NewIdentityServer starts a mock identity service closed by t.Cleanup.
func NewIdentityServer(t *testing.T, activeCookies ...string) *IdentityServer {
	t.Helper()

	s := &IdentityServer{active: make(map[string]bool)}
	for _, c := range activeCookies {
		s.active[c] = true
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		cookie := r.Header.Get("Cookie")

		s.mu.Lock()
		s.cookies = append(s.cookies, cookie)
		active := s.active[cookie]
		s.mu.Unlock()

		if d := time.Duration(s.Delay.Load()); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if code := s.Status.Load(); code != 0 {
			w.WriteHeader(int(code))
		}
		if body, ok := s.Body.Load().(string); ok && body != "" {
			_, _ = w.Write([]byte(body))
			return
		}
		if active {
			_, _ = w.Write([]byte(`{"active": true, "username": "analyst"}`))
			return
		}
		_, _ = w.Write([]byte(`{"active": false}`))
	}))
	t.Cleanup(s.Server.Close)
	return s
}

// URL returns the endpoint to configure as identity.url.
func (s *IdentityServer) URL() string {
	return s.Server.URL + "/auth/me/"
}

// SetActive marks cookie as an active session (or not).
func (s *IdentityServer) SetActive(cookie string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[cookie] = active
}

// Calls returns the number of requests received.
func (s *IdentityServer) Calls() int64 {
	return s.calls.Load()
}

// Cookies returns the Cookie header of every request, in order.
func (s *IdentityServer) Cookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cookies))
	copy(out, s.cookies)
	return out
}
