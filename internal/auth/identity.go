// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jellydator/ttlcache/v3"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/seckc/mhn-relay/internal/config"
	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
)

const (
	breakerName     = "identity"
	maxIdentityBody = 64 * 1024
)

// ErrIdentityStatus is returned for non-2xx answers from the identity service.
var ErrIdentityStatus = errors.New("identity service returned non-2xx status")

// Checker reports whether a session credential belongs to an active session.
type Checker interface {
	IsActive(ctx context.Context, cookie string) bool
}

// IdentityClient asks the identity service whether a session cookie is
// active. Every failure is treated as "not active". Calls go through a
// circuit breaker, and verdicts are cached briefly per cookie.
type IdentityClient struct {
	url     string
	timeout time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[bool]
	cache   *ttlcache.Cache[string, bool]
}

// NewIdentityClient builds a client from cfg. A zero CacheTTL disables the
// verdict cache.
func NewIdentityClient(cfg config.IdentityConfig) *IdentityClient {
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > config.MaxIdentityTimeout {
		timeout = config.MaxIdentityTimeout
	}

	c := &IdentityClient{
		url:     cfg.URL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.cb = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a viewer hanging up mid-check says nothing about the service
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("identity circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	if cfg.CacheTTL > 0 {
		c.cache = ttlcache.New[string, bool](
			ttlcache.WithTTL[string, bool](cfg.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, bool](),
			ttlcache.WithCapacity[string, bool](10000),
		)
	}
	return c
}

// URL returns the identity endpoint.
func (c *IdentityClient) URL() string {
	return c.url
}

// IsActive is Check without the error.
func (c *IdentityClient) IsActive(ctx context.Context, cookie string) bool {
	active, _ := c.Check(ctx, cookie)
	return active
}

// Check returns the verdict for cookie. An empty cookie is inactive
// without a network call. When err is non-nil active is always false.
func (c *IdentityClient) Check(ctx context.Context, cookie string) (active bool, err error) {
	if cookie == "" {
		metrics.RecordIdentityCheck("no_credential", 0)
		return false, nil
	}

	key := cacheKey(cookie)
	if c.cache != nil {
		if item := c.cache.Get(key); item != nil {
			metrics.RecordIdentityCheck("cached", 0)
			return item.Value(), nil
		}
	}

	start := time.Now()
	active, err = c.cb.Execute(func() (bool, error) {
		return c.fetch(ctx, cookie)
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		metrics.RecordIdentityCheck("error", 0)
		return false, err
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		metrics.RecordIdentityCheck("error", elapsed)
		logging.Ctx(ctx).Debug().Err(err).Msg("identity check failed, treating session as inactive")
		return false, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	if active {
		metrics.RecordIdentityCheck("active", elapsed)
	} else {
		metrics.RecordIdentityCheck("inactive", elapsed)
	}
	if c.cache != nil {
		c.cache.Set(key, active, ttlcache.DefaultTTL)
	}
	return active, nil
}

func (c *IdentityClient) fetch(ctx context.Context, cookie string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")
	req.Close = true

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("identity request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxIdentityBody))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: %d", ErrIdentityStatus, resp.StatusCode)
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIdentityBody)).Decode(&body); err != nil {
		return false, fmt.Errorf("decode identity response: %w", err)
	}
	return body.Active, nil
}

func (c *IdentityClient) String() string {
	return "identity-cache"
}

// Serve runs the verdict cache's expiry loop until ctx is done.
func (c *IdentityClient) Serve(ctx context.Context) error {
	if c.cache == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	done := make(chan struct{})
	go func() {
		c.cache.Start()
		close(done)
	}()
	<-ctx.Done()
	c.cache.Stop()
	<-done
	return ctx.Err()
}

func cacheKey(cookie string) string {
	sum := sha256.Sum256([]byte(cookie))
	return hex.EncodeToString(sum[:])
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
