// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package relay runs the long-lived broker subscription: it decodes each
// message, stores it in the recent-event cache and hands it to the
// broadcast hub.
package relay

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/seckc/mhn-relay/internal/broker"
	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/hpfeeds"
	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
)

// State is the relay's subscription state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventStore receives every decoded event.
type EventStore interface {
	Put(ev event.Event)
}

// Publisher fans decoded events out to live viewers.
type Publisher interface {
	Publish(ev event.Event)
}

// Options tunes connection handling.
type Options struct {
	Channels       []string
	ConnectTimeout time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = time.Second
	}
	if o.BackoffMax < o.BackoffInitial {
		o.BackoffMax = max(32*time.Second, o.BackoffInitial)
	}
}

// Relay is a suture.Service that keeps one broker session alive for the
// life of the process.
type Relay struct {
	broker broker.Broker
	store  EventStore
	hub    Publisher
	opts   Options
	state  atomic.Int32
	now    func() time.Time
	log    zerolog.Logger
}

// New creates a relay. A nil broker means the feed is not configured: the
// relay stays idle and Serve returns suture.ErrDoNotRestart.
func New(b broker.Broker, store EventStore, hub Publisher, opts Options) *Relay {
	opts.setDefaults()
	r := &Relay{
		broker: b,
		store:  store,
		hub:    hub,
		opts:   opts,
		now:    time.Now,
		log:    logging.WithComponent("relay"),
	}
	metrics.SetRelayState(StateIdle.String())
	return r
}

// State returns the current state. Safe for concurrent use.
func (r *Relay) State() State {
	return State(r.state.Load())
}

func (r *Relay) setState(s State) {
	if State(r.state.Swap(int32(s))) != s {
		metrics.SetRelayState(s.String())
	}
}

func (r *Relay) String() string {
	return "feed-relay"
}

// Serve connects, consumes and reconnects with exponential backoff until
// ctx is cancelled.
func (r *Relay) Serve(ctx context.Context) error {
	if r.broker == nil {
		r.setState(StateIdle)
		r.log.Warn().Msg("feed relay disabled: broker configuration incomplete")
		return suture.ErrDoNotRestart
	}
	defer r.setState(StateStopped)

	backoff := r.opts.BackoffInitial
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.setState(StateConnecting)
		sess, err := r.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ev := r.log.Warn()
			if errors.Is(err, hpfeeds.ErrAuthFailed) || errors.Is(err, hpfeeds.ErrAccessDenied) {
				ev = r.log.Error()
			}
			ev.Err(err).
				Str("broker", r.broker.String()).
				Dur("retry_in", backoff).
				Msg("feed connect failed")
		} else {
			r.setState(StateSubscribed)
			r.log.Info().
				Str("broker", r.broker.String()).
				Strs("channels", r.opts.Channels).
				Msg("feed subscribed")
			backoff = r.opts.BackoffInitial

			err = r.consume(ctx, sess)
			_ = sess.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn().Err(err).Dur("retry_in", backoff).Msg("feed connection lost")
		}

		r.setState(StateConnecting)
		metrics.RelayReconnects.Inc()
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, r.opts.BackoffMax)
	}
}

func (r *Relay) connect(ctx context.Context) (broker.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()
	return r.broker.Connect(ctx, r.opts.Channels)
}

// consume handles messages until the session fails or ctx is done. A
// message already received is always fully processed.
func (r *Relay) consume(ctx context.Context, sess broker.Session) error {
	for {
		msg, err := sess.Next(ctx)
		if err != nil {
			return err
		}
		r.Handle(msg)
	}
}

// Handle decodes one broker message, caches it and publishes it. Decode
// failures and panics are logged and the message is skipped.
func (r *Relay) Handle(msg broker.Message) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			metrics.RelayDecodeFailures.WithLabelValues(msg.Channel).Inc()
			r.log.Error().
				Interface("panic", p).
				Str("channel", msg.Channel).
				Msg("recovered panic while handling feed message")
		}
	}()

	metrics.RelayMessagesReceived.WithLabelValues(msg.Channel).Inc()

	ev, err := event.DecodeAt(msg.Payload, msg.SourceIdentifier, msg.Channel, r.now())
	if err != nil {
		metrics.RelayDecodeFailures.WithLabelValues(msg.Channel).Inc()
		r.log.Warn().
			Err(err).
			Str("channel", msg.Channel).
			Str("identifier", msg.SourceIdentifier).
			Int("size", len(msg.Payload)).
			Msg("dropping undecodable feed message")
		return
	}

	r.store.Put(ev)
	r.hub.Publish(ev)
	metrics.RelayProcessingDuration.Observe(time.Since(start).Seconds())
}

// sleep waits for d or ctx, reporting false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
