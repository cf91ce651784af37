// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package broker abstracts the upstream publish/subscribe feed. The relay
// only sees Broker and Session; hpfeeds and NATS transports live behind them.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/seckc/mhn-relay/internal/config"
)

// ErrClosed is returned by Session.Next after Close.
var ErrClosed = errors.New("broker session closed")

// Message is one raw feed message.
type Message struct {
	SourceIdentifier string
	Channel          string
	Payload          []byte
}

// Session is a live, subscribed connection.
type Session interface {
	// Next blocks until a message arrives, the transport fails, or ctx is
	// done. Any non-nil error ends the session.
	Next(ctx context.Context) (Message, error)
	Close() error
}

// Broker opens sessions. Connect dials, authenticates and subscribes to
// channels; it must honor ctx for the whole handshake.
type Broker interface {
	Connect(ctx context.Context, channels []string) (Session, error)
	String() string
}

// Publisher sends messages to the feed. It is used by relayctl and tests.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// New returns the Broker selected by cfg.Kind. natsURL overrides
// cfg.NATS.URL when non-empty (the embedded server's address).
func New(cfg config.BrokerConfig, natsURL string) (Broker, error) {
	switch cfg.Kind {
	case config.BrokerHPFeeds, "":
		return NewHPFeeds(cfg.Addr(), cfg.Ident, cfg.Secret), nil
	case config.BrokerNATS:
		nc := cfg.NATS
		if natsURL != "" {
			nc.URL = natsURL
		}
		return NewNATS(nc, cfg.Ident), nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
}
