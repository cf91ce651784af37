// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seckc/mhn-relay/internal/hpfeeds"
)

// HPFeeds connects to an hpfeeds broker over TCP.
type HPFeeds struct {
	addr   string
	ident  string
	secret string
}

// NewHPFeeds returns a Broker for the hpfeeds broker at addr.
func NewHPFeeds(addr, ident, secret string) *HPFeeds {
	return &HPFeeds{addr: addr, ident: ident, secret: secret}
}

func (h *HPFeeds) String() string {
	return fmt.Sprintf("hpfeeds://%s@%s", h.ident, h.addr)
}

// Connect dials, authenticates and subscribes.
func (h *HPFeeds) Connect(ctx context.Context, channels []string) (Session, error) {
	c, err := hpfeeds.Dial(ctx, h.addr, h.ident, h.secret)
	if err != nil {
		return nil, err
	}
	if err := c.Subscribe(channels...); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("hpfeeds: subscribe: %w", err)
	}
	return &hpfeedsSession{client: c}, nil
}

type hpfeedsSession struct {
	client *hpfeeds.Client
}

func (s *hpfeedsSession) Next(ctx context.Context) (Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.client.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	msg, err := s.client.Next()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		if hpfeeds.IsClosed(err) {
			return Message{}, ErrClosed
		}
		return Message{}, err
	}
	return Message{
		SourceIdentifier: msg.Ident,
		Channel:          msg.Channel,
		Payload:          msg.Payload,
	}, nil
}

func (s *hpfeedsSession) Close() error {
	err := s.client.Close()
	if hpfeeds.IsClosed(err) {
		return nil
	}
	return err
}

// HPFeedsPublisher publishes to an hpfeeds broker.
type HPFeedsPublisher struct {
	client *hpfeeds.Client
}

// NewHPFeedsPublisher dials and authenticates a publishing connection.
func NewHPFeedsPublisher(ctx context.Context, addr, ident, secret string) (*HPFeedsPublisher, error) {
	c, err := hpfeeds.Dial(ctx, addr, ident, secret)
	if err != nil {
		return nil, err
	}
	return &HPFeedsPublisher{client: c}, nil
}

// Publish writes one PUBLISH frame unless ctx is already done.
func (p *HPFeedsPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.client.Publish(channel, payload)
}

// Close closes the connection.
func (p *HPFeedsPublisher) Close() error {
	err := p.client.Close()
	if errors.Is(err, ErrClosed) || hpfeeds.IsClosed(err) {
		return nil
	}
	return err
}
