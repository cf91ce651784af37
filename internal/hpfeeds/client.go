// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package hpfeeds

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Message is a PUBLISH frame received on a subscribed channel.
type Message struct {
	Ident   string
	Channel string
	Payload []byte
}

// Client is an authenticated hpfeeds connection. Next must be called from
// a single goroutine; Publish, Subscribe and Close are safe to call
// concurrently with it.
type Client struct {
	conn       net.Conn
	r          *bufio.Reader
	ident      string
	brokerName string

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to addr, waits for the broker's INFO frame and
// authenticates. The handshake is bounded by ctx.
func Dial(ctx context.Context, addr, ident, secret string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("hpfeeds: dial %s: %w", addr, err)
	}

	c, err := handshake(ctx, conn, ident, secret)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient runs the handshake over an already established connection.
func NewClient(ctx context.Context, conn net.Conn, ident, secret string) (*Client, error) {
	return handshake(ctx, conn, ident, secret)
}

func handshake(ctx context.Context, conn net.Conn, ident, secret string) (*Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock the reads below if ctx is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c := &Client{conn: conn, r: bufio.NewReaderSize(conn, 64*1024), ident: ident}

	frame, err := ReadFrame(c.r)
	if err != nil {
		return nil, c.handshakeErr(ctx, "read info", err)
	}
	switch frame.Op {
	case OpInfo:
	case OpError:
		return nil, &BrokerError{Message: string(frame.Body)}
	default:
		return nil, fmt.Errorf("%w: %s during handshake", ErrUnexpectedOp, OpName(frame.Op))
	}

	name, nonce, err := DecodeInfo(frame.Body)
	if err != nil {
		return nil, err
	}
	c.brokerName = name

	body, err := EncodeAuth(ident, secret, nonce)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, OpAuth, body); err != nil {
		return nil, c.handshakeErr(ctx, "send auth", err)
	}

	if !stop() || ctx.Err() != nil {
		return nil, fmt.Errorf("hpfeeds: handshake: %w", context.Cause(ctx))
	}
	_ = conn.SetDeadline(time.Time{})
	return c, nil
}

func (c *Client) handshakeErr(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("hpfeeds: %s: %w", step, ctxErr)
	}
	// the socket deadline can fire a moment before ctx's own timer
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("hpfeeds: %s: %w", step, context.DeadlineExceeded)
	}
	return fmt.Errorf("hpfeeds: %s: %w", step, err)
}

// BrokerName is the name the broker announced in its INFO frame.
func (c *Client) BrokerName() string {
	return c.brokerName
}

// Ident is the identity this client authenticated as.
func (c *Client) Ident() string {
	return c.ident
}

// Subscribe asks the broker for every channel in channels. The broker does
// not acknowledge subscriptions; a refusal arrives later as an ERROR frame
// from Next.
func (c *Client) Subscribe(channels ...string) error {
	return c.sendChannelOp(OpSubscribe, channels)
}

// Unsubscribe is the inverse of Subscribe.
func (c *Client) Unsubscribe(channels ...string) error {
	return c.sendChannelOp(OpUnsubscribe, channels)
}

func (c *Client) sendChannelOp(op byte, channels []string) error {
	buf := make([]byte, 0, 64*len(channels))
	for _, ch := range channels {
		body, err := EncodeSubscribe(c.ident, ch)
		if err != nil {
			return err
		}
		if buf, err = AppendFrame(buf, op, body); err != nil {
			return err
		}
	}
	return c.write(buf)
}

// Publish sends payload on channel.
func (c *Client) Publish(channel string, payload []byte) error {
	body, err := EncodePublish(c.ident, channel, payload)
	if err != nil {
		return err
	}
	buf, err := AppendFrame(nil, OpPublish, body)
	if err != nil {
		return err
	}
	return c.write(buf)
}

func (c *Client) write(buf []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.conn.Write(buf)
	return err
}

// Next blocks until the broker delivers a message or the connection
// fails. ERROR frames are returned as *BrokerError; other ops are skipped.
func (c *Client) Next() (Message, error) {
	for {
		frame, err := ReadFrame(c.r)
		if err != nil {
			return Message{}, err
		}
		switch frame.Op {
		case OpPublish:
			ident, channel, payload, err := DecodePublish(frame.Body)
			if err != nil {
				return Message{}, err
			}
			return Message{Ident: ident, Channel: channel, Payload: payload}, nil
		case OpError:
			return Message{}, &BrokerError{Message: string(frame.Body)}
		}
	}
}

// SetReadDeadline bounds the next Next call.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the connection. Further calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// IsClosed reports whether err is the result of using a closed connection.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
