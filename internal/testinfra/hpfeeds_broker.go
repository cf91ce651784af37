// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package testinfra

import (
	"bufio"
	"crypto/rand"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/seckc/mhn-relay/internal/hpfeeds"
)

// HPFeedsBroker is a minimal in-process hpfeeds broker for tests. It
// authenticates clients against a fixed ident/secret table, tracks their
// subscriptions and routes PUBLISH frames to subscribers.
type HPFeedsBroker struct {
	t        *testing.T
	ln       net.Listener
	name     string
	secrets  map[string]string
	mu       sync.Mutex
	conns    map[*brokerConn]struct{}
	accepted int
	wg       sync.WaitGroup
	closed   chan struct{}
}

type brokerConn struct {
	conn   net.Conn
	wmu    sync.Mutex
	ident  string
	authed bool
	subs   map[string]bool
}

func (bc *brokerConn) send(op byte, body []byte) error {
	bc.wmu.Lock()
	defer bc.wmu.Unlock()
	return hpfeeds.WriteFrame(bc.conn, op, body)
}

// StartHPFeedsBroker listens on 127.0.0.1 with an ephemeral port. secrets
// maps idents to their secrets. The broker is closed by t.Cleanup.
func StartHPFeedsBroker(t *testing.T, secrets map[string]string) *HPFeedsBroker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &HPFeedsBroker{
		t:       t,
		ln:      ln,
		name:    "testbroker",
		secrets: secrets,
		conns:   make(map[*brokerConn]struct{}),
		closed:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	t.Cleanup(b.Close)
	return b
}

// Addr returns host:port of the listener.
func (b *HPFeedsBroker) Addr() string {
	return b.ln.Addr().String()
}

// Host and Port split Addr.
func (b *HPFeedsBroker) Host() string {
	return b.ln.Addr().(*net.TCPAddr).IP.String()
}

func (b *HPFeedsBroker) Port() int {
	return b.ln.Addr().(*net.TCPAddr).Port
}

func (b *HPFeedsBroker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		bc := &brokerConn{conn: conn, subs: make(map[string]bool)}
		b.mu.Lock()
		b.conns[bc] = struct{}{}
		b.accepted++
		b.mu.Unlock()

		b.wg.Add(1)
		go b.serve(bc)
	}
}

func (b *HPFeedsBroker) serve(bc *brokerConn) {
	defer b.wg.Done()
	defer func() {
		_ = bc.conn.Close()
		b.mu.Lock()
		delete(b.conns, bc)
		b.mu.Unlock()
	}()

	nonce := make([]byte, hpfeeds.NonceSize)
	_, _ = rand.Read(nonce)
	info, _ := hpfeeds.EncodeInfo(b.name, nonce)
	if err := bc.send(hpfeeds.OpInfo, info); err != nil {
		return
	}

	r := bufio.NewReader(bc.conn)
	for {
		frame, err := hpfeeds.ReadFrame(r)
		if err != nil {
			return
		}
		switch frame.Op {
		case hpfeeds.OpAuth:
			ident, hash, err := hpfeeds.DecodeAuth(frame.Body)
			secret, known := b.secrets[ident]
			if err != nil || !known || !hpfeeds.VerifyAuth(nonce, secret, hash) {
				_ = bc.send(hpfeeds.OpError, []byte("authfail"))
				return
			}
			b.mu.Lock()
			bc.ident = ident
			bc.authed = true
			b.mu.Unlock()
		case hpfeeds.OpSubscribe, hpfeeds.OpUnsubscribe:
			_, channel, err := hpfeeds.DecodeSubscribe(frame.Body)
			b.mu.Lock()
			authed := bc.authed
			if err == nil && authed {
				bc.subs[channel] = frame.Op == hpfeeds.OpSubscribe
			}
			b.mu.Unlock()
			if !authed {
				_ = bc.send(hpfeeds.OpError, []byte("accessfail"))
				return
			}
		case hpfeeds.OpPublish:
			ident, channel, payload, err := hpfeeds.DecodePublish(frame.Body)
			if err != nil {
				return
			}
			b.route(ident, channel, payload)
		}
	}
}

func (b *HPFeedsBroker) route(ident, channel string, payload []byte) {
	body, err := hpfeeds.EncodePublish(ident, channel, payload)
	if err != nil {
		return
	}
	b.mu.Lock()
	targets := make([]*brokerConn, 0, len(b.conns))
	for bc := range b.conns {
		if bc.subs[channel] {
			targets = append(targets, bc)
		}
	}
	b.mu.Unlock()
	for _, bc := range targets {
		_ = bc.send(hpfeeds.OpPublish, body)
	}
}

// Publish injects a message as if a sensor identified as ident had sent it.
func (b *HPFeedsBroker) Publish(ident, channel string, payload []byte) {
	b.route(ident, channel, payload)
}

// Subscribers returns the number of connections subscribed to channel.
func (b *HPFeedsBroker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for bc := range b.conns {
		if bc.subs[channel] {
			n++
		}
	}
	return n
}

// Accepted returns how many connections the broker has accepted so far.
func (b *HPFeedsBroker) Accepted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepted
}

// WaitForSubscribers polls until channel has at least n subscribers.
func (b *HPFeedsBroker) WaitForSubscribers(channel string, n int, timeout time.Duration) bool {
	return WaitFor(timeout, func() bool { return b.Subscribers(channel) >= n })
}

// DropAll closes every client connection, simulating a transport failure.
func (b *HPFeedsBroker) DropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for bc := range b.conns {
		_ = bc.conn.Close()
	}
}

// Close stops the listener and all connections.
func (b *HPFeedsBroker) Close() {
	select {
	case <-b.closed:
		return
	default:
		close(b.closed)
	}
	err := b.ln.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		b.t.Logf("close listener: %v", err)
	}
	b.DropAll()
	b.wg.Wait()
}

// WaitFor polls cond every 10ms until it is true or timeout elapses.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
