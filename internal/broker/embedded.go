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

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedNATS runs a NATS server inside the relay process, for
// single-host deployments where sensors publish straight to the relay.
type EmbeddedNATS struct {
	server    *server.Server
	clientURL string
}

// StartEmbeddedNATS starts a core NATS server (no JetStream) on host:port
// and waits until it accepts clients. Port -1 picks a random port.
func StartEmbeddedNATS(host string, port int, readyTimeout time.Duration) (*EmbeddedNATS, error) {
	opts := &server.Options{
		ServerName: "mhn-relay",
		Host:       host,
		Port:       port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1 << 20,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}

	return &EmbeddedNATS{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (e *EmbeddedNATS) ClientURL() string {
	return e.clientURL
}

// Shutdown stops the server and waits for it, or for ctx.
func (e *EmbeddedNATS) Shutdown(ctx context.Context) error {
	e.server.Shutdown()
	done := make(chan struct{})
	go func() {
		e.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports server health.
func (e *EmbeddedNATS) IsRunning() bool {
	return e.server.Running()
}
