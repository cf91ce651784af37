// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/seckc/mhn-relay/internal/logging"
)

// EmbeddedBroker is implemented by broker.EmbeddedNATS.
type EmbeddedBroker interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
	ClientURL() string
}

// EmbeddedNATSService owns the lifetime of an in-process NATS server
// started before the tree. It only shuts the server down; a server that
// dies on its own is logged and the service is not restarted.
type EmbeddedNATSService struct {
	server          EmbeddedBroker
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	name            string
}

// NewEmbeddedNATSService wraps server.
func NewEmbeddedNATSService(server EmbeddedBroker, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   5 * time.Second,
		name:            "embedded-nats",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// the original ctx is already cancelled
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("embedded NATS shutdown timed out")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				logging.Error().Str("url", s.server.ClientURL()).Msg("embedded NATS server stopped unexpectedly")
				return suture.ErrDoNotRestart
			}
		}
	}
}

func (s *EmbeddedNATSService) String() string {
	return s.name
}
