// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package services adapts long-running components to suture.Service.
//
// Each wrapper takes a small interface rather than a concrete type so it
// can be tested with a fake:
//
//   - HTTPServerService: binds the listener, serves, and shuts down
//     gracefully with a fresh timeout context when the tree stops
//   - WebSocketHubService: runs websocket.Hub.RunWithContext
//   - EmbeddedNATSService: watches and finally shuts down an in-process
//     NATS server
//
// Components that already implement Serve and String (relay.Relay,
// auth.IdentityClient) are added to the tree directly.
package services
