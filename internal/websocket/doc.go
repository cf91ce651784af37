// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package websocket pushes honeypot events to live viewers.

Viewers are partitioned into two rooms when they connect:

  - authenticated: receives every event exactly as decoded
  - anonymous: receives the redacted copy produced by event.Sanitizer

A connection is placed in at most one room and never moves. Connections
that were refused a room (automated clients) stay open for ping/pong but
receive no events.

Architecture:

	relay ──Publish──▶ broadcast queue ──▶ RunWithContext
	                                          │
	                 ┌────────────────────────┴───────────────┐
	           authenticated room                      anonymous room
	           (full frame)                            (sanitized frame)
	           ┌────┴────┐                             ┌────┴────┐
	        Client    Client                        Client    Client

Each frame is marshaled once per room and the same bytes are queued on
every member's send buffer. A member whose buffer is full is evicted
rather than allowed to stall the room.

Each client runs two goroutines:
  - readPump: reads {"type":"ping"} frames and answers {"type":"pong"}
  - writePump: drains the send buffer and keeps the connection alive

Wire format:

	{"type": "hpfeedevent", "data": {...event...}}

The hub is a supervised service: RunWithContext returns when its context
is cancelled, after closing every member.
*/
package websocket
