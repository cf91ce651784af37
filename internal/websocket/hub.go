// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package websocket

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeEvent = "hpfeedevent"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

const (
	DefaultBroadcastBuffer = 256
	DefaultClientBuffer    = 256
)

// Room is a broadcast visibility tier.
type Room string

const (
	RoomAuthenticated Room = "authenticated"
	RoomAnonymous     Room = "anonymous"
)

// Rooms lists every room in delivery order.
var Rooms = []Room{RoomAuthenticated, RoomAnonymous}

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RoomCounts is the number of members per room.
type RoomCounts struct {
	Authenticated int `json:"authenticated"`
	Anonymous     int `json:"anonymous"`
}

// Hub tracks room membership and fans events out to members.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[Room][]*Client // each sorted by client ID
	member    map[*Client]Room
	closed    bool
	broadcast chan event.Event

	sanitizer    *event.Sanitizer
	clientBuffer int
	dropWarn     rate.Sometimes
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBroadcastBuffer sets the capacity of the queue between Publish and
// the delivery loop.
func WithBroadcastBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.broadcast = make(chan event.Event, n)
		}
	}
}

// WithClientBuffer sets each client's send buffer size.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.clientBuffer = n
		}
	}
}

// WithSanitizer replaces the redaction applied for the anonymous room.
func WithSanitizer(s *event.Sanitizer) HubOption {
	return func(h *Hub) {
		if s != nil {
			h.sanitizer = s
		}
	}
}

// NewHub creates a new Hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms: map[Room][]*Client{
			RoomAuthenticated: nil,
			RoomAnonymous:     nil,
		},
		member:       make(map[*Client]Room),
		broadcast:    make(chan event.Event, DefaultBroadcastBuffer),
		sanitizer:    event.DefaultSanitizer,
		clientBuffer: DefaultClientBuffer,
		dropWarn:     rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Join puts c in room. A client already in a room stays where it is, so
// repeated joins are no-ops. Join reports false if the hub has shut down
// or room is unknown.
func (h *Hub) Join(c *Client, room Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok || h.closed {
		return false
	}
	if _, already := h.member[c]; already {
		return true
	}
	i, _ := slices.BinarySearchFunc(members, c.id, byID)
	members = slices.Insert(members, i, c)
	h.rooms[room] = members
	h.member[c] = room
	c.room = room
	metrics.HubClients.WithLabelValues(string(room)).Set(float64(len(members)))

	logging.Debug().
		Uint64("client_id", c.id).
		Str("room", string(room)).
		Int("room_clients", len(members)).
		Msg("websocket client joined room")
	return true
}

// Leave removes c from whichever room it is in and closes its send
// buffer. Leaving when not a member is a no-op.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

func byID(c *Client, id uint64) int {
	return cmp.Compare(c.id, id)
}

func (h *Hub) leaveLocked(c *Client) {
	room, ok := h.member[c]
	if !ok {
		return
	}
	delete(h.member, c)
	if i, found := slices.BinarySearchFunc(h.rooms[room], c.id, byID); found {
		h.rooms[room] = slices.Delete(h.rooms[room], i, i+1)
	}
	close(c.send)
	metrics.HubClients.WithLabelValues(string(room)).Set(float64(len(h.rooms[room])))

	logging.Debug().
		Uint64("client_id", c.id).
		Str("room", string(room)).
		Int("room_clients", len(h.rooms[room])).
		Msg("websocket client left room")
}

// RoomOf returns the room c belongs to.
func (h *Hub) RoomOf(c *Client) (Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.member[c]
	return room, ok
}

// RoomCounts returns the current membership of each room.
func (h *Hub) RoomCounts() RoomCounts {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return RoomCounts{
		Authenticated: len(h.rooms[RoomAuthenticated]),
		Anonymous:     len(h.rooms[RoomAnonymous]),
	}
}

// GetClientCount returns the number of clients in any room
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.member)
}

// Publish queues ev for delivery without blocking. When the queue is full
// the event is not pushed live; viewers can still backfill it from the
// recent-event cache.
func (h *Hub) Publish(ev event.Event) {
	select {
	case h.broadcast <- ev:
	default:
		metrics.HubMessagesDropped.WithLabelValues("broadcast_full").Inc()
		h.dropWarn.Do(func() {
			logging.Warn().
				Str("channel", ev.Channel).
				Int("queue_capacity", cap(h.broadcast)).
				Msg("broadcast queue full, dropping live push")
		})
	}
}

// RunWithContext delivers queued events until ctx is cancelled, then
// closes every member. It is the hub's supervised service loop; being the
// only consumer of the queue keeps per-room delivery in publish order.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()

	for {
		// shutdown takes priority over pending deliveries
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// deliver pushes ev to both rooms. The sanitized copy is computed once and
// only when the anonymous room has members.
func (h *Hub) deliver(ev event.Event) {
	counts := h.RoomCounts()
	if counts.Authenticated > 0 {
		if frame, err := json.Marshal(Message{Type: MessageTypeEvent, Data: ev}); err != nil {
			logging.Error().Err(err).Str("channel", ev.Channel).Msg("failed to marshal event frame")
		} else {
			h.sendToRoom(RoomAuthenticated, frame)
		}
	}
	if counts.Anonymous > 0 {
		redacted := h.sanitizer.Event(ev)
		if frame, err := json.Marshal(Message{Type: MessageTypeEvent, Data: redacted}); err != nil {
			logging.Error().Err(err).Str("channel", ev.Channel).Msg("failed to marshal sanitized frame")
		} else {
			h.sendToRoom(RoomAnonymous, frame)
		}
	}
}

// sendToRoom queues frame on every member of room in client ID order.
// Sends happen under the read lock; members whose buffer is full are
// evicted afterwards under the write lock.
func (h *Hub) sendToRoom(room Room, frame []byte) {
	var toRemove []*Client
	sent := 0

	h.mu.RLock()
	for _, client := range h.rooms[room] {
		select {
		case client.send <- frame:
			sent++
		default:
			toRemove = append(toRemove, client)
		}
	}
	h.mu.RUnlock()
	metrics.HubMessagesSent.WithLabelValues(string(room)).Add(float64(sent))

	if len(toRemove) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range toRemove {
		if _, still := h.member[client]; !still {
			continue
		}
		metrics.HubMessagesDropped.WithLabelValues("client_full").Inc()
		logging.Warn().
			Uint64("client_id", client.id).
			Str("room", string(room)).
			Msg("websocket client too slow, evicting")
		h.leaveLocked(client)
	}
}

// logGracefulShutdown closes all members and logs the shutdown. ctx.Err()
// is not logged as an error because cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients evicts every member and refuses further joins until the
// hub runs again.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	n := len(h.member)
	for _, room := range Rooms {
		for _, client := range slices.Clone(h.rooms[room]) {
			h.leaveLocked(client)
		}
	}
	return n
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
