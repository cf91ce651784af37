// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // viewers only send pings

	// inbound frames allowed per second, with a small burst
	inboundRate  = 5
	inboundBurst = 10
)

// clientIDCounter gives clients monotonically increasing IDs so room
// delivery iterates in a stable order.
var clientIDCounter atomic.Uint64

var pongFrame = mustMarshal(Message{Type: MessageTypePong})

func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return b
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room Room // set once by Hub.Join

	// pong is owned by the client and never closed; send is closed by the
	// hub on leave, so readPump must not write to it.
	pong chan struct{}

	// done is closed when readPump exits, which stops writePump for
	// clients that never joined a room.
	done     chan struct{}
	doneOnce sync.Once
	inbound  *rate.Limiter
}

// NewClient creates a new Client with a unique ID. It is not in any room
// until Hub.Join.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.clientBuffer),
		pong:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		inbound: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// Room returns the room assigned at join time, or "" if none.
func (c *Client) Room() Room {
	return c.room
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// readPump reads viewer frames until the connection fails. Only ping is
// understood; everything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.finish()
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if !c.inbound.Allow() {
			metrics.WSErrors.WithLabelValues("inbound_rate").Inc()
			continue
		}

		if msg.Type == MessageTypePing {
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

// writePump drains the send buffer to the connection and pings the viewer
// periodically.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write frame")
				return
			}

		case <-c.pong:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, pongFrame); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Serve wraps conn in a Client, joins it to room and starts its pumps. An
// empty room keeps the connection open without joining it anywhere. Serve
// closes conn and returns false if the hub refuses the join.
func (h *Hub) Serve(conn *websocket.Conn, room Room) (*Client, bool) {
	c := NewClient(h, conn)
	if room != "" && !h.Join(c, room) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil, false
	}
	c.Start()
	return c, true
}
