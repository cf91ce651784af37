// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/seckc/mhn-relay/internal/auth"
	"github.com/seckc/mhn-relay/internal/event"
	"github.com/seckc/mhn-relay/internal/testinfra"
	ws "github.com/seckc/mhn-relay/internal/websocket"
)

func (env *testEnv) dial(t *testing.T, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return f
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame %s", data)
	}
}

func TestWebSocket_RoomsByAdmission(t *testing.T) {
	env := newTestEnv(t, nil)

	authed := env.dial(t, "/socket", http.Header{"Cookie": {activeCookie}})
	anon := env.dial(t, "/ws", http.Header{"User-Agent": {"Mozilla/5.0"}})
	bot := env.dial(t, "/socket", http.Header{"User-Agent": {"python-requests/2.31"}})

	if !testinfra.WaitFor(2*time.Second, func() bool {
		c := env.hub.RoomCounts()
		return c.Authenticated == 1 && c.Anonymous == 1
	}) {
		t.Fatalf("room counts = %+v", env.hub.RoomCounts())
	}

	ev, err := event.DecodeString(`{"src_ip":"1.2.3.4","password":"x"}`, "sensor-1", "malware")
	if err != nil {
		t.Fatal(err)
	}
	env.hub.Publish(ev)

	full := readFrame(t, authed)
	if full.Type != ws.MessageTypeEvent || full.Data["password"] != "x" || full.Data["channel"] != "malware" {
		t.Errorf("authenticated frame = %+v", full)
	}

	redacted := readFrame(t, anon)
	if _, ok := redacted.Data["password"]; ok {
		t.Errorf("anonymous frame leaked password: %+v", redacted)
	}
	if redacted.Data["src_ip"] != "1.2.3.4" {
		t.Errorf("anonymous frame = %+v", redacted)
	}

	expectNoFrame(t, bot)
}

func TestWebSocket_AuthenticatedBotStillAuthenticated(t *testing.T) {
	env := newTestEnv(t, nil)

	env.dial(t, "/socket", http.Header{
		"Cookie":     {activeCookie},
		"User-Agent": {"python-requests/2.31"},
	})

	if !testinfra.WaitFor(2*time.Second, func() bool {
		return env.hub.RoomCounts().Authenticated == 1
	}) {
		t.Fatalf("room counts = %+v", env.hub.RoomCounts())
	}
}

func TestWebSocket_BotConnectionStaysOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	bot := env.dial(t, "/socket", http.Header{"User-Agent": {"python-requests/2.31"}})

	if err := bot.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, bot); f.Type != ws.MessageTypePong {
		t.Errorf("frame = %+v, want pong", f)
	}
	if c := env.hub.RoomCounts(); c.Authenticated+c.Anonymous != 0 {
		t.Errorf("bot joined a room: %+v", c)
	}
}

func TestWebSocket_DisconnectLeavesRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t, "/socket", nil)

	if !testinfra.WaitFor(2*time.Second, func() bool { return env.hub.RoomCounts().Anonymous == 1 }) {
		t.Fatal("viewer never joined")
	}
	_ = conn.Close()
	if !testinfra.WaitFor(2*time.Second, func() bool { return env.hub.RoomCounts().Anonymous == 0 }) {
		t.Errorf("viewer still counted after disconnect: %+v", env.hub.RoomCounts())
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://map.example.org"}
	cfg.RateLimitDisabled = true
	env := newTestEnv(t, cfg)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/socket"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{
		"Origin": {"https://evil.example.com"},
		"Cookie": {activeCookie},
	})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}
	resp.Body.Close()
	if env.checker.calls.Load() != 0 {
		t.Error("identity service consulted for a rejected origin")
	}

	env.dial(t, "/socket", http.Header{"Origin": {"https://map.example.org"}})
}

func TestWebSocket_PlainGETIsBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.get(t, "/socket", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d: %s", resp.StatusCode, body)
	}
}

func TestRoomFor(t *testing.T) {
	for a, want := range map[auth.Admission]ws.Room{
		auth.AdmitAuthenticated: ws.RoomAuthenticated,
		auth.AdmitAnonymous:     ws.RoomAnonymous,
		auth.AdmitNone:          "",
	} {
		if got := roomFor(a); got != want {
			t.Errorf("roomFor(%v) = %q, want %q", a, got, want)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\rc\x7fd"); got != "abcd" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeLogValue(strings.Repeat("x", 1000)); len(got) != 256 {
		t.Errorf("len = %d, want 256", len(got))
	}
}
