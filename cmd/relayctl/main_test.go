// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/seckc/mhn-relay/internal/broker"
	"github.com/seckc/mhn-relay/internal/testinfra"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecent_QueryAndCookie(t *testing.T) {
	var gotQuery, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/recent" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[],"count":0,"authenticated":true,"server_time":1}`))
	}))
	defer srv.Close()

	out, err := run(t, "recent", "--server", srv.URL+"/", "--since", "1700000000.5", "--limit", "7", "--cookie", "session=abc")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if gotQuery != "limit=7&since=1700000000.5" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotCookie != "session=abc" {
		t.Errorf("cookie = %q", gotCookie)
	}
	if !strings.Contains(out, "\"authenticated\": true") {
		t.Errorf("output not indented JSON: %q", out)
	}
}

func TestRecent_OmitsUnsetParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	if _, err := run(t, "recent", "--server", srv.URL); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}

func TestStatus_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"limit must be an integer"}`))
	}))
	defer srv.Close()

	_, err := run(t, "status", "--server", srv.URL)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "limit must be an integer") {
		t.Errorf("error = %v, want server message", err)
	}
}

func TestStatus_Output(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"subscribed","cached_events":3}`))
	}))
	defer srv.Close()

	out, err := run(t, "status", "--server", srv.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "\"status\": \"subscribed\"") {
		t.Errorf("output = %q", out)
	}
}

func TestPublish_RejectsNonObject(t *testing.T) {
	for _, payload := range []string{"not json", "[1,2]", "42"} {
		if _, err := run(t, "publish", "--channel", "malware", payload); err == nil {
			t.Errorf("publish %q: expected error", payload)
		}
	}
}

func TestPublish_UnknownKind(t *testing.T) {
	_, err := run(t, "publish", "--kind", "amqp", "--channel", "malware", `{"a":1}`)
	if err == nil || !strings.Contains(err.Error(), "unknown broker kind") {
		t.Errorf("err = %v", err)
	}
}

func TestPublish_RequiresChannel(t *testing.T) {
	if _, err := run(t, "publish", `{"a":1}`); err == nil {
		t.Error("expected missing --channel error")
	}
}

func TestPublish_HPFeeds(t *testing.T) {
	hb := testinfra.StartHPFeedsBroker(t, map[string]string{"relay": "r", "sensor-1": "s"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := broker.NewHPFeeds(hb.Addr(), "relay", "r").Connect(ctx, []string{"malware"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()
	if !hb.WaitForSubscribers("malware", 1, 2*time.Second) {
		t.Fatal("subscriber never registered")
	}

	out, err := run(t, "publish",
		"--kind", "hpfeeds",
		"--host", hb.Host(),
		"--port", strconv.Itoa(hb.Port()),
		"--ident", "sensor-1",
		"--secret", "s",
		"--channel", "malware",
		`{"src_ip":"1.2.3.4"}`)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(out, "Published 20 bytes to malware via hpfeeds") {
		t.Errorf("output = %q", out)
	}

	msg, err := sess.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg.SourceIdentifier != "sensor-1" || msg.Channel != "malware" {
		t.Errorf("msg = %+v", msg)
	}
	if string(msg.Payload) != `{"src_ip":"1.2.3.4"}` {
		t.Errorf("payload = %s", msg.Payload)
	}
}
