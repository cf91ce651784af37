// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// failingServer returns serveErr from Serve immediately.
type failingServer struct {
	serveErr    error
	shutdownErr error
}

func (f *failingServer) Serve(ln net.Listener) error {
	_ = ln.Close()
	return f.serveErr
}

func (f *failingServer) Shutdown(context.Context) error { return f.shutdownErr }

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestNewHTTPServerService_Defaults(t *testing.T) {
	svc := NewHTTPServerService(&http.Server{}, "127.0.0.1:0", 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
	if svc.Ready() {
		t.Error("should not be ready before Serve")
	}
	if svc.Addr() != "127.0.0.1:0" {
		t.Errorf("Addr() = %q", svc.Addr())
	}
}

func TestHTTPServerService_ServesAndShutsDown(t *testing.T) {
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(srv, "127.0.0.1:0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !svc.Ready() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !svc.Ready() {
		t.Fatal("service never became ready")
	}

	resp, err := http.Get("http://" + svc.Addr() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if svc.Ready() {
		t.Error("should not be ready after shutdown")
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	svc := NewHTTPServerService(&failingServer{}, ln.Addr().String(), time.Second)
	err = svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Errorf("Serve() = %v, want listen error", err)
	}
}

func TestHTTPServerService_ServeError(t *testing.T) {
	svc := NewHTTPServerService(&failingServer{serveErr: errors.New("boom")}, "127.0.0.1:0", time.Second)
	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Serve() = %v", err)
	}
}

func TestHTTPServerService_ServerClosedIsNotAnError(t *testing.T) {
	svc := NewHTTPServerService(&failingServer{serveErr: http.ErrServerClosed}, "127.0.0.1:0", time.Second)
	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}
