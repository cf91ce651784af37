// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// isolate points the loader at an empty temp dir so stray config files in
// the package directory or CONFIG_PATH cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Broker.Kind != BrokerHPFeeds {
		t.Errorf("Broker.Kind = %q, want hpfeeds", cfg.Broker.Kind)
	}
	if cfg.Broker.Port != 10000 {
		t.Errorf("Broker.Port = %d, want 10000", cfg.Broker.Port)
	}
	if cfg.Broker.Backoff.Initial != time.Second || cfg.Broker.Backoff.Max != 32*time.Second {
		t.Errorf("Broker.Backoff = %+v, want 1s..32s", cfg.Broker.Backoff)
	}
	if cfg.Identity.URL != "http://localhost:8000/auth/me/" {
		t.Errorf("Identity.URL = %q", cfg.Identity.URL)
	}
	if cfg.Identity.Timeout != 10*time.Second {
		t.Errorf("Identity.Timeout = %v, want 10s", cfg.Identity.Timeout)
	}
	if cfg.Feed.CacheCapacity != 100 {
		t.Errorf("Feed.CacheCapacity = %d, want 100", cfg.Feed.CacheCapacity)
	}
	if cfg.Feed.Retention != 300*time.Second {
		t.Errorf("Feed.Retention = %v, want 300s", cfg.Feed.Retention)
	}
	if !reflect.DeepEqual(cfg.Security.BotUserAgents, []string{"python-requests"}) {
		t.Errorf("Security.BotUserAgents = %v", cfg.Security.BotUserAgents)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithKoanf_DefaultsOnly(t *testing.T) {
	isolate(t)

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if err := cfg.Broker.Complete(); !errors.Is(err, ErrIncompleteBroker) {
		t.Errorf("Complete() = %v, want ErrIncompleteBroker", err)
	}
}

func TestLoadWithKoanf_File(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "relay.yaml", `
server:
  port: 9090
broker:
  host: hpfeeds.example.org
  port: 20000
  ident: relay
  secret: s3cret
  channels:
    - dionaea.connections
    - cowrie.sessions
feed:
  retention: 2m
`)

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Broker.Addr() != "hpfeeds.example.org:20000" {
		t.Errorf("Broker.Addr() = %q", cfg.Broker.Addr())
	}
	want := []string{"dionaea.connections", "cowrie.sessions"}
	if !reflect.DeepEqual(cfg.Broker.Channels, want) {
		t.Errorf("Broker.Channels = %v, want %v", cfg.Broker.Channels, want)
	}
	if cfg.Feed.Retention != 2*time.Minute {
		t.Errorf("Feed.Retention = %v, want 2m", cfg.Feed.Retention)
	}
	if err := cfg.Broker.Complete(); err != nil {
		t.Errorf("Complete() = %v, want nil", err)
	}
}

func TestLoadWithKoanf_LegacyHPFeedsSection(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "settings.yaml", `
hpfeeds:
  host: legacy.example.org
  port: 10001
  channels: [amun.events]
  user: collector
  token: tok
`)

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Broker.Host != "legacy.example.org" || cfg.Broker.Port != 10001 {
		t.Errorf("Broker = %s", cfg.Broker.Addr())
	}
	if cfg.Broker.Ident != "collector" || cfg.Broker.Secret != "tok" {
		t.Errorf("Broker ident/secret = %q/%q", cfg.Broker.Ident, cfg.Broker.Secret)
	}
	if !reflect.DeepEqual(cfg.Broker.Channels, []string{"amun.events"}) {
		t.Errorf("Broker.Channels = %v", cfg.Broker.Channels)
	}
}

func TestLoadWithKoanf_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "relay.yaml", `
broker:
  host: file.example.org
  channels: [from.file]
`)
	t.Setenv("HPFEEDS_HOST", "env.example.org")
	t.Setenv("HPFEEDS_PORT", "10500")
	t.Setenv("HPFEEDS_CHANNELS", "a.events, b.events,,")
	t.Setenv("HPFEEDS_USER", "ident")
	t.Setenv("HPFEEDS_SECRET", "secret")
	t.Setenv("CHN_AUTH_URL", "http://chn.local/auth/me/")
	t.Setenv("BOT_USER_AGENTS", "python-requests,curl/")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Broker.Host != "env.example.org" || cfg.Broker.Port != 10500 {
		t.Errorf("Broker = %s", cfg.Broker.Addr())
	}
	if !reflect.DeepEqual(cfg.Broker.Channels, []string{"a.events", "b.events"}) {
		t.Errorf("Broker.Channels = %v", cfg.Broker.Channels)
	}
	if cfg.Identity.URL != "http://chn.local/auth/me/" {
		t.Errorf("Identity.URL = %q", cfg.Identity.URL)
	}
	if !reflect.DeepEqual(cfg.Security.BotUserAgents, []string{"python-requests", "curl/"}) {
		t.Errorf("BotUserAgents = %v", cfg.Security.BotUserAgents)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if err := cfg.Broker.Complete(); err != nil {
		t.Errorf("Complete() = %v", err)
	}
}

func TestLoadWithKoanf_ExplicitPathMissing(t *testing.T) {
	dir := isolate(t)
	if _, err := LoadWithKoanf(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoadWithKoanf_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad broker kind", map[string]string{"BROKER_KIND": "amqp"}},
		{"identity timeout over ceiling", map[string]string{"IDENTITY_TIMEOUT": "11s"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"zero capacity", map[string]string{"FEED_CACHE_CAPACITY": "0"}},
		{"backoff inverted", map[string]string{"BROKER_BACKOFF_INITIAL": "10s", "BROKER_BACKOFF_MAX": "1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadWithKoanf(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HPFEEDS_CHANNELS": "broker.channels",
		"hpfeeds_secret":   "broker.secret",
		"CHN_AUTH_URL":     "identity.url",
		"NATS_EMBEDDED":    "broker.nats.embedded",
		"PATH":             "",
		"HOME":             "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBrokerComplete(t *testing.T) {
	full := BrokerConfig{
		Kind: BrokerHPFeeds, Host: "h", Port: 10000, Ident: "i", Secret: "s",
		Channels: []string{"c"},
	}
	if err := full.Complete(); err != nil {
		t.Errorf("complete hpfeeds config: %v", err)
	}

	noSecret := full
	noSecret.Secret = ""
	if err := noSecret.Complete(); !errors.Is(err, ErrIncompleteBroker) {
		t.Errorf("missing secret: got %v", err)
	}

	nats := BrokerConfig{Kind: BrokerNATS, Channels: []string{"c"}}
	if err := nats.Complete(); !errors.Is(err, ErrIncompleteBroker) {
		t.Errorf("nats without url: got %v", err)
	}
	nats.NATS.Embedded = true
	if err := nats.Complete(); err != nil {
		t.Errorf("embedded nats: %v", err)
	}
}
