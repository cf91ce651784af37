// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Package config loads relay configuration from defaults, an optional YAML
// file and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Broker transport kinds.
const (
	BrokerHPFeeds = "hpfeeds"
	BrokerNATS    = "nats"
)

// Config is the complete relay configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Broker     BrokerConfig     `koanf:"broker"`
	Identity   IdentityConfig   `koanf:"identity"`
	Feed       FeedConfig       `koanf:"feed"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig controls the HTTP listener that serves the query API and
// the live push socket.
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BrokerConfig describes the upstream feed. An incomplete broker section is
// not a load error: the relay reports it and stays idle.
type BrokerConfig struct {
	Kind           string        `koanf:"kind" validate:"oneof=hpfeeds nats"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"min=0,max=65535"`
	Channels       []string      `koanf:"channels"`
	Ident          string        `koanf:"ident"`
	Secret         string        `koanf:"secret"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	Backoff        BackoffConfig `koanf:"backoff"`
	NATS           NATSConfig    `koanf:"nats"`
}

// BackoffConfig is the reconnect policy: Initial doubles up to Max.
type BackoffConfig struct {
	Initial time.Duration `koanf:"initial"`
	Max     time.Duration `koanf:"max"`
}

// NATSConfig configures the NATS transport and the optional embedded server.
type NATSConfig struct {
	URL              string        `koanf:"url"`
	Embedded         bool          `koanf:"embedded"`
	EmbeddedHost     string        `koanf:"embedded_host"`
	EmbeddedPort     int           `koanf:"embedded_port" validate:"min=-1,max=65535"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"min=1"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// Addr returns the broker's host:port.
func (b BrokerConfig) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// IdentityConfig points at the session identity collaborator.
type IdentityConfig struct {
	URL             string        `koanf:"url" validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// FeedConfig sizes the recent-event cache and the live fan-out.
type FeedConfig struct {
	CacheCapacity   int           `koanf:"cache_capacity" validate:"min=1"`
	Retention       time.Duration `koanf:"retention"`
	BroadcastBuffer int           `koanf:"broadcast_buffer" validate:"min=1"`
	ClientBuffer    int           `koanf:"client_buffer" validate:"min=1"`
	// RedactKeys extends the built-in redaction list; it cannot shrink it.
	RedactKeys []string `koanf:"redact_keys"`
}

// SecurityConfig holds HTTP hardening options.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// BotUserAgents are case-insensitive User-Agent prefixes that are
	// refused a room when the viewer is not authenticated.
	BotUserAgents []string `koanf:"bot_user_agents"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes suture's restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// String describes the broker target without the secret.
func (b BrokerConfig) String() string {
	if b.Kind == BrokerNATS {
		if b.NATS.Embedded {
			return fmt.Sprintf("nats(embedded) channels=%v", b.Channels)
		}
		return fmt.Sprintf("nats(%s) channels=%v", b.NATS.URL, b.Channels)
	}
	return fmt.Sprintf("hpfeeds(%s@%s) channels=%v", b.Ident, b.Addr(), b.Channels)
}
