// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"settings.yaml",
	"/etc/mhn-relay/config.yaml",
	"/etc/mhn-relay/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Broker: BrokerConfig{
			Kind:           BrokerHPFeeds,
			Port:           10000,
			ConnectTimeout: 30 * time.Second,
			Backoff: BackoffConfig{
				Initial: 1 * time.Second,
				Max:     32 * time.Second,
			},
			NATS: NATSConfig{
				URL:              "",
				Embedded:         false,
				EmbeddedHost:     "127.0.0.1",
				EmbeddedPort:     4222,
				QueueGroup:       "",
				SubscribersCount: 1,
				AckWaitTimeout:   30 * time.Second,
				CloseTimeout:     10 * time.Second,
			},
		},
		Identity: IdentityConfig{
			URL:             "http://localhost:8000/auth/me/",
			Timeout:         10 * time.Second,
			CacheTTL:        15 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Feed: FeedConfig{
			CacheCapacity:   100,
			Retention:       300 * time.Second,
			BroadcastBuffer: 256,
			ClientBuffer:    256,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			BotUserAgents:   []string{"python-requests"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//  1. built-in defaults
//  2. a YAML file: path if non-empty, else CONFIG_PATH, else DefaultConfigPaths
//  3. environment variables (see envTransformFunc)
//
// A path that was asked for explicitly but does not exist is an error.
func LoadWithKoanf(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := applyLegacyHPFeeds(fk); err != nil {
			return nil, err
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// legacyHPFeedsKeys maps the older settings file layout
// (hpfeeds: {host, port, channels, user, token}) onto the broker section.
var legacyHPFeedsKeys = map[string]string{
	"hpfeeds.host":     "broker.host",
	"hpfeeds.port":     "broker.port",
	"hpfeeds.channels": "broker.channels",
	"hpfeeds.user":     "broker.ident",
	"hpfeeds.ident":    "broker.ident",
	"hpfeeds.token":    "broker.secret",
	"hpfeeds.secret":   "broker.secret",
}

// applyLegacyHPFeeds rewrites legacy keys in the file layer fk. Keys the
// file also sets under broker win.
func applyLegacyHPFeeds(fk *koanf.Koanf) error {
	if !fk.Exists("hpfeeds") {
		return nil
	}
	for from, to := range legacyHPFeedsKeys {
		if !fk.Exists(from) || fk.Exists(to) {
			continue
		}
		if err := fk.Set(to, fk.Get(from)); err != nil {
			return fmt.Errorf("failed to map %s: %w", from, err)
		}
	}
	fk.Delete("hpfeeds")
	return nil
}

// sliceConfigPaths are split on commas when they arrive as strings (env vars).
var sliceConfigPaths = []string{
	"broker.channels",
	"feed.redact_keys",
	"security.cors_origins",
	"security.bot_user_agents",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"broker_kind":            "broker.kind",
	"hpfeeds_host":           "broker.host",
	"hpfeeds_port":           "broker.port",
	"hpfeeds_channels":       "broker.channels",
	"hpfeeds_user":           "broker.ident",
	"hpfeeds_ident":          "broker.ident",
	"hpfeeds_secret":         "broker.secret",
	"broker_connect_timeout": "broker.connect_timeout",
	"broker_backoff_initial": "broker.backoff.initial",
	"broker_backoff_max":     "broker.backoff.max",
	"nats_url":               "broker.nats.url",
	"nats_embedded":          "broker.nats.embedded",
	"nats_embedded_host":     "broker.nats.embedded_host",
	"nats_embedded_port":     "broker.nats.embedded_port",
	"nats_queue_group":       "broker.nats.queue_group",

	"chn_auth_url":           "identity.url",
	"identity_timeout":       "identity.timeout",
	"identity_cache_ttl":     "identity.cache_ttl",
	"identity_breaker_fails": "identity.breaker_failures",

	"feed_cache_capacity":   "feed.cache_capacity",
	"feed_retention":        "feed.retention",
	"feed_broadcast_buffer": "feed.broadcast_buffer",
	"feed_redact_keys":      "feed.redact_keys",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"bot_user_agents":     "security.bot_user_agents",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths. Names
// not in envMappings are dropped so unrelated variables never leak in.
//
//	HPFEEDS_CHANNELS -> broker.channels
//	CHN_AUTH_URL     -> identity.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
