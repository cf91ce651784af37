// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seckc/mhn-relay/internal/logging"
	"github.com/seckc/mhn-relay/internal/validation"
)

// ErrIncompleteBroker is returned by BrokerConfig.Complete when the relay
// does not have enough information to connect.
var ErrIncompleteBroker = errors.New("broker configuration incomplete")

// Outbound call ceilings.
const (
	MaxIdentityTimeout = 10 * time.Second
	MaxConnectTimeout  = 30 * time.Second
)

// Validate rejects configuration the process cannot run with. The broker
// section is checked for shape only; see BrokerConfig.Complete.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Identity.Timeout <= 0 || c.Identity.Timeout > MaxIdentityTimeout {
		return fmt.Errorf("identity.timeout must be in (0, %s], got %s", MaxIdentityTimeout, c.Identity.Timeout)
	}
	if c.Broker.ConnectTimeout <= 0 || c.Broker.ConnectTimeout > MaxConnectTimeout {
		return fmt.Errorf("broker.connect_timeout must be in (0, %s], got %s", MaxConnectTimeout, c.Broker.ConnectTimeout)
	}
	if c.Broker.Backoff.Initial <= 0 || c.Broker.Backoff.Max < c.Broker.Backoff.Initial {
		return fmt.Errorf("broker.backoff requires 0 < initial <= max, got %s/%s",
			c.Broker.Backoff.Initial, c.Broker.Backoff.Max)
	}
	if c.Feed.Retention <= 0 {
		return fmt.Errorf("feed.retention must be positive, got %s", c.Feed.Retention)
	}
	if c.Identity.CacheTTL < 0 {
		return fmt.Errorf("identity.cache_ttl must not be negative")
	}
	return nil
}

// Complete reports whether the broker section has everything needed to
// connect. The error wraps ErrIncompleteBroker and names the missing keys.
func (b BrokerConfig) Complete() error {
	var missing []string
	if len(b.Channels) == 0 {
		missing = append(missing, "channels")
	}

	switch b.Kind {
	case BrokerNATS:
		if b.NATS.URL == "" && !b.NATS.Embedded {
			missing = append(missing, "nats.url")
		}
	default:
		if b.Host == "" {
			missing = append(missing, "host")
		}
		if b.Port == 0 {
			missing = append(missing, "port")
		}
		if b.Ident == "" {
			missing = append(missing, "ident")
		}
		if b.Secret == "" {
			missing = append(missing, "secret")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteBroker, strings.Join(missing, ", "))
	}
	return nil
}
