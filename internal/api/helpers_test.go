// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package api

import (
	"time"

	"github.com/seckc/mhn-relay/internal/config"
)

func configSecurity(origins []string, reqs int, window time.Duration, disabled bool) config.SecurityConfig {
	return config.SecurityConfig{
		CORSOrigins:       origins,
		RateLimitReqs:     reqs,
		RateLimitWindow:   window,
		RateLimitDisabled: disabled,
	}
}
