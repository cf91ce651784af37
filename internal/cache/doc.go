// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

/*
Package cache holds the bounded, time-limited buffer of recent feed events.

RecentEvents keeps at most Capacity events (default 100) in arrival order.
Once full, each new event evicts the oldest. Events older than the retention
window (default 300 seconds) are excluded from queries and counted as
expired in Status, but stay in the ring until a newer event overwrites them.

Entries hold the full event. Unauthenticated queries get copies passed
through the sanitizer at read time, so the stored event is never modified:

	c := cache.NewRecentEvents(cache.WithSanitizer(event.NewSanitizer()))
	c.Put(ev)
	public := c.Query(false, nil)

All methods are safe for concurrent use.
*/
package cache
