// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

// Command relayctl talks to a running mhn-relay and its feed broker: it
// can publish a test event and read the recent-events and status
// endpoints.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// options holds the flags shared by every subcommand.
type options struct {
	server  string
	timeout time.Duration
	client  *http.Client
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "relayctl <command>",
		Short:         "Operator CLI for mhn-relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.client = &http.Client{Timeout: opts.timeout}
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("RELAY_SERVER", "http://localhost:8080"), "relay HTTP base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddGroup(
		&cobra.Group{ID: "feed", Title: "Feed:"},
		&cobra.Group{ID: "query", Title: "Queries:"},
	)

	root.AddCommand(newPublishCmd(opts))
	root.AddCommand(newRecentCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
