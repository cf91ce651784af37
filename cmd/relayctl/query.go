// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newRecentCmd(opts *options) *cobra.Command {
	var (
		since  float64
		limit  int
		cookie string
	)

	cmd := &cobra.Command{
		Use:     "recent",
		Short:   "Show cached events from /feeds/recent",
		GroupID: "query",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if cmd.Flags().Changed("since") {
				q.Set("since", strconv.FormatFloat(since, 'f', -1, 64))
			}
			if cmd.Flags().Changed("limit") {
				q.Set("limit", strconv.Itoa(limit))
			}
			return opts.getJSON(cmd, "/feeds/recent", q, cookie)
		},
	}

	cmd.Flags().Float64Var(&since, "since", 0, "only events cached after this epoch time")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events (server caps at 100)")
	cmd.Flags().StringVar(&cookie, "cookie", envOr("RELAY_COOKIE", ""), "Cookie header for an authenticated view")

	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show relay state and cache occupancy from /feeds/status",
		GroupID: "query",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.getJSON(cmd, "/feeds/status", nil, "")
		},
	}
}

// getJSON fetches path and writes the indented body to stdout. A non-2xx
// response becomes an error carrying the server's message.
func (o *options) getJSON(cmd *cobra.Command, path string, q url.Values, cookie string) error {
	u := strings.TrimRight(o.server, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	out.WriteByte('\n')
	_, err = cmd.OutOrStdout().Write(out.Bytes())
	return err
}
