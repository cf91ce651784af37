// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seckc/mhn-relay/internal/broker"
	"github.com/seckc/mhn-relay/internal/config"
	"github.com/seckc/mhn-relay/internal/event"
)

type publishOptions struct {
	kind    string
	channel string
	ident   string
	secret  string
	host    string
	port    int
	url     string
}

func newPublishCmd(opts *options) *cobra.Command {
	p := &publishOptions{}

	cmd := &cobra.Command{
		Use:     "publish '<json object>'",
		Short:   "Publish one event to the feed broker",
		GroupID: "feed",
		Args:    cobra.ExactArgs(1),
		Example: `  relayctl publish --channel malware --ident sensor-1 --secret s3cret '{"src_ip":"1.2.3.4"}'
  relayctl publish --kind nats --url nats://127.0.0.1:4222 --channel cowrie.sessions '{"peerIP":"9.9.9.9"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			// reject what the relay would drop as undecodable
			if _, err := event.Decode(payload, p.ident, p.channel); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			pub, err := p.publisher(ctx)
			if err != nil {
				return err
			}
			defer pub.Close()

			if err := pub.Publish(ctx, p.channel, payload); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d bytes to %s via %s\n", len(payload), p.channel, p.kind)
			return nil
		},
	}

	port, _ := strconv.Atoi(envOr("HPFEEDS_PORT", "10000"))
	f := cmd.Flags()
	f.StringVar(&p.kind, "kind", envOr("BROKER_KIND", config.BrokerHPFeeds), "broker kind (hpfeeds or nats)")
	f.StringVar(&p.channel, "channel", "", "channel or subject to publish on")
	f.StringVar(&p.ident, "ident", envOr("HPFEEDS_IDENT", "relayctl"), "publisher identity")
	f.StringVar(&p.secret, "secret", envOr("HPFEEDS_SECRET", ""), "hpfeeds secret")
	f.StringVar(&p.host, "host", envOr("HPFEEDS_HOST", "localhost"), "hpfeeds broker host")
	f.IntVar(&p.port, "port", port, "hpfeeds broker port")
	f.StringVar(&p.url, "url", envOr("NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func (p *publishOptions) publisher(ctx context.Context) (broker.Publisher, error) {
	switch p.kind {
	case config.BrokerHPFeeds:
		addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
		pub, err := broker.NewHPFeedsPublisher(ctx, addr, p.ident, p.secret)
		if err != nil {
			return nil, fmt.Errorf("connect to hpfeeds broker %s: %w", addr, err)
		}
		return pub, nil
	case config.BrokerNATS:
		pub, err := broker.NewNATSPublisher(p.url, p.ident)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS %s: %w", p.url, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q (must be hpfeeds or nats)", p.kind)
	}
}
