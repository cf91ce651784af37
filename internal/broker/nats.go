// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/seckc/mhn-relay/internal/config"
	"github.com/seckc/mhn-relay/internal/logging"
)

// MetadataIdentifier is the message metadata key naming the publishing
// sensor. The channel always comes from the subscribed subject.
const MetadataIdentifier = "identifier"

// NATS subscribes to core NATS subjects through Watermill. Each feed
// channel is a subject; wildcards are allowed.
type NATS struct {
	cfg          config.NATSConfig
	defaultIdent string
	logger       watermill.LoggerAdapter
}

// NewNATS returns a Broker for cfg. Messages without an identifier
// header are attributed to defaultIdent, or "nats" when that is empty.
func NewNATS(cfg config.NATSConfig, defaultIdent string) *NATS {
	if defaultIdent == "" {
		defaultIdent = "nats"
	}
	return &NATS{
		cfg:          cfg,
		defaultIdent: defaultIdent,
		logger:       watermill.NewSlogLogger(logging.NewComponentSlogLogger("nats")),
	}
}

func (n *NATS) String() string {
	return "nats://" + strings.TrimPrefix(n.cfg.URL, "nats://")
}

func (n *NATS) natsOptions() []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("mhn-relay"),
		natsgo.RetryOnFailedConnect(false),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				n.logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			n.logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// Connect creates a Watermill subscriber and subscribes to every channel.
func (n *NATS) Connect(ctx context.Context, channels []string) (Session, error) {
	opts := n.natsOptions()
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, natsgo.Timeout(time.Until(deadline)))
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              n.cfg.URL,
		QueueGroupPrefix: n.cfg.QueueGroup,
		SubscribersCount: max(n.cfg.SubscribersCount, 1),
		AckWaitTimeout:   n.cfg.AckWaitTimeout,
		CloseTimeout:     n.cfg.CloseTimeout,
		NatsOptions:      opts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, n.logger)
	if err != nil {
		return nil, fmt.Errorf("nats: create subscriber: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &natsSession{
		sub:          sub,
		cancel:       cancel,
		msgs:         make(chan Message),
		failed:       make(chan error, 1),
		done:         make(chan struct{}),
		defaultIdent: n.defaultIdent,
	}

	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			_ = s.Close()
			return nil, err
		}
		out, err := sub.Subscribe(subCtx, ch)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("nats: subscribe %s: %w", ch, err)
		}
		s.wg.Add(1)
		go s.forward(ch, out)
	}
	return s, nil
}

type natsSession struct {
	sub          message.Subscriber
	cancel       context.CancelFunc
	msgs         chan Message
	failed       chan error
	done         chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
	defaultIdent string
}

// forward converts Watermill messages for one subject. The message is
// acked once the relay has taken it.
func (s *natsSession) forward(channel string, in <-chan *message.Message) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case wm, ok := <-in:
			if !ok {
				select {
				case s.failed <- fmt.Errorf("nats: subscription %s closed", channel):
				default:
				}
				return
			}
			m := Message{
				SourceIdentifier: s.defaultIdent,
				Channel:          channel,
				Payload:          wm.Payload,
			}
			if id := wm.Metadata.Get(MetadataIdentifier); id != "" {
				m.SourceIdentifier = id
			}
			select {
			case s.msgs <- m:
				wm.Ack()
			case <-s.done:
				wm.Nack()
				return
			}
		}
	}
}

func (s *natsSession) Next(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		return Message{}, ErrClosed
	case err := <-s.failed:
		return Message{}, err
	case m := <-s.msgs:
		return m, nil
	}
}

func (s *natsSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		err = s.sub.Close()
		s.wg.Wait()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// NATSPublisher publishes feed messages to core NATS through Watermill.
type NATSPublisher struct {
	pub   message.Publisher
	ident string
}

// NewNATSPublisher connects to url. ident is attached to every message as
// the identifier header.
func NewNATSPublisher(url, ident string) (*NATSPublisher, error) {
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("nats-publisher"))
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: []natsgo.Option{natsgo.Name("mhn-relay-publisher")},
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("nats: create publisher: %w", err)
	}
	return &NATSPublisher{pub: pub, ident: ident}, nil
}

// Publish sends payload on the subject named channel.
func (p *NATSPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if p.ident != "" {
		msg.Metadata.Set(MetadataIdentifier, p.ident)
	}
	msg.SetContext(ctx)
	return p.pub.Publish(channel, msg)
}

// Close flushes and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.pub.Close()
}
