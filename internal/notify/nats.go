// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package notify

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
)

// Publisher wraps a Watermill NATS JetStream publisher. Message UUIDs
// double as Nats-Msg-Id so JetStream deduplicates redelivered events.
type Publisher struct {
	publisher     message.Publisher
	subjectPrefix string

	mu     gosync.RWMutex
	closed bool
}

// NewPublisher connects to NATS at url and prepares the JetStream
// publisher. The stream itself is provisioned by the StreamManager
// before any publish happens.
func NewPublisher(url string, cfg config.NATSConfig) (*Publisher, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	wmConfig := wmnats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmnats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return &Publisher{publisher: pub, subjectPrefix: cfg.SubjectPrefix}, nil
}

// PublishEvent serializes and publishes one progress event to the
// company's subject.
func (p *Publisher) PublishEvent(companyID string, event models.ProgressEvent) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize progress event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("company_id", companyID)
	msg.Metadata.Set("platform", string(event.Platform))

	return p.publisher.Publish(p.subjectPrefix+"."+companyID, msg)
}

// Close shuts the underlying publisher down. Safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// eventPublisher is what the notifier needs from the publisher. Tests
// substitute a recording stub.
type eventPublisher interface {
	PublishEvent(companyID string, event models.ProgressEvent) error
}

type queuedEvent struct {
	companyID string
	event     models.ProgressEvent
}

// NATSNotifier adapts the publisher to the engine's notifier contract.
// Publish enqueues without blocking; a worker drains the queue. Under
// backpressure events are dropped and counted, never stalled, because
// the runner's phase loop must not wait on a transport.
//
// NATSNotifier implements suture.Service.
type NATSNotifier struct {
	pub   eventPublisher
	queue chan queuedEvent
}

// NewNATSNotifier builds a notifier with the given queue depth.
func NewNATSNotifier(pub eventPublisher, buffer int) *NATSNotifier {
	if buffer <= 0 {
		buffer = 256
	}
	return &NATSNotifier{
		pub:   pub,
		queue: make(chan queuedEvent, buffer),
	}
}

func (n *NATSNotifier) Publish(companyID string, event models.ProgressEvent) {
	select {
	case n.queue <- queuedEvent{companyID: companyID, event: event}:
	default:
		metrics.ProgressEventsDropped.WithLabelValues("nats").Inc()
	}
}

// Serve drains the queue until ctx is cancelled.
func (n *NATSNotifier) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-n.queue:
			if err := n.pub.PublishEvent(q.companyID, q.event); err != nil {
				metrics.ProgressEventsDropped.WithLabelValues("nats").Inc()
				logging.Err(err).
					Str("company_id", q.companyID).
					Str("sync_id", q.event.SyncID).
					Msg("publish progress event")
				continue
			}
			metrics.ProgressEventsPublished.WithLabelValues("nats").Inc()
		}
	}
}

func (n *NATSNotifier) String() string { return "nats-notifier" }
