// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/notify"
)

// natsComponents bundles the optional JetStream transport for lifecycle
// management.
type natsComponents struct {
	server    *notify.EmbeddedServer
	conn      *natsgo.Conn
	publisher *notify.Publisher

	// Notifier is the engine-facing sink; it is supervised separately.
	Notifier *notify.NATSNotifier
}

// initNATS brings up the progress-event transport when nats.enabled is
// set: optionally an embedded server, then the stream, then the
// publisher. Returns nil when disabled.
func initNATS(ctx context.Context, cfg *config.Config) (*natsComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS progress transport disabled")
		return nil, nil
	}

	c := &natsComponents{}
	url := cfg.NATS.URL

	if cfg.NATS.EmbeddedServer {
		server, err := notify.NewEmbeddedServer(notify.EmbeddedServerConfig{
			StoreDir: cfg.NATS.StoreDir,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = server
		url = server.ClientURL()
		logging.Info().Str("url", url).Msg("embedded NATS server started")
	} else {
		logging.Info().Str("url", url).Msg("using external NATS server")
	}

	conn, err := natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.conn = conn

	streams, err := notify.NewStreamManager(conn, cfg.NATS)
	if err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("provision progress stream: %w", err)
	}

	pub, err := notify.NewPublisher(url, cfg.NATS)
	if err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	c.publisher = pub
	c.Notifier = notify.NewNATSNotifier(pub, 256)

	logging.Info().
		Str("stream", cfg.NATS.StreamName).
		Str("subject_prefix", cfg.NATS.SubjectPrefix).
		Msg("NATS progress transport ready")
	return c, nil
}

// Shutdown tears the transport down in reverse order of construction.
func (c *natsComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Err(err).Msg("close NATS publisher")
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Msg("stop embedded NATS server")
		}
	}
}
