// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/config"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/eventbus"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
)

// embeddedHost keeps the in-process NATS server off external interfaces.
const embeddedHost = "127.0.0.1"

// initTransport builds the realtime bus selected by cfg.Bus.
//
// With bus=nats and embedded_server=true a NATS server is started in-process
// and the transport connects to it instead of cfg.NATSURL. The returned
// server is nil unless one was started; the caller hands it to the
// supervisor tree, which owns its shutdown.
func initTransport(cfg *config.RealtimeConfig) (*eventbus.Transport, *eventbus.EmbeddedServer, error) {
	if cfg.Bus != "nats" {
		logging.Info().Msg("Realtime bus: in-process (single instance)")
		return eventbus.NewLocalTransport(eventbus.NewLogger("realtime-local")), nil, nil
	}

	url := cfg.NATSURL
	var srv *eventbus.EmbeddedServer
	if cfg.EmbeddedServer {
		var err error
		srv, err = eventbus.StartEmbeddedServer(embeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	transport, err := eventbus.NewNATSTransport(url, eventbus.NewLogger("realtime-nats"))
	if err != nil {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
				logging.Warn().Err(shutdownErr).Msg("Embedded NATS shutdown failed")
			}
		}
		return nil, nil, fmt.Errorf("connect NATS transport: %w", err)
	}

	logging.Info().Str("url", url).Str("topic", cfg.Topic).Msg("Realtime bus: NATS")
	return transport, srv, nil
}
