// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package main

import (
	"context"
	"testing"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/config"
)

func TestInitTransport_Local(t *testing.T) {
	transport, srv, err := initTransport(&config.RealtimeConfig{Bus: "local", Topic: "milkat.realtime"})
	if err != nil {
		t.Fatalf("initTransport: %v", err)
	}
	defer func() { _ = transport.Close() }()

	if srv != nil {
		t.Error("local bus started an embedded server")
	}
}

func TestInitTransport_EmbeddedNATS(t *testing.T) {
	transport, srv, err := initTransport(&config.RealtimeConfig{
		Bus:            "nats",
		EmbeddedServer: true,
		EmbeddedPort:   -1,
		Topic:          "milkat.realtime",
	})
	if err != nil {
		t.Fatalf("initTransport: %v", err)
	}
	if srv == nil {
		t.Fatal("embedded server not returned")
	}
	if !srv.IsRunning() {
		t.Error("embedded server not running")
	}

	if err := transport.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
