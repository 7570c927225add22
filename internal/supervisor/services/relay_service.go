// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package services

import (
	"context"
	"errors"
	"fmt"
)

// Runner is satisfied by *eventbus.Relay.
type Runner interface {
	Run(ctx context.Context) error
}

// RelayService consumes the cross-instance realtime topic and feeds the
// local hub. When the subscription drops, Run returns an error and suture
// resubscribes after its backoff.
//
// Example usage:
//
//	relay := eventbus.NewRelay(transport, hub, eventbus.Config{Topic: cfg.EventBus.Topic})
//	tree.AddMessagingService(services.NewRelayService(relay))
type RelayService struct {
	relay Runner
	name  string
}

// NewRelayService creates a new relay service wrapper.
func NewRelayService(relay Runner) *RelayService {
	return &RelayService{relay: relay, name: "realtime-relay"}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	err := s.relay.Run(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("realtime relay stopped: %w", err)
}

// String implements fmt.Stringer for logging.
func (s *RelayService) String() string {
	return s.name
}
