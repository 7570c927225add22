// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package services

import (
	"context"
	"errors"
	"testing"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestRelayService_Serve(t *testing.T) {
	subscriptionClosed := errors.New("subscription closed")

	tests := []struct {
		name    string
		run     runnerFunc
		wantErr error
		wrapped bool
	}{
		{"clean stop", func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }, context.Canceled, false},
		{"subscription lost", func(context.Context) error { return subscriptionClosed }, subscriptionClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRelayService(tt.run)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := svc.Serve(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Serve = %v, want %v", err, tt.wantErr)
			}
			if wrapped := err != tt.wantErr; wrapped != tt.wrapped {
				t.Errorf("wrapped = %v, want %v (err %v)", wrapped, tt.wrapped, err)
			}
		})
	}

	if got := NewRelayService(runnerFunc(nil)).String(); got != "realtime-relay" {
		t.Errorf("String() = %q", got)
	}
}
