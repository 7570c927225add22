// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockWorker records lifecycle calls.
type mockWorker struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	starts   int
	stops    int
	running  bool
}

func (m *mockWorker) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func (m *mockWorker) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.running = false
	return m.stopErr
}

func (m *mockWorker) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockWorker) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

var (
	_ suture.Service = (*VotingSchedulerService)(nil)
	_ suture.Service = (*OutboxRetryService)(nil)
)

func TestWorkerServices_Names(t *testing.T) {
	if got := NewVotingSchedulerService(&mockWorker{}).String(); got != "voting-scheduler" {
		t.Errorf("scheduler name = %q", got)
	}
	if got := NewOutboxRetryService(&mockWorker{}).String(); got != "outbox-retry-loop" {
		t.Errorf("outbox name = %q", got)
	}
}

func TestWorkerService_Serve(t *testing.T) {
	startErr := errors.New("already running")
	stopErr := errors.New("stop timed out")

	tests := []struct {
		name       string
		worker     *mockWorker
		wantErr    error
		wantStarts int
		wantStops  int
	}{
		{"start then stop on cancel", &mockWorker{}, context.Canceled, 1, 1},
		{"start failure skips stop", &mockWorker{startErr: startErr}, startErr, 1, 0},
		{"stop failure is returned", &mockWorker{stopErr: stopErr}, stopErr, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewVotingSchedulerService(tt.worker)
			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			if tt.worker.startErr == nil {
				deadline := time.Now().Add(time.Second)
				for !tt.worker.IsRunning() && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				if !tt.worker.IsRunning() {
					t.Fatal("worker never started")
				}
			}
			cancel()

			select {
			case err := <-errCh:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Serve = %v, want %v", err, tt.wantErr)
				}
			case <-time.After(time.Second):
				t.Fatal("Serve did not return")
			}

			starts, stops := tt.worker.counts()
			if starts != tt.wantStarts || stops != tt.wantStops {
				t.Errorf("starts=%d stops=%d, want %d/%d", starts, stops, tt.wantStarts, tt.wantStops)
			}
		})
	}
}
