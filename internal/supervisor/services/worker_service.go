// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package services

import (
	"context"
	"fmt"
)

// StartStopper is the lifecycle shared by the background loops.
//
// Satisfied by:
//   - *scheduler.Scheduler from internal/redevelopment/scheduler
//   - *outbox.RetryLoop from internal/outbox
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// startStopService adapts Start/Stop to suture's Serve:
//  1. Start(ctx) spawns the loop
//  2. Serve blocks until ctx is canceled
//  3. Stop() waits for the in-flight pass to finish
//
// A failed Start is returned so suture restarts with backoff.
type startStopService struct {
	worker StartStopper
	name   string
}

func (s *startStopService) Serve(ctx context.Context) error {
	if err := s.worker.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.worker.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

func (s *startStopService) String() string {
	return s.name
}

// VotingSchedulerService runs the deadline scan and majority sweep.
//
// Example usage:
//
//	sched := scheduler.New(db, service, cfg)
//	tree.AddWorkerService(services.NewVotingSchedulerService(sched))
type VotingSchedulerService struct {
	startStopService
}

// NewVotingSchedulerService creates a new voting scheduler service wrapper.
func NewVotingSchedulerService(sched StartStopper) *VotingSchedulerService {
	return &VotingSchedulerService{startStopService{worker: sched, name: "voting-scheduler"}}
}

// OutboxRetryService replays notification records the database rejected.
//
// Example usage:
//
//	loop := outbox.NewRetryLoop(box, dispatcher.Replay)
//	tree.AddDataService(services.NewOutboxRetryService(loop))
type OutboxRetryService struct {
	startStopService
}

// NewOutboxRetryService creates a new outbox retry loop service wrapper.
func NewOutboxRetryService(loop StartStopper) *OutboxRetryService {
	return &OutboxRetryService{startStopService{worker: loop, name: "outbox-retry-loop"}}
}
