// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package scheduler runs the background voting checks.
//
// Two cadences share one loop:
//   - the deadline scan (default: every 5 minutes) closes projects whose
//     voting deadline has passed
//   - the sweep (default: every 15 minutes) re-evaluates every open vote
//     for majority, sends deadline reminders and purges expired
//     notifications
//
// Projects are evaluated one at a time, each under its own timeout. A
// failure or panic on one project is logged and the pass moves on.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// Cadence labels used in logs and metrics.
const (
	CadenceDeadline = "deadline"
	CadenceSweep    = "sweep"
)

// ProjectSource lists projects with an open voting round. A non-nil dueBy
// restricts the result to deadlines at or before it.
type ProjectSource interface {
	ListOpenVotingProjects(ctx context.Context, dueBy *time.Time) ([]*models.RedevelopmentProject, error)
}

// Evaluator applies the close and reminder rules to a single project.
type Evaluator interface {
	CheckAndAutoClose(ctx context.Context, projectID string) (models.AutoCloseOutcome, error)
	SendVotingReminder(ctx context.Context, projectID string) (int, error)
}

// NotificationPurger removes notifications past their expiry.
type NotificationPurger interface {
	DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
}

// Config holds configuration for the voting scheduler.
type Config struct {
	// DeadlineScanInterval is how often overdue votes are closed (default: 5 minutes)
	DeadlineScanInterval time.Duration

	// SweepInterval is how often every open vote is re-evaluated (default: 15 minutes)
	SweepInterval time.Duration

	// EvaluationTimeout bounds the work done for one project (default: 30 seconds)
	EvaluationTimeout time.Duration

	// Enabled controls whether the scheduler is active
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		DeadlineScanInterval: 5 * time.Minute,
		SweepInterval:        15 * time.Minute,
		EvaluationTimeout:    30 * time.Second,
		Enabled:              true,
	}
}

// Report summarises one pass.
type Report struct {
	Scanned  int
	Closed   int
	Reminded int
	Failed   int
	Purged   int64
}

// Scheduler drives automatic vote closing.
type Scheduler struct {
	source    ProjectSource
	evaluator Evaluator
	purger    NotificationPurger
	logger    zerolog.Logger
	config    Config
	now       func() time.Time

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPurger enables expired-notification cleanup during the sweep.
func WithPurger(p NotificationPurger) Option {
	return func(s *Scheduler) { s.purger = p }
}

// New creates a voting scheduler.
func New(source ProjectSource, evaluator Evaluator, config Config, opts ...Option) *Scheduler {
	defaults := DefaultConfig()
	if config.DeadlineScanInterval <= 0 {
		config.DeadlineScanInterval = defaults.DeadlineScanInterval
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.EvaluationTimeout <= 0 {
		config.EvaluationTimeout = defaults.EvaluationTimeout
	}

	s := &Scheduler{
		source:    source,
		evaluator: evaluator,
		logger:    logging.WithComponent("voting-scheduler"),
		config:    config,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Voting scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("deadline_scan_interval", s.config.DeadlineScanInterval).
		Dur("sweep_interval", s.config.SweepInterval).
		Dur("evaluation_timeout", s.config.EvaluationTimeout).
		Msg("Starting voting scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for the current pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping voting scheduler...")
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Voting scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	deadlineTicker := time.NewTicker(s.config.DeadlineScanInterval)
	defer deadlineTicker.Stop()
	sweepTicker := time.NewTicker(s.config.SweepInterval)
	defer sweepTicker.Stop()

	// Catch up on anything that expired while the process was down.
	s.RunDeadlineScan(ctx)

	for {
		select {
		case <-deadlineTicker.C:
			s.RunDeadlineScan(ctx)
		case <-sweepTicker.C:
			s.RunSweep(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunDeadlineScan closes every open vote whose deadline has passed.
func (s *Scheduler) RunDeadlineScan(ctx context.Context) Report {
	start := time.Now()
	now := s.now()
	var report Report

	projects, err := s.source.ListOpenVotingProjects(ctx, &now)
	if err != nil {
		s.logger.Error().Err(err).Str("cadence", CadenceDeadline).Msg("Failed to list overdue votes")
		report.Failed++
		metrics.RecordSchedulerRun(CadenceDeadline, time.Since(start), report.Failed)
		return report
	}

	for _, p := range projects {
		if ctx.Err() != nil {
			break
		}
		report.Scanned++
		err := s.evaluate(ctx, p.ID, func(ctx context.Context) error {
			outcome, err := s.evaluator.CheckAndAutoClose(ctx, p.ID)
			if err == nil && outcome.Closed {
				report.Closed++
			}
			return err
		})
		if err != nil {
			report.Failed++
			s.logFailure(CadenceDeadline, p.ID, err)
		}
	}

	metrics.RecordSchedulerRun(CadenceDeadline, time.Since(start), report.Failed)
	s.logReport(CadenceDeadline, report)
	return report
}

// RunSweep re-evaluates every open vote, sends reminders to projects that
// stay open and purges expired notifications.
func (s *Scheduler) RunSweep(ctx context.Context) Report {
	start := time.Now()
	var report Report

	projects, err := s.source.ListOpenVotingProjects(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("cadence", CadenceSweep).Msg("Failed to list open votes")
		report.Failed++
	}

	for _, p := range projects {
		if ctx.Err() != nil {
			break
		}
		report.Scanned++
		err := s.evaluate(ctx, p.ID, func(ctx context.Context) error {
			outcome, err := s.evaluator.CheckAndAutoClose(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("auto close: %w", err)
			}
			if outcome.Closed {
				report.Closed++
				return nil
			}
			n, err := s.evaluator.SendVotingReminder(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("reminder: %w", err)
			}
			report.Reminded += n
			return nil
		})
		if err != nil {
			report.Failed++
			s.logFailure(CadenceSweep, p.ID, err)
		}
	}

	if s.purger != nil && ctx.Err() == nil {
		purged, err := s.purger.DeleteExpiredNotifications(ctx, s.now())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to purge expired notifications")
		} else {
			report.Purged = purged
			metrics.NotificationsPurged.Add(float64(purged))
		}
	}

	metrics.RecordSchedulerRun(CadenceSweep, time.Since(start), report.Failed)
	s.logReport(CadenceSweep, report)
	return report
}

// evaluate runs fn under the per-project timeout and converts a panic into
// an error.
func (s *Scheduler) evaluate(ctx context.Context, projectID string, fn func(ctx context.Context) error) (err error) {
	evalCtx, cancel := context.WithTimeout(ctx, s.config.EvaluationTimeout)
	defer cancel()
	evalCtx = logging.ContextWithNewCorrelationID(evalCtx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating project %s: %v", projectID, r)
		}
	}()

	err = fn(evalCtx)
	if err == nil && errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("evaluation timed out after %s", s.config.EvaluationTimeout)
	}
	return err
}

func (s *Scheduler) logFailure(cadence, projectID string, err error) {
	s.logger.Error().Err(err).
		Str("cadence", cadence).
		Str("project_id", projectID).
		Msg("Voting evaluation failed")
}

func (s *Scheduler) logReport(cadence string, r Report) {
	if r.Scanned == 0 && r.Purged == 0 && r.Failed == 0 {
		s.logger.Debug().Str("cadence", cadence).Msg("No open votes to evaluate")
		return
	}
	s.logger.Info().
		Str("cadence", cadence).
		Int("scanned", r.Scanned).
		Int("closed", r.Closed).
		Int("reminded", r.Reminded).
		Int("failed", r.Failed).
		Int64("purged", r.Purged).
		Msg("Voting scheduler pass complete")
}
