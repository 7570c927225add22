// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// mockSource implements ProjectSource.
type mockSource struct {
	mu       sync.Mutex
	projects []*models.RedevelopmentProject
	err      error
	calls    int
	dueCalls int
}

func (m *mockSource) ListOpenVotingProjects(ctx context.Context, dueBy *time.Time) ([]*models.RedevelopmentProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if dueBy == nil {
		return m.projects, nil
	}
	m.dueCalls++
	var due []*models.RedevelopmentProject
	for _, p := range m.projects {
		if p.VotingDeadline != nil && !p.VotingDeadline.After(*dueBy) {
			due = append(due, p)
		}
	}
	return due, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEvaluator implements Evaluator. Behaviour is keyed by project id.
type mockEvaluator struct {
	mu        sync.Mutex
	close     map[string]bool
	fail      map[string]error
	panics    map[string]bool
	block     map[string]bool
	reminders map[string]int
	evaluated []string
	reminded  []string
	corrIDs   []string
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{
		close:     make(map[string]bool),
		fail:      make(map[string]error),
		panics:    make(map[string]bool),
		block:     make(map[string]bool),
		reminders: make(map[string]int),
	}
}

func (m *mockEvaluator) CheckAndAutoClose(ctx context.Context, projectID string) (models.AutoCloseOutcome, error) {
	m.mu.Lock()
	m.evaluated = append(m.evaluated, projectID)
	m.corrIDs = append(m.corrIDs, logging.CorrelationIDFromContext(ctx))
	closes, err, panics, block := m.close[projectID], m.fail[projectID], m.panics[projectID], m.block[projectID]
	m.mu.Unlock()

	if panics {
		panic("evaluator exploded")
	}
	if block {
		<-ctx.Done()
		return models.AutoCloseOutcome{}, ctx.Err()
	}
	if err != nil {
		return models.AutoCloseOutcome{}, err
	}
	if closes {
		return models.AutoCloseOutcome{Closed: true, Reason: models.CloseDeadlinePassed}, nil
	}
	return models.AutoCloseOutcome{}, nil
}

func (m *mockEvaluator) SendVotingReminder(ctx context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminded = append(m.reminded, projectID)
	return m.reminders[projectID], nil
}

type mockPurger struct {
	purged int64
	err    error
	at     time.Time
}

func (m *mockPurger) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	m.at = now
	return m.purged, m.err
}

func project(id string, deadline time.Time) *models.RedevelopmentProject {
	return &models.RedevelopmentProject{
		ID:             id,
		Status:         models.ProjectVoting,
		VotingStatus:   models.VotingOpen,
		VotingDeadline: &deadline,
	}
}

func newTestScheduler(src *mockSource, ev *mockEvaluator, opts ...Option) *Scheduler {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(src, ev, Config{
		DeadlineScanInterval: time.Hour,
		SweepInterval:        time.Hour,
		EvaluationTimeout:    50 * time.Millisecond,
		Enabled:              true,
	}, opts...)
}

func TestNew_AppliesDefaults(t *testing.T) {
	s := New(&mockSource{}, newMockEvaluator(), Config{})
	want := DefaultConfig()
	if s.config.DeadlineScanInterval != want.DeadlineScanInterval {
		t.Errorf("DeadlineScanInterval = %v, want %v", s.config.DeadlineScanInterval, want.DeadlineScanInterval)
	}
	if s.config.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v, want 15m", s.config.SweepInterval)
	}
	if s.config.EvaluationTimeout != want.EvaluationTimeout {
		t.Errorf("EvaluationTimeout = %v, want %v", s.config.EvaluationTimeout, want.EvaluationTimeout)
	}
}

func TestRunDeadlineScan_ClosesOverdueOnly(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{
		project("overdue", fixedNow.Add(-time.Minute)),
		project("future", fixedNow.Add(time.Hour)),
	}}
	ev := newMockEvaluator()
	ev.close["overdue"] = true

	report := newTestScheduler(src, ev).RunDeadlineScan(context.Background())

	if report.Scanned != 1 || report.Closed != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want 1 scanned 1 closed", report)
	}
	if len(ev.evaluated) != 1 || ev.evaluated[0] != "overdue" {
		t.Errorf("evaluated = %v, want [overdue]", ev.evaluated)
	}
	if len(ev.reminded) != 0 {
		t.Errorf("deadline scan should not send reminders, got %v", ev.reminded)
	}
}

func TestRunDeadlineScan_SeedsCorrelationPerProject(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{
		project("a", fixedNow.Add(-time.Minute)),
		project("b", fixedNow.Add(-time.Minute)),
	}}
	ev := newMockEvaluator()

	newTestScheduler(src, ev).RunDeadlineScan(context.Background())

	if len(ev.corrIDs) != 2 {
		t.Fatalf("evaluated %d projects, want 2", len(ev.corrIDs))
	}
	if ev.corrIDs[0] == "" || ev.corrIDs[1] == "" || ev.corrIDs[0] == ev.corrIDs[1] {
		t.Errorf("correlation ids = %q, want two distinct non-empty ids", ev.corrIDs)
	}
}

func TestRunDeadlineScan_ContinuesPastFailures(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	tests := []struct {
		name  string
		setup func(ev *mockEvaluator)
	}{
		{"error", func(ev *mockEvaluator) { ev.fail["bad"] = errors.New("database unavailable") }},
		{"panic", func(ev *mockEvaluator) { ev.panics["bad"] = true }},
		{"timeout", func(ev *mockEvaluator) { ev.block["bad"] = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{projects: []*models.RedevelopmentProject{
				project("first", past),
				project("bad", past),
				project("last", past),
			}}
			ev := newMockEvaluator()
			ev.close["first"] = true
			ev.close["last"] = true
			tt.setup(ev)

			report := newTestScheduler(src, ev).RunDeadlineScan(context.Background())

			if report.Scanned != 3 {
				t.Errorf("Scanned = %d, want 3", report.Scanned)
			}
			if report.Closed != 2 {
				t.Errorf("Closed = %d, want 2", report.Closed)
			}
			if report.Failed != 1 {
				t.Errorf("Failed = %d, want 1", report.Failed)
			}
		})
	}
}

func TestRunDeadlineScan_ListError(t *testing.T) {
	src := &mockSource{err: errors.New("connection reset")}
	report := newTestScheduler(src, newMockEvaluator()).RunDeadlineScan(context.Background())
	if report.Failed != 1 || report.Scanned != 0 {
		t.Errorf("report = %+v, want one failure and nothing scanned", report)
	}
}

func TestRunSweep(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{
		project("majority", fixedNow.Add(48*time.Hour)),
		project("closing-soon", fixedNow.Add(3*time.Hour)),
		project("quiet", fixedNow.Add(72*time.Hour)),
	}}
	ev := newMockEvaluator()
	ev.close["majority"] = true
	ev.reminders["closing-soon"] = 4
	purger := &mockPurger{purged: 7}

	report := newTestScheduler(src, ev, WithPurger(purger)).RunSweep(context.Background())

	want := Report{Scanned: 3, Closed: 1, Reminded: 4, Purged: 7}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if len(ev.reminded) != 2 {
		t.Errorf("reminded %v, want the two projects that stayed open", ev.reminded)
	}
	for _, id := range ev.reminded {
		if id == "majority" {
			t.Error("closed project should not be reminded")
		}
	}
	if !purger.at.Equal(fixedNow) {
		t.Errorf("purge cutoff = %v, want %v", purger.at, fixedNow)
	}
}

func TestRunSweep_PurgeFailureIsNotFatal(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{project("p", fixedNow.Add(time.Hour))}}
	purger := &mockPurger{err: errors.New("locked")}

	report := newTestScheduler(src, newMockEvaluator(), WithPurger(purger)).RunSweep(context.Background())

	if report.Scanned != 1 || report.Failed != 0 || report.Purged != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestRunSweep_StopsOnCancelledContext(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{
		project("a", fixedNow.Add(time.Hour)),
		project("b", fixedNow.Add(time.Hour)),
	}}
	ev := newMockEvaluator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestScheduler(src, ev).RunSweep(ctx)
	if report.Scanned != 0 || len(ev.evaluated) != 0 {
		t.Errorf("cancelled sweep evaluated %v", ev.evaluated)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	src := &mockSource{}
	s := newTestScheduler(src, newMockEvaluator())
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() should be true after Start")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should return error")
	}

	deadline := time.Now().Add(time.Second)
	for src.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if src.callCount() == 0 {
		t.Error("expected an initial deadline scan on start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() should be false after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() should not error, got %v", err)
	}
}

func TestScheduler_TicksBothCadences(t *testing.T) {
	src := &mockSource{projects: []*models.RedevelopmentProject{project("p", fixedNow.Add(time.Hour))}}
	ev := newMockEvaluator()
	s := New(src, ev, Config{
		DeadlineScanInterval: 20 * time.Millisecond,
		SweepInterval:        30 * time.Millisecond,
		EvaluationTimeout:    time.Second,
		Enabled:              true,
	}, WithClock(func() time.Time { return fixedNow }))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	src.mu.Lock()
	dueCalls, allCalls := src.dueCalls, src.calls
	src.mu.Unlock()
	if dueCalls < 2 {
		t.Errorf("deadline scans = %d, want at least 2", dueCalls)
	}
	if allCalls-dueCalls < 1 {
		t.Errorf("sweeps = %d, want at least 1", allCalls-dueCalls)
	}
}

func TestScheduler_Disabled(t *testing.T) {
	src := &mockSource{}
	s := New(src, newMockEvaluator(), Config{DeadlineScanInterval: 10 * time.Millisecond})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if calls := src.callCount(); calls != 0 {
		t.Errorf("ListOpenVotingProjects called %d times when disabled, want 0", calls)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestScheduler_ExitsOnContextCancel(t *testing.T) {
	s := newTestScheduler(&mockSource{}, newMockEvaluator())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	select {
	case <-s.doneCh:
	case <-time.After(time.Second):
		t.Fatal("run loop did not exit after context cancel")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
