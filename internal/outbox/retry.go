// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package outbox

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
)

// Handler re-delivers one pending entry.
type Handler interface {
	Replay(ctx context.Context, entry *Entry) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, entry *Entry) error

// Replay implements Handler.
func (f HandlerFunc) Replay(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// PassResult summarises one retry pass.
type PassResult struct {
	Pending   int
	Delivered int
	Failed    int
	Abandoned int
	Skipped   int
}

// RetryLoop periodically replays pending entries.
type RetryLoop struct {
	outbox  *Outbox
	handler Handler
	config  Config

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	stopDone chan struct{}
}

// NewRetryLoop creates a retry loop over o.
func NewRetryLoop(o *Outbox, h Handler) *RetryLoop {
	return &RetryLoop{
		outbox:  o,
		handler: h,
		config:  o.Config(),
	}
}

// Start runs a recovery pass immediately, then one pass per RetryInterval
// until Stop is called or ctx is cancelled.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	done := make(chan struct{})
	r.stopDone = done
	r.mu.Unlock()

	go r.run(loopCtx, done)

	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("Outbox retry loop started")
	return nil
}

// Stop cancels the loop and waits for the current pass to finish.
func (r *RetryLoop) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.cancel()
	r.running = false
	done := r.stopDone
	r.mu.Unlock()

	<-done
	logging.Info().Msg("Outbox retry loop stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce replays every pending entry that is due.
func (r *RetryLoop) RunOnce(ctx context.Context) PassResult {
	var res PassResult

	entries, err := r.outbox.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Outbox retry: failed to get pending entries")
		return res
	}
	res.Pending = len(entries)
	if len(entries) == 0 {
		return res
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		switch r.process(ctx, entry) {
		case resultDelivered:
			res.Delivered++
		case resultFailed:
			res.Failed++
		case resultAbandoned:
			res.Abandoned++
		default:
			res.Skipped++
		}
	}

	if res.Delivered > 0 || res.Failed > 0 || res.Abandoned > 0 {
		logging.Info().
			Int("pending", res.Pending).
			Int("delivered", res.Delivered).
			Int("failed", res.Failed).
			Int("abandoned", res.Abandoned).
			Msg("Outbox retry complete")
	}
	return res
}

type result int

const (
	resultDelivered result = iota
	resultFailed
	resultAbandoned
	resultSkipped
)

func (r *RetryLoop) process(ctx context.Context, entry *Entry) result {
	if !r.outbox.tryClaim(entry.ID) {
		return resultSkipped
	}
	defer r.outbox.release(entry.ID)

	if entry.Attempts >= r.config.MaxRetries {
		logging.Warn().
			Str("entry_id", entry.ID).
			Int("attempts", entry.Attempts).
			Str("last_error", entry.LastError).
			Msg("Outbox retry: entry exceeded max retries, dropping")
		if err := r.outbox.Confirm(ctx, entry.ID); err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox retry: failed to drop entry")
		}
		metrics.OutboxRetries.WithLabelValues("abandoned").Inc()
		return resultAbandoned
	}

	if !entry.LastAttemptAt.IsZero() && time.Since(entry.LastAttemptAt) < r.backoff(entry.Attempts) {
		return resultSkipped
	}

	replayCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := r.handler.Replay(replayCtx, entry)
	cancel()

	if err != nil {
		logging.Error().Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("Outbox retry: replay failed")
		if uerr := r.outbox.UpdateAttempt(ctx, entry.ID, err.Error()); uerr != nil {
			logging.Error().Err(uerr).Str("entry_id", entry.ID).Msg("Outbox retry: failed to record attempt")
		}
		metrics.OutboxRetries.WithLabelValues("failure").Inc()
		return resultFailed
	}

	if err := r.outbox.Confirm(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox retry: failed to confirm entry")
		return resultFailed
	}
	metrics.OutboxRetries.WithLabelValues("success").Inc()
	return resultDelivered
}

// backoff is base * 2^attempts, capped at 5 minutes.
func (r *RetryLoop) backoff(attempts int) time.Duration {
	const maxBackoff = 5 * time.Minute
	if attempts > 30 {
		return maxBackoff
	}
	d := time.Duration(float64(r.config.RetryBackoff) * math.Pow(2, float64(attempts)))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
