// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package outbox keeps notification records durable between the moment a
// domain operation decides to notify and the moment the record lands in
// the database.
//
// Records are written to BadgerDB first and confirmed (deleted) once the
// database insert succeeds. Anything left pending, for example because
// DuckDB was briefly unavailable or the process died mid-fan-out, is
// replayed by the RetryLoop. Replays rely on the database insert being
// idempotent on the record id.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("outbox is closed")

	// ErrNilRecord is returned when Write is called with nil.
	ErrNilRecord = errors.New("record cannot be nil")

	// ErrEntryNotFound is returned when an entry id has no pending record.
	ErrEntryNotFound = errors.New("entry not found")
)

const prefixPending = "pending:"

// Config holds outbox configuration.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests and single-shot tools.
	InMemory bool

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// RetryInterval is the time between retry loop passes (default: 30s)
	RetryInterval time.Duration

	// MaxRetries is how many replays an entry gets before it is dropped (default: 10)
	MaxRetries int

	// RetryBackoff is the base of the exponential backoff (default: 5s)
	RetryBackoff time.Duration

	// EntryTTL lets Badger expire records nobody managed to replay (default: 7 days)
	EntryTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.EntryTTL <= 0 {
		c.EntryTTL = 7 * 24 * time.Hour
	}
}

// Entry is one pending record.
type Entry struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// UnmarshalPayload decodes the stored record into v.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Outbox is a BadgerDB-backed pending-record store.
type Outbox struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool

	// Entries currently being replayed, so the retry loop and an inline
	// confirm never race on the same key.
	processing sync.Map
}

// Open opens (or creates) the outbox.
func Open(cfg Config) (*Outbox, error) {
	cfg.applyDefaults()

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("outbox path is required unless running in memory")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	o := &Outbox{db: db, config: cfg}
	if n, err := o.PendingCount(); err == nil {
		metrics.OutboxPending.Set(float64(n))
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Notification outbox opened")
	return o, nil
}

// Config returns the effective configuration.
func (o *Outbox) Config() Config {
	return o.config
}

func (o *Outbox) checkOpen() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	return nil
}

// Write stores record and returns the entry id to confirm later.
func (o *Outbox) Write(ctx context.Context, record any) (string, error) {
	if err := o.checkOpen(); err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrNilRecord
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = o.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(prefixPending+entry.ID), data).WithTTL(o.config.EntryTTL))
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	metrics.OutboxPending.Inc()
	return entry.ID, nil
}

// Confirm removes a delivered entry.
func (o *Outbox) Confirm(ctx context.Context, entryID string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEntryNotFound
	}

	key := []byte(prefixPending + entryID)
	err := o.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("get pending entry: %w", err)
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	metrics.OutboxPending.Dec()
	return nil
}

// GetPending returns every unconfirmed entry in key order.
func (o *Outbox) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := o.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := o.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Outbox failed to unmarshal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// UpdateAttempt records a failed replay.
func (o *Outbox) UpdateAttempt(ctx context.Context, entryID, lastError string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}

	key := []byte(prefixPending + entryID)
	return o.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		entry.LastError = lastError

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(o.config.EntryTTL))
	})
}

// PendingCount counts unconfirmed entries without loading their values.
func (o *Outbox) PendingCount() (int, error) {
	if err := o.checkOpen(); err != nil {
		return 0, err
	}

	var n int
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// tryClaim marks an entry as in flight. It returns false when another
// goroutine already holds it.
func (o *Outbox) tryClaim(entryID string) bool {
	_, held := o.processing.LoadOrStore(entryID, struct{}{})
	return !held
}

func (o *Outbox) release(entryID string) {
	o.processing.Delete(entryID)
}

// Close flushes and closes the underlying database.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Notification outbox closed")
	return nil
}
