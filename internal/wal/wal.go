// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package wal is a BadgerDB write-ahead log in front of the rating
// database. A write is recorded as a pending entry, applied to the
// database, and confirmed by deleting the entry. Entries whose apply
// failed stay pending and are replayed by RetryLoop.
//
// Entries are keyed by their target (a user/movie pair, or a user), so a
// newer write for the same target replaces an older pending one.
package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

var (
	ErrWALClosed     = errors.New("wal: closed")
	ErrEntryNotFound = errors.New("wal: entry not found")
	ErrEmptyKey      = errors.New("wal: empty key")
)

const prefixPending = "pending:"

// Op identifies what a pending entry will do when applied.
type Op string

const (
	OpUpsertRating Op = "upsert_rating"
	OpCreateUser   Op = "create_user"
)

// Entry is one pending write.
type Entry struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	Op  Op     `json:"op"`

	// Payload is the JSON-encoded write; see UnmarshalPayload.
	Payload json.RawMessage `json:"payload"`

	CreatedAt     time.Time `json:"created_at"`
	Attempts      int       `json:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats reports WAL activity since open.
type Stats struct {
	PendingCount  int64
	TotalWrites   int64
	TotalConfirms int64
	TotalDropped  int64
}

// Config holds BadgerDB settings.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerWAL stores pending entries in BadgerDB.
type BadgerWAL struct {
	db     *badger.DB
	logger zerolog.Logger

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64
	totalDropped  atomic.Int64

	mu     sync.RWMutex
	closed bool

	now func() time.Time
}

// Open opens or creates the WAL.
func Open(cfg Config) (*BadgerWAL, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("wal: path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	w := &BadgerWAL{
		db:     db,
		logger: logging.WithComponent("wal"),
		now:    time.Now,
	}

	pending, err := w.countPending()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.WALPendingEntries.Set(float64(pending))

	w.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Int("pending", pending).
		Msg("WAL opened")
	return w, nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

// Write records a pending entry under key, replacing any pending entry
// already stored there, and returns the new entry's ID.
func (w *BadgerWAL) Write(_ context.Context, key string, op Op, payload interface{}) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrEmptyKey
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Key:       key,
		Op:        op,
		Payload:   raw,
		CreatedAt: w.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	replaced := false
	err = w.db.Update(func(txn *badger.Txn) error {
		k := []byte(prefixPending + key)
		if _, getErr := txn.Get(k); getErr == nil {
			replaced = true
		} else if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return getErr
		}
		return txn.Set(k, data)
	})
	if err != nil {
		metrics.WALWrites.WithLabelValues("error").Inc()
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	w.totalWrites.Add(1)
	metrics.WALWrites.WithLabelValues("success").Inc()
	if !replaced {
		metrics.WALPendingEntries.Inc()
	}
	return entry.ID, nil
}

// Confirm removes the entry under key if it is still the one with entryID.
// A newer entry written to the same key in the meantime is left alone.
func (w *BadgerWAL) Confirm(_ context.Context, key, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	removed, err := w.deleteIf(key, func(e *Entry) bool { return e.ID == entryID })
	if err != nil {
		return err
	}
	if removed {
		w.totalConfirms.Add(1)
	}
	return nil
}

// Drop removes the entry under key unconditionally.
func (w *BadgerWAL) Drop(_ context.Context, key string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	removed, err := w.deleteIf(key, func(*Entry) bool { return true })
	if err != nil {
		return err
	}
	if removed {
		w.totalDropped.Add(1)
	}
	return nil
}

func (w *BadgerWAL) deleteIf(key string, match func(*Entry) bool) (bool, error) {
	removed := false
	err := w.db.Update(func(txn *badger.Txn) error {
		k := []byte(prefixPending + key)
		entry, err := readEntry(txn, k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !match(entry) {
			return nil
		}
		removed = true
		return txn.Delete(k)
	})
	if err != nil {
		return false, fmt.Errorf("delete pending entry: %w", err)
	}
	if removed {
		metrics.WALPendingEntries.Dec()
	}
	return removed, nil
}

// Get returns the pending entry under key.
func (w *BadgerWAL) Get(_ context.Context, key string) (*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	var entry *Entry
	err := w.db.View(func(txn *badger.Txn) error {
		e, err := readEntry(txn, []byte(prefixPending+key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		entry = e
		return err
	})
	return entry, err
}

// UpdateAttempt bumps the attempt counter of the entry with entryID.
func (w *BadgerWAL) UpdateAttempt(_ context.Context, key, entryID, lastError string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	return w.db.Update(func(txn *badger.Txn) error {
		k := []byte(prefixPending + key)
		entry, err := readEntry(txn, k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return err
		}
		if entry.ID != entryID {
			return nil
		}

		entry.Attempts++
		entry.LastAttemptAt = w.now().UTC()
		entry.LastError = lastError

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(k, data)
	})
}

// GetPending returns every pending entry in key order.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				w.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("WAL failed to unmarshal entry")
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

func (w *BadgerWAL) countPending() (int, error) {
	n := 0
	err := w.db.View(func(txn *badger.Txn) error {
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
	if err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return n, nil
}

// Stats returns counters and the current pending count.
func (w *BadgerWAL) Stats() Stats {
	pending, err := w.countPending()
	if err != nil {
		pending = -1
	}
	return Stats{
		PendingCount:  int64(pending),
		TotalWrites:   w.totalWrites.Load(),
		TotalConfirms: w.totalConfirms.Load(),
		TotalDropped:  w.totalDropped.Load(),
	}
}

// Close closes BadgerDB. Further calls return ErrWALClosed.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	w.logger.Info().Msg("WAL closed")
	return nil
}

func readEntry(txn *badger.Txn, key []byte) (*Entry, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}
