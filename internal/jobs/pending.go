// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrAlreadyPending means a job with the same dedup key is already queued
// or running. Callers treat it as a skip, not a failure.
var ErrAlreadyPending = errors.New("jobs: already pending")

// ErrPendingSetClosed indicates the set has been closed.
var ErrPendingSetClosed = errors.New("jobs: pending set is closed")

// PendingSet tracks in-flight job keys so the dispatcher enqueues at most
// one job per key at a time. Entries carry a TTL as a safety valve: a crash
// between enqueue and completion must not wedge the key forever.
type PendingSet interface {
	// TryAdd atomically claims a key. Returns ErrAlreadyPending when the
	// key is already claimed and unexpired.
	TryAdd(ctx context.Context, key string, ttl time.Duration) error

	// Remove releases a key. Removing an unclaimed key is a no-op.
	Remove(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// pendingEntry is the stored claim record.
type pendingEntry struct {
	Key       string    `json:"key"`
	ClaimedAt time.Time `json:"claimed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MemoryPendingSet is an in-memory PendingSet for tests and single-process
// runs without a data directory.
type MemoryPendingSet struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	closed  bool
}

// NewMemoryPendingSet creates an empty in-memory pending set.
func NewMemoryPendingSet() *MemoryPendingSet {
	return &MemoryPendingSet{entries: make(map[string]pendingEntry)}
}

// TryAdd claims a key.
func (s *MemoryPendingSet) TryAdd(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrPendingSetClosed
	}

	now := time.Now()
	if existing, ok := s.entries[key]; ok && now.Before(existing.ExpiresAt) {
		return ErrAlreadyPending
	}

	s.entries[key] = pendingEntry{Key: key, ClaimedAt: now, ExpiresAt: now.Add(ttl)}
	return nil
}

// Remove releases a key.
func (s *MemoryPendingSet) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrPendingSetClosed
	}
	delete(s.entries, key)
	return nil
}

// Close marks the set closed.
func (s *MemoryPendingSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// BadgerPendingSet is a BadgerDB-backed PendingSet. Claims survive process
// restarts until their TTL lapses, which keeps a crashed worker's key from
// being re-enqueued immediately on startup.
type BadgerPendingSet struct {
	db     *badger.DB
	prefix []byte
	mu     sync.RWMutex
	closed bool
}

// NewBadgerPendingSet creates a pending set on a shared BadgerDB instance.
func NewBadgerPendingSet(db *badger.DB, prefix string) *BadgerPendingSet {
	if prefix == "" {
		prefix = "pending:"
	}
	return &BadgerPendingSet{db: db, prefix: []byte(prefix)}
}

func (s *BadgerPendingSet) makeKey(key string) []byte {
	return append(append([]byte{}, s.prefix...), []byte(key)...)
}

// TryAdd atomically claims a key in a single BadgerDB transaction.
func (s *BadgerPendingSet) TryAdd(_ context.Context, key string, ttl time.Duration) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrPendingSetClosed
	}
	s.mu.RUnlock()

	badgerKey := s.makeKey(key)

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey)
		if err == nil {
			var existing pendingEntry
			if valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); valErr == nil && time.Now().Before(existing.ExpiresAt) {
				return ErrAlreadyPending
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now()
		data, err := json.Marshal(pendingEntry{Key: key, ClaimedAt: now, ExpiresAt: now.Add(ttl)})
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(badgerKey, data).WithTTL(ttl))
	})
}

// Remove releases a key.
func (s *BadgerPendingSet) Remove(_ context.Context, key string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrPendingSetClosed
	}
	s.mu.RUnlock()

	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(s.makeKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close marks the set closed. The shared BadgerDB instance is owned by the
// caller and is not closed here.
func (s *BadgerPendingSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
