// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestDispatcher(t *testing.T) (*GoChannelDispatcher, context.Context) {
	t.Helper()

	d := NewGoChannelDispatcher(DispatcherConfig{Workers: 2, Buffer: 16, PendingTTL: time.Minute}, NewMemoryPendingSet())
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return d, ctx
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDispatcherDeliversToHandler(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	var handled atomic.Int64
	var gotMember uuid.UUID
	var mu sync.Mutex

	memberID := uuid.New()
	d.Register(JobScanMember, func(_ context.Context, req *ScanRequest) error {
		mu.Lock()
		gotMember = req.MemberID
		mu.Unlock()
		handled.Add(1)
		return nil
	})

	go func() { _ = d.Run(ctx) }()

	err := d.Enqueue(ctx, &ScanRequest{Job: JobScanMember, MemberID: memberID})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	mu.Lock()
	defer mu.Unlock()
	if gotMember != memberID {
		t.Fatalf("handler received member %s, want %s", gotMember, memberID)
	}
}

func TestDispatcherEnqueueBeforeRunIsNotLost(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	var handled atomic.Int64
	d.Register(JobScanMember, func(_ context.Context, _ *ScanRequest) error {
		handled.Add(1)
		return nil
	})

	// The worker pool starts late, as it can under concurrent service
	// startup. The enqueue must wait for the subscriber instead of
	// publishing into the void with the dedup key left claimed.
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = d.Run(ctx)
	}()

	req := &ScanRequest{Job: JobScanMember, MemberID: uuid.New()}
	if err := d.Enqueue(ctx, req); err != nil {
		t.Fatalf("Enqueue before Run: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })
}

func TestDispatcherEnqueueAbortsWithoutClaimWhenNeverRunning(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	var handled atomic.Int64
	d.Register(JobScanMember, func(_ context.Context, _ *ScanRequest) error {
		handled.Add(1)
		return nil
	})

	req := &ScanRequest{Job: JobScanMember, MemberID: uuid.New()}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := d.Enqueue(canceled, req); err == nil {
		t.Fatal("Enqueue with no running worker pool and a dead context must fail")
	}

	// The aborted enqueue must not have claimed the key: the same request
	// goes through once the pool is up.
	go func() { _ = d.Run(ctx) }()
	waitFor(t, 2*time.Second, func() bool {
		if err := d.Enqueue(ctx, req); err != nil {
			t.Fatalf("Enqueue after Run: %v", err)
		}
		return handled.Load() >= 1
	})
}

func TestDispatcherDeduplicatesPendingKey(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	block := make(chan struct{})
	var handled atomic.Int64
	d.Register(JobScanMember, func(_ context.Context, _ *ScanRequest) error {
		handled.Add(1)
		<-block
		return nil
	})

	go func() { _ = d.Run(ctx) }()

	req := &ScanRequest{Job: JobScanMember, MemberID: uuid.New()}
	if err := d.Enqueue(ctx, req); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	// Same member while the first scan is still running: silently skipped.
	if err := d.Enqueue(ctx, req); err != nil {
		t.Fatalf("duplicate Enqueue: %v", err)
	}

	close(block)
	time.Sleep(50 * time.Millisecond)
	if n := handled.Load(); n != 1 {
		t.Fatalf("handler ran %d times, want 1", n)
	}
}

func TestDispatcherReenqueueAfterCompletion(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	var handled atomic.Int64
	d.Register(JobScanMember, func(_ context.Context, _ *ScanRequest) error {
		handled.Add(1)
		return nil
	})

	go func() { _ = d.Run(ctx) }()

	req := &ScanRequest{Job: JobScanMember, MemberID: uuid.New()}
	if err := d.Enqueue(ctx, req); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	// The key must be released once the handler finishes, even though the
	// handler is also racing with the release. Poll until the second
	// enqueue lands.
	waitFor(t, 2*time.Second, func() bool {
		if err := d.Enqueue(ctx, req); err != nil {
			t.Fatalf("second Enqueue: %v", err)
		}
		return handled.Load() >= 2
	})
}

func TestDispatcherReleasesKeyOnHandlerError(t *testing.T) {
	t.Parallel()

	d, ctx := newTestDispatcher(t)

	var handled atomic.Int64
	d.Register(JobReconcileClan, func(_ context.Context, _ *ScanRequest) error {
		handled.Add(1)
		return context.DeadlineExceeded
	})

	go func() { _ = d.Run(ctx) }()

	req := &ScanRequest{Job: JobReconcileClan, ClanID: 7}
	if err := d.Enqueue(ctx, req); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	waitFor(t, 2*time.Second, func() bool {
		if err := d.Enqueue(ctx, req); err != nil {
			t.Fatalf("re-Enqueue: %v", err)
		}
		return handled.Load() >= 2
	})
}

func TestScanRequestDedupKey(t *testing.T) {
	t.Parallel()

	memberID := uuid.New()
	scan := &ScanRequest{Job: JobScanMember, MemberID: memberID}
	reconcile := &ScanRequest{Job: JobReconcileClan, ClanID: 42}

	if scan.DedupKey() == reconcile.DedupKey() {
		t.Fatal("different jobs produced identical dedup keys")
	}
	if scan.DedupKey() != (&ScanRequest{Job: JobScanMember, MemberID: memberID, ClanID: 9}).DedupKey() {
		t.Fatal("member scan key must depend only on the member")
	}
}

func TestMemoryPendingSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryPendingSet()

	if err := s.TryAdd(ctx, "k", time.Minute); err != nil {
		t.Fatalf("TryAdd: %v", err)
	}
	if err := s.TryAdd(ctx, "k", time.Minute); err != ErrAlreadyPending {
		t.Fatalf("duplicate TryAdd = %v, want ErrAlreadyPending", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.TryAdd(ctx, "k", time.Minute); err != nil {
		t.Fatalf("TryAdd after Remove: %v", err)
	}

	// Expired claims are reclaimable without an explicit Remove.
	if err := s.TryAdd(ctx, "ttl", time.Millisecond); err != nil {
		t.Fatalf("TryAdd: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.TryAdd(ctx, "ttl", time.Minute); err != nil {
		t.Fatalf("TryAdd on expired claim = %v, want nil", err)
	}

	_ = s.Close()
	if err := s.TryAdd(ctx, "x", time.Minute); err != ErrPendingSetClosed {
		t.Fatalf("TryAdd after Close = %v, want ErrPendingSetClosed", err)
	}
}

func TestBadgerPendingSet(t *testing.T) {
	t.Parallel()

	db := openTestBadger(t)
	ctx := context.Background()
	s := NewBadgerPendingSet(db, "pending:")

	if err := s.TryAdd(ctx, "member:1", time.Minute); err != nil {
		t.Fatalf("TryAdd: %v", err)
	}
	if err := s.TryAdd(ctx, "member:1", time.Minute); err != ErrAlreadyPending {
		t.Fatalf("duplicate TryAdd = %v, want ErrAlreadyPending", err)
	}

	// Prefixes isolate sets sharing one database.
	other := NewBadgerPendingSet(db, "other:")
	if err := other.TryAdd(ctx, "member:1", time.Minute); err != nil {
		t.Fatalf("TryAdd on other prefix: %v", err)
	}

	if err := s.Remove(ctx, "member:1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.TryAdd(ctx, "member:1", time.Minute); err != nil {
		t.Fatalf("TryAdd after Remove: %v", err)
	}
}
