// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Stop()

	c.Set("roster:1", []string{"alpha", "bravo"})

	got, ok := c.Get("roster:1")
	if !ok {
		t.Fatal("Get returned miss for fresh entry")
	}
	roster, ok := got.([]string)
	if !ok || len(roster) != 2 {
		t.Fatalf("Get returned %v, want 2-element roster", got)
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()

	c := New(10 * time.Millisecond)
	defer c.Stop()

	c.Set("k", 1)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("Get returned hit for expired entry")
	}

	stats := c.GetStats()
	if stats.Evictions == 0 {
		t.Fatal("expired entry was not counted as an eviction")
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Stop()

	c.Set("member:42", "x")
	c.Invalidate("member:42")

	if _, ok := c.Get("member:42"); ok {
		t.Fatal("Get returned hit after Invalidate")
	}

	// Invalidating a missing key must not panic or error.
	c.Invalidate("member:nope")
}

func TestCacheInvalidatePrefix(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Stop()

	c.Set("clan:1000:roster", "a")
	c.Set("clan:1000:counts", "b")
	c.Set("clan:2000:roster", "c")

	removed := c.InvalidatePrefix("clan:1000:")
	if removed != 2 {
		t.Fatalf("InvalidatePrefix removed %d keys, want 2", removed)
	}
	if _, ok := c.Get("clan:2000:roster"); !ok {
		t.Fatal("InvalidatePrefix removed a key outside the prefix")
	}
}

func TestCacheStats(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Fatalf("stats = %+v, want hits=1 misses=1 keys=1", stats)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, n)
				c.Get(key)
				if j%20 == 0 {
					c.InvalidatePrefix("k1")
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type params struct {
		ClanID int64
		Mode   int
	}

	a := GenerateKey("counts", params{ClanID: 1, Mode: 4})
	b := GenerateKey("counts", params{ClanID: 1, Mode: 4})
	diff := GenerateKey("counts", params{ClanID: 2, Mode: 4})

	if a != b {
		t.Fatalf("same params produced different keys: %q vs %q", a, b)
	}
	if a == diff {
		t.Fatal("different params produced the same key")
	}
	if GenerateKey("plain", nil) != "plain" {
		t.Fatal("nil params should return the bare namespace")
	}
}
