// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package cache

import (
	"testing"
	"time"
)

func newTestTTL(ttl time.Duration) (*TTL[string], *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTL[string](ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestTTL_GetSet(t *testing.T) {
	c, now := newTestTTL(time.Minute)

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Errorf("Get(k) = %q, %v, want v, true", v, ok)
	}

	*now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("Get(k) after expiry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy expiry", c.Len())
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Evictions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := c.HitRate(); got != 50 {
		t.Errorf("HitRate() = %v, want 50", got)
	}
}

func TestTTL_DisabledWhenZero(t *testing.T) {
	c, _ := newTestTTL(0)
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Error("Get() should miss when ttl is zero")
	}
}

func TestTTL_DeletePrefix(t *testing.T) {
	c, _ := newTestTTL(time.Hour)
	c.Set("rec:1:user:10", "a")
	c.Set("rec:1:item:10", "b")
	c.Set("rec:12:user:10", "c")

	if got := c.DeletePrefix("rec:1:"); got != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", got)
	}
	if _, ok := c.Get("rec:12:user:10"); !ok {
		t.Error("rec:12 entry should survive prefix rec:1:")
	}
}

func TestTTL_Cleanup(t *testing.T) {
	c, now := newTestTTL(time.Minute)
	c.Set("old", "1")
	*now = now.Add(30 * time.Second)
	c.Set("new", "2")
	*now = now.Add(45 * time.Second)

	if got := c.Cleanup(); got != 1 {
		t.Errorf("Cleanup() = %d, want 1", got)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("new entry should survive cleanup")
	}
	if !c.GetStats().LastCleanup.Equal(*now) {
		t.Error("LastCleanup not updated")
	}
}

func TestTTL_Clear(t *testing.T) {
	c, _ := newTestTTL(time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if got := c.GetStats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
}
