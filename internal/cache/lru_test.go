// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package cache

import (
	"sync"
	"testing"
)

func TestLRU_GetAdd(t *testing.T) {
	c := NewLRU[string, float64](2)

	c.Add("a", 0.5)
	c.Add("b", 0.7)

	if v, ok := c.Get("a"); !ok || v != 0.5 {
		t.Errorf("Get(a) = %v, %v, want 0.5, true", v, ok)
	}

	// "b" is now least recently used.
	c.Add("c", 0.9)

	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) should miss after eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("Get(a) should hit, it was recently used")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	hits, misses, evictions, size := c.Stats()
	if hits != 2 || misses != 1 || evictions != 1 || size != 2 {
		t.Errorf("Stats() = %d/%d/%d/%d, want 2/1/1/2", hits, misses, evictions, size)
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[int, int](2)
	c.Add(1, 10)
	c.Add(1, 11)

	if v, _ := c.Get(1); v != 11 {
		t.Errorf("Get(1) = %d, want 11", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_RemoveAndPurge(t *testing.T) {
	c := NewLRU[int, int](10)
	for i := 0; i < 5; i++ {
		c.Add(i, i)
	}

	if !c.Remove(3) {
		t.Error("Remove(3) = false, want true")
	}
	if c.Remove(3) {
		t.Error("Remove(3) twice = true, want false")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", c.Len())
	}
	c.Add(7, 7)
	if v, ok := c.Get(7); !ok || v != 7 {
		t.Errorf("Get(7) after Purge = %v, %v", v, ok)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](100)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add(g*1000+i, i)
				c.Get(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d, want <= 100", c.Len())
	}
}
