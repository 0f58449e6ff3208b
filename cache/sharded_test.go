package cache

import (
	"strconv"
	"sync"
	"testing"
)

// constHasher sends every key to shard 0 so eviction order is observable.
func constHasher(string) uint64 { return 0 }

func TestShardedGetSet(t *testing.T) {
	c := NewSharded[string, int](64, StringHasher)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) after update = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestShardedDefaultCapacity(t *testing.T) {
	c := NewSharded[string, int](0, StringHasher)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", c.Capacity(), DefaultCapacity)
	}
	small := NewSharded[string, int](3, StringHasher)
	if small.Capacity() != DefaultShardCount {
		t.Errorf("Capacity() = %d, want one entry per shard", small.Capacity())
	}
}

func TestShardedLRUEviction(t *testing.T) {
	// 32 total -> 2 per shard; constHasher puts everything in one shard.
	c := NewSharded[string, int](32, constHasher)
	var evicted []string
	c.OnEvict = func(k string, _ int) { evicted = append(evicted, k) }

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now least recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestShardedDeleteClear(t *testing.T) {
	c := NewSharded[string, int](64, StringHasher)
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestShardedStats(t *testing.T) {
	c := NewSharded[string, int](64, StringHasher)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("HitRate = %f, want ~0.667", s.HitRate)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("after reset hits/misses = %d/%d", s.Hits, s.Misses)
	}
}

func TestShardedConcurrent(t *testing.T) {
	c := NewSharded[string, int](1024, StringHasher)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := strconv.Itoa(g*1000 + i)
				c.Set(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > c.Capacity() {
		t.Errorf("Len() = %d exceeds Capacity() = %d", c.Len(), c.Capacity())
	}
}
