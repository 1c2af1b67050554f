package vfsarchive

import "testing"

func TestEntryContentCachePutGetRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewEntryContentCache(1<<20, nil)
	c.Put("a.zip", "x.txt", []byte("hello"))

	data, ok := c.Get("a.zip", "x.txt")
	if !ok {
		t.Fatal("Get after Put = miss, want hit")
	}
	if string(data) != "hello" {
		t.Fatalf("Get = %q, want hello", data)
	}

	if _, ok := c.Get("a.zip", "missing.txt"); ok {
		t.Fatal("Get(missing.txt) = hit, want miss")
	}
	if _, ok := c.Get("b.zip", "x.txt"); ok {
		t.Fatal("Get with different zipPath = hit, want miss (keys are composite)")
	}
}

func TestEntryContentCacheDisabledWhenBudgetZero(t *testing.T) {
	t.Parallel()

	c := NewEntryContentCache(0, nil)
	c.Put("a.zip", "x.txt", []byte("hello"))
	if _, ok := c.Get("a.zip", "x.txt"); ok {
		t.Fatal("Get on a zero-budget cache = hit, want always-miss")
	}
}

func TestEntryContentCacheSkipsOversizedEntry(t *testing.T) {
	t.Parallel()

	// A tiny total budget spread across 64 shards rounds each shard's
	// budget down to 1 byte, so any multi-byte entry is rejected.
	c := NewEntryContentCache(1, nil)
	c.Put("a.zip", "big.txt", []byte("too big to fit"))
	if _, ok := c.Get("a.zip", "big.txt"); ok {
		t.Fatal("Get(big.txt) = hit, want miss (entry exceeds shard budget)")
	}
}

func TestEntryContentCacheInvalidateRemovesAllEntriesForPath(t *testing.T) {
	t.Parallel()

	c := NewEntryContentCache(1<<20, nil)
	c.Put("a.zip", "x.txt", []byte("1"))
	c.Put("a.zip", "y.txt", []byte("2"))
	c.Put("b.zip", "x.txt", []byte("3"))

	c.Invalidate("a.zip")

	if _, ok := c.Get("a.zip", "x.txt"); ok {
		t.Fatal("Get(a.zip, x.txt) after Invalidate(a.zip) = hit, want miss")
	}
	if _, ok := c.Get("a.zip", "y.txt"); ok {
		t.Fatal("Get(a.zip, y.txt) after Invalidate(a.zip) = hit, want miss")
	}
	if _, ok := c.Get("b.zip", "x.txt"); !ok {
		t.Fatal("Get(b.zip, x.txt) after Invalidate(a.zip) = miss, want hit (different zip)")
	}
}

func TestEntryContentCacheNilIsSafe(t *testing.T) {
	t.Parallel()

	var c *EntryContentCache
	c.Put("a.zip", "x.txt", []byte("1")) // must not panic
	if _, ok := c.Get("a.zip", "x.txt"); ok {
		t.Fatal("Get on nil cache = hit, want miss")
	}
	c.Invalidate("a.zip") // must not panic
}
