package vfsarchive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %q: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
}

func TestZipIntegrityCacheCachesPassAndFailWithTTL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")

	calls := 0
	clock := time.Now()
	cache := NewZipIntegrityCache(time.Minute, func() time.Time { return clock }, func(string) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}, nil)

	if err := cache.Check(path); !errors.Is(err, ErrZipTemporarilyUnavailable) {
		t.Fatalf("first Check error = %v, want ErrZipTemporarilyUnavailable", err)
	}
	if calls != 1 {
		t.Fatalf("calls after first Check = %d, want 1", calls)
	}

	// Within the TTL window, the failure should be served from cache.
	if err := cache.Check(path); !errors.Is(err, ErrZipTemporarilyUnavailable) {
		t.Fatalf("second Check (within TTL) error = %v, want ErrZipTemporarilyUnavailable", err)
	}
	if calls != 1 {
		t.Fatalf("calls after second Check = %d, want still 1 (served from cache)", calls)
	}

	// Advance past the TTL: should re-verify and this time pass.
	clock = clock.Add(2 * time.Minute)
	if err := cache.Check(path); err != nil {
		t.Fatalf("third Check (after TTL, verify succeeds) = %v, want nil", err)
	}
	if calls != 2 {
		t.Fatalf("calls after third Check = %d, want 2", calls)
	}

	// Now cached as passed: further checks must not re-invoke verify.
	if err := cache.Check(path); err != nil {
		t.Fatalf("fourth Check (cached pass) = %v, want nil", err)
	}
	if calls != 2 {
		t.Fatalf("calls after fourth Check = %d, want still 2", calls)
	}
}

func TestZipIntegrityCacheInvalidatePassed(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := NewZipIntegrityCache(time.Minute, time.Now, func(string) error {
		calls++
		return nil
	}, nil)

	if err := cache.Check("p"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	cache.InvalidatePassed("p")

	if err := cache.Check("p"); err != nil {
		t.Fatalf("Check after invalidate: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls after invalidate+recheck = %d, want 2 (re-verified)", calls)
	}
}

func TestZipIntegrityCacheNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var cache *ZipIntegrityCache
	if err := cache.Check("anything"); err != nil {
		t.Fatalf("Check on nil cache = %v, want nil", err)
	}
	cache.InvalidatePassed("anything") // must not panic
}

func TestZipPartCacheGetReusesOpenReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeTestZip(t, path, map[string]string{"x.txt": "hello"})

	cache := NewZipPartCache(0, nil, 0)

	e1, err := cache.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e2, err := cache.Get(path)
	if err != nil {
		t.Fatalf("Get (second): %v", err)
	}
	if e1 != e2 {
		t.Fatal("Get returned distinct entries for the same path; expected cache reuse")
	}
	if e1.reader.File[0].Name != "x.txt" {
		t.Fatalf("reader.File[0].Name = %q, want x.txt", e1.reader.File[0].Name)
	}
}

func TestZipPartCacheRemoveClosesReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.zip")
	pathB := filepath.Join(dir, "b.zip")
	writeTestZip(t, pathA, map[string]string{"x": "1"})
	writeTestZip(t, pathB, map[string]string{"y": "2"})

	cache := NewZipPartCache(2048, nil, 0)

	if _, err := cache.Get(pathA); err != nil {
		t.Fatalf("Get(pathA): %v", err)
	}
	if cache.totalOpen() != 1 {
		t.Fatalf("totalOpen = %d, want 1", cache.totalOpen())
	}

	cache.Remove(pathA)
	if cache.totalOpen() != 0 {
		t.Fatalf("totalOpen after Remove = %d, want 0", cache.totalOpen())
	}

	// Removing a path not present must be a harmless no-op.
	cache.Remove(pathB)
}

func TestZipPartCacheNilIsSafe(t *testing.T) {
	t.Parallel()

	var cache *ZipPartCache
	if _, err := cache.Get("anything"); err == nil {
		t.Fatal("Get on nil cache: expected error")
	}
	cache.Remove("anything") // must not panic
}
