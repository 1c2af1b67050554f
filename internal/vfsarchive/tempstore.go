package vfsarchive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const tempDirName = "vfs-nested.tmp"

// TempStore tracks nested archives extracted to disk under useCopy, keyed
// by the context-relative path of the entry they came from, so a second
// mount of the same entry (e.g. after a re-init that preserves the outer
// tree) reuses the already-extracted file instead of paying for extraction
// again. Extractions are deduplicated per key via singleflight and bounded
// in count by an LRU that deletes the backing file on eviction.
type TempStore struct {
	dir string

	group   singleflight.Group
	openSem *semaphore.Weighted

	mu      sync.Mutex
	entries *lru.Cache[string, string] // key -> temp file path

	metrics *Metrics
}

// NewTempStore creates a TempStore rooted at baseDir/vfs-nested.tmp,
// creating the directory if needed. maxEntries bounds how many extracted
// files are kept resident before the least-recently-used one is deleted;
// maxConcurrentExtracts bounds simultaneous extractions.
func NewTempStore(baseDir string, maxEntries, maxConcurrentExtracts int, metrics *Metrics) (*TempStore, error) {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if maxConcurrentExtracts <= 0 {
		maxConcurrentExtracts = 16
	}
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, tempDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapf(ErrTempIO, "create temp dir %q: %v", dir, err)
	}

	ts := &TempStore{
		dir:     dir,
		openSem: semaphore.NewWeighted(int64(maxConcurrentExtracts)),
		metrics: metrics,
	}
	cache, err := lru.NewWithEvict[string, string](maxEntries, func(_ string, path string) {
		_ = os.Remove(path)
		if ts.metrics != nil {
			ts.metrics.IncTempFilesEvicted()
		}
	})
	if err != nil {
		return nil, wrapf(ErrStateInvariant, "construct temp store LRU: %v", err)
	}
	ts.entries = cache
	return ts, nil
}

// SweepProcessTempDir deletes the direct contents of baseDir/vfs-nested.tmp
// without recursing into subdirectories left by a prior, crashed process
// (spec.md §5/§6 "at startup, its contents are swept and deleted").
func SweepProcessTempDir(baseDir string) error {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, tempDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapf(ErrTempIO, "read temp dir %q: %v", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
	return nil
}

// ExtractOnce returns the temp file path backing the nested archive entry
// identified by key, extracting it via open (only called on a genuine
// miss) if not already present. Concurrent callers for the same key
// collapse onto a single extraction.
func (ts *TempStore) ExtractOnce(key, entryName string, open func() (io.ReadCloser, error)) (string, error) {
	ts.mu.Lock()
	if path, ok := ts.entries.Get(key); ok {
		if _, err := os.Stat(path); err == nil {
			ts.mu.Unlock()
			if ts.metrics != nil {
				ts.metrics.IncTempFilesReused()
			}
			return path, nil
		}
		ts.entries.Remove(key)
	}
	ts.mu.Unlock()

	v, err, _ := ts.group.Do(key, func() (any, error) {
		ts.mu.Lock()
		if path, ok := ts.entries.Get(key); ok {
			if _, err := os.Stat(path); err == nil {
				ts.mu.Unlock()
				return path, nil
			}
			ts.entries.Remove(key)
		}
		ts.mu.Unlock()
		path, err := ts.extract(entryName, open)
		if err != nil {
			return "", err
		}
		ts.mu.Lock()
		ts.entries.Add(key, path)
		ts.mu.Unlock()
		return path, nil
	})
	if err != nil {
		return "", err
	}
	path := v.(string)

	ts.mu.Lock()
	ts.entries.Add(key, path)
	ts.mu.Unlock()
	if ts.metrics != nil {
		ts.metrics.IncTempFilesCreated()
	}
	return path, nil
}

func (ts *TempStore) extract(entryName string, open func() (io.ReadCloser, error)) (string, error) {
	if err := ts.openSem.Acquire(context.Background(), 1); err != nil {
		return "", wrapf(ErrTempIO, "acquire extraction slot: %v", err)
	}
	defer ts.openSem.Release(1)

	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	prefix := randomPrefix()
	path := tempPathPrefix(ts.dir, prefix, entryName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", wrapf(ErrTempIO, "create temp file %q: %v", path, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(path)
		return "", wrapf(ErrTempIO, "write temp file %q: %v", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", wrapf(ErrTempIO, "close temp file %q: %v", path, err)
	}
	return path, nil
}

// randomPrefix produces an 8-hex-character prefix for a temp file name
// (spec.md §4.3/§5).
func randomPrefix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
