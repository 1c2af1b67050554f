package vfsarchive

import (
	"archive/zip"
	"container/list"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrZipTemporarilyUnavailable indicates a zip part exists but is not
// currently usable (still being written, or structurally invalid).
var ErrZipTemporarilyUnavailable = errors.New("zip temporarily unavailable")

// ZipIntegrityCache caches zip structural integrity results.
//
// Passed entries are cached for the lifetime of the process and are only
// removed if a later read attempt fails (call InvalidatePassed). Failed
// entries are cached with a TTL so a partially-extracted file gets
// re-tested once it is likely to be complete.
type ZipIntegrityCache struct {
	failTTL time.Duration
	now     func() time.Time
	verify  func(path string) error
	metrics *Metrics

	mu     sync.RWMutex
	passed map[string]struct{}
	failed map[string]time.Time // path -> expiresAt

	group singleflight.Group // deduplicates concurrent verifications of the same path
}

func NewZipIntegrityCache(
	failTTL time.Duration,
	now func() time.Time,
	verify func(path string) error,
	metrics *Metrics,
) *ZipIntegrityCache {
	if now == nil {
		now = time.Now
	}
	if verify == nil {
		verify = verifyZipStructural
	}

	return &ZipIntegrityCache{
		failTTL: failTTL,
		now:     now,
		verify:  verify,
		metrics: metrics,
		passed:  make(map[string]struct{}),
		failed:  make(map[string]time.Time),
	}
}

// Check verifies that the zip part at path is structurally valid (central
// directory + local headers) or returns ErrZipTemporarilyUnavailable.
func (z *ZipIntegrityCache) Check(path string) error {
	if z == nil {
		return nil
	}

	z.mu.RLock()
	if _, ok := z.passed[path]; ok {
		z.mu.RUnlock()
		return nil
	}
	if exp, ok := z.failed[path]; ok {
		if z.now().Before(exp) {
			z.mu.RUnlock()
			return ErrZipTemporarilyUnavailable
		}
	}
	z.mu.RUnlock()

	z.mu.RLock()
	_, inFailed := z.failed[path]
	z.mu.RUnlock()
	if inFailed {
		z.mu.Lock()
		if exp, ok := z.failed[path]; ok && !z.now().Before(exp) {
			delete(z.failed, path)
		}
		z.mu.Unlock()
	}

	_, err, _ := z.group.Do(path, func() (interface{}, error) {
		z.mu.RLock()
		if _, ok := z.passed[path]; ok {
			z.mu.RUnlock()
			return nil, nil
		}
		z.mu.RUnlock()

		return nil, z.verify(path)
	})

	if err != nil {
		z.mu.Lock()
		z.failed[path] = z.now().Add(z.failTTL)
		z.mu.Unlock()
		if z.metrics != nil {
			z.metrics.IncZipIntegrityFailed()
		}
		return fmt.Errorf("%w: %w", ErrZipTemporarilyUnavailable, err)
	}

	z.mu.Lock()
	z.passed[path] = struct{}{}
	delete(z.failed, path)
	z.mu.Unlock()
	if z.metrics != nil {
		z.metrics.IncZipIntegrityPassed()
	}

	return nil
}

// InvalidatePassed removes a previously-passed zip part from the passed
// cache. Callers should use this when later open/read attempts fail for
// that zip part (e.g. a FileSource whose reaper-closed descriptor reopens
// onto a now-truncated file).
func (z *ZipIntegrityCache) InvalidatePassed(path string) {
	if z == nil {
		return
	}
	z.mu.Lock()
	delete(z.passed, path)
	z.mu.Unlock()
}

// verifyZipStructural validates that the zip file's central directory is
// readable. This only opens the zip (parsing the central directory and
// end-of-central-directory record) and checks that at least one entry
// exists; it does not decompress any entry.
func verifyZipStructural(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer func() { _ = r.Close() }()

	if len(r.File) == 0 {
		return errors.New("zip has no entries")
	}

	return nil
}

// ZipPartCacheEntry represents a cached zip part with its open reader.
type ZipPartCacheEntry struct {
	path     string
	reader   *zip.ReadCloser
	lastUsed time.Time
	element  *list.Element // back-pointer to LRU list position within its shard
}

// defaultZipPartShards is the number of internal shards used to reduce
// lock contention under high concurrency.
const defaultZipPartShards = 64

// zipPartShard is a single shard of the ZipPartCache, with its own mutex,
// LRU list, entries map, and singleflight group.
type zipPartShard struct {
	mu      sync.Mutex
	entries map[string]*ZipPartCacheEntry
	lru     *list.List
	group   singleflight.Group
	maxOpen int
}

// ZipPartCache is a sharded, bounded LRU cache for open zip file handles,
// shared across FileSources that repeatedly acquire the
// same on-disk path (e.g. a nested archive mounted more than once after a
// re-init preserves its outer root). A global semaphore limits concurrent
// zip.OpenReader calls to prevent I/O storms.
type ZipPartCache struct {
	metrics   *Metrics
	now       func() time.Time
	shards    []zipPartShard
	numShards uint64
	openSem   *semaphore.Weighted
}

// NewZipPartCache constructs a new sharded ZipPartCache. maxConcurrentOpens
// controls the maximum number of concurrent zip.OpenReader calls (defaults
// to 64 if <= 0).
func NewZipPartCache(maxOpen int, metrics *Metrics, maxConcurrentOpens int) *ZipPartCache {
	if maxOpen <= 0 {
		maxOpen = 2048
	}
	if maxConcurrentOpens <= 0 {
		maxConcurrentOpens = 64
	}

	numShards := uint64(defaultZipPartShards)
	perShard := maxOpen / int(numShards)
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]zipPartShard, numShards)
	for i := range shards {
		shards[i] = zipPartShard{
			entries: make(map[string]*ZipPartCacheEntry),
			lru:     list.New(),
			maxOpen: perShard,
		}
	}

	return &ZipPartCache{
		metrics:   metrics,
		now:       time.Now,
		shards:    shards,
		numShards: numShards,
		openSem:   semaphore.NewWeighted(int64(maxConcurrentOpens)),
	}
}

// shardFor returns the shard index for the given path using FNV-1a hashing.
func (c *ZipPartCache) shardFor(path string) *zipPartShard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return &c.shards[h.Sum64()%c.numShards]
}

// Get returns a cached zip part entry, or opens and caches it if not
// present.
func (c *ZipPartCache) Get(path string) (*ZipPartCacheEntry, error) {
	if c == nil {
		return nil, errors.New("zip part cache not initialized")
	}

	shard := c.shardFor(path)

	shard.mu.Lock()
	if entry, ok := shard.entries[path]; ok {
		shard.lru.MoveToFront(entry.element)
		entry.lastUsed = c.now()
		shard.mu.Unlock()
		return entry, nil
	}
	shard.mu.Unlock()

	val, err, _ := shard.group.Do(path, func() (interface{}, error) {
		shard.mu.Lock()
		if entry, ok := shard.entries[path]; ok {
			shard.lru.MoveToFront(entry.element)
			entry.lastUsed = c.now()
			shard.mu.Unlock()
			return entry, nil
		}
		shard.mu.Unlock()

		if err := c.openSem.Acquire(context.Background(), 1); err != nil {
			return nil, fmt.Errorf("acquire open semaphore: %w", err)
		}
		defer c.openSem.Release(1)

		reader, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open zip reader: %w", err)
		}

		entry := &ZipPartCacheEntry{
			path:     path,
			reader:   reader,
			lastUsed: c.now(),
		}

		shard.mu.Lock()
		if existing, ok := shard.entries[path]; ok {
			shard.lru.MoveToFront(existing.element)
			existing.lastUsed = c.now()
			shard.mu.Unlock()
			_ = reader.Close()
			return existing, nil
		}

		if len(shard.entries) >= shard.maxOpen {
			c.evictLRU(shard)
		}

		entry.element = shard.lru.PushFront(path)
		shard.entries[path] = entry

		if c.metrics != nil {
			c.metrics.SetZipCacheOpen(c.totalOpen())
		}
		shard.mu.Unlock()

		return entry, nil
	})

	if err != nil {
		return nil, err
	}

	entry, ok := val.(*ZipPartCacheEntry)
	if !ok {
		return nil, errors.New("zip part cache: unexpected singleflight result type")
	}

	return entry, nil
}

// evictLRU removes the least recently used entry from the given shard.
// Caller must hold shard.mu.
func (c *ZipPartCache) evictLRU(shard *zipPartShard) {
	elem := shard.lru.Back()
	if elem == nil {
		return
	}

	shard.lru.Remove(elem)

	oldestPath, _ := elem.Value.(string)
	entry, ok := shard.entries[oldestPath]
	if !ok {
		return
	}

	_ = entry.reader.Close()
	delete(shard.entries, oldestPath)

	if c.metrics != nil {
		c.metrics.IncZipCacheEvictions()
	}
}

// Remove removes an entry from the cache and closes its resources.
func (c *ZipPartCache) Remove(path string) {
	if c == nil {
		return
	}

	shard := c.shardFor(path)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[path]
	if !ok {
		return
	}

	shard.lru.Remove(entry.element)

	_ = entry.reader.Close()
	delete(shard.entries, path)

	if c.metrics != nil {
		c.metrics.SetZipCacheOpen(c.totalOpen())
	}
}

// totalOpen returns the total number of open entries across all shards.
func (c *ZipPartCache) totalOpen() int {
	total := 0
	for i := range c.shards {
		total += len(c.shards[i].entries)
	}
	return total
}
