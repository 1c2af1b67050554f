package vfsarchive

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type initState int32

const (
	stateNotInitialized initState = iota
	stateInitializing
	stateInitialized
)

// ArchiveContext owns one ZipSource and the EntryIndex built by walking it.
// It is the unit of lazy, single-flighted initialization and of
// modification detection: spec.md's state machine
// NOT_INITIALIZED -> INITIALIZING -> INITIALIZED, collapsing back to
// NOT_INITIALIZED on either an init failure or a later detected
// modification.
type ArchiveContext struct {
	name          string
	source        ZipSource
	rootEntryPath string // "" unless this context is a subtree of a larger source

	state     atomic.Int32
	initGroup singleflight.Group

	index atomic.Pointer[EntryIndex] // swapped wholesale on (re-)init, mirroring the teacher's atomic.Value snapshot pattern
	root  *handler                  // built once, never replaced across re-init (spec.md: "preserving root")

	opts       Options
	global     *GlobalConfig
	tempStore  *TempStore
	logger     *slog.Logger
	metrics    *Metrics
	partCache  *ZipPartCache
	entryCache *EntryContentCache
	integrity  *ZipIntegrityCache

	peer VirtualFileHandler // the DelegatingHandler in the outer tree that mounts this context, nil for an outermost mount
}

// NewArchiveContext constructs an ArchiveContext over source, not yet
// initialized. rootEntryPath scopes the context to a subtree of source
// (used when PartialPathSearch lands on a nested directory within an
// already-decoded buffer); pass "" for a context rooted at source's own
// root.
func NewArchiveContext(name string, source ZipSource, rootEntryPath string, opts Options, global *GlobalConfig, tempStore *TempStore, logger *slog.Logger, metrics *Metrics) *ArchiveContext {
	c := &ArchiveContext{
		name:          name,
		source:        source,
		rootEntryPath: strings.Trim(rootEntryPath, "/"),
		opts:          global.effective(opts),
		global:        global,
		tempStore:     tempStore,
		logger:        logger,
		metrics:       metrics,
	}
	c.index.Store(newEntryIndex())
	return c
}

// WithCaches attaches the shared zip part / entry content / integrity caches
// so that any nested archive this context later mounts (via mountNested)
// reuses them instead of opening its own unshared cache-less FileSource.
func (c *ArchiveContext) WithCaches(partCache *ZipPartCache, entryCache *EntryContentCache, integrity *ZipIntegrityCache) *ArchiveContext {
	c.partCache = partCache
	c.entryCache = entryCache
	c.integrity = integrity
	return c
}

// RootHandler returns the context's root VirtualFileHandler, building it on
// first call and caching it for the context's lifetime.
func (c *ArchiveContext) RootHandler() VirtualFileHandler {
	if c.root == nil {
		rootName := c.name
		if c.rootEntryPath != "" {
			rootName = baseName(c.rootEntryPath)
		}
		c.root = &handler{kind: kindEntry, ctx: c, parent: nil, name: rootName, local: ""}
	}
	return c.root
}

// checkIfModified is the entry point every handler-facing query except
// root-only identity queries funnels through: it detects a changed backing
// store and forces re-init, then ensures the index is built.
//
// A re-init triggered here, by a detected modification, is logged and
// swallowed on failure rather than propagated: spec.md §7 requires the root
// handler to survive a bad re-index, so a failing re-init marks the context
// initialized again over whatever index was already in place (initEntries
// never stores a partial index on error); the next query that still sees a
// modified source retries the re-index. Initial initialization of a context that has never
// successfully indexed still propagates its error normally, since there is
// nothing to preserve.
func (c *ArchiveContext) checkIfModified() error {
	if initState(c.state.Load()) != stateInitialized || !c.source.HasBeenModified() {
		return c.ensureEntries()
	}

	c.state.CompareAndSwap(int32(stateInitialized), int32(stateNotInitialized))
	if c.logger != nil {
		c.logger.Info("archive modified, re-initializing", "name", c.name)
	}
	if c.metrics != nil {
		c.metrics.IncContextsReinitialized()
	}

	if err := c.ensureEntries(); err != nil {
		if c.logger != nil {
			c.logger.Error("re-initialization after modification failed, preserving prior index", "name", c.name, "error", err)
		}
		if c.metrics != nil {
			c.metrics.IncErrors("reinit_after_modification")
		}
		c.state.CompareAndSwap(int32(stateNotInitialized), int32(stateInitialized))
		return nil
	}
	return nil
}

// ensureEntries triggers initEntries at most once per generation: a fast
// atomic check short-circuits once initialized, and concurrent first
// touches are collapsed by singleflight so initEntries runs exactly once
// (spec.md Testable Property 4, Scenario S6).
func (c *ArchiveContext) ensureEntries() error {
	if initState(c.state.Load()) == stateInitialized {
		return nil
	}
	_, err, _ := c.initGroup.Do("init", func() (any, error) {
		if initState(c.state.Load()) == stateInitialized {
			return nil, nil
		}
		return nil, c.initEntries()
	})
	return err
}

// initEntries performs the two-phase build spec.md describes: enumerate the
// source, then walk every entry installing dummy directory ancestors as
// needed so every path component is independently addressable.
func (c *ArchiveContext) initEntries() error {
	c.state.Store(int32(stateInitializing))

	if err := c.source.Acquire(); err != nil {
		c.state.Store(int32(stateNotInitialized))
		return err
	}
	defer c.source.Release()

	entries, err := c.source.Enumerate()
	if err != nil {
		c.state.Store(int32(stateNotInitialized))
		return wrapf(ErrArchiveFormat, "enumerate %q: %v", c.name, err)
	}

	idx := newEntryIndex()
	rootInfo := idx.getOrCreateDummy("")

	var signatureBlocks [][]byte

	for i := range entries {
		e := entries[i]
		name := strings.TrimSuffix(e.Name, "/")

		if c.rootEntryPath != "" {
			if !hasPrefixPath(name, c.rootEntryPath) {
				continue
			}
			name = trimPrefixPath(name, c.rootEntryPath)
		}

		if isSignatureEntryName(name) && e.zf != nil {
			if data, err := readRawEntry(c.source, e); err == nil {
				signatureBlocks = append(signatureBlocks, data)
			}
		}

		if name == "" {
			rootInfo.rawEntry = &e
			continue
		}

		segs := strings.Split(name, "/")
		parent := rootInfo
		cur := ""
		for i, seg := range segs {
			cur = joinLocal(cur, seg)
			info, ok := idx.get(cur)
			if !ok {
				info = idx.getOrCreateDummy(cur)
			}
			if i == len(segs)-1 {
				ecopy := e
				info.rawEntry = &ecopy
			}
			attachChild(parent, seg, info)
			parent = info
		}
	}

	for _, info := range idx.all() {
		if info.rawEntry != nil && !info.rawEntry.IsDir {
			info.setCertificates(signatureBlocks)
		}
	}

	c.index.Store(idx)
	c.state.Store(int32(stateInitialized))
	if c.metrics != nil {
		c.metrics.IncContextsInitialized()
	}
	return nil
}

// cleanup releases the context's ZipSource and, if the context was
// configured to own an extracted temp file (spec.md's autoClean), deletes
// its backing file after the configured grace period. Delete errors are
// logged and swallowed: spec.md §202 requires temp-file cleanup errors to
// never surface to the caller.
func (c *ArchiveContext) cleanup() error {
	c.source.Release()
	if !c.opts.AutoClean {
		return nil
	}
	if err := c.source.Delete(c.opts.ReaperGrace); err != nil {
		if c.logger != nil {
			c.logger.Warn("temp file cleanup failed", "name", c.name, "error", err)
		}
		if c.metrics != nil {
			c.metrics.IncErrors("cleanup_delete")
		}
	}
	return nil
}

func isSignatureEntryName(name string) bool {
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "META-INF/") {
		return false
	}
	return strings.HasSuffix(upper, ".RSA") || strings.HasSuffix(upper, ".DSA") || strings.HasSuffix(upper, ".EC")
}

func readRawEntry(source ZipSource, e rawEntry) ([]byte, error) {
	rc, err := source.OpenEntry(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// getChild resolves name under h, mounting a nested archive if the matched
// entry is one and has not been mounted yet.
func (c *ArchiveContext) getChild(h *handler, name string) (VirtualFileHandler, error) {
	local := joinLocal(h.local, name)
	info, ok := c.lookup(local)
	if !ok {
		return nil, nil
	}
	return c.materialize(info, h, name), nil
}

func (c *ArchiveContext) lookup(local string) (*EntryInfo, bool) {
	if info, ok := c.index.Load().get(local); ok {
		return info, true
	}
	if c.opts.CaseSensitive {
		return nil, false
	}
	lowered := strings.ToLower(local)
	for _, info := range c.index.Load().all() {
		if strings.ToLower(info.localPath) == lowered {
			return info, true
		}
	}
	return nil, false
}

func (c *ArchiveContext) getChildren(h *handler) ([]VirtualFileHandler, error) {
	info, ok := c.index.Load().get(h.local)
	if !ok {
		return nil, wrapf(ErrNotFound, "local path %q", h.local)
	}
	return c.materializeAll(info, h), nil
}

func (c *ArchiveContext) getChildrenBestEffort(h *handler) []VirtualFileHandler {
	info, ok := c.index.Load().get(h.local)
	if !ok {
		return nil
	}
	return c.materializeAll(info, h)
}

func (c *ArchiveContext) materializeAll(parent *EntryInfo, parentHandler VirtualFileHandler) []VirtualFileHandler {
	infos := childrenOf(parent)
	out := make([]VirtualFileHandler, 0, len(infos))
	for _, ci := range infos {
		out = append(out, c.materialize(ci, parentHandler, baseName(ci.localPath)))
	}
	return out
}

// materialize returns the cached handler for info, building and caching it
// on first access. A nested-archive entry is mounted (spec.md §4.3/§4.6)
// rather than exposed as a plain leaf, unless mounting fails, in which case
// it degrades to a plain leaf (spec.md design notes on nested-mount
// failure).
func (c *ArchiveContext) materialize(info *EntryInfo, parent VirtualFileHandler, name string) VirtualFileHandler {
	if info.handler != nil {
		return info.handler
	}
	if info.rawEntry != nil && !info.rawEntry.IsDir && isNestedArchiveName(info.rawEntry.Name) {
		if dh := c.mountNested(info, parent, name); dh != nil {
			info.handler = dh
			return dh
		}
	}
	h := &handler{
		kind:     kindEntry,
		ctx:      c,
		parent:   parent,
		name:     name,
		local:    info.localPath,
		isLeaf:   info.rawEntry != nil && !info.rawEntry.IsDir,
		rawEntry: info.rawEntry,
	}
	info.handler = h
	return h
}

func (c *ArchiveContext) openStream(h *handler) (io.ReadCloser, error) {
	if h.isRoot() {
		return c.source.RootAsStream()
	}
	info, ok := c.index.Load().get(h.local)
	if !ok {
		return nil, wrapf(ErrNotFound, "local path %q", h.local)
	}
	if info.rawEntry == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if err := c.source.Acquire(); err != nil {
		return nil, err
	}
	rc, err := c.source.OpenEntry(*info.rawEntry)
	if err != nil {
		c.source.Release()
		return nil, err
	}
	return &releaseOnClose{ReadCloser: rc, release: c.source.Release}, nil
}

// replaceChild installs replacement as the child named name of parent,
// wrapping it in a DelegatingHandler if it is not already a delegating
// handler (spec.md §4.7).
func (c *ArchiveContext) replaceChild(parentLocal, name string, replacement VirtualFileHandler) (VirtualFileHandler, error) {
	parentInfo, ok := c.index.Load().get(parentLocal)
	if !ok {
		return nil, wrapf(ErrNotFound, "local path %q", parentLocal)
	}

	var wrapped VirtualFileHandler
	if dh, ok := replacement.(*handler); ok && dh.kind == kindDelegating {
		wrapped = dh
	} else {
		wrapped = &handler{
			kind:     kindDelegating,
			ctx:      c,
			parent:   parentInfo.handler,
			name:     name,
			local:    joinLocal(parentLocal, name),
			delegate: replacement,
		}
	}

	childInfo := c.index.Load().getOrCreateDummy(joinLocal(parentLocal, name))
	childInfo.handler = wrapped
	attachChild(parentInfo, name, childInfo)
	return wrapped, nil
}

// releaseOnClose wraps a reader obtained while a ZipSource was Acquire()d,
// releasing the source only once the caller closes the reader.
type releaseOnClose struct {
	io.ReadCloser
	release func()
	closed  bool
}

func (r *releaseOnClose) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.ReadCloser.Close()
	r.release()
	return err
}
