package vfsarchive

import (
	"log/slog"
	"strings"
	"time"
)

// Engine is the top-level entry point a caller uses to mount zip archives.
// It carries the shared ambient collaborators (global config, temp store,
// logger, metrics, shared caches) that every ArchiveContext it creates is
// built with.
type Engine struct {
	global     *GlobalConfig
	opts       Options
	tempStore  *TempStore
	logger     *slog.Logger
	metrics    *Metrics
	partCache  *ZipPartCache
	entryCache *EntryContentCache
	integrity  *ZipIntegrityCache
}

// NewEngine constructs an Engine from a loaded Config.
func NewEngine(cfg Config, logger *slog.Logger, metrics *Metrics) (*Engine, error) {
	tempStore, err := NewTempStore(cfg.TempDir, cfg.TempStoreMaxEntries, cfg.MaxConcurrentZipOpens, metrics)
	if err != nil {
		return nil, err
	}
	partCache := NewZipPartCache(cfg.ZipPartCacheMaxOpen, metrics, cfg.MaxConcurrentZipOpens)
	entryCache := NewEntryContentCache(cfg.EntryCacheMaxBytes, metrics)
	integrity := NewZipIntegrityCache(cfg.ZipIntegrityFailTTL, time.Now, nil, metrics)

	return &Engine{
		global: &GlobalConfig{
			ForceCopy:          cfg.ForceCopy,
			ForceNoReaper:      cfg.ForceNoReaper,
			ForceCaseSensitive: cfg.ForceCaseSensitive,
			ForceVfsJar:        cfg.ForceVfsJar,
		},
		opts: Options{
			UseCopy:       cfg.ForceCopy,
			NoReaper:      cfg.ForceNoReaper,
			CaseSensitive: true,
			ReaperGrace:   cfg.ReaperGrace,
			AutoClean:     false,
		},
		tempStore:  tempStore,
		logger:     logger,
		metrics:    metrics,
		partCache:  partCache,
		entryCache: entryCache,
		integrity:  integrity,
	}, nil
}

// Mount opens the zip archive at diskPath and returns its root handler,
// lazily initialized on first navigation.
func (e *Engine) Mount(diskPath string) (VirtualFileHandler, error) {
	source := NewFileSource(diskPath, fileSourceOptions{
		reaperEnabled: !e.opts.NoReaper,
		reaperGrace:   e.opts.ReaperGrace,
		cache:         e.partCache,
		entryCache:    e.entryCache,
		integrity:     e.integrity,
	})
	ctx := NewArchiveContext(diskPath, source, "", e.opts, e.global, e.tempStore, e.logger, e.metrics).
		WithCaches(e.partCache, e.entryCache, e.integrity)
	return ctx.RootHandler(), nil
}

// Resolve opens whatever archive (possibly nested, possibly not yet
// extracted anywhere) addresses fullPath, via PartialPathSearch. fullPath may
// be a plain disk path or a jar:/zip:/vfszip: addressed URL (spec.md §6);
// it is normalized to a disk path before the partial-path walk.
func (e *Engine) Resolve(fullPath string) (VirtualFileHandler, error) {
	diskPath := strings.TrimPrefix(NormalizeArchiveURL(fullPath), vfszipScheme)
	source, rootEntryPath, err := ResolvePartialPath(diskPath)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.IncPartialPathResolutions()
	}
	ctx := NewArchiveContext(fullPath, source, rootEntryPath, e.opts, e.global, e.tempStore, e.logger, e.metrics).
		WithCaches(e.partCache, e.entryCache, e.integrity)
	return ctx.RootHandler(), nil
}
