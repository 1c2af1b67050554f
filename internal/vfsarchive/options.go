package vfsarchive

import "time"

// Options configures a single ArchiveContext (and, transitively, every
// nested context it mounts that does not set its own).
type Options struct {
	// UseCopy selects the nested-mount policy: true extracts nested
	// archives to a temp file and mounts a FileSource over it; false
	// inflates the entry fully into memory and mounts a StreamSource.
	// Overridden process-wide by GlobalConfig.ForceCopy.
	UseCopy bool

	// NoReaper disables the background descriptor reaper for FileSources
	// this context creates, closing idle descriptors synchronously
	// instead. Overridden process-wide by GlobalConfig.ForceNoReaper.
	NoReaper bool

	// CaseSensitive controls whether path lookups are case-sensitive.
	// Overridden process-wide by GlobalConfig.ForceCaseSensitive.
	CaseSensitive bool

	// ReaperGrace is the idle grace period before the reaper closes a
	// FileSource's descriptor.
	ReaperGrace time.Duration

	// AutoClean marks a context as owning an extracted temp file (set
	// automatically by mountNested when UseCopy is in effect). Read by
	// ArchiveContext.cleanup: when true, cleanup deletes the context's
	// ZipSource backing file after ReaperGrace. Independently of cleanup,
	// TempStore's own LRU eviction can also delete the same file earlier
	// if the store fills up before cleanup is ever called; see DESIGN.md.
	AutoClean bool

	// ExceptionHandler, if set, is invoked whenever a nested mount fails
	// and falls back to exposing the entry as a plain leaf instead of
	// recursing into it.
	ExceptionHandler func(err error, archiveName string)
}

// DefaultOptions returns the engine's baseline options.
func DefaultOptions() Options {
	return Options{
		UseCopy:       false,
		NoReaper:      false,
		CaseSensitive: true,
		ReaperGrace:   30 * time.Second,
		AutoClean:     false,
	}
}

// GlobalConfig holds process-wide overrides (spec's "force" flags),
// snapshotted once at process start and read without locking thereafter --
// mirroring the jboss.vfs.force* system properties this engine is modeled
// on, which are likewise read-only after JVM startup.
type GlobalConfig struct {
	ForceCopy         bool
	ForceNoReaper     bool
	ForceCaseSensitive bool
	ForceVfsJar       bool // recognized, has no effect; see DESIGN.md
}

// effective merges process-wide overrides into a context's own Options,
// producing the options actually used for this context's lifetime.
func (g *GlobalConfig) effective(o Options) Options {
	if g == nil {
		return o
	}
	if g.ForceCopy {
		o.UseCopy = true
	}
	if g.ForceNoReaper {
		o.NoReaper = true
	}
	if g.ForceCaseSensitive {
		o.CaseSensitive = true
	}
	return o
}
