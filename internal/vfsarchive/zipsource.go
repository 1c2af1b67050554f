package vfsarchive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path"
	"strings"
	"time"
)

// rawEntry is the enumerate()/openEntry() unit every ZipSource variant
// works in terms of. Name is the entry's full path within its archive
// (never stripped to an ArchiveContext's rootEntryPath -- that stripping is
// ArchiveContext.initEntries's job). zf is nil for synthetic entries
// (DirSource's single directory, zipEntryWrapper's single leaf).
type rawEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	zf      *zip.File
}

// ZipSource abstracts the backing store an ArchiveContext indexes: a real
// file opened for random access, a one-shot in-memory buffer decoded from a
// parent archive's entry stream, or a synthetic single-directory
// placeholder.
type ZipSource interface {
	// Acquire reserves the source for use, opening backing descriptors as
	// needed. Paired with Release. Acquire/Release may be called many
	// times and must be reentrant per caller (refcounted).
	Acquire() error
	Release()

	// Enumerate lists every entry this source can see, full archive-
	// relative names (not stripped to any rootEntryPath).
	Enumerate() ([]rawEntry, error)

	// OpenEntry opens a reader for one entry previously returned by
	// Enumerate.
	OpenEntry(e rawEntry) (io.ReadCloser, error)

	// RootAsStream opens a reader over the whole archive's raw bytes,
	// used when a caller asks to read the context's root as a file
	// (rare, but legal: "read this jar as a plain file").
	RootAsStream() (io.ReadCloser, error)

	// Name is a human-readable identifier for error messages and logs
	// (the on-disk path, or a synthesized name for in-memory sources).
	Name() string

	// Size is the full backing byte size, used for LastModified/Size
	// queries against the context root.
	Size() int64

	// LastModified is the backing store's modification time as observed
	// at last (re)index.
	LastModified() time.Time

	// HasBeenModified reports whether the backing store has changed since
	// LastModified/Size were captured. Sources with no independent
	// backing timeline (StreamSource, DirSource, zipEntryWrapper) always
	// report false: a nested, already-materialized buffer never changes
	// out from under its owning context.
	HasBeenModified() bool

	// Exists reports whether the backing store is still present. A
	// FileSource whose file has been deleted reports false.
	Exists() bool

	// Delete removes the backing store after an optional grace period,
	// used for cleaning up extracted temp files. No-op for sources with
	// no owned backing file.
	Delete(grace time.Duration) error
}

var nestedArchiveExtensions = []string{".zip", ".jar", ".war", ".ear", ".sar", ".rar"}

// isNestedArchiveName reports whether an entry name's extension marks it as
// an archive eligible for recursive mounting.
func isNestedArchiveName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range nestedArchiveExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// --- StreamSource ---------------------------------------------------------

// StreamSource is a one-shot ZipSource decoded from an in-memory buffer,
// typically the fully-drained, inflated bytes of a nested archive entry.
// Acquire/Release are no-ops: the buffer lives as long as the ZipSource
// itself and is never reopened from any external handle.
type StreamSource struct {
	name    string
	buf     []byte
	modTime time.Time
	zr      *zip.Reader
}

// NewStreamSource decodes buf as a zip archive held entirely in memory.
func NewStreamSource(name string, buf []byte, modTime time.Time) (*StreamSource, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, wrapf(ErrArchiveFormat, "decode nested archive %q: %v", name, err)
	}
	return &StreamSource{name: name, buf: buf, modTime: modTime, zr: zr}, nil
}

func (s *StreamSource) Acquire() error { return nil }
func (s *StreamSource) Release()       {}

func (s *StreamSource) Enumerate() ([]rawEntry, error) {
	out := make([]rawEntry, 0, len(s.zr.File))
	for _, f := range s.zr.File {
		out = append(out, rawEntry{
			Name:    f.Name,
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
			IsDir:   f.FileInfo().IsDir(),
			zf:      f,
		})
	}
	return out, nil
}

func (s *StreamSource) OpenEntry(e rawEntry) (io.ReadCloser, error) {
	if e.zf == nil {
		return nil, wrapf(ErrStateInvariant, "stream source entry %q has no backing zip.File", e.Name)
	}
	rc, err := e.zf.Open()
	if err != nil {
		return nil, wrapf(ErrArchiveFormat, "open entry %q: %v", e.Name, err)
	}
	return rc, nil
}

func (s *StreamSource) RootAsStream() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.buf)), nil
}

func (s *StreamSource) Name() string             { return s.name }
func (s *StreamSource) Size() int64              { return int64(len(s.buf)) }
func (s *StreamSource) LastModified() time.Time  { return s.modTime }
func (s *StreamSource) HasBeenModified() bool    { return false }
func (s *StreamSource) Exists() bool             { return true }
func (s *StreamSource) Delete(time.Duration) error { return nil }

// --- zipEntryWrapper -------------------------------------------------------

// zipEntryWrapper is a single-entry ZipSource wrapping one already-buffered
// plain (non-directory, non-archive) leaf, returned by PartialPathSearch
// when the target itself is an ordinary file.
type zipEntryWrapper struct {
	name    string
	data    []byte
	modTime time.Time
}

func newZipEntryWrapper(name string, data []byte, modTime time.Time) *zipEntryWrapper {
	return &zipEntryWrapper{name: name, data: data, modTime: modTime}
}

func (w *zipEntryWrapper) Acquire() error { return nil }
func (w *zipEntryWrapper) Release()       {}

func (w *zipEntryWrapper) Enumerate() ([]rawEntry, error) {
	return []rawEntry{{Name: "", Size: int64(len(w.data)), ModTime: w.modTime, IsDir: false}}, nil
}

func (w *zipEntryWrapper) OpenEntry(rawEntry) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(w.data)), nil
}

func (w *zipEntryWrapper) RootAsStream() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(w.data)), nil
}

func (w *zipEntryWrapper) Name() string             { return w.name }
func (w *zipEntryWrapper) Size() int64              { return int64(len(w.data)) }
func (w *zipEntryWrapper) LastModified() time.Time  { return w.modTime }
func (w *zipEntryWrapper) HasBeenModified() bool    { return false }
func (w *zipEntryWrapper) Exists() bool             { return true }
func (w *zipEntryWrapper) Delete(time.Duration) error { return nil }

// --- DirSource --------------------------------------------------------------

// DirSource is a minimal synthetic ZipSource exposing a single directory
// entry with no enumerable children of its own -- the degenerate case in
// ZipSource's capability table, used when nothing richer is available to
// back a "this path is a directory" result.
type DirSource struct {
	name    string
	modTime time.Time
}

func NewDirSource(name string, modTime time.Time) *DirSource {
	return &DirSource{name: name, modTime: modTime}
}

func (d *DirSource) Acquire() error { return nil }
func (d *DirSource) Release()       {}

func (d *DirSource) Enumerate() ([]rawEntry, error) {
	return []rawEntry{{Name: "", IsDir: true, ModTime: d.modTime}}, nil
}

func (d *DirSource) OpenEntry(rawEntry) (io.ReadCloser, error) {
	return nil, wrapf(ErrBadArgument, "cannot open entry %q: directory source has no content", d.name)
}

func (d *DirSource) RootAsStream() (io.ReadCloser, error) {
	return nil, wrapf(ErrBadArgument, "cannot stream directory source %q", d.name)
}

func (d *DirSource) Name() string             { return d.name }
func (d *DirSource) Size() int64              { return 0 }
func (d *DirSource) LastModified() time.Time  { return d.modTime }
func (d *DirSource) HasBeenModified() bool    { return false }
func (d *DirSource) Exists() bool             { return true }
func (d *DirSource) Delete(time.Duration) error { return nil }

// --- FileSource --------------------------------------------------------------

// FileSource is a ZipSource backed by a real on-disk zip file, opened for
// random access and shared across concurrent callers via refcounted
// Acquire/Release. Idle descriptors are closed either immediately
// (reaperEnabled == false) or after a grace period by the package-level
// reaper.
type FileSource struct {
	path string
	opts fileSourceOptions

	mu       chan struct{} // 1-buffered mutex; lets Acquire/Release stay allocation-free
	refCount int32
	rc       *zip.ReadCloser
	fi       os.FileInfo // captured at last successful open, used for HasBeenModified

	closing bool
}

type fileSourceOptions struct {
	reaperEnabled bool
	reaperGrace   time.Duration
	cache         *ZipPartCache      // optional, shared central-directory cache
	entryCache    *EntryContentCache // optional, shared decompressed-content cache
	integrity     *ZipIntegrityCache // optional, shared structural-integrity cache
}

// NewFileSource constructs a FileSource over an on-disk zip file. The file
// is not opened until the first Acquire.
func NewFileSource(path string, opts fileSourceOptions) *FileSource {
	return &FileSource{path: path, opts: opts, mu: make(chan struct{}, 1)}
}

func (f *FileSource) lock()   { f.mu <- struct{}{} }
func (f *FileSource) unlock() { <-f.mu }

func (f *FileSource) Acquire() error {
	f.lock()
	defer f.unlock()

	globalReaper.cancel(f)

	if f.rc != nil {
		f.refCount++
		return nil
	}

	fi, err := os.Stat(f.path)
	if err != nil {
		return wrapf(ErrBackingIO, "stat %q: %v", f.path, err)
	}

	if f.fi != nil && (fi.Size() != f.fi.Size() || !fi.ModTime().Equal(f.fi.ModTime())) {
		f.opts.cache.Remove(f.path)
		f.opts.entryCache.Invalidate(f.path)
	}

	if f.opts.integrity != nil {
		if err := f.opts.integrity.Check(f.path); err != nil {
			return err
		}
	}

	var rc *zip.ReadCloser
	if f.opts.cache != nil {
		entry, err := f.opts.cache.Get(f.path)
		if err != nil {
			return wrapf(ErrArchiveFormat, "open %q: %v", f.path, err)
		}
		rc = entry.reader
	} else {
		rc, err = zip.OpenReader(f.path)
		if err != nil {
			if f.opts.integrity != nil {
				f.opts.integrity.InvalidatePassed(f.path)
			}
			return wrapf(ErrArchiveFormat, "open %q: %v", f.path, err)
		}
	}

	f.rc = rc
	f.fi = fi
	f.refCount = 1
	return nil
}

func (f *FileSource) Release() {
	f.lock()
	defer f.unlock()

	f.refCount--
	if f.refCount > 0 {
		return
	}
	if f.opts.reaperEnabled {
		globalReaper.schedule(f, f.opts.reaperGrace)
		return
	}
	f.closeLocked()
}

// closeLocked closes the underlying reader. Caller holds f.mu. If the
// reader came from a shared ZipPartCache, it is owned by the cache and must
// not be closed here -- the cache closes it on eviction.
func (f *FileSource) closeLocked() {
	if f.rc == nil {
		return
	}
	if f.opts.cache == nil {
		_ = f.rc.Close()
	}
	f.rc = nil
}

// closeIfIdle is called by the package reaper once a file's grace period
// has elapsed. It only closes if the refcount is still zero.
func (f *FileSource) closeIfIdle() {
	f.lock()
	defer f.unlock()
	if f.refCount == 0 {
		f.closeLocked()
	}
}

func (f *FileSource) withReader(fn func(*zip.Reader) error) error {
	f.lock()
	rc := f.rc
	f.unlock()
	if rc == nil {
		return wrapf(ErrStateInvariant, "file source %q used without Acquire", f.path)
	}
	return fn(&rc.Reader)
}

func (f *FileSource) Enumerate() ([]rawEntry, error) {
	var out []rawEntry
	err := f.withReader(func(zr *zip.Reader) error {
		out = make([]rawEntry, 0, len(zr.File))
		for _, zf := range zr.File {
			out = append(out, rawEntry{
				Name:    zf.Name,
				Size:    int64(zf.UncompressedSize64),
				ModTime: zf.Modified,
				IsDir:   zf.FileInfo().IsDir(),
				zf:      zf,
			})
		}
		return nil
	})
	return out, err
}

func (f *FileSource) OpenEntry(e rawEntry) (io.ReadCloser, error) {
	if e.zf == nil {
		return nil, wrapf(ErrStateInvariant, "file source entry %q has no backing zip.File", e.Name)
	}
	if f.opts.entryCache != nil {
		if data, ok := f.opts.entryCache.Get(f.path, e.Name); ok {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	rc, err := e.zf.Open()
	if err != nil {
		return nil, wrapf(ErrArchiveFormat, "open entry %q in %q: %v", e.Name, f.path, err)
	}
	if f.opts.entryCache == nil {
		return rc, nil
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, wrapf(ErrBackingIO, "read entry %q in %q: %v", e.Name, f.path, err)
	}
	f.opts.entryCache.Put(f.path, e.Name, data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *FileSource) RootAsStream() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, wrapf(ErrBackingIO, "open %q: %v", f.path, err)
	}
	return file, nil
}

func (f *FileSource) Name() string { return f.path }

func (f *FileSource) Size() int64 {
	f.lock()
	defer f.unlock()
	if f.fi == nil {
		return 0
	}
	return f.fi.Size()
}

func (f *FileSource) LastModified() time.Time {
	f.lock()
	defer f.unlock()
	if f.fi == nil {
		return time.Time{}
	}
	return f.fi.ModTime()
}

func (f *FileSource) HasBeenModified() bool {
	f.lock()
	cached := f.fi
	f.unlock()
	if cached == nil {
		return false
	}
	fi, err := os.Stat(f.path)
	if err != nil {
		return true
	}
	return fi.Size() != cached.Size() || !fi.ModTime().Equal(cached.ModTime())
}

func (f *FileSource) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *FileSource) Delete(grace time.Duration) error {
	if f.opts.cache != nil {
		f.opts.cache.Remove(f.path)
	}
	if grace <= 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return wrapf(ErrTempIO, "remove %q: %v", f.path, err)
		}
		return nil
	}
	time.AfterFunc(grace, func() { _ = os.Remove(f.path) })
	return nil
}
