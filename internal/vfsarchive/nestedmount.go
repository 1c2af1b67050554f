package vfsarchive

import (
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// mountNested builds a DelegatingHandler over a fresh ArchiveContext for
// the nested-archive entry described by info, following the effective
// UseCopy policy. On any failure it logs (and, if set, invokes
// opts.ExceptionHandler), then returns nil so the caller falls back to
// exposing the entry as a plain leaf instead of recursing into it
// (spec.md design notes on nested-mount failure).
func (c *ArchiveContext) mountNested(info *EntryInfo, parent VirtualFileHandler, name string) *handler {
	source, autoClean, err := c.buildNestedSource(info, name)
	if err != nil {
		c.reportNestedMountError(err, name)
		return nil
	}

	sub := NewArchiveContext(info.localPath, source, "", c.opts, c.global, c.tempStore, c.logger, c.metrics).
		WithCaches(c.partCache, c.entryCache, c.integrity)
	sub.opts.AutoClean = autoClean

	dh := &handler{
		kind:   kindDelegating,
		ctx:    c,
		parent: parent,
		name:   name,
		local:  info.localPath,
	}
	sub.peer = dh
	dh.delegate = sub.RootHandler()

	if c.metrics != nil {
		mode := "stream"
		if autoClean {
			mode = "copy"
		}
		c.metrics.IncNestedMounts(mode)
	}

	return dh
}

func (c *ArchiveContext) reportNestedMountError(err error, name string) {
	if c.logger != nil {
		c.logger.Warn("nested mount failed, exposing as plain leaf", "name", name, "err", err)
	}
	if c.metrics != nil {
		c.metrics.IncErrors("nested_mount")
	}
	if c.opts.ExceptionHandler != nil {
		c.opts.ExceptionHandler(err, name)
	}
}

// buildNestedSource produces the ZipSource for a nested archive entry,
// either by extracting it to a temp file (useCopy) or by fully inflating it
// into memory (no-copy). It returns whether the resulting context owns a
// temp file that should be cleaned up when released.
func (c *ArchiveContext) buildNestedSource(info *EntryInfo, name string) (ZipSource, bool, error) {
	useCopy := c.opts.UseCopy
	if useCopy && c.tempStore != nil {
		path, err := c.tempStore.ExtractOnce(info.localPath, name, func() (io.ReadCloser, error) {
			return c.openRawEntry(info)
		})
		if err != nil {
			return nil, false, err
		}
		return NewFileSource(path, fileSourceOptions{
			reaperEnabled: !c.opts.NoReaper,
			reaperGrace:   c.opts.ReaperGrace,
			cache:         c.partCache,
			entryCache:    c.entryCache,
			integrity:     c.integrity,
		}), true, nil
	}

	rc, err := c.openRawEntry(info)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	buf, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, wrapf(ErrBackingIO, "inflate nested archive %q: %v", name, err)
	}
	if c.logger != nil {
		c.logger.Debug("inflated nested archive", "name", name, "size", humanize.Bytes(uint64(len(buf))))
	}

	source, err := NewStreamSource(name, buf, info.rawEntry.ModTime)
	if err != nil {
		return nil, false, err
	}
	return source, false, nil
}

func (c *ArchiveContext) openRawEntry(info *EntryInfo) (io.ReadCloser, error) {
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

// tempPathPrefix builds a filesystem-safe temp file name for an extracted
// nested archive entry, combining a random prefix with the entry's own base
// name for readability during debugging.
func tempPathPrefix(dir, randomPrefix, entryLocalPath string) string {
	return filepath.Join(dir, randomPrefix+"-"+filepath.Base(entryLocalPath))
}
