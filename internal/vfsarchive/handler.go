package vfsarchive

import (
	"io"
	"time"
)

// VirtualFileHandler is the unit of navigation a caller walks: every path
// inside a mounted archive, including the archive's own root and every
// nested archive's root, resolves to one of these.
type VirtualFileHandler interface {
	// Name is the handler's simple (single-component) file name. The
	// root handler's name is its owning archive's display name.
	Name() string

	// LocalPathName is the handler's path relative to its owning
	// ArchiveContext's root.
	LocalPathName() string

	// Parent returns the enclosing handler within the same context, or nil
	// for any context root (a nested mount's root included; the delegating
	// handler that replaces it in the outer tree carries the outer parent).
	Parent() VirtualFileHandler

	// IsLeaf reports whether the handler addresses a file (true) or a
	// directory (false).
	IsLeaf() (bool, error)

	// Exists reports whether the handler's target is still present.
	Exists() (bool, error)

	// Size returns the uncompressed byte size of a leaf handler, the size
	// of the backing archive for a context root, and 0 for other
	// directories.
	Size() (int64, error)

	// LastModified returns the handler's modification time.
	LastModified() (time.Time, error)

	// GetChild resolves a single path component under this handler. It
	// returns (nil, nil) if no such child exists.
	GetChild(name string) (VirtualFileHandler, error)

	// GetChildren lists every direct child of this handler. ignoreErrors
	// suppresses an initialization failure and returns whatever children
	// are already indexed (none, if the index was never built) instead of
	// propagating the error; a failed re-initialization after a detected
	// modification is never propagated either way.
	GetChildren(ignoreErrors bool) ([]VirtualFileHandler, error)

	// OpenStream opens the handler's content for reading. A context root
	// returns the raw bytes of its backing archive; other directories
	// return an empty reader.
	OpenStream() (io.ReadCloser, error)

	// Cleanup releases the backing resources of the handler's owning
	// context. Meaningful only on a root handler: it releases the
	// context's ZipSource and, if the context's AutoClean option is set,
	// deletes the source's backing file after its configured grace
	// period.
	Cleanup() error
}

// handlerKind distinguishes the two concrete shapes a handler can take:
// a direct node of its own ArchiveContext's entry tree, or a delegator
// whose children/content come from a mounted sub-context while its own
// identity (name, parent, local path) belongs to the outer tree.
type handlerKind int

const (
	kindEntry handlerKind = iota
	kindDelegating
)

// handler is the concrete VirtualFileHandler implementation. Exactly one of
// (ctx+rawEntry) or delegate is meaningful, selected by kind.
type handler struct {
	kind   handlerKind
	ctx    *ArchiveContext
	parent VirtualFileHandler
	name   string
	local  string // local path within ctx

	// kindEntry fields
	isLeaf   bool
	rawEntry *rawEntry // nil for the root and for dummy directories

	// kindDelegating fields
	delegate VirtualFileHandler
}

func (h *handler) Name() string             { return h.name }
func (h *handler) LocalPathName() string    { return h.local }
func (h *handler) Parent() VirtualFileHandler { return h.parent }

func (h *handler) isRoot() bool { return h.local == "" }

func (h *handler) IsLeaf() (bool, error) {
	if h.kind == kindDelegating {
		return h.delegate.IsLeaf()
	}
	if h.isRoot() {
		return false, nil
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return false, err
	}
	return h.isLeaf, nil
}

func (h *handler) Exists() (bool, error) {
	if h.kind == kindDelegating {
		return h.delegate.Exists()
	}
	if h.isRoot() {
		return h.ctx.source.Exists(), nil
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return false, err
	}
	_, ok := h.ctx.index.Load().get(h.local)
	return ok, nil
}

func (h *handler) Size() (int64, error) {
	if h.kind == kindDelegating {
		return h.delegate.Size()
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return 0, err
	}
	if h.isRoot() {
		return h.ctx.source.Size(), nil
	}
	if h.rawEntry == nil {
		return 0, nil
	}
	return h.rawEntry.Size, nil
}

func (h *handler) LastModified() (time.Time, error) {
	if h.kind == kindDelegating {
		return h.delegate.LastModified()
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return time.Time{}, err
	}
	if h.isRoot() || h.rawEntry == nil {
		return h.ctx.source.LastModified(), nil
	}
	return h.rawEntry.ModTime, nil
}

func (h *handler) GetChild(name string) (VirtualFileHandler, error) {
	if h.kind == kindDelegating {
		return h.delegate.GetChild(name)
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return nil, err
	}
	return h.ctx.getChild(h, name)
}

func (h *handler) GetChildren(ignoreErrors bool) ([]VirtualFileHandler, error) {
	if h.kind == kindDelegating {
		return h.delegate.GetChildren(ignoreErrors)
	}
	if err := h.ctx.checkIfModified(); err != nil {
		if ignoreErrors {
			return h.ctx.getChildrenBestEffort(h), nil
		}
		return nil, err
	}
	return h.ctx.getChildren(h)
}

func (h *handler) OpenStream() (io.ReadCloser, error) {
	if h.kind == kindDelegating {
		return h.delegate.OpenStream()
	}
	if err := h.ctx.checkIfModified(); err != nil {
		return nil, err
	}
	return h.ctx.openStream(h)
}

func (h *handler) Cleanup() error {
	if h.kind == kindDelegating {
		return h.delegate.Cleanup()
	}
	if !h.isRoot() {
		return nil
	}
	return h.ctx.cleanup()
}
