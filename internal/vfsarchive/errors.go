package vfsarchive

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers classify a returned error with errors.Is
// against one of these; wrapping is done with wrapf, which produces
// fmt.Errorf("%w: ...", kind, ...) at the point of detection, so the
// underlying cause's message survives alongside the kind.
var (
	// ErrBadArgument indicates a caller supplied a malformed or
	// out-of-domain argument (an empty path, a path escaping its context,
	// a nil source).
	ErrBadArgument = errors.New("vfsarchive: bad argument")

	// ErrNotFound indicates a lookup found no entry at the requested path.
	ErrNotFound = errors.New("vfsarchive: not found")

	// ErrArchiveFormat indicates the backing bytes are not a well-formed
	// zip archive (bad central directory, truncated stream).
	ErrArchiveFormat = errors.New("vfsarchive: archive format error")

	// ErrBackingIO indicates an I/O failure against the archive's backing
	// store (the on-disk file, or the stream it was read from).
	ErrBackingIO = errors.New("vfsarchive: backing I/O error")

	// ErrTempIO indicates an I/O failure while extracting a nested archive
	// to, or reading it back from, the temp directory.
	ErrTempIO = errors.New("vfsarchive: temp I/O error")

	// ErrStateInvariant indicates an internal invariant was violated (an
	// init transition observed from an unexpected state, a handler used
	// after its owning context was torn down). Seeing this is always a
	// bug, never a caller mistake.
	ErrStateInvariant = errors.New("vfsarchive: state invariant violated")
)

// wrapf wraps a sentinel kind with a formatted detail message, preserving
// errors.Is(err, kind).
func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)
}
