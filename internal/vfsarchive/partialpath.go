package vfsarchive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResolvePartialPath resolves a full on-disk path that addresses content
// inside one or more not-yet-mounted nested archives. It walks up fullPath
// looking for the nearest existing regular file, then repeatedly decodes
// and longest-prefix-matches the remaining path segments against each
// archive level in turn, buffering each level fully into memory so the
// (non-seekable) recursion can always restart a fresh zip.Reader over the
// next level (spec.md §4.5).
//
// On success it returns a ZipSource and the rootEntryPath an
// ArchiveContext should be constructed with to expose exactly the matched
// target.
func ResolvePartialPath(fullPath string) (ZipSource, string, error) {
	diskPath, remaining, err := splitExistingFile(fullPath)
	if err != nil {
		return nil, "", err
	}

	buf, err := os.ReadFile(diskPath)
	if err != nil {
		return nil, "", wrapf(ErrBackingIO, "read %q: %v", diskPath, err)
	}

	return resolveWithinBuffer(diskPath, buf, remaining)
}

// splitExistingFile walks fullPath's ancestors (innermost first) until it
// finds a regular file on disk, returning that file's path and the
// remaining path suffix addressed inside it.
func splitExistingFile(fullPath string) (diskPath, remaining string, err error) {
	cur := filepath.Clean(fullPath)
	var suffix []string

	for {
		fi, statErr := os.Stat(cur)
		if statErr == nil && !fi.IsDir() {
			return cur, strings.Join(suffix, "/"), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", "", wrapf(ErrNotFound, "no existing file found along %q", fullPath)
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)
		cur = parent
	}
}

// resolveWithinBuffer performs the recursive longest-prefix-match search
// described by spec.md §4.5 over a single decoded archive buffer.
func resolveWithinBuffer(name string, buf []byte, remaining string) (ZipSource, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, "", wrapf(ErrArchiveFormat, "decode %q: %v", name, err)
	}

	if remaining == "" {
		src, err := NewStreamSource(name, buf, latestModTime(zr))
		return src, "", err
	}

	matched, matchedFile := longestPrefixMatch(zr, remaining)
	if matched == "" {
		return nil, "", wrapf(ErrNotFound, "no entry under %q matches %q", name, remaining)
	}

	if matched == remaining {
		switch {
		case matchedFile.FileInfo().IsDir():
			// A directory entry has no independent buffer of its own: expose
			// it as a StreamSource over the enclosing archive's buffer,
			// scoped to this path, so GetChildren still works on it (plain
			// DirSource cannot enumerate children).
			src, err := NewStreamSource(name, buf, matchedFile.Modified)
			if err != nil {
				return nil, "", err
			}
			return src, matched, nil
		case isNestedArchiveName(matchedFile.Name):
			data, err := readZipFile(matchedFile)
			if err != nil {
				return nil, "", err
			}
			return resolveWithinBuffer(matchedFile.Name, data, "")
		default:
			data, err := readZipFile(matchedFile)
			if err != nil {
				return nil, "", err
			}
			return newZipEntryWrapper(matchedFile.Name, data, matchedFile.Modified), "", nil
		}
	}

	data, err := readZipFile(matchedFile)
	if err != nil {
		return nil, "", err
	}
	return resolveWithinBuffer(matchedFile.Name, data, remaining[len(matched)+1:])
}

// longestPrefixMatch finds the zip entry whose name, with a trailing slash
// trimmed, is the longest prefix of remaining (or exactly equal to it).
func longestPrefixMatch(zr *zip.Reader, remaining string) (string, *zip.File) {
	var best string
	var bestFile *zip.File
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		if name == remaining || hasPrefixPath(remaining, name) {
			if len(name) > len(best) {
				best = name
				bestFile = f
			}
		}
	}
	return best, bestFile
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, wrapf(ErrArchiveFormat, "open entry %q: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapf(ErrBackingIO, "read entry %q: %v", f.Name, err)
	}
	return data, nil
}

func latestModTime(zr *zip.Reader) time.Time {
	var latest time.Time
	for _, f := range zr.File {
		if f.Modified.After(latest) {
			latest = f.Modified
		}
	}
	return latest
}
