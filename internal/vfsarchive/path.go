package vfsarchive

import "strings"

// splitParentChild splits a local, slash-separated, already-normalized path
// into its parent directory path and its final component. The root path ""
// has no parent: splitParentChild("") returns ("", "", false).
//
// Index keys are built without a leading or trailing '/'. normalizePath
// produces that form from a caller-supplied path, but lookups do not call
// it. A path with no '/' is a direct child of root.
func splitParentChild(localPath string) (parent, child string, ok bool) {
	if localPath == "" {
		return "", "", false
	}
	if i := strings.LastIndexByte(localPath, '/'); i >= 0 {
		return localPath[:i], localPath[i+1:], true
	}
	return "", localPath, true
}

// normalizePath trims a leading/trailing '/' and collapses the root forms
// ("", "/", ".") to "". It rejects ".." segments and empty segments
// (produced by "//") as bad arguments -- this engine never needs to resolve
// relative traversal, since every path is already relative to an
// ArchiveContext's own root.
func normalizePath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return "", nil
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" || s == "." {
			return "", wrapf(ErrBadArgument, "path %q contains an empty segment", p)
		}
		if s == ".." {
			return "", wrapf(ErrBadArgument, "path %q contains a parent-traversal segment", p)
		}
	}
	return strings.Join(segs, "/"), nil
}

// joinLocal joins a parent local path and a simple child name into a single
// local path, root-aware.
func joinLocal(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// hasPrefixPath reports whether localPath is equal to prefix, or is nested
// beneath it (prefix followed by '/').
func hasPrefixPath(localPath, prefix string) bool {
	if prefix == "" {
		return true
	}
	if localPath == prefix {
		return true
	}
	return strings.HasPrefix(localPath, prefix+"/")
}

// trimPrefixPath strips prefix and the following '/' from localPath. Callers
// must have already established hasPrefixPath(localPath, prefix).
func trimPrefixPath(localPath, prefix string) string {
	if prefix == "" {
		return localPath
	}
	if localPath == prefix {
		return ""
	}
	return localPath[len(prefix)+1:]
}

// baseName returns the final path component of a local path.
func baseName(localPath string) string {
	_, child, ok := splitParentChild(localPath)
	if !ok {
		return ""
	}
	return child
}
