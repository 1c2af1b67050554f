package vfsarchive

import "strings"

const vfszipScheme = "vfszip:"

// NormalizeArchiveURL rewrites jar:/zip:-style addressing into this
// engine's canonical vfszip: form, stripping the '!' entry separator and
// the wrapped-scheme prefix (spec.md §6). "jar:file:/a/b.jar!/c/d" and
// "zip:/a/b.jar!/c/d" both become "vfszip:/a/b.jar/c/d".
func NormalizeArchiveURL(raw string) string {
	u := raw

	if rest, ok := strings.CutPrefix(u, "jar:"); ok {
		u = rest
	} else if rest, ok := strings.CutPrefix(u, "zip:"); ok {
		u = rest
	} else if strings.HasPrefix(u, vfszipScheme) {
		return u
	}

	u = strings.TrimPrefix(u, "file:")
	u = strings.ReplaceAll(u, "!/", "/")
	u = strings.ReplaceAll(u, "!", "/")

	return vfszipScheme + u
}

// RealURL composes a sub-context's display URL from its peer's URL and its
// own archive name, used by DelegatingHandler.Name()/Parent() callers that
// want a fully-qualified address rather than just a simple name.
func RealURL(peerURL, archiveName string) string {
	if peerURL == "" {
		return vfszipScheme + archiveName
	}
	return peerURL + "/" + archiveName
}
