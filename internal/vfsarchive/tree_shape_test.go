package vfsarchive

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// treeShape walks h's children, recursing into every non-leaf child, and
// returns the sorted list of their '/'-prefixed paths relative to h
// (directories with a trailing '/') as a flattened view of the reconciled
// tree shape.
func treeShape(t *testing.T, h VirtualFileHandler) []string {
	t.Helper()
	var out []string
	var walk func(VirtualFileHandler, string)
	walk = func(h VirtualFileHandler, prefix string) {
		children, err := h.GetChildren(false)
		if err != nil {
			t.Fatalf("GetChildren(%q): %v", prefix, err)
		}
		for _, c := range children {
			p := prefix + "/" + c.Name()
			isLeaf, err := c.IsLeaf()
			if err != nil {
				t.Fatalf("IsLeaf(%q): %v", p, err)
			}
			if isLeaf {
				out = append(out, p)
				continue
			}
			out = append(out, p+"/")
			walk(c, p)
		}
	}
	walk(h, "")
	sort.Strings(out)
	return out
}

func TestReconciledTreeShapeMatchesExpectedLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	writeZipFile(t, path, map[string][]byte{
		"a/b/c.txt": []byte("x"),
		"a/d.txt":   []byte("y"),
		"e.txt":     []byte("z"),
	})

	ctx := newTestContext(t, path, DefaultOptions())
	got := treeShape(t, ctx.RootHandler())

	want := []string{
		"/a/",
		"/a/b/",
		"/a/b/c.txt",
		"/a/d.txt",
		"/e.txt",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reconciled tree shape mismatch (-want +got):\n%s", diff)
	}
}
