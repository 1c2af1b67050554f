package vfsarchive

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := configFromMap(map[string]string{
		"VFSARCHIVE_TEMP_DIR": t.TempDir(),
	})
	if err != nil {
		t.Fatalf("configFromMap: %v", err)
	}
	e, err := NewEngine(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineMountNavigatesAndStreams(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	writeZipFile(t, path, map[string][]byte{"a/b.txt": []byte("hello")})

	e := newTestEngine(t)
	root, err := e.Mount(path)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	a, err := root.GetChild("a")
	if err != nil || a == nil {
		t.Fatalf("GetChild(a) = (%v, %v)", a, err)
	}
	b, err := a.GetChild("b.txt")
	if err != nil || b == nil {
		t.Fatalf("GetChild(b.txt) = (%v, %v)", b, err)
	}

	rc, err := b.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("content = %q, want hello", data)
	}
}

func TestEngineResolveCrossesIntoNestedArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	innerPath := filepath.Join(dir, "inner-scratch.jar")
	writeZipFile(t, innerPath, map[string][]byte{"com/example/Util.class": []byte("classbytes")})
	innerBuf, err := os.ReadFile(innerPath)
	if err != nil {
		t.Fatalf("read scratch inner jar: %v", err)
	}

	outerPath := filepath.Join(dir, "app.war")
	writeZipFile(t, outerPath, map[string][]byte{"WEB-INF/lib/util.jar": innerBuf})

	e := newTestEngine(t)
	h, err := e.Resolve(filepath.Join(outerPath, "WEB-INF", "lib", "util.jar", "com", "example", "Util.class"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rc, err := h.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "classbytes" {
		t.Fatalf("content = %q, want classbytes", data)
	}
}

func TestEngineResolveAcceptsJarFileURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	innerPath := filepath.Join(dir, "inner-scratch.jar")
	writeZipFile(t, innerPath, map[string][]byte{"a/b.txt": []byte("hello")})
	innerBuf, err := os.ReadFile(innerPath)
	if err != nil {
		t.Fatalf("read scratch inner jar: %v", err)
	}

	outerPath := filepath.Join(dir, "outer.jar")
	writeZipFile(t, outerPath, map[string][]byte{"lib/inner.jar": innerBuf})

	e := newTestEngine(t)
	url := "jar:file:" + outerPath + "!/lib/inner.jar!/a/b.txt"
	h, err := e.Resolve(url)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", url, err)
	}

	rc, err := h.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("content = %q, want hello", data)
	}
}

func TestEngineResolveDirectOnDiskFileNoNestedArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	writeZipFile(t, path, map[string][]byte{"a.txt": []byte("plain")})

	e := newTestEngine(t)
	h, err := e.Resolve(filepath.Join(path, "a.txt"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rc, err := h.OpenStream()
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "plain" {
		t.Fatalf("content = %q, want plain", data)
	}
}
