package main

import (
	"fmt"
	"strings"

	"vfsarchive/internal/vfsarchive"
)

// navigate mounts diskPath and walks subpath component by component,
// mounting any nested archive it crosses along the way.
func navigate(engine *vfsarchive.Engine, diskPath, subpath string) (vfsarchive.VirtualFileHandler, error) {
	h, err := engine.Mount(diskPath)
	if err != nil {
		return nil, fmt.Errorf("mount %q: %w", diskPath, err)
	}

	subpath = strings.Trim(subpath, "/")
	if subpath == "" {
		return h, nil
	}

	for _, seg := range strings.Split(subpath, "/") {
		child, err := h.GetChild(seg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q under %q: %w", seg, h.LocalPathName(), err)
		}
		if child == nil {
			return nil, fmt.Errorf("no such entry %q under %q", seg, h.LocalPathName())
		}
		h = child
	}
	return h, nil
}
