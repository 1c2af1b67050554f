package vfsarchive

import (
	"sync"
)

// EntryInfo is one node of an ArchiveContext's entry tree: a local path, its
// raw zip directory entry (nil for synthetic directories that exist only
// because some deeper entry names them), the VirtualFileHandler exposed for
// it, and its children.
type EntryInfo struct {
	localPath string
	handler   VirtualFileHandler
	rawEntry  *rawEntry // nil for a dummy (synthetic) directory

	childrenLock sync.Mutex
	children     *orderedChildren // lazily allocated on first child insert

	certMu       sync.Mutex
	certificates *[][]byte // nil = not yet computed; non-nil (possibly empty) = computed
}

// orderedChildren preserves insertion order of child names while giving O(1)
// lookup and replace-by-name.
type orderedChildren struct {
	order []string
	byName map[string]*EntryInfo
}

func newOrderedChildren() *orderedChildren {
	return &orderedChildren{byName: make(map[string]*EntryInfo)}
}

// put inserts or replaces the child named name. A replace keeps the child's
// original position in iteration order.
func (c *orderedChildren) put(name string, child *EntryInfo) {
	if _, exists := c.byName[name]; !exists {
		c.order = append(c.order, name)
	}
	c.byName[name] = child
}

func (c *orderedChildren) get(name string) (*EntryInfo, bool) {
	e, ok := c.byName[name]
	return e, ok
}

func (c *orderedChildren) list() []*EntryInfo {
	out := make([]*EntryInfo, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byName[n])
	}
	return out
}

// EntryIndex is a concurrent-safe, path-keyed map of EntryInfo nodes owned by
// a single ArchiveContext. The root path "" is always present once the
// index has been built at least once.
type EntryIndex struct {
	mu      sync.RWMutex
	byPath  map[string]*EntryInfo
}

func newEntryIndex() *EntryIndex {
	return &EntryIndex{byPath: make(map[string]*EntryInfo)}
}

func (idx *EntryIndex) get(localPath string) (*EntryInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.byPath[localPath]
	return e, ok
}

func (idx *EntryIndex) put(e *EntryInfo) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byPath[e.localPath] = e
}

// getOrCreateDummy returns the EntryInfo at localPath, creating a dummy
// (rawEntry == nil) directory node if absent. It does not link the node
// into its parent's children -- callers that create intermediate directory
// ancestors must do that themselves via attachChild.
func (idx *EntryIndex) getOrCreateDummy(localPath string) *EntryInfo {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if e, ok := idx.byPath[localPath]; ok {
		return e
	}
	e := &EntryInfo{localPath: localPath}
	idx.byPath[localPath] = e
	return e
}

func (idx *EntryIndex) reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byPath = make(map[string]*EntryInfo)
}

func (idx *EntryIndex) all() []*EntryInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*EntryInfo, 0, len(idx.byPath))
	for _, e := range idx.byPath {
		out = append(out, e)
	}
	return out
}

func (idx *EntryIndex) size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPath)
}

// attachChild links child under parent's orderedChildren, allocating the
// parent's children structure lazily. Safe for concurrent use across
// distinct parents; callers touching the same parent concurrently are
// serialized via parent.childrenLock.
func attachChild(parent *EntryInfo, name string, child *EntryInfo) {
	parent.childrenLock.Lock()
	defer parent.childrenLock.Unlock()
	if parent.children == nil {
		parent.children = newOrderedChildren()
	}
	parent.children.put(name, child)
}

func childOf(parent *EntryInfo, name string) (*EntryInfo, bool) {
	parent.childrenLock.Lock()
	defer parent.childrenLock.Unlock()
	if parent.children == nil {
		return nil, false
	}
	return parent.children.get(name)
}

func childrenOf(parent *EntryInfo) []*EntryInfo {
	parent.childrenLock.Lock()
	defer parent.childrenLock.Unlock()
	if parent.children == nil {
		return nil
	}
	return parent.children.list()
}

// Certificates returns the raw bytes of each META-INF signature block entry
// (*.RSA, *.DSA, *.EC) of the archive, captured for the entry during
// initialization, and whether they have been computed at all. An entry whose
// certificates have not yet been computed returns (nil, false); an entry
// computed to have none returns (non-nil empty slice, true).
func (e *EntryInfo) Certificates() ([][]byte, bool) {
	e.certMu.Lock()
	defer e.certMu.Unlock()
	if e.certificates == nil {
		return nil, false
	}
	return *e.certificates, true
}

func (e *EntryInfo) setCertificates(blocks [][]byte) {
	e.certMu.Lock()
	defer e.certMu.Unlock()
	if blocks == nil {
		blocks = [][]byte{}
	}
	e.certificates = &blocks
}
