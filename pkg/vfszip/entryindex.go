package vfszip

import (
	"crypto/x509"
	"sync"
)

// entryInfo is the indexed record for one path inside an ArchiveContext,
// mirroring the original's EntryInfo: a handler, the raw zip entry it was
// built from (nil for the root and for synthesized dummy parents), its
// children in insertion order, and a lazily-computed certificate chain.
type entryInfo struct {
	handler  VirtualFileHandler
	rawEntry *rawZipEntry

	children *orderedChildren

	certMu        sync.Mutex
	certsComputed bool
	certificates  []*x509.Certificate
}

func newEntryInfo(handler VirtualFileHandler, rawEntry *rawZipEntry) *entryInfo {
	return &entryInfo{
		handler:  handler,
		rawEntry: rawEntry,
		children: newOrderedChildren(),
	}
}

func (e *entryInfo) isDirectory() bool {
	return e.rawEntry == nil || e.rawEntry.IsDir
}

func (e *entryInfo) getCertificates() []*x509.Certificate {
	e.certMu.Lock()
	defer e.certMu.Unlock()
	if !e.certsComputed {
		// Entries are read via klauspost/compress/zip, which does not surface
		// JAR signing metadata; certificates are therefore always empty here.
		// The field exists so callers written against the original's
		// contract (a non-nil, cacheable, possibly-empty slice) keep working.
		e.certificates = []*x509.Certificate{}
		e.certsComputed = true
	}
	return e.certificates
}

// orderedChildren is a name -> *entryInfo map that also remembers insertion
// order, mirroring the LinkedHashMap children field of the original's
// EntryInfo: children must be listed in the order entries were indexed.
type orderedChildren struct {
	mu    sync.Mutex
	order []string
	byKey map[string]*entryInfo
}

func newOrderedChildren() *orderedChildren {
	return &orderedChildren{byKey: make(map[string]*entryInfo)}
}

func (c *orderedChildren) add(name string, ei *entryInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[name]; !exists {
		c.order = append(c.order, name)
	}
	c.byKey[name] = ei
}

func (c *orderedChildren) get(name string) (*entryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ei, ok := c.byKey[name]
	return ei, ok
}

func (c *orderedChildren) replace(name string, ei *entryInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[name]; !exists {
		return false
	}
	c.byKey[name] = ei
	return true
}

func (c *orderedChildren) list() []*entryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entryInfo, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byKey[name])
	}
	return out
}

func (c *orderedChildren) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.byKey = make(map[string]*entryInfo)
}

// entryIndex is the full path -> *entryInfo map for an ArchiveContext.
// Concurrent reads are the common case (every handler operation does a
// lookup); sync.Map amortizes that well against the rarer bulk write during
// initEntries.
type entryIndex struct {
	m sync.Map // string -> *entryInfo
}

func (idx *entryIndex) get(path string) (*entryInfo, bool) {
	v, ok := idx.m.Load(path)
	if !ok {
		return nil, false
	}
	return v.(*entryInfo), true
}

func (idx *entryIndex) put(path string, ei *entryInfo) {
	idx.m.Store(path, ei)
}

func (idx *entryIndex) delete(path string) {
	idx.m.Delete(path)
}

// clearKeepRoot removes every indexed path except "", the way
// checkIfModified's reset does: the root EntryInfo (and its handler
// identity) survives a re-index, everything beneath it does not.
func (idx *entryIndex) clearKeepRoot() {
	root, hasRoot := idx.get("")
	idx.m.Range(func(k, _ interface{}) bool {
		idx.m.Delete(k)
		return true
	})
	if hasRoot {
		root.children.clear()
		idx.put("", root)
	}
}
