package vfszip

import "sync"

// tempInfo records a nested archive that was previously extracted to a temp
// file, keyed by its path relative to the owning context, so a repeated
// lookup of the same nested archive reuses the extraction instead of copying
// it again. Mirrors ZipEntryContext's package-private TempInfo/ZipEntryTempInfo
// pairing, collapsed into one type since this package has no need for the
// original's separate marker interface.
type tempInfo struct {
	relativePath string
	tempPath     string
	size         int64
}

// isValid reports whether info still refers to usable state: both the
// relative path and temp path are populated. Extraction failures are never
// recorded, so a tempInfo reaching the store is always valid at insert time;
// this exists for symmetry with the original and as a single place to add an
// on-disk existence check if that's ever warranted.
func (t *tempInfo) isValid() bool {
	return t != nil && t.relativePath != "" && t.tempPath != ""
}

// tempStore is a per-context registry of nested-archive extractions, so that
// two lookups of the same nested path within one ArchiveContext share one
// temp file instead of extracting twice.
type tempStore struct {
	mu    sync.Mutex
	byRel map[string]*tempInfo
}

func newTempStore() *tempStore {
	return &tempStore{byRel: make(map[string]*tempInfo)}
}

func (s *tempStore) lookup(relativePath string) *tempInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byRel[relativePath]
}

func (s *tempStore) record(relativePath, tempPath string, size int64) *tempInfo {
	info := &tempInfo{relativePath: relativePath, tempPath: tempPath, size: size}
	s.mu.Lock()
	s.byRel[relativePath] = info
	s.mu.Unlock()
	return info
}
