package vfszip

import (
	"io"
	"strings"
	"time"
)

// rawZipEntry is the raw zip-entry metadata carried by an EntryInfo. Entries
// are looked up again by Name at OpenEntry time rather than carrying a
// cached *zip.File: a fileSource may close and later reopen its underlying
// descriptor (the reaper), which invalidates any zip.File taken from an
// earlier generation's Reader.
type rawZipEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// ZipSource is the uniform byte-level view over an archive that ArchiveContext
// indexes. There are four concrete implementations: fileSource (random
// access over an on-disk file), streamSource (one-shot inflate into memory,
// used for no-copy nested mounts), dirSource (a synthetic directory root
// produced by PartialPathSearch) and singleEntrySource (a single-entry leaf
// source, also produced by PartialPathSearch).
type ZipSource interface {
	// Acquire signals the start of a scoped use of this source. Must be
	// paired with Release on every exit path.
	Acquire() error
	// Release signals the end of a scoped use of this source.
	Release()
	// Entries enumerates every raw entry in the archive. The caller must
	// hold an Acquire/Release scope.
	Entries() ([]rawZipEntry, error)
	// OpenEntry opens the inflating stream for the entry with the given raw
	// archive name, which must be one previously returned by Entries.
	OpenEntry(name string) (io.ReadCloser, error)
	// RootAsStream returns a stream of this source's own raw bytes (used
	// when a caller opens a stream on the context root handler itself).
	RootAsStream() (io.ReadCloser, error)
	// Size is the size, in bytes, of the backing archive itself.
	Size() int64
	// LastModified is the modification time of the backing archive itself.
	LastModified() time.Time
	// Name is the simple name of the backing archive (no path components).
	Name() string
	// Exists reports whether the backing archive is still present.
	Exists() bool
	// Delete removes the backing file, waiting gracePeriod first as an
	// advisory grace window for outstanding readers to finish.
	Delete(gracePeriod time.Duration) bool
	// HasBeenModified reports whether the backing archive changed since it
	// was last indexed.
	HasBeenModified() bool
}

// archiveExtensions is the fixed set of recognized nested-archive
// extensions, tested case-insensitively during directory synthesis and
// exactly (against raw zip names) during PartialPathSearch, per spec.md
// §4.3.
var archiveExtensions = []string{".jar", ".zip", ".war", ".ear", ".sar", ".har", ".rar"}

// isArchiveName reports whether name ends with a recognized archive
// extension. Matching is case-insensitive, matching JarUtils.isArchive in
// the original source.
func isArchiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func baseName(name string) string {
	name = strings.TrimSuffix(name, "/")
	if i := strings.LastIndexByte(name, '/'); i != -1 {
		return name[i+1:]
	}
	return name
}
