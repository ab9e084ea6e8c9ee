package vfszip

import (
	"bytes"
	"io"
	"time"

	kzip "github.com/klauspost/compress/zip"
)

// streamSource is a ZipSource over a fully-buffered in-memory copy of a
// nested archive's inflated bytes. Used for no-copy nested mounts (cheaper
// than extracting to disk, at the cost of holding the whole sub-archive in
// memory) and by PartialPathSearch. LastModified returns the time given at
// construction: mountNested passes the time of mount, PartialPathSearch the
// matched entry's own timestamp. No parent timestamp is tracked after that.
type streamSource struct {
	name     string
	data     []byte
	zr       *kzip.Reader
	modified time.Time
}

func newStreamSource(name string, data []byte, modified time.Time) (*streamSource, error) {
	zr, err := kzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, wrapErr(KindArchiveFormat, "newStreamSource", name, err)
	}
	return &streamSource{name: name, data: data, zr: zr, modified: modified}, nil
}

func (s *streamSource) Acquire() error { return nil }
func (s *streamSource) Release()       {}

func (s *streamSource) Entries() ([]rawZipEntry, error) {
	entries := make([]rawZipEntry, 0, len(s.zr.File))
	for _, zf := range s.zr.File {
		entries = append(entries, rawZipEntry{
			Name:    zf.Name,
			Size:    int64(zf.UncompressedSize64),
			ModTime: zf.Modified,
			IsDir:   zf.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

func (s *streamSource) OpenEntry(name string) (io.ReadCloser, error) {
	for _, zf := range s.zr.File {
		if zf.Name == name {
			rc, err := zf.Open()
			if err != nil {
				return nil, wrapErr(KindBackingIO, "openEntry", name, err)
			}
			return rc, nil
		}
	}
	return nil, errf(KindNotFound, "openEntry", name, "no such entry in archive")
}

func (s *streamSource) RootAsStream() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *streamSource) Size() int64              { return int64(len(s.data)) }
func (s *streamSource) LastModified() time.Time  { return s.modified }
func (s *streamSource) Name() string             { return s.name }
func (s *streamSource) Exists() bool             { return true }
func (s *streamSource) Delete(time.Duration) bool { return false }
func (s *streamSource) HasBeenModified() bool    { return false }

// dirSource is the synthetic source produced by PartialPathSearch when the
// longest-prefix match is a directory entry rather than a file or nested
// archive. It wraps the very same buffered bytes streamSource would (the
// ancestor archive's data, already in memory from the search), so that
// ArchiveContext's ordinary rootEntryPath-prefix filtering (§4.3) can
// populate the directory's children — without this, a context rooted
// mid-archive could list its own identity but never its contents, which
// would violate the round-trip law that every directory's children equal
// the distinct first path segments of entries beneath it.
type dirSource struct {
	*streamSource
}

func newDirSource(name string, data []byte, matched time.Time) (*dirSource, error) {
	ss, err := newStreamSource(name, data, matched)
	if err != nil {
		return nil, err
	}
	return &dirSource{streamSource: ss}, nil
}

// singleEntrySource is the ZipEntryWrapper of spec.md §4.5: a source whose
// sole purpose is to expose one already-located, non-archive zip entry as
// the root of a one-handler ArchiveContext. Entries returns nothing (it has
// no children); RootAsStream decodes the wrapped entry directly.
type singleEntrySource struct {
	name     string
	size     int64
	modified time.Time
	zf       *kzip.File
}

func newSingleEntrySource(name string, zf *kzip.File) *singleEntrySource {
	return &singleEntrySource{
		name:     name,
		size:     int64(zf.UncompressedSize64),
		modified: zf.Modified,
		zf:       zf,
	}
}

func (s *singleEntrySource) Acquire() error { return nil }
func (s *singleEntrySource) Release()       {}

func (s *singleEntrySource) Entries() ([]rawZipEntry, error) { return nil, nil }

func (s *singleEntrySource) OpenEntry(string) (io.ReadCloser, error) {
	return nil, errf(KindStateInvariant, "openEntry", s.name, "singleEntrySource has no child entries")
}

func (s *singleEntrySource) RootAsStream() (io.ReadCloser, error) {
	rc, err := s.zf.Open()
	if err != nil {
		return nil, wrapErr(KindBackingIO, "rootAsStream", s.name, err)
	}
	return rc, nil
}

func (s *singleEntrySource) Size() int64              { return s.size }
func (s *singleEntrySource) LastModified() time.Time  { return s.modified }
func (s *singleEntrySource) Name() string             { return s.name }
func (s *singleEntrySource) Exists() bool             { return true }
func (s *singleEntrySource) Delete(time.Duration) bool { return false }
func (s *singleEntrySource) HasBeenModified() bool    { return false }
