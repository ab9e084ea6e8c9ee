package vfszip

import (
	"io"
	"os"
	"sync"
	"time"

	kzip "github.com/klauspost/compress/zip"
)

// fileSource is a ZipSource backed by an on-disk file, read randomly via its
// central directory. It supports two lock-release modes: asynchronous
// (reaper) and synchronous, selected by noReaper.
type fileSource struct {
	path      string
	autoClean bool
	noReaper  bool
	grace     time.Duration

	mu              sync.Mutex
	refCount        int32
	generation      uint64
	openFile        *os.File
	zr              *kzip.Reader
	baselineModTime time.Time
	deleted         bool
}

func newFileSource(path string, autoClean, noReaper bool, grace time.Duration) (*fileSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, wrapErr(KindBackingIO, "newFileSource", path, err)
	}
	return &fileSource{
		path:            path,
		autoClean:       autoClean,
		noReaper:        noReaper,
		grace:           grace,
		baselineModTime: fi.ModTime(),
	}, nil
}

func (f *fileSource) Acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refCount++
	f.generation++
	if !f.noReaper {
		sharedReaper().cancel(f)
	}

	if f.openFile != nil {
		return nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		f.refCount--
		return wrapErr(KindBackingIO, "acquire", f.path, err)
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		f.refCount--
		return wrapErr(KindBackingIO, "acquire", f.path, err)
	}
	zr, err := kzip.NewReader(file, fi.Size())
	if err != nil {
		file.Close()
		f.refCount--
		return wrapErr(KindArchiveFormat, "acquire", f.path, err)
	}
	f.openFile = file
	f.zr = zr
	f.baselineModTime = fi.ModTime()
	return nil
}

func (f *fileSource) Release() {
	f.mu.Lock()
	f.refCount--
	if f.refCount > 0 {
		f.mu.Unlock()
		return
	}
	if f.noReaper {
		f.closeLocked()
		f.mu.Unlock()
		return
	}
	gen := f.generation
	f.mu.Unlock()
	sharedReaper().schedule(f, gen, f.grace)
}

// reaperClose is invoked by the background reaper after the grace period.
// It is a no-op if f was re-acquired (and thus its generation bumped) since
// the close was scheduled.
func (f *fileSource) reaperClose(generation uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != generation || f.refCount > 0 {
		return
	}
	f.closeLocked()
}

func (f *fileSource) closeLocked() {
	if f.openFile != nil {
		_ = f.openFile.Close()
		f.openFile = nil
		f.zr = nil
	}
}

func (f *fileSource) Entries() ([]rawZipEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zr == nil {
		return nil, errf(KindStateInvariant, "entries", f.path, "fileSource not acquired")
	}
	entries := make([]rawZipEntry, 0, len(f.zr.File))
	for _, zf := range f.zr.File {
		entries = append(entries, rawZipEntry{
			Name:    zf.Name,
			Size:    int64(zf.UncompressedSize64),
			ModTime: zf.Modified,
			IsDir:   zf.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

func (f *fileSource) OpenEntry(name string) (io.ReadCloser, error) {
	f.mu.Lock()
	zr := f.zr
	f.mu.Unlock()
	if zr == nil {
		return nil, errf(KindStateInvariant, "openEntry", name, "fileSource not acquired")
	}
	for _, zf := range zr.File {
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

func (f *fileSource) RootAsStream() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, wrapErr(KindBackingIO, "rootAsStream", f.path, err)
	}
	return file, nil
}

func (f *fileSource) Size() int64 {
	fi, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (f *fileSource) LastModified() time.Time {
	fi, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

func (f *fileSource) Name() string { return baseName(f.path) }

func (f *fileSource) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *fileSource) Delete(gracePeriod time.Duration) bool {
	if gracePeriod > 0 {
		time.Sleep(gracePeriod)
	}
	f.mu.Lock()
	f.closeLocked()
	f.deleted = true
	f.mu.Unlock()
	return os.Remove(f.path) == nil
}

func (f *fileSource) HasBeenModified() bool {
	fi, err := os.Stat(f.path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil && fi.ModTime().Equal(f.baselineModTime) {
		return false
	}
	if f.refCount == 0 {
		// Drop the idle descriptor so the next Acquire reads the new central
		// directory and takes the new modification time as its baseline.
		f.closeLocked()
	} else if err == nil {
		f.baselineModTime = fi.ModTime()
	}
	return true
}
