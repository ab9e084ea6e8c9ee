package vfszip

import (
	"os"
	"path/filepath"
	"strings"
)

// tempSubdir is the name of the directory, under os.TempDir, that holds
// every nested archive this process has extracted in copy mode. Mirrors the
// original's fixed "vfs-nested.tmp" directory name.
const tempSubdir = "vfs-nested.tmp"

func nestedTempDir() (string, error) {
	dir := filepath.Join(os.TempDir(), tempSubdir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", wrapErr(KindTempIO, "nestedTempDir", dir, err)
	}
	return dir, nil
}

// SweepTempDir removes every first-level, non-hidden file left behind under
// the nested-archive temp directory from a previous run. Subdirectories and
// hidden entries are left alone, mirroring the original's
// deleteTmpDirContents, which only ever extracted plain files one level
// deep. The original implementation does this in a static initializer the
// first time its package is touched; this package instead leaves it to the
// caller to invoke explicitly (cmd/vfszip does so at startup) so that
// importing this package never has filesystem side effects.
func SweepTempDir() error {
	dir := filepath.Join(os.TempDir(), tempSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapErr(KindTempIO, "SweepTempDir", dir, err)
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
