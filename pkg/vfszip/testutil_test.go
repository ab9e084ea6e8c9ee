package vfszip

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	kzip "github.com/klauspost/compress/zip"
)

// zipEntry describes one entry to write into a test archive.
type zipEntry struct {
	name string
	data []byte
	dir  bool
}

func writeZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := kzip.NewWriter(&buf)
	for _, e := range entries {
		name := e.name
		if e.dir && name[len(name)-1] != '/' {
			name += "/"
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if !e.dir {
			if _, err := w.Write(e.data); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

// writeZipFile writes a test archive to a temp file under dir and returns
// its path.
func writeZipFile(t *testing.T, dir, name string, entries []zipEntry) string {
	t.Helper()
	data := writeZip(t, entries)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
