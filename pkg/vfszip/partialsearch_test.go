package vfszip

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialPathSearchIntoNestedArchive(t *testing.T) {
	dir := t.TempDir()
	inner := writeZip(t, []zipEntry{
		{name: "com/Foo.class", data: []byte("classbytes")},
	})
	outer := writeZip(t, []zipEntry{
		{name: "lib/inner.jar", data: inner},
	})
	outerPath := filepath.Join(dir, "outer.jar")
	require.NoError(t, os.WriteFile(outerPath, outer, 0o600))

	full := filepath.Join(dir, "outer.jar", "lib", "inner.jar", "com", "Foo.class")
	ctx, inside, err := PartialPathSearch(full, Options{})
	require.NoError(t, err)
	require.Empty(t, inside)

	root, err := ctx.Root()
	require.NoError(t, err)
	leaf, err := root.IsLeaf()
	require.NoError(t, err)
	require.True(t, leaf)

	rc, err := root.OpenStream()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "classbytes", string(data))
}

func TestPartialPathSearchIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	archive := writeZip(t, []zipEntry{
		{name: "pkg/a.txt", data: []byte("a")},
		{name: "pkg/b.txt", data: []byte("b")},
	})
	archivePath := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(archivePath, archive, 0o600))

	full := filepath.Join(dir, "archive.zip", "pkg")
	ctx, inside, err := PartialPathSearch(full, Options{})
	require.NoError(t, err)
	require.Empty(t, inside)

	root, err := ctx.Root()
	require.NoError(t, err)
	leaf, err := root.IsLeaf()
	require.NoError(t, err)
	require.False(t, leaf)

	children, err := root.Children(false)
	require.NoError(t, err)
	require.Len(t, children, 2)
}

func TestPartialPathSearchExactArchivePath(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("a")},
	})

	ctx, inside, err := PartialPathSearch(path, Options{})
	require.NoError(t, err)
	require.Empty(t, inside)

	root, err := ctx.Root()
	require.NoError(t, err)
	children, err := root.Children(false)
	require.NoError(t, err)
	require.Len(t, children, 1)
}
