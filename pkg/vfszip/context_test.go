package vfszip

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArchiveContextSynthesizesDummyParents(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("top")},
		{name: "dir/b.txt", data: []byte("nested")},
		{name: "dir/sub/c.txt", data: []byte("deep")},
	})

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)

	root, err := ctx.Root()
	require.NoError(t, err)

	children, err := root.Children(false)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "a.txt", children[0].Name())
	require.Equal(t, "dir", children[1].Name())

	leaf, err := children[1].IsLeaf()
	require.NoError(t, err)
	require.False(t, leaf)

	sub, err := children[1].Child("sub")
	require.NoError(t, err)
	deep, err := sub.Child("c.txt")
	require.NoError(t, err)

	rc, err := deep.OpenStream()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "deep", string(data))
}

func TestArchiveContextChildNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("top")},
	})

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	_, err = root.Child("missing.txt")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func buildNestedFixture(t *testing.T, dir string) string {
	t.Helper()
	inner := writeZip(t, []zipEntry{
		{name: "x.txt", data: []byte("hello from inner")},
	})
	return writeZipFile(t, dir, "outer.jar", []zipEntry{
		{name: "inner.jar", data: inner},
		{name: "README.txt", data: []byte("outer readme")},
	})
}

func TestArchiveContextNestedMountNoCopy(t *testing.T) {
	dir := t.TempDir()
	path := buildNestedFixture(t, dir)

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	innerHandler, err := root.Child("inner.jar")
	require.NoError(t, err)
	require.Equal(t, KindDelegating, innerHandler.Kind())

	xHandler, err := innerHandler.Child("x.txt")
	require.NoError(t, err)
	rc, err := xHandler.OpenStream()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello from inner", string(data))
}

func TestArchiveContextNestedMountCopy(t *testing.T) {
	dir := t.TempDir()
	path := buildNestedFixture(t, dir)

	ctx, err := NewFromPath(path, Options{UseCopy: true})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	innerHandler, err := root.Child("inner.jar")
	require.NoError(t, err)
	require.Equal(t, KindDelegating, innerHandler.Kind())

	xHandler, err := innerHandler.Child("x.txt")
	require.NoError(t, err)
	rc, err := xHandler.OpenStream()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	require.Equal(t, "hello from inner", string(data))

	dh := innerHandler.(*delegatingHandler)
	require.True(t, dh.child.autoClean)
	require.NoError(t, ctx.cleanup())
	require.NoFileExists(t, dh.child.source.(*fileSource).path)
}

func TestArchiveContextDetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(path, writeZip(t, []zipEntry{
		{name: "a.txt", data: []byte("v1")},
	}), 0o600))

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	_, err = root.Child("a.txt")
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, writeZip(t, []zipEntry{
		{name: "b.txt", data: []byte("v2")},
	}), 0o600))
	require.NoError(t, os.Chtimes(path, future, future))

	children, err := root.Children(false)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "b.txt", children[0].Name())
}

func TestArchiveContextReplaceChild(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("original")},
	})

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	existing, err := root.Child("a.txt")
	require.NoError(t, err)
	require.Equal(t, KindZipEntry, existing.Kind())

	require.NoError(t, ctx.ReplaceChild(root, "a.txt", existing))

	replaced, err := root.Child("a.txt")
	require.NoError(t, err)
	require.Equal(t, KindReplacement, replaced.Kind())
}
