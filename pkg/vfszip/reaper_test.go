package vfszip

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestReaperClosesAfterGracePeriod(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("hello")},
	})

	fs, err := newFileSource(path, false, false, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, fs.Acquire())
	fs.Release()

	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return fs.openFile == nil
	}, time.Second, 5*time.Millisecond)
}

func TestReaperCancelsOnReacquire(t *testing.T) {
	dir := t.TempDir()
	path := writeZipFile(t, dir, "archive.zip", []zipEntry{
		{name: "a.txt", data: []byte("hello")},
	})

	fs, err := newFileSource(path, false, false, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, fs.Acquire())
	fs.Release()
	require.NoError(t, fs.Acquire())

	time.Sleep(100 * time.Millisecond)

	fs.mu.Lock()
	open := fs.openFile != nil
	fs.mu.Unlock()
	require.True(t, open, "fileSource should still be open: it was re-acquired before the reaper fired")

	fs.Release()
}

func TestConcurrentAccessLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("time.Sleep"),
	)

	dir := t.TempDir()
	path := buildNestedFixture(t, dir)

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			root, err := ctx.Root()
			if err != nil {
				return err
			}
			inner, err := root.Child("inner.jar")
			if err != nil {
				return err
			}
			x, err := inner.Child("x.txt")
			if err != nil {
				return err
			}
			rc, err := x.OpenStream()
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.ReadAll(rc)
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.NoError(t, ctx.cleanup())
}
