package vfszip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsMerge(t *testing.T) {
	peer := Options{UseCopy: true}
	own := Options{NoReaper: true}
	merged := peer.merge(own)
	require.True(t, merged.UseCopy)
	require.True(t, merged.NoReaper)
	require.False(t, merged.CaseSensitive)
}

func TestGlobalConfigForceCopyAffectsMount(t *testing.T) {
	restore := SetGlobalConfigForTest(GlobalConfig{ForceCopy: true, ReaperGracePeriod: defaultReaperGrace})
	defer restore()

	dir := t.TempDir()
	path := buildNestedFixture(t, dir)

	ctx, err := NewFromPath(path, Options{})
	require.NoError(t, err)
	root, err := ctx.Root()
	require.NoError(t, err)

	inner, err := root.Child("inner.jar")
	require.NoError(t, err)
	dh := inner.(*delegatingHandler)
	require.True(t, dh.child.autoClean, "ForceCopy should make every nested mount copy-mode even with UseCopy unset")
}
