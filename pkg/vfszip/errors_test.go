package vfszip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindPredicates(t *testing.T) {
	err := errf(KindNotFound, "op", "some/path", "missing: %s", "x")
	require.True(t, IsNotFound(err))
	require.False(t, IsBadArgument(err))
	require.False(t, IsArchiveFormat(err))

	var ve *Error
	require.True(t, errors.As(err, &ve))
	require.Equal(t, KindNotFound, ve.Kind)
	require.Contains(t, err.Error(), "some/path")
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := wrapErr(KindBackingIO, "op", "p", base)
	require.ErrorIs(t, wrapped, base)
}
