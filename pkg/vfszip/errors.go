package vfszip

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the failure modes the archive mount engine can surface.
type Kind int

const (
	// KindBadArgument covers null/invalid required inputs: bad link names,
	// paths that escape the context root.
	KindBadArgument Kind = iota
	// KindNotFound covers a lookup with no EntryInfo and no nested-archive
	// ancestor to delegate into.
	KindNotFound
	// KindArchiveFormat covers zip parsing failures during initEntries or
	// PartialPathSearch.
	KindArchiveFormat
	// KindBackingIO covers open/read/close errors on the underlying file or
	// stream.
	KindBackingIO
	// KindTempIO covers failures creating or writing a temp file.
	KindTempIO
	// KindStateInvariant covers replaceChild called with a missing parent,
	// and other internal consistency violations.
	KindStateInvariant
)

func (k Kind) String() string {
	switch k {
	case KindBadArgument:
		return "bad-argument"
	case KindNotFound:
		return "not-found"
	case KindArchiveFormat:
		return "archive-format"
	case KindBackingIO:
		return "backing-io"
	case KindTempIO:
		return "temp-io"
	case KindStateInvariant:
		return "state-invariant"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package. Use errors.As to recover
// it and inspect Kind.
type Error struct {
	Kind Kind
	Op   string
	Path string
	err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vfszip: %s %q: %s: %v", e.Op, e.Path, e.Kind, e.err)
	}
	return fmt.Sprintf("vfszip: %s: %s: %v", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func newErr(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, err: err}
}

func wrapErr(kind Kind, op, path string, err error) *Error {
	return newErr(kind, op, path, errors.WithStack(err))
}

func errf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return newErr(kind, op, path, errors.Errorf(format, args...))
}

// IsNotFound reports whether err is a vfszip.Error of KindNotFound.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsBadArgument reports whether err is a vfszip.Error of KindBadArgument.
func IsBadArgument(err error) bool { return hasKind(err, KindBadArgument) }

// IsArchiveFormat reports whether err is a vfszip.Error of KindArchiveFormat.
func IsArchiveFormat(err error) bool { return hasKind(err, KindArchiveFormat) }

func hasKind(err error, kind Kind) bool {
	var ve *Error
	if stderrors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}
