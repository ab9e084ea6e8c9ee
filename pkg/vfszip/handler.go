package vfszip

import (
	"crypto/x509"
	"io"
	"net/url"
	"time"
)

// HandlerKind tags the concrete variant behind a VirtualFileHandler, for
// callers that need to branch on it without a type assertion across the
// package boundary (spec.md §9's design note: "use a Kind() method, not
// exported types, for tagged dispatch").
type HandlerKind int

const (
	// KindZipEntry is an ordinary handler backed by an entryInfo in the
	// owning context's index.
	KindZipEntry HandlerKind = iota
	// KindDelegating is a handler that forwards every operation to the
	// root handler of a mounted sub-context (a nested archive).
	KindDelegating
	// KindReplacement is a handler substituted into the index by
	// ArchiveContext.ReplaceChild, standing in for the entry it replaced.
	KindReplacement
)

func (k HandlerKind) String() string {
	switch k {
	case KindZipEntry:
		return "zip-entry"
	case KindDelegating:
		return "delegating"
	case KindReplacement:
		return "replacement"
	default:
		return "unknown"
	}
}

// VirtualFileHandler is a node in the virtual filesystem tree: either a real
// entry in an archive, or a DelegatingHandler standing in for the root of a
// nested archive's own context.
type VirtualFileHandler interface {
	Kind() HandlerKind

	Name() string
	LocalPathName() string
	Parent() (VirtualFileHandler, error)
	Child(name string) (VirtualFileHandler, error)
	Children(ignoreErrors bool) ([]VirtualFileHandler, error)
	Exists() (bool, error)
	IsLeaf() (bool, error)
	Size() (int64, error)
	LastModified() (time.Time, error)
	OpenStream() (io.ReadCloser, error)
	URI() (string, error)
	URL() (*url.URL, error)
	RealURL() (*url.URL, error)
	Certificates() ([]*x509.Certificate, error)
	Cleanup() error
}

// zipEntryHandler is the ordinary VirtualFileHandler: every operation is
// answered by looking up its localPath in the owning context's entry index.
type zipEntryHandler struct {
	ctx       *ArchiveContext
	name      string
	localPath string
}

func (h *zipEntryHandler) Kind() HandlerKind    { return KindZipEntry }
func (h *zipEntryHandler) Name() string         { return h.name }
func (h *zipEntryHandler) LocalPathName() string { return h.localPath }

func (h *zipEntryHandler) Parent() (VirtualFileHandler, error) {
	return h.ctx.parentOf(h)
}

func (h *zipEntryHandler) Child(name string) (VirtualFileHandler, error) {
	return h.ctx.getChild(h, name)
}

func (h *zipEntryHandler) Children(ignoreErrors bool) ([]VirtualFileHandler, error) {
	return h.ctx.getChildren(h, ignoreErrors)
}

func (h *zipEntryHandler) Exists() (bool, error) { return h.ctx.exists(h) }
func (h *zipEntryHandler) IsLeaf() (bool, error) { return h.ctx.isLeaf(h) }
func (h *zipEntryHandler) Size() (int64, error)  { return h.ctx.size(h) }

func (h *zipEntryHandler) LastModified() (time.Time, error) { return h.ctx.lastModified(h) }
func (h *zipEntryHandler) OpenStream() (io.ReadCloser, error) { return h.ctx.openStream(h) }
func (h *zipEntryHandler) Certificates() ([]*x509.Certificate, error) { return h.ctx.certificates(h) }
func (h *zipEntryHandler) Cleanup() error { return h.ctx.cleanupHandler(h) }

func (h *zipEntryHandler) URI() (string, error) { return h.ctx.uriFor(h) }
func (h *zipEntryHandler) URL() (*url.URL, error) { return h.ctx.urlFor(h) }
func (h *zipEntryHandler) RealURL() (*url.URL, error) { return h.ctx.realURLFor(h) }

// delegatingHandler stands in for a nested archive's root: it is a named
// node in the parent context. Name, LocalPathName, Parent, URI and URL are
// answered by the parent context; the other operations forward to the root
// handler of the child context mounted at that name.
type delegatingHandler struct {
	ctx       *ArchiveContext
	name      string
	localPath string
	child     *ArchiveContext
}

func (h *delegatingHandler) Kind() HandlerKind    { return KindDelegating }
func (h *delegatingHandler) Name() string         { return h.name }
func (h *delegatingHandler) LocalPathName() string { return h.localPath }

func (h *delegatingHandler) root() (VirtualFileHandler, error) {
	return h.child.Root()
}

func (h *delegatingHandler) Parent() (VirtualFileHandler, error) {
	return h.ctx.parentOf(h)
}

func (h *delegatingHandler) Child(name string) (VirtualFileHandler, error) {
	root, err := h.root()
	if err != nil {
		return nil, err
	}
	return root.Child(name)
}

func (h *delegatingHandler) Children(ignoreErrors bool) ([]VirtualFileHandler, error) {
	root, err := h.root()
	if err != nil {
		return nil, err
	}
	return root.Children(ignoreErrors)
}

func (h *delegatingHandler) Exists() (bool, error) {
	root, err := h.root()
	if err != nil {
		return false, err
	}
	return root.Exists()
}

func (h *delegatingHandler) IsLeaf() (bool, error) {
	root, err := h.root()
	if err != nil {
		return false, err
	}
	return root.IsLeaf()
}

func (h *delegatingHandler) Size() (int64, error) {
	root, err := h.root()
	if err != nil {
		return 0, err
	}
	return root.Size()
}

func (h *delegatingHandler) LastModified() (time.Time, error) {
	root, err := h.root()
	if err != nil {
		return time.Time{}, err
	}
	return root.LastModified()
}

func (h *delegatingHandler) OpenStream() (io.ReadCloser, error) {
	root, err := h.root()
	if err != nil {
		return nil, err
	}
	return root.OpenStream()
}

func (h *delegatingHandler) Certificates() ([]*x509.Certificate, error) {
	root, err := h.root()
	if err != nil {
		return nil, err
	}
	return root.Certificates()
}

func (h *delegatingHandler) Cleanup() error {
	if err := h.child.cleanup(); err != nil {
		return err
	}
	return h.ctx.cleanupHandler(h)
}

func (h *delegatingHandler) URI() (string, error)          { return h.ctx.uriFor(h) }
func (h *delegatingHandler) URL() (*url.URL, error)        { return h.ctx.urlFor(h) }
func (h *delegatingHandler) RealURL() (*url.URL, error) {
	root, err := h.root()
	if err != nil {
		return nil, err
	}
	return root.RealURL()
}

// replacementHandler stands in the index at a path whose handler was swapped
// out by ArchiveContext.ReplaceChild. It behaves exactly like a
// zipEntryHandler; it is a distinct type only so Kind() can report that this
// node used to be something else, which the demo CLI's "stat" subcommand
// prints as the handler kind.
type replacementHandler struct {
	*zipEntryHandler
}

func (h *replacementHandler) Kind() HandlerKind { return KindReplacement }
