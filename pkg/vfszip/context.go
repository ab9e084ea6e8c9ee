package vfszip

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type contextInitState int32

const (
	stateNotInitialized contextInitState = iota
	stateInitializing
	stateInitialized
)

// ArchiveContext is the indexed view over one archive: either the archive a
// caller opened directly (NewFromPath), or one reached by mounting a nested
// archive discovered inside another (see mount.go), or a synthetic one
// produced by PartialPathSearch rooted partway into an ancestor archive's
// own namespace (see partialsearch.go). It mirrors ZipEntryContext.
type ArchiveContext struct {
	source        ZipSource
	peer          *ArchiveContext
	options       Options
	rootEntryPath string
	name          string
	rootURL       *url.URL
	autoClean     bool
	rootIsLeaf    bool

	index      entryIndex
	initStateV int32
	initGroup  singleflight.Group

	tempStore *tempStore

	rootHandler *zipEntryHandler

	exceptionHandlerMu sync.Mutex
	exceptionHandler   func(err error, archiveName string)
}

func newContextFromSource(source ZipSource, name string, peer *ArchiveContext, opts Options, autoClean bool, rootURL *url.URL) *ArchiveContext {
	c := &ArchiveContext{
		source:    source,
		peer:      peer,
		options:   opts,
		name:      name,
		rootURL:   rootURL,
		autoClean: autoClean,
		tempStore: newTempStore(),
	}
	if _, ok := source.(*singleEntrySource); ok {
		c.rootIsLeaf = true
	}
	root := &zipEntryHandler{ctx: c, name: name, localPath: ""}
	c.rootHandler = root
	c.index.put("", newEntryInfo(root, nil))
	return c
}

// NewFromPath opens the file at path as the root of a new ArchiveContext.
// Indexing is lazy: no file is read until the first handler operation.
func NewFromPath(path string, opts Options) (*ArchiveContext, error) {
	cfg := CurrentGlobalConfig()
	noReaper := opts.NoReaper || cfg.ForceNoReaper
	src, err := newFileSource(path, false, noReaper, cfg.ReaperGracePeriod)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rootURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return newContextFromSource(src, baseName(path), nil, opts, false, rootURL), nil
}

// Root returns the handler for the context's own root entry.
func (c *ArchiveContext) Root() (VirtualFileHandler, error) {
	return c.rootHandler, nil
}

func (c *ArchiveContext) aggregatedOptions() Options {
	if c.peer == nil {
		return c.options
	}
	return c.peer.aggregatedOptions().merge(c.options)
}

// SetExceptionHandler installs a handler invoked with the failing archive's
// name whenever initEntries fails or a nested mount (copy or no-copy mode)
// cannot be built. A context with no handler of its own inherits its peer's,
// i.e. the handler of the context that mounted it.
func (c *ArchiveContext) SetExceptionHandler(fn func(err error, archiveName string)) {
	c.exceptionHandlerMu.Lock()
	c.exceptionHandler = fn
	c.exceptionHandlerMu.Unlock()
}

func (c *ArchiveContext) effectiveExceptionHandler() func(err error, archiveName string) {
	c.exceptionHandlerMu.Lock()
	fn := c.exceptionHandler
	c.exceptionHandlerMu.Unlock()
	if fn != nil {
		return fn
	}
	if c.peer != nil {
		return c.peer.effectiveExceptionHandler()
	}
	return nil
}

// notifyException invokes the effective exception handler, if any, and
// reports whether one was present to handle it.
func (c *ArchiveContext) notifyException(err error, archiveName string) bool {
	fn := c.effectiveExceptionHandler()
	if fn == nil {
		return false
	}
	fn(err, archiveName)
	return true
}

// ensureEntries guarantees initEntries has run at least once, collapsing
// concurrent callers into a single execution (spec.md's single-flight lazy
// init requirement), then checks whether the backing archive has changed
// since that indexing and re-indexes if so.
func (c *ArchiveContext) ensureEntries() error {
	if contextInitState(atomic.LoadInt32(&c.initStateV)) == stateInitialized {
		return c.checkIfModified()
	}
	_, err, _ := c.initGroup.Do("init", func() (interface{}, error) {
		if contextInitState(atomic.LoadInt32(&c.initStateV)) == stateInitialized {
			return nil, nil
		}
		atomic.StoreInt32(&c.initStateV, int32(stateInitializing))
		if err := c.initEntries(); err != nil {
			atomic.StoreInt32(&c.initStateV, int32(stateNotInitialized))
			if c.notifyException(err, c.name) {
				return nil, nil
			}
			return nil, err
		}
		atomic.StoreInt32(&c.initStateV, int32(stateInitialized))
		return nil, nil
	})
	if err != nil {
		return err
	}
	return c.checkIfModified()
}

func (c *ArchiveContext) resetInitStatus() {
	atomic.StoreInt32(&c.initStateV, int32(stateNotInitialized))
}

// checkIfModified re-indexes from scratch, keeping only the root EntryInfo,
// when the backing archive's modification time has moved on since the last
// index. Matches ZipEntryContext.checkIfModified.
func (c *ArchiveContext) checkIfModified() error {
	if !c.source.HasBeenModified() {
		return nil
	}
	c.resetInitStatus()
	c.index.clearKeepRoot()
	return c.ensureEntries()
}

// initEntries performs the two-phase indexing pass: entries are visited in
// ascending name order so a directory entry is always indexed before its
// children (and so any missing ancestor directory can be synthesized on
// first need), then each entry is classified as a nested archive (mounted
// via NestedMount) or an ordinary leaf/directory entry.
func (c *ArchiveContext) initEntries() error {
	if err := c.source.Acquire(); err != nil {
		return err
	}
	defer c.source.Release()

	rawEntries, err := c.source.Entries()
	if err != nil {
		return err
	}
	sort.Slice(rawEntries, func(i, j int) bool { return rawEntries[i].Name < rawEntries[j].Name })

	root, _ := c.index.get("")

	for _, raw := range rawEntries {
		if len(raw.Name) < len(c.rootEntryPath) || raw.Name[:len(c.rootEntryPath)] != c.rootEntryPath {
			continue
		}
		fullName := raw.Name[len(c.rootEntryPath):]
		if fullName == "" {
			continue
		}
		parentPath, childName := splitParentChild(fullName)
		if childName == "" {
			continue
		}

		parentInfo, err := c.ensureDummyParentChain(parentPath, root)
		if err != nil {
			return err
		}

		fullLocalPath := joinPath(parentPath, childName)

		if !raw.IsDir && isArchiveName(childName) {
			if err := c.mountNested(raw, fullLocalPath, childName, parentInfo); err != nil {
				return err
			}
			continue
		}

		rawCopy := raw
		handler := &zipEntryHandler{ctx: c, name: childName, localPath: fullLocalPath}
		ei := newEntryInfo(handler, &rawCopy)
		c.index.put(fullLocalPath, ei)
		parentInfo.children.add(childName, ei)
	}
	return nil
}

// ensureDummyParentChain returns the entryInfo for parentPath, synthesizing
// it (and any of its own missing ancestors) as an empty directory if the
// archive never listed it explicitly. Mirrors makeDummyParent.
func (c *ArchiveContext) ensureDummyParentChain(parentPath string, root *entryInfo) (*entryInfo, error) {
	if parentPath == "" {
		return root, nil
	}
	if ei, ok := c.index.get(parentPath); ok {
		return ei, nil
	}
	grandParentPath, name := splitParentChild(parentPath)
	grandParentInfo, err := c.ensureDummyParentChain(grandParentPath, root)
	if err != nil {
		return nil, err
	}
	handler := &zipEntryHandler{ctx: c, name: name, localPath: parentPath}
	ei := newEntryInfo(handler, nil)
	c.index.put(parentPath, ei)
	grandParentInfo.children.add(name, ei)
	return ei, nil
}

func (c *ArchiveContext) parentOf(h VirtualFileHandler) (VirtualFileHandler, error) {
	if h.LocalPathName() == "" {
		return nil, nil
	}
	if err := c.ensureEntries(); err != nil {
		return nil, err
	}
	parentPath, _ := splitParentChild(h.LocalPathName())
	ei, ok := c.index.get(parentPath)
	if !ok {
		return nil, errf(KindNotFound, "parent", parentPath, "no such entry")
	}
	return ei.handler, nil
}

func (c *ArchiveContext) getChild(h VirtualFileHandler, name string) (VirtualFileHandler, error) {
	if err := c.ensureEntries(); err != nil {
		return nil, err
	}
	childPath := joinPath(h.LocalPathName(), name)
	ei, ok := c.index.get(childPath)
	if !ok {
		return nil, errf(KindNotFound, "child", childPath, "no such entry")
	}
	return ei.handler, nil
}

func (c *ArchiveContext) getChildren(h VirtualFileHandler, ignoreErrors bool) ([]VirtualFileHandler, error) {
	if err := c.ensureEntries(); err != nil {
		if ignoreErrors {
			return nil, nil
		}
		return nil, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		if ignoreErrors {
			return nil, nil
		}
		return nil, errf(KindNotFound, "children", h.LocalPathName(), "no such entry")
	}
	kids := ei.children.list()
	out := make([]VirtualFileHandler, 0, len(kids))
	for _, k := range kids {
		out = append(out, k.handler)
	}
	return out, nil
}

func (c *ArchiveContext) exists(h VirtualFileHandler) (bool, error) {
	if h.LocalPathName() == "" {
		return c.source.Exists(), nil
	}
	if err := c.ensureEntries(); err != nil {
		return false, err
	}
	_, ok := c.index.get(h.LocalPathName())
	return ok, nil
}

func (c *ArchiveContext) isLeaf(h VirtualFileHandler) (bool, error) {
	if h.LocalPathName() == "" {
		return c.rootIsLeaf, nil
	}
	if err := c.ensureEntries(); err != nil {
		return false, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		return false, errf(KindNotFound, "isLeaf", h.LocalPathName(), "no such entry")
	}
	return !ei.isDirectory(), nil
}

func (c *ArchiveContext) size(h VirtualFileHandler) (int64, error) {
	if h.LocalPathName() == "" {
		return c.source.Size(), nil
	}
	if err := c.ensureEntries(); err != nil {
		return 0, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		return 0, errf(KindNotFound, "size", h.LocalPathName(), "no such entry")
	}
	if ei.rawEntry == nil {
		return 0, nil
	}
	return ei.rawEntry.Size, nil
}

func (c *ArchiveContext) lastModified(h VirtualFileHandler) (time.Time, error) {
	if h.LocalPathName() == "" {
		return c.source.LastModified(), nil
	}
	if err := c.ensureEntries(); err != nil {
		return time.Time{}, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		return time.Time{}, errf(KindNotFound, "lastModified", h.LocalPathName(), "no such entry")
	}
	if ei.rawEntry == nil {
		return c.source.LastModified(), nil
	}
	return ei.rawEntry.ModTime, nil
}

// releasingReadCloser forwards Close to the wrapped stream and then releases
// the ZipSource scope that was acquired to open it, keeping a fileSource's
// descriptor alive for exactly as long as a caller is reading an entry.
type releasingReadCloser struct {
	rc      io.ReadCloser
	release func()
	once    sync.Once
}

func (r *releasingReadCloser) Read(p []byte) (int, error) { return r.rc.Read(p) }

func (r *releasingReadCloser) Close() error {
	err := r.rc.Close()
	r.once.Do(r.release)
	return err
}

func (c *ArchiveContext) openStream(h VirtualFileHandler) (io.ReadCloser, error) {
	if h.LocalPathName() == "" {
		return c.source.RootAsStream()
	}

	if err := c.ensureEntries(); err != nil {
		return nil, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		return nil, errf(KindNotFound, "openStream", h.LocalPathName(), "no such entry")
	}
	if ei.rawEntry == nil || ei.rawEntry.IsDir {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if err := c.source.Acquire(); err != nil {
		return nil, err
	}
	rc, err := c.source.OpenEntry(ei.rawEntry.Name)
	if err != nil {
		c.source.Release()
		return nil, err
	}
	return &releasingReadCloser{rc: rc, release: c.source.Release}, nil
}

func (c *ArchiveContext) certificates(h VirtualFileHandler) ([]*x509.Certificate, error) {
	if h.LocalPathName() == "" {
		return []*x509.Certificate{}, nil
	}
	if err := c.ensureEntries(); err != nil {
		return nil, err
	}
	ei, ok := c.index.get(h.LocalPathName())
	if !ok {
		return nil, errf(KindNotFound, "certificates", h.LocalPathName(), "no such entry")
	}
	return ei.getCertificates(), nil
}

func (c *ArchiveContext) cleanupHandler(VirtualFileHandler) error { return nil }

// cleanup tears down every nested mount reachable from this context and, if
// this context itself owns an extracted temp file (a copy-mode nested
// mount), removes it.
func (c *ArchiveContext) cleanup() error {
	root, ok := c.index.get("")
	var firstErr error
	if ok {
		var walk func(ei *entryInfo)
		walk = func(ei *entryInfo) {
			for _, child := range ei.children.list() {
				if dh, ok := child.handler.(*delegatingHandler); ok {
					if err := dh.child.cleanup(); err != nil && firstErr == nil {
						firstErr = err
					}
				}
				walk(child)
			}
		}
		walk(root)
	}
	if c.autoClean {
		c.source.Delete(0)
	}
	return firstErr
}

func (c *ArchiveContext) uriFor(h VirtualFileHandler) (string, error) {
	u, err := c.urlFor(h)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *ArchiveContext) urlFor(h VirtualFileHandler) (*url.URL, error) {
	if c.rootURL == nil {
		return nil, errf(KindStateInvariant, "url", h.LocalPathName(), "context has no root URL")
	}
	u := *c.rootURL
	u.Scheme = "vfszip"
	if h.LocalPathName() != "" {
		u.Path = u.Path + "!/" + h.LocalPathName()
	}
	return &u, nil
}

func (c *ArchiveContext) realURLFor(h VirtualFileHandler) (*url.URL, error) {
	if c.rootURL == nil {
		return nil, errf(KindStateInvariant, "realURL", h.LocalPathName(), "context has no root URL")
	}
	raw := fmt.Sprintf("jar:%s!/%s", c.rootURL.String(), h.LocalPathName())
	u, err := url.Parse(raw)
	if err != nil {
		return nil, wrapErr(KindBadArgument, "realURL", h.LocalPathName(), err)
	}
	return u, nil
}

// ReplaceChild swaps the handler stored at name (a direct child of parent)
// for replacement, tagging the slot as KindReplacement. Mirrors
// EntryInfo.replaceChild; useful to callers overlaying synthetic content
// onto an otherwise real archive tree (the demo CLI does not use this —
// it exists for library consumers, and is exercised directly by tests).
func (c *ArchiveContext) ReplaceChild(parent VirtualFileHandler, name string, replacement VirtualFileHandler) error {
	if err := c.ensureEntries(); err != nil {
		return err
	}
	parentPath := parent.LocalPathName()
	parentInfo, ok := c.index.get(parentPath)
	if !ok {
		return errf(KindStateInvariant, "replaceChild", parentPath, "no such parent")
	}
	childPath := joinPath(parentPath, name)
	existing, ok := c.index.get(childPath)
	if !ok {
		return errf(KindStateInvariant, "replaceChild", childPath, "no existing child to replace")
	}
	zh, ok := replacement.(*zipEntryHandler)
	if !ok {
		zh = &zipEntryHandler{ctx: c, name: name, localPath: childPath}
	}
	rep := &replacementHandler{zipEntryHandler: zh}
	ei := newEntryInfo(rep, existing.rawEntry)
	c.index.put(childPath, ei)
	if !parentInfo.children.replace(name, ei) {
		parentInfo.children.add(name, ei)
	}
	return nil
}
