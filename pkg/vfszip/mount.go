package vfszip

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// mountNested replaces a would-be ordinary entry with a DelegatingHandler
// once initEntries recognizes it names a nested archive, building a fresh
// ArchiveContext for that archive's own namespace and wiring a
// delegatingHandler into the parent's index in its place. Must be called
// with c.source already under an Acquire/Release scope (initEntries holds
// one for its whole pass).
//
// If building the nested context fails, the failure is reported through the
// exception handler (if one is installed or inherited from a peer) and the
// entry is installed as a plain leaf instead — initEntries must not abort
// the whole archive's indexing over one bad nested entry.
func (c *ArchiveContext) mountNested(raw rawZipEntry, fullLocalPath, childName string, parentInfo *entryInfo) error {
	useCopy := c.aggregatedOptions().UseCopy || CurrentGlobalConfig().ForceCopy

	child, err := c.buildNestedContext(raw, fullLocalPath, useCopy)
	if err != nil {
		c.notifyException(err, fullLocalPath)
		rawCopy := raw
		handler := &zipEntryHandler{ctx: c, name: childName, localPath: fullLocalPath}
		ei := newEntryInfo(handler, &rawCopy)
		c.index.put(fullLocalPath, ei)
		parentInfo.children.add(childName, ei)
		return nil
	}

	dh := &delegatingHandler{ctx: c, name: childName, localPath: fullLocalPath, child: child}
	rawCopy := raw
	ei := newEntryInfo(dh, &rawCopy)
	c.index.put(fullLocalPath, ei)
	parentInfo.children.add(childName, ei)
	return nil
}

func (c *ArchiveContext) buildNestedContext(raw rawZipEntry, fullLocalPath string, useCopy bool) (*ArchiveContext, error) {
	opts := Options{}
	if useCopy {
		tempPath, size, err := c.extractToTemp(raw, fullLocalPath)
		if err != nil {
			return nil, err
		}
		cfg := CurrentGlobalConfig()
		src, err := newFileSource(tempPath, true, opts.NoReaper || cfg.ForceNoReaper, cfg.ReaperGracePeriod)
		if err != nil {
			return nil, err
		}
		rootURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(tempPath)}
		_ = size
		return newContextFromSource(src, childNameOf(fullLocalPath), c, opts, true, rootURL), nil
	}

	rc, err := c.source.OpenEntry(raw.Name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, wrapErr(KindBackingIO, "mountNested", raw.Name, err)
	}
	src, err := newStreamSource(childNameOf(fullLocalPath), data, time.Now())
	if err != nil {
		return nil, err
	}
	rootURL, urlErr := c.urlForRawPath(fullLocalPath)
	if urlErr != nil {
		rootURL = nil
	}
	return newContextFromSource(src, childNameOf(fullLocalPath), c, opts, false, rootURL), nil
}

func childNameOf(fullLocalPath string) string {
	_, name := splitParentChild(fullLocalPath)
	return name
}

// extractToTemp copies a nested archive's inflated bytes to a temp file,
// reusing a previous extraction for the same context-relative path when one
// is still on disk (TempStore). Mirrors ZipEntryContext's TempInfo reuse.
func (c *ArchiveContext) extractToTemp(raw rawZipEntry, fullLocalPath string) (string, int64, error) {
	if info := c.tempStore.lookup(fullLocalPath); info.isValid() {
		if _, err := os.Stat(info.tempPath); err == nil {
			return info.tempPath, info.size, nil
		}
	}

	dir, err := nestedTempDir()
	if err != nil {
		return "", 0, err
	}
	tempPath := filepath.Join(dir, tempFileName(childNameOf(fullLocalPath)))

	rc, err := c.source.OpenEntry(raw.Name)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, wrapErr(KindTempIO, "extractToTemp", tempPath, err)
	}
	size, err := io.Copy(out, rc)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", 0, wrapErr(KindTempIO, "extractToTemp", tempPath, err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return "", 0, wrapErr(KindTempIO, "extractToTemp", tempPath, closeErr)
	}

	c.tempStore.record(fullLocalPath, tempPath, size)
	return tempPath, size, nil
}

// tempFileName mirrors getTempFileName: an 8-character random prefix (so
// repeated mounts of entries with the same base name never collide in one
// temp directory) followed by the entry's own name, for readability when
// debugging leftover files.
func tempFileName(name string) string {
	return uuid.NewString()[:8] + "_" + name
}

func (c *ArchiveContext) urlForRawPath(fullLocalPath string) (*url.URL, error) {
	if c.rootURL == nil {
		return nil, errf(KindStateInvariant, "urlForRawPath", fullLocalPath, "context has no root URL")
	}
	u := *c.rootURL
	u.Scheme = "vfszip"
	u.Path = u.Path + "!/" + fullLocalPath
	return &u, nil
}
