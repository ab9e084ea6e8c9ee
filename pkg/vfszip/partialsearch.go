package vfszip

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	kzip "github.com/klauspost/compress/zip"
)

// PartialPathSearch resolves a path that may point through one or more
// archives that have not yet been mounted — e.g.
// "/data/outer.jar/lib/inner.jar/com/Foo.class" where only /data/outer.jar
// exists on disk. It walks up from fullPath to the nearest ancestor that
// does exist, then recursively matches the remainder against zip entries by
// longest-prefix, descending into nested archives as needed. It returns an
// ArchiveContext rooted at whatever was matched (a directory, a plain file,
// or a further-nested archive) together with any suffix of fullPath that
// lies inside that returned context.
func PartialPathSearch(fullPath string, opts Options) (*ArchiveContext, string, error) {
	onDisk, suffix, err := findOnDiskAncestor(fullPath)
	if err != nil {
		return nil, "", err
	}
	if suffix == "" {
		ctx, err := NewFromPath(onDisk, opts)
		return ctx, "", err
	}

	fi, err := os.Stat(onDisk)
	if err != nil {
		return nil, "", wrapErr(KindBackingIO, "PartialPathSearch", onDisk, err)
	}
	if fi.IsDir() {
		return nil, "", errf(KindNotFound, "PartialPathSearch", fullPath, "no archive ancestor found")
	}

	f, err := os.Open(onDisk)
	if err != nil {
		return nil, "", wrapErr(KindBackingIO, "PartialPathSearch", onDisk, err)
	}
	defer f.Close()
	return findEntry(f, onDisk, suffix, opts)
}

// findOnDiskAncestor walks fullPath's directory components from the leaf
// upward until it finds one that exists, returning that ancestor and the
// slash-joined remainder below it. Mirrors createZipSource's parent-walk.
func findOnDiskAncestor(fullPath string) (ancestor, suffix string, err error) {
	current := filepath.Clean(fullPath)
	var parts []string
	for {
		if _, statErr := os.Stat(current); statErr == nil {
			return current, strings.Join(parts, "/"), nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", "", errf(KindNotFound, "findOnDiskAncestor", fullPath, "no existing ancestor on disk")
		}
		parts = append([]string{filepath.Base(current)}, parts...)
		current = parent
	}
}

// findEntry buffers r fully (zip streams are not seekable, and a nested
// archive's bytes are already only available as a stream from its parent),
// then finds the longest zip entry name that relative either equals or has
// as a path prefix, and classifies it: a directory yields a dirSource
// rooted at that prefix, a nested archive with more of relative remaining
// is descended into recursively, a nested archive matched exactly becomes a
// streamSource-backed context, and any other entry becomes a
// singleEntrySource leaf. Mirrors ZipEntryContext.findEntry.
func findEntry(r io.Reader, label, relative string, opts Options) (*ArchiveContext, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", wrapErr(KindBackingIO, "findEntry", label, err)
	}
	zr, err := kzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", wrapErr(KindArchiveFormat, "findEntry", label, err)
	}

	relative = strings.TrimPrefix(relative, "/")
	best := longestPrefixMatch(zr.File, relative)
	if best == nil {
		// No entry is an ancestor of relative (no entry equals it, and none is
		// itself a nested archive or explicit directory above it). If entries
		// exist below it, relative names an implicit directory the archive
		// never listed explicitly — synthesize one rooted there, the same way
		// initEntries synthesizes dummy parents.
		if hasEntriesUnder(zr.File, relative) {
			src, err := newDirSource(baseName(relative), data, time.Now())
			if err != nil {
				return nil, "", err
			}
			ctx := newContextFromSource(src, baseName(relative), nil, opts, false, nil)
			ctx.rootEntryPath = relative + "/"
			return ctx, "", nil
		}
		return nil, "", errf(KindNotFound, "findEntry", label+"/"+relative, "no matching entry")
	}

	matchedName := strings.TrimSuffix(best.Name, "/")
	remainder := strings.TrimPrefix(relative[len(matchedName):], "/")

	// Raw zip names are matched against the archive extensions exactly here,
	// unlike isArchiveName's case-insensitive test.
	exactArchive := false
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(matchedName, ext) {
			exactArchive = true
		}
	}

	switch {
	case best.FileInfo().IsDir():
		src, err := newDirSource(baseName(matchedName), data, best.Modified)
		if err != nil {
			return nil, "", err
		}
		ctx := newContextFromSource(src, baseName(matchedName), nil, opts, false, nil)
		ctx.rootEntryPath = best.Name
		return ctx, remainder, nil

	case exactArchive:
		rc, err := best.Open()
		if err != nil {
			return nil, "", wrapErr(KindBackingIO, "findEntry", best.Name, err)
		}
		defer rc.Close()
		if remainder == "" {
			nested, err := io.ReadAll(rc)
			if err != nil {
				return nil, "", wrapErr(KindBackingIO, "findEntry", best.Name, err)
			}
			src, err := newStreamSource(baseName(matchedName), nested, best.Modified)
			if err != nil {
				return nil, "", err
			}
			return newContextFromSource(src, baseName(matchedName), nil, opts, false, nil), "", nil
		}
		return findEntry(rc, label+"/"+matchedName, remainder, opts)

	default:
		if remainder != "" {
			return nil, "", errf(KindNotFound, "findEntry", label+"/"+relative, "path continues past a non-archive entry")
		}
		src := newSingleEntrySource(baseName(matchedName), best)
		return newContextFromSource(src, baseName(matchedName), nil, opts, false, nil), "", nil
	}
}

func hasEntriesUnder(files []*kzip.File, relative string) bool {
	prefix := relative + "/"
	for _, zf := range files {
		if strings.HasPrefix(zf.Name, prefix) {
			return true
		}
	}
	return false
}

func longestPrefixMatch(files []*kzip.File, relative string) *kzip.File {
	var best *kzip.File
	bestLen := -1
	for _, zf := range files {
		name := strings.TrimSuffix(zf.Name, "/")
		if name == "" {
			continue
		}
		if relative == name || strings.HasPrefix(relative, name+"/") {
			if len(name) > bestLen {
				best = zf
				bestLen = len(name)
			}
		}
	}
	return best
}
