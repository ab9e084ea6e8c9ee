package vfszip

import "strings"

// splitParentChild breaks a context-local path into its parent path and its
// final path segment. It mirrors ZipEntryContext.splitParentChild: a leading
// slash is stripped, a trailing slash is trimmed before splitting, and the
// root path "" splits into ("", "") signaling "this is the root itself" (the
// caller is expected to special-case an empty pathName before calling this,
// since the root has no parent at all).
func splitParentChild(pathName string) (parent, child string) {
	pathName = strings.TrimPrefix(pathName, "/")
	if pathName == "" {
		return "", ""
	}

	toPos := len(pathName)
	if pathName[toPos-1] == '/' {
		toPos--
	}

	delim := strings.LastIndexByte(pathName[:toPos], '/')
	if delim == -1 {
		return "", pathName[:toPos]
	}
	return pathName[:delim], pathName[delim+1 : toPos]
}

// joinPath concatenates a parent's local path with a child name, the way
// ArchiveContext.getChild does: "parent/child", or just "child" when parent
// is the context root.
func joinPath(parentLocalPath, name string) string {
	if parentLocalPath == "" {
		return name
	}
	return parentLocalPath + "/" + name
}
