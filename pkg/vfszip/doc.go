// Package vfszip implements a virtual filesystem over zip/jar archives,
// including archives nested arbitrarily deep inside other archives. An
// ArchiveContext indexes one archive lazily on first access; nested
// archives discovered during indexing are mounted as DelegatingHandlers that
// forward content and listing operations to the nested archive's own
// ArchiveContext.
package vfszip
