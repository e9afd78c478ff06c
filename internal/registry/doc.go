// Package registry discovers installable components under a source root and
// indexes them by id, category, and type. It walks the commands/, agents/,
// and hooks/ subtrees, extracts each file with the manifest package, merges
// the embedded hook table, and keeps the resulting snapshot in an explicit
// TTL cache that callers invalidate on demand.
package registry
