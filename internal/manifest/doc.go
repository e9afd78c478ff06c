// Package manifest extracts typed component metadata from command, agent,
// and hook files. A file carries either a YAML frontmatter block between
// "---" markers or, for scripts, a block of "# key: value" header comments.
// Headers are validated against an embedded JSON Schema before they are
// decoded into a Component, so a file either yields a complete record or a
// *ParseError, never something in between.
package manifest
