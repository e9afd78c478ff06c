// Package project inspects a project directory for the signals the
// recommendation engine and install planner use: languages, linters, test
// frameworks, package manager, and version control. Detection is read-only
// and best effort; unreadable or malformed files are skipped.
package project
