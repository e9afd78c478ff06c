// Package platform provides the cross-platform filesystem operations the
// installer needs: permission changes, writability checks, file copies, and
// empty-directory cleanup. On Windows, permission bits are not applied and
// writability is probed by creating a file.
package platform
