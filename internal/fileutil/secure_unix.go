//go:build !windows

// Package fileutil creates the few files mailtui writes itself, such as
// the debug log, with owner-only permissions.
// On Unix, the helpers are thin wrappers around os.* and rely on the mode
// bits alone.
// On Windows, owner-only modes (perm & 0077 == 0) additionally set
// a DACL restricting access to the current user.
package fileutil

import "os"

// SecureMkdirAll creates a directory path and all parents that do not yet exist.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureOpenFile opens the named file with specified flag and permissions.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
