// Package testutil provides test helpers for mailtui tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - fs_helpers.go: filesystem operations (WriteFile, ReadFile, MustExist)
//   - encoding.go: byte samples in legacy charsets
//   - email/: rendered message text as the mail program prints it
package testutil
