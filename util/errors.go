// Package util provides utility functions for panda-bundle.
package util

import "errors"

// Sentinel errors for package util.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Archive errors
	ErrWriterClosed = errors.New("archive writer already finalized")
	ErrEmptyName    = errors.New("archive entry name is empty")
	ErrNotZip       = errors.New("file path extension is not '.zip'")

	// Inode errors
	ErrInodeNotFound = errors.New("inode not found in registry")
)
