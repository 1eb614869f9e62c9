package download

import "errors"

var (
	// ErrFolderNotFound is returned when a path scope resolves to no node.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrNoFiles is returned when a scope contains no files.
	ErrNoFiles = errors.New("no files to download")
	// ErrBadFilename is returned by sinks for names that cannot be stored.
	ErrBadFilename = errors.New("invalid archive filename")
)
