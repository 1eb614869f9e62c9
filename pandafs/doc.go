// Package pandafs exposes a reconstructed content forest as a read-only FUSE
// filesystem.
//
// Folders map to directories and files to regular files. Nothing is fetched
// while browsing: directory listings come from the forest, and a file's
// contents are downloaded the first time it is opened and kept in memory for
// the life of the mount. Concurrent opens of the same file share one
// download.
//
// Titles containing a slash are listed with the slash replaced by an
// underscore, since a directory entry cannot contain one.
//
// Inodes are derived from node addresses through util.InodeRegistry, so they
// stay stable for as long as the forest does.
package pandafs
