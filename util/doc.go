// Package util provides the low-level building blocks shared by the tree,
// archive and filesystem packages of panda-bundle.
//
// Key Components:
//
// Path Matching:
//   - Normalize and Equal compare container paths against paths derived from
//     remote addresses, tolerating percent-encoding and a missing trailing
//     slash. Double-encoded input is handled by a second decoding pass.
//
// Archives:
//   - ZipWriter is an in-memory zip writer whose AddEntry is safe for
//     concurrent use. Finalize returns the finished archive bytes.
//   - ZipEntries, CountFilesInZip and CheckFileInZip inspect finished archives.
//
// Inodes:
//   - InodeRegistry hands out stable inode numbers keyed by remote address for
//     the FUSE view, hashing with colorhash and resolving collisions linearly.
//
// Reports:
//   - Report is the JSON summary written after a download run.
package util
