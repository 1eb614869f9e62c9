// Package main provides the pandabundle command-line interface.
//
// pandabundle rebuilds the folder hierarchy of a PandA (Sakai) course site
// from its flat content listing and packs a folder, or the whole site, into a
// single zip archive. Files are fetched concurrently and written to the
// archive in listing order.
//
// The binary supports these subcommands:
//   - download: build a zip for a folder (--path) or the whole site (--all)
//   - tree: print the rebuilt hierarchy
//   - count: count the files below a folder
//   - validate: check a zip against the listing
//   - records: save the raw listing for offline use
//   - seed: generate a synthetic listing
//   - mount: expose the site as a read-only FUSE filesystem
//   - serve: HTTP API and zip downloads
package main
