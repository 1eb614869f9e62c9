// Package archive fetches a list of files concurrently and packs them into a
// single zip archive in the order the list gives.
package archive
