// Package tree reconstructs the folder hierarchy of a Sakai content listing.
//
// The listing is flat: every record names its own address and, through its
// container path, the folder it lives in. Build matches each container path
// against the paths derived from the other records' addresses and returns a
// Forest. Resolve and ListFiles navigate the result.
//
// A Forest is built once from a snapshot of records and never mutated.
package tree
