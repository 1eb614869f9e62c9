package tree

import (
	"github.com/pandatools/panda-bundle/util"
)

// FileEntry is a file to fetch and the archive-relative path to store it under.
type FileEntry struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Resolve finds the node whose address equals the access root joined with
// contentPath. The search is depth-first over every root, children in
// insertion order, and the first match wins.
func (f *Forest) Resolve(contentPath string) (*Node, bool) {
	expected := f.layout.AddressOf(contentPath)

	var found *Node
	f.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if util.EqualAddress(n.URL, expected) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Walk visits every reachable node depth-first, parents before children.
// Returning false from fn skips the node's children.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	for _, root := range f.roots.nodes {
		walk(root, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.children.nodes {
		walk(child, depth+1, fn)
	}
}

// ListFiles returns every file below n with its path from n. A file node
// yields itself under its own title; an empty folder yields nothing.
func ListFiles(n *Node) []FileEntry {
	return listFiles(n, "")
}

func listFiles(n *Node, base string) []FileEntry {
	if !n.IsCollection() {
		return []FileEntry{{URL: n.URL, Path: base + n.Title}}
	}
	var files []FileEntry
	prefix := base + n.Title + util.Separator
	for _, child := range n.children.nodes {
		files = append(files, listFiles(child, prefix)...)
	}
	return files
}

// ListAll concatenates ListFiles over every root, in root order.
func (f *Forest) ListAll() []FileEntry {
	var files []FileEntry
	for _, root := range f.roots.nodes {
		files = append(files, ListFiles(root)...)
	}
	return files
}

// CountFiles returns the number of file nodes below n, n included.
func CountFiles(n *Node) int {
	if !n.IsCollection() {
		return 1
	}
	total := 0
	for _, child := range n.children.nodes {
		total += CountFiles(child)
	}
	return total
}

// TotalSize sums the listed sizes of the file nodes below n.
func TotalSize(n *Node) int64 {
	if !n.IsCollection() {
		return n.Size
	}
	var total int64
	for _, child := range n.children.nodes {
		total += TotalSize(child)
	}
	return total
}
