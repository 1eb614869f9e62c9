package tree

// View is a JSON-friendly copy of a subtree.
type View struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
	Type     string `json:"type"`
	Size     int64  `json:"size,omitempty"`
	Files    int    `json:"files"`
	Children []View `json:"children,omitempty"`
}

// ViewOf copies the subtree below n.
func ViewOf(n *Node) View {
	v := View{
		Title: n.Title,
		URL:   n.URL,
		Path:  n.ContentPath(),
		Type:  n.Type,
		Size:  n.Size,
		Files: CountFiles(n),
	}
	for _, child := range n.children.nodes {
		v.Children = append(v.Children, ViewOf(child))
	}
	return v
}

// Views copies the whole forest, one View per root.
func (f *Forest) Views() []View {
	views := make([]View, 0, f.roots.len())
	for _, root := range f.roots.nodes {
		views = append(views, ViewOf(root))
	}
	return views
}
