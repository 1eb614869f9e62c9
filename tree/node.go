package tree

// Node is a record placed in the hierarchy.
type Node struct {
	Record

	children titleMap
}

func newNode(r Record) *Node {
	return &Node{Record: r}
}

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	return n.children.list()
}

// Child returns the child with the given title.
func (n *Node) Child(title string) (*Node, bool) {
	return n.children.get(title)
}

// Len returns the number of children.
func (n *Node) Len() int {
	return n.children.len()
}

// ContentPath returns the node's derived content path, or "" if its address
// carries no content marker.
func (n *Node) ContentPath() string {
	p, _ := DerivedPath(n.URL)
	return p
}

// titleMap is an insertion-ordered map from title to node. Putting an
// existing title replaces the node in place and returns the displaced one.
type titleMap struct {
	nodes []*Node
	index map[string]int
}

func (m *titleMap) put(n *Node) (displaced *Node) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[n.Title]; ok {
		displaced = m.nodes[i]
		m.nodes[i] = n
		return displaced
	}
	m.index[n.Title] = len(m.nodes)
	m.nodes = append(m.nodes, n)
	return nil
}

func (m *titleMap) get(title string) (*Node, bool) {
	i, ok := m.index[title]
	if !ok {
		return nil, false
	}
	return m.nodes[i], true
}

func (m *titleMap) list() []*Node {
	out := make([]*Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

func (m *titleMap) len() int {
	return len(m.nodes)
}
