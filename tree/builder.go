package tree

import (
	"github.com/rs/zerolog"

	"github.com/pandatools/panda-bundle/util"
)

// Collision records a sibling title clash. The later node replaced the
// earlier one, which is no longer reachable from the forest.
type Collision struct {
	Parent  string `json:"parent"` // parent address, "" for the top level
	Title   string `json:"title"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// Forest is the reconstructed hierarchy: the top-level nodes plus everything
// below them.
type Forest struct {
	layout     Layout
	roots      titleMap
	nodes      int
	collisions []Collision
}

// Builder turns a record list into a Forest.
type Builder struct {
	Layout Layout
	Logger zerolog.Logger
}

// Build reconstructs the hierarchy with the default layout.
func Build(records []Record) *Forest {
	return Builder{Layout: DefaultLayout(), Logger: zerolog.Nop()}.Build(records)
}

// Build reconstructs the hierarchy of records.
//
// Every node whose container equals the derived path of another collection
// node becomes that node's child; the first such collection in record order
// wins. Nodes without a container, or whose container matches nothing, become
// roots.
func (b Builder) Build(records []Record) *Forest {
	f := &Forest{layout: b.Layout}

	nodes := make([]*Node, len(records))
	derived := make([]string, len(records))
	hasPath := make([]bool, len(records))
	for i, r := range records {
		nodes[i] = newNode(r)
		derived[i], hasPath[i] = DerivedPath(r.URL)
	}
	f.nodes = len(nodes)

	for i, node := range nodes {
		if node.Container == "" {
			f.addRoot(b.Logger, node)
			b.Logger.Debug().Str("title", node.Title).Msg("root: no container")
			continue
		}

		parent := -1
		for j, candidate := range nodes {
			if j == i || !hasPath[j] || !candidate.IsCollection() {
				continue
			}
			if util.Equal(derived[j], node.Container) {
				parent = j
				break
			}
		}

		if parent < 0 {
			f.addRoot(b.Logger, node)
			b.Logger.Debug().
				Str("title", node.Title).
				Str("container", node.Container).
				Msg("root: no parent matched container")
			continue
		}

		p := nodes[parent]
		if displaced := p.children.put(node); displaced != nil {
			f.recordCollision(b.Logger, p.URL, node, displaced)
		}
		b.Logger.Debug().Str("title", node.Title).Str("parent", p.Title).Msg("attached")
	}

	return f
}

func (f *Forest) addRoot(logger zerolog.Logger, n *Node) {
	if displaced := f.roots.put(n); displaced != nil {
		f.recordCollision(logger, "", n, displaced)
	}
}

func (f *Forest) recordCollision(logger zerolog.Logger, parent string, kept, dropped *Node) {
	c := Collision{Parent: parent, Title: kept.Title, Kept: kept.URL, Dropped: dropped.URL}
	f.collisions = append(f.collisions, c)
	logger.Warn().
		Str("parent", parent).
		Str("title", c.Title).
		Str("kept", c.Kept).
		Str("dropped", c.Dropped).
		Msg("sibling title collision, earlier node replaced")
}

// Layout returns the layout the forest was built with.
func (f *Forest) Layout() Layout {
	return f.layout
}

// Roots returns the top-level nodes in insertion order.
func (f *Forest) Roots() []*Node {
	return f.roots.list()
}

// Root returns the top-level node with the given title.
func (f *Forest) Root(title string) (*Node, bool) {
	return f.roots.get(title)
}

// Len returns the number of records the forest was built from.
func (f *Forest) Len() int {
	return f.nodes
}

// Collisions returns the sibling title clashes seen while building.
func (f *Forest) Collisions() []Collision {
	out := make([]Collision, len(f.collisions))
	copy(out, f.collisions)
	return out
}
