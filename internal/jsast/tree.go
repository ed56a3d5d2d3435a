// Package jsast is an arena-allocated syntax tree for JavaScript programs,
// reduced to the constructs that matter for scope analysis.
//
// Nodes are addressed by NodeID, an index into the tree's node slice.
// Front-ends build a Tree with Add; analyses read it through Node, Children
// and Child and never change its shape.
package jsast

import (
	"fmt"
	"sort"
)

// NodeID indexes a node in its Tree.
type NodeID int32

// NoNode marks an absent node reference.
const NoNode NodeID = -1

// Span locates a node in its source. Offsets are byte offsets; lines and
// columns are 0-based, columns counted in bytes.
type Span struct {
	Start     int
	End       int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Node is one syntax tree node.
type Node struct {
	Kind Kind
	// Type is the front-end's own tag for the node, kept for diagnostics.
	Type string
	Role Role
	// Name is set on identifiers.
	Name string
	// Keyword is the declaration keyword of a VariableDeclaration.
	Keyword string
	// Computed is set on member expressions and properties whose key is an
	// arbitrary expression.
	Computed bool
	// Shorthand is set on properties written as a bare name.
	Shorthand bool
	Parent    NodeID
	Children  []NodeID
	Span      Span
}

// Tree owns every node of one parsed program.
type Tree struct {
	nodes      []Node
	root       NodeID
	lineStarts []int
}

// New returns an empty tree over src. The source is only used to compute
// line and column positions.
func New(src []byte) *Tree {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Tree{root: NoNode, lineStarts: starts}
}

// Add appends n as the last child of parent and returns its ID. The first
// node added with parent NoNode becomes the root.
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(t.nodes))
	n.Parent = parent
	n.Children = nil
	t.nodes = append(t.nodes, n)
	if parent == NoNode {
		if t.root == NoNode {
			t.root = id
		}
		return id
	}
	if t.valid(parent) {
		p := &t.nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Root returns the program node, or NoNode for an empty tree.
func (t *Tree) Root() NodeID { return t.root }

// SetRoot overrides the root node.
func (t *Tree) SetRoot(id NodeID) { t.root = id }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID. The pointer stays valid until
// the next Add.
func (t *Tree) Node(id NodeID) *Node {
	if !t.valid(id) {
		panic(fmt.Sprintf("jsast: node %d out of range", id))
	}
	return &t.nodes[id]
}

// Lookup is Node without the panic.
func (t *Tree) Lookup(id NodeID) (*Node, bool) {
	if !t.valid(id) {
		return nil, false
	}
	return &t.nodes[id], true
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Valid reports whether id addresses a node of t.
func (t *Tree) Valid(id NodeID) bool { return t.valid(id) }

// Child returns the first child of id with the given role, or NoNode.
func (t *Tree) Child(id NodeID, role Role) NodeID {
	for _, c := range t.nodes[id].Children {
		if t.valid(c) && t.nodes[c].Role == role {
			return c
		}
	}
	return NoNode
}

// ChildrenWithRole returns all children of id with the given role, in order.
func (t *Tree) ChildrenWithRole(id NodeID, role Role) []NodeID {
	var out []NodeID
	for _, c := range t.nodes[id].Children {
		if t.valid(c) && t.nodes[c].Role == role {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits the subtree at id depth-first. enter is called before the
// children and may return false to skip them; leave, if non-nil, is called
// after them (also for skipped subtrees). Walk assumes an acyclic tree.
func (t *Tree) Walk(id NodeID, enter func(NodeID) bool, leave func(NodeID)) {
	descend := enter(id)
	if descend {
		for _, c := range t.nodes[id].Children {
			t.Walk(c, enter, leave)
		}
	}
	if leave != nil {
		leave(id)
	}
}

// Span builds a span for the byte range [start, end).
func (t *Tree) Span(start, end int) Span {
	sl, sc := t.Position(start)
	el, ec := t.Position(end)
	return Span{Start: start, End: end, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

// Position converts a byte offset into a 0-based line and column.
func (t *Tree) Position(offset int) (line, col int) {
	i := sort.Search(len(t.lineStarts), func(i int) bool { return t.lineStarts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i, offset - t.lineStarts[i]
}

// Offset converts a 0-based line and column back into a byte offset.
func (t *Tree) Offset(line, col int) int {
	if line < 0 {
		return 0
	}
	if line >= len(t.lineStarts) {
		line = len(t.lineStarts) - 1
	}
	return t.lineStarts[line] + col
}
