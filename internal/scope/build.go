package scope

import (
	"fmt"

	"github.com/jward/varscope/internal/jsast"
)

// Build validates tree and creates its scope tree. The returned Analysis has
// scopes and nearest-scope stamps but no bindings or annotations; most
// callers want Analyze instead.
func Build(tree *jsast.Tree, taxonomy Taxonomy) (*Analysis, error) {
	if err := validate(tree); err != nil {
		return nil, err
	}

	a := &Analysis{
		tree:       tree,
		taxonomy:   taxonomy,
		nearest:    make([]ScopeID, tree.Len()),
		introduced: make([]ScopeID, tree.Len()),
		declared:   make(map[jsast.NodeID]BindingKind),
	}
	for i := range a.nearest {
		a.nearest[i] = NoScope
		a.introduced[i] = NoScope
	}

	table := taxonomy.table()
	root := tree.Root()
	var stack []ScopeID
	top := func() ScopeID {
		if len(stack) == 0 {
			return NoScope
		}
		return stack[len(stack)-1]
	}

	tree.Walk(root, func(id jsast.NodeID) bool {
		parent := top()
		a.nearest[id] = parent

		cat := table[tree.Node(id).Kind]
		if id == root {
			cat = CategoryLexical
		}
		if cat == CategoryNone {
			return true
		}

		sid := ScopeID(len(a.scopes))
		s := Scope{ID: sid, Category: cat, Node: id, Parent: parent}
		if cat != CategoryDynamic {
			s.Bindings = make(map[string]jsast.NodeID)
		}
		a.scopes = append(a.scopes, s)
		if parent != NoScope {
			a.scopes[parent].Children = append(a.scopes[parent].Children, sid)
		}
		a.introduced[id] = sid
		stack = append(stack, sid)
		return true
	}, func(id jsast.NodeID) {
		if a.introduced[id] != NoScope {
			stack = stack[:len(stack)-1]
		}
	})

	return a, nil
}

// validate checks that tree's parent and child links describe one tree
// rooted at tree.Root(), so a walk from the root reaches every node exactly
// once and terminates.
func validate(tree *jsast.Tree) error {
	if tree == nil {
		return &StructuralError{Node: jsast.NoNode, Reason: "nil tree"}
	}
	root := tree.Root()
	if !tree.Valid(root) {
		return &StructuralError{Node: jsast.NoNode, Reason: "tree has no root"}
	}
	if p := tree.Node(root).Parent; p != jsast.NoNode {
		return &StructuralError{Node: root, Reason: fmt.Sprintf("root has parent %d", p)}
	}

	n := tree.Len()
	listed := make([]int, n)
	for i := 0; i < n; i++ {
		id := jsast.NodeID(i)
		node := tree.Node(id)
		if node.Parent != jsast.NoNode && !tree.Valid(node.Parent) {
			return &StructuralError{Node: id, Reason: fmt.Sprintf("parent %d out of range", node.Parent)}
		}
		for _, c := range node.Children {
			if !tree.Valid(c) {
				return &StructuralError{Node: id, Reason: fmt.Sprintf("child %d out of range", c)}
			}
			if tree.Node(c).Parent != id {
				return &StructuralError{Node: c, Reason: fmt.Sprintf("listed under %d but parent is %d", id, tree.Node(c).Parent)}
			}
			listed[c]++
		}
	}

	// Every node's parent chain must reach the root without revisiting a
	// node. state: 0 unvisited, 1 on the current chain, 2 known good.
	state := make([]uint8, n)
	state[root] = 2
	var chain []jsast.NodeID
	for i := 0; i < n; i++ {
		chain = chain[:0]
		id := jsast.NodeID(i)
		for state[id] == 0 {
			state[id] = 1
			chain = append(chain, id)
			p := tree.Node(id).Parent
			if p == jsast.NoNode {
				return &StructuralError{Node: jsast.NodeID(i), Reason: "no parent path to the root"}
			}
			id = p
		}
		if state[id] == 1 {
			return &StructuralError{Node: id, Reason: "cyclic parent chain"}
		}
		for _, c := range chain {
			state[c] = 2
		}
	}

	for i := 0; i < n; i++ {
		id := jsast.NodeID(i)
		if id == root {
			continue
		}
		if listed[i] != 1 {
			return &StructuralError{Node: id, Reason: fmt.Sprintf("listed as a child %d times", listed[i])}
		}
	}
	return nil
}
