package scope

import (
	"fmt"

	"github.com/jward/varscope/internal/jsast"
)

// declare registers every declared identifier in its target scope.
func (a *Analysis) declare() error {
	tree := a.tree
	var err error
	tree.Walk(tree.Root(), func(id jsast.NodeID) bool {
		if err != nil {
			return false
		}
		err = a.declareNode(id)
		return err == nil
	}, nil)
	return err
}

func (a *Analysis) declareNode(id jsast.NodeID) error {
	tree := a.tree
	n := tree.Node(id)
	switch n.Kind {
	case jsast.KindVariableDeclaration:
		kind := BindingLexical
		if a.taxonomy.IsBlockKeyword(n.Keyword) {
			kind = BindingBlock
		}
		var targets []jsast.NodeID
		for _, d := range n.Children {
			if tree.Node(d).Kind != jsast.KindVariableDeclarator {
				continue
			}
			target := tree.Child(d, jsast.RoleID)
			if target == jsast.NoNode {
				return &InvariantError{Node: d, Kind: jsast.KindVariableDeclarator, Reason: "declarator has no id"}
			}
			targets = append(targets, target)
		}
		return a.register(id, targets, kind)

	case jsast.KindFunctionDeclaration, jsast.KindFunctionExpression, jsast.KindArrowFunction:
		// The name binds outside the function, the parameters inside it.
		if name := tree.Child(id, jsast.RoleID); name != jsast.NoNode {
			if err := a.register(id, []jsast.NodeID{name}, BindingLexical); err != nil {
				return err
			}
		}
		params := tree.ChildrenWithRole(id, jsast.RoleParam)
		if len(params) > 0 {
			return a.register(params[0], params, BindingLexical)
		}

	case jsast.KindClassDeclaration:
		if name := tree.Child(id, jsast.RoleID); name != jsast.NoNode {
			return a.register(id, []jsast.NodeID{name}, BindingBlock)
		}

	case jsast.KindClassExpression:
		// The name is visible only inside the class, in the scope the
		// expression introduces.
		if name := tree.Child(id, jsast.RoleID); name != jsast.NoNode {
			if own := a.introduced[id]; own != NoScope && a.scopes[own].Category != CategoryDynamic {
				return a.bindIn(own, []jsast.NodeID{name}, BindingBlock)
			}
			return a.register(id, []jsast.NodeID{name}, BindingBlock)
		}

	case jsast.KindCatchClause:
		if param := tree.Child(id, jsast.RoleParam); param != jsast.NoNode {
			return a.register(param, []jsast.NodeID{param}, BindingBlock)
		}

	case jsast.KindComprehensionBlock:
		left := tree.Child(id, jsast.RoleLeft)
		if left == jsast.NoNode {
			return &InvariantError{Node: id, Kind: n.Kind, Reason: "comprehension block has no left side"}
		}
		return a.register(left, []jsast.NodeID{left}, BindingBlock)
	}
	return nil
}

// register expands targets to their leaf identifiers and binds each one in
// the scope reached from base's nearest scope.
func (a *Analysis) register(base jsast.NodeID, targets []jsast.NodeID, kind BindingKind) error {
	if len(targets) == 0 {
		return nil
	}
	s := a.targetScope(base, kind)
	if s == NoScope {
		return &StructuralError{Node: base, Reason: "declaration outside any scope"}
	}
	return a.bindIn(s, targets, kind)
}

// bindIn expands targets to their leaf identifiers and binds each one in s.
func (a *Analysis) bindIn(s ScopeID, targets []jsast.NodeID, kind BindingKind) error {
	var leaves []jsast.NodeID
	for _, t := range targets {
		var err error
		leaves, err = a.expand(t, leaves)
		if err != nil {
			return err
		}
	}
	bindings := a.scopes[s].Bindings
	for _, leaf := range leaves {
		bindings[a.tree.Node(leaf).Name] = leaf
		a.declared[leaf] = kind
	}
	return nil
}

// targetScope walks outward from base's nearest scope to the first scope a
// declaration of the given kind binds in.
func (a *Analysis) targetScope(base jsast.NodeID, kind BindingKind) ScopeID {
	for s := a.nearest[base]; s != NoScope; s = a.scopes[s].Parent {
		switch a.scopes[s].Category {
		case CategoryLexical:
			return s
		case CategoryBlock:
			if kind == BindingBlock {
				return s
			}
		}
	}
	return NoScope
}

// expand appends the identifiers bound by a binding target to out,
// descending through destructuring patterns.
func (a *Analysis) expand(id jsast.NodeID, out []jsast.NodeID) ([]jsast.NodeID, error) {
	tree := a.tree
	n, ok := tree.Lookup(id)
	if !ok {
		return out, &InvariantError{Node: id, Kind: jsast.KindOther, Reason: "binding target out of range"}
	}

	switch n.Kind {
	case jsast.KindIdentifier:
		if n.Name == "" {
			return out, &InvariantError{Node: id, Kind: n.Kind, Reason: "identifier has no name"}
		}
		return append(out, id), nil

	case jsast.KindObjectPattern:
		var err error
		for _, c := range n.Children {
			child := tree.Node(c)
			switch child.Kind {
			case jsast.KindProperty:
				value := tree.Child(c, jsast.RoleValue)
				if value == jsast.NoNode {
					return out, &InvariantError{Node: c, Kind: child.Kind, Reason: "pattern property has no value"}
				}
				out, err = a.expand(value, out)
			case jsast.KindRestElement:
				out, err = a.expand(c, out)
			default:
				err = &InvariantError{Node: c, Kind: child.Kind, Reason: "unexpected object pattern member"}
			}
			if err != nil {
				return out, err
			}
		}
		return out, nil

	case jsast.KindArrayPattern:
		var err error
		for _, c := range n.Children {
			if out, err = a.expand(c, out); err != nil {
				return out, err
			}
		}
		return out, nil

	case jsast.KindAssignmentPattern:
		left := tree.Child(id, jsast.RoleLeft)
		if left == jsast.NoNode {
			return out, &InvariantError{Node: id, Kind: n.Kind, Reason: "default has no target"}
		}
		return a.expand(left, out)

	case jsast.KindRestElement:
		arg := tree.Child(id, jsast.RoleArgument)
		if arg == jsast.NoNode {
			return out, &InvariantError{Node: id, Kind: n.Kind, Reason: "rest element has no argument"}
		}
		return a.expand(arg, out)
	}

	return out, &InvariantError{Node: id, Kind: n.Kind, Reason: fmt.Sprintf("%s (%s) is not a binding target", n.Kind, n.Type)}
}
