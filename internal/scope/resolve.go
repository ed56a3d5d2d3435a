package scope

import "github.com/jward/varscope/internal/jsast"

// resolution is the pass-one result for a single reference.
type resolution struct {
	scope   ScopeID
	decl    jsast.NodeID
	exposed bool
}

// isReference reports whether id is an identifier that names a variable.
// Property names after a dot, plain object and class keys, and statement
// labels are not references.
func (a *Analysis) isReference(id jsast.NodeID) bool {
	tree := a.tree
	n := tree.Node(id)
	if n.Kind != jsast.KindIdentifier {
		return false
	}
	switch n.Role {
	case jsast.RoleLabel:
		return false
	case jsast.RoleProperty:
		if p, ok := tree.Lookup(n.Parent); ok && p.Kind == jsast.KindMemberExpression {
			return p.Computed
		}
	case jsast.RoleKey:
		if p, ok := tree.Lookup(n.Parent); ok && p.Kind == jsast.KindProperty {
			return p.Computed
		}
	}
	return true
}

// resolveReferences walks every reference to its declaration and records
// which declarations are reached through a dynamic scope.
func (a *Analysis) resolveReferences() {
	tree := a.tree
	a.refs = a.refs[:0]
	a.resolved = make(map[jsast.NodeID]resolution)
	a.tainted = make(map[jsast.NodeID]bool)

	tree.Walk(tree.Root(), func(id jsast.NodeID) bool {
		if !a.isReference(id) {
			return true
		}
		r := a.resolve(id)
		a.refs = append(a.refs, id)
		a.resolved[id] = r
		if r.exposed && r.decl != jsast.NoNode && r.decl != id {
			a.tainted[r.decl] = true
		}
		return true
	}, nil)
}

func (a *Analysis) resolve(id jsast.NodeID) resolution {
	name := a.tree.Node(id).Name
	r := resolution{scope: NoScope, decl: jsast.NoNode}
	for s := a.nearest[id]; s != NoScope; s = a.scopes[s].Parent {
		sc := &a.scopes[s]
		if sc.Category == CategoryDynamic {
			if a.tree.Child(sc.Node, jsast.RoleObject) != id {
				r.exposed = true
			}
			continue
		}
		if decl, ok := sc.Bindings[name]; ok {
			r.scope = s
			r.decl = decl
			return r
		}
	}
	return r
}

// classify turns the pass-one results into annotations. It must run after
// resolveReferences has seen every reference.
func (a *Analysis) classify() {
	root := a.Root()
	a.annotations = make(map[jsast.NodeID]Annotation, len(a.refs))
	for _, id := range a.refs {
		r := a.resolved[id]
		c := Classification{
			IsTopLevel:         r.scope == NoScope || r.scope == root,
			InsideDynamicScope: r.exposed,
		}
		if r.decl != jsast.NoNode {
			c.BindingKind = a.declared[r.decl]
			c.UsedInDynamicScope = a.tainted[r.decl]
		}
		a.annotations[id] = Annotation{Scope: r.scope, Declaration: r.decl, Classification: c}
	}
}
