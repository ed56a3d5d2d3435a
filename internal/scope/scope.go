// Package scope performs static scope resolution over a jsast.Tree.
//
// Analysis runs four passes in strict sequence:
//
//  1. Build: create a scope for every scope-introducing node and record the
//     nearest enclosing scope of every node.
//  2. Declare: register every declared identifier in the scope its
//     declaration kind binds it to.
//  3. Resolve: walk each reference up its scope chain to its declaration and
//     collect which bindings are reached through a with statement.
//  4. Classify: produce the final, immutable Classification of each
//     reference.
//
// Scopes live in an arena owned by the Analysis and are addressed by
// ScopeID. Nothing in the input tree is modified.
package scope

import (
	"sort"

	"github.com/jward/varscope/internal/jsast"
)

// ScopeID indexes a scope in its Analysis.
type ScopeID int32

// NoScope marks an absent scope reference.
const NoScope ScopeID = -1

// Scope is one node of the scope tree.
type Scope struct {
	ID       ScopeID
	Category Category
	// Node introduced the scope.
	Node     jsast.NodeID
	Parent   ScopeID
	Children []ScopeID
	// Bindings maps a name to its declaring identifier. Dynamic scopes have
	// none.
	Bindings map[string]jsast.NodeID
}

// BindingKind is how a reference's declaration binds its name.
type BindingKind uint8

const (
	BindingUndeclared BindingKind = iota
	BindingLexical
	BindingBlock
)

func (k BindingKind) String() string {
	switch k {
	case BindingLexical:
		return "lexical"
	case BindingBlock:
		return "block"
	}
	return "undeclared"
}

// ParseBindingKind is the inverse of BindingKind.String.
func ParseBindingKind(s string) BindingKind {
	switch s {
	case "lexical":
		return BindingLexical
	case "block":
		return BindingBlock
	}
	return BindingUndeclared
}

// Classification is the final record for one identifier.
type Classification struct {
	BindingKind BindingKind
	IsTopLevel  bool
	// UsedInDynamicScope is set when any reference to the same binding was
	// resolved through a with statement.
	UsedInDynamicScope bool
	// InsideDynamicScope is set when this reference itself was resolved
	// through a with statement.
	InsideDynamicScope bool
}

// Annotation is attached to every identifier that binds or references a
// name.
type Annotation struct {
	// Scope declares the name, or NoScope for an undeclared reference.
	Scope ScopeID
	// Declaration is the declaring identifier, or NoNode.
	Declaration    jsast.NodeID
	Classification Classification
}

// Undeclared reports whether the identifier resolved to no declaration.
func (a Annotation) Undeclared() bool { return a.Scope == NoScope }

// Analysis holds the scope tree and identifier annotations for one tree.
type Analysis struct {
	tree     *jsast.Tree
	taxonomy Taxonomy

	scopes []Scope
	// nearest is the enclosing scope of each node, indexed by NodeID.
	nearest []ScopeID
	// introduced is the scope each node created, or NoScope.
	introduced []ScopeID

	// declared records the binding kind of every registered identifier.
	declared map[jsast.NodeID]BindingKind

	refs     []jsast.NodeID
	resolved map[jsast.NodeID]resolution
	// tainted is the union, per declaring identifier, of references that
	// reached it through a dynamic scope.
	tainted map[jsast.NodeID]bool

	annotations map[jsast.NodeID]Annotation
}

// Tree returns the analysed tree.
func (a *Analysis) Tree() *jsast.Tree { return a.tree }

// Taxonomy returns the taxonomy the scopes were built with.
func (a *Analysis) Taxonomy() Taxonomy { return a.taxonomy }

// Root returns the program scope.
func (a *Analysis) Root() ScopeID {
	if len(a.scopes) == 0 {
		return NoScope
	}
	return 0
}

// Scope returns the scope with the given ID.
func (a *Analysis) Scope(id ScopeID) *Scope { return &a.scopes[id] }

// Scopes returns every scope in creation (pre-order) order.
func (a *Analysis) Scopes() []Scope { return a.scopes }

// NearestScope returns the scope enclosing node. For a scope-introducing
// node this is the scope outside it.
func (a *Analysis) NearestScope(node jsast.NodeID) ScopeID {
	if int(node) < 0 || int(node) >= len(a.nearest) {
		return NoScope
	}
	return a.nearest[node]
}

// IntroducedBy returns the scope node created, or NoScope.
func (a *Analysis) IntroducedBy(node jsast.NodeID) ScopeID {
	if int(node) < 0 || int(node) >= len(a.introduced) {
		return NoScope
	}
	return a.introduced[node]
}

// Chain returns id and its ancestors, innermost first.
func (a *Analysis) Chain(id ScopeID) []ScopeID {
	var out []ScopeID
	for s := id; s != NoScope; s = a.scopes[s].Parent {
		out = append(out, s)
	}
	return out
}

// Lookup resolves name from scope id outward, ignoring dynamic scopes.
func (a *Analysis) Lookup(id ScopeID, name string) (ScopeID, jsast.NodeID) {
	for s := id; s != NoScope; s = a.scopes[s].Parent {
		if decl, ok := a.scopes[s].Bindings[name]; ok {
			return s, decl
		}
	}
	return NoScope, jsast.NoNode
}

// DeclarationKind returns the binding kind node was registered with.
func (a *Analysis) DeclarationKind(node jsast.NodeID) (BindingKind, bool) {
	k, ok := a.declared[node]
	return k, ok
}

// IsDeclaration reports whether node is a registered declaring identifier.
func (a *Analysis) IsDeclaration(node jsast.NodeID) bool {
	_, ok := a.declared[node]
	return ok
}

// Declarations returns every registered declaring identifier, ordered by
// node ID.
func (a *Analysis) Declarations() []jsast.NodeID {
	out := make([]jsast.NodeID, 0, len(a.declared))
	for id := range a.declared {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// References returns every annotated identifier in traversal order.
func (a *Analysis) References() []jsast.NodeID { return a.refs }

// Annotation returns the annotation for an identifier node.
func (a *Analysis) Annotation(node jsast.NodeID) (Annotation, bool) {
	ann, ok := a.annotations[node]
	return ann, ok
}

// Undeclared returns the references that resolved to no declaration.
func (a *Analysis) Undeclared() []jsast.NodeID {
	var out []jsast.NodeID
	for _, id := range a.refs {
		if ann, ok := a.annotations[id]; ok && ann.Undeclared() {
			out = append(out, id)
		}
	}
	return out
}

// ReferencesTo returns the references that resolved to decl, including
// decl itself.
func (a *Analysis) ReferencesTo(decl jsast.NodeID) []jsast.NodeID {
	var out []jsast.NodeID
	for _, id := range a.refs {
		if ann, ok := a.annotations[id]; ok && ann.Declaration == decl {
			out = append(out, id)
		}
	}
	return out
}

// Clear drops all identifier annotations. The scope tree is kept.
func (a *Analysis) Clear() {
	a.annotations = nil
	a.resolved = nil
	a.tainted = nil
	a.refs = nil
}
