package varscope

import (
	"github.com/jward/varscope/internal/jsast"
	"github.com/jward/varscope/internal/scope"
	"github.com/jward/varscope/internal/store"
)

// UnitAnalysis is the scope analysis of one program in a file. Index
// numbers inline scripts in HTML documents and is 0 for JavaScript files.
type UnitAnalysis struct {
	Index    int
	Analysis *scope.Analysis
}

// Occurrences returns every annotated identifier of the unit in traversal
// order, located in file. ID is the identifier's node ID within the unit's
// tree.
func (u UnitAnalysis) Occurrences(file string) []Occurrence {
	a := u.Analysis
	tree := a.Tree()
	out := make([]Occurrence, 0, len(a.References()))
	for _, id := range a.References() {
		ann, _ := a.Annotation(id)
		o := Occurrence{
			Location:      nodeLocation(file, tree, id),
			ID:            int64(id),
			Unit:          u.Index,
			Name:          tree.Node(id).Name,
			Declaration:   a.IsDeclaration(id),
			BindingKind:   ann.Classification.BindingKind.String(),
			TopLevel:      ann.Classification.IsTopLevel,
			UsedInDynamic: ann.Classification.UsedInDynamicScope,
			InsideDynamic: ann.Classification.InsideDynamicScope,
		}
		if !ann.Undeclared() {
			loc := nodeLocation(file, tree, ann.Declaration)
			o.DeclaredAt = &loc
		}
		out = append(out, o)
	}
	return out
}

func nodeLocation(file string, tree *jsast.Tree, id jsast.NodeID) Location {
	sp := tree.Node(id).Span
	return Location{
		File:      file,
		StartLine: sp.StartLine,
		StartCol:  sp.StartCol,
		EndLine:   sp.EndLine,
		EndCol:    sp.EndCol,
	}
}

// nodeType names a scope node for storage: the kind, or the front-end's
// own node type for kinds outside the closed set.
func nodeType(n *jsast.Node) string {
	if n.Kind == jsast.KindOther && n.Type != "" {
		return n.Type
	}
	return n.Kind.String()
}

// writeAnalysis persists the scopes and identifiers of every unit and
// returns how many of each were written.
func writeAnalysis(ds store.DataStore, fileID int64, units []UnitAnalysis) (int, int, error) {
	var nScopes, nIdents int
	for _, u := range units {
		a := u.Analysis
		tree := a.Tree()

		// Scopes are in pre-order, so a parent's row exists before its
		// children's.
		scopeRows := make([]int64, len(a.Scopes()))
		for i, sc := range a.Scopes() {
			n := tree.Node(sc.Node)
			row := &store.Scope{
				FileID:    fileID,
				Unit:      u.Index,
				Category:  sc.Category.String(),
				NodeType:  nodeType(n),
				StartLine: n.Span.StartLine,
				StartCol:  n.Span.StartCol,
				EndLine:   n.Span.EndLine,
				EndCol:    n.Span.EndCol,
			}
			if sc.Parent != scope.NoScope {
				parent := scopeRows[sc.Parent]
				row.ParentScopeID = &parent
			}
			id, err := ds.InsertScope(row)
			if err != nil {
				return 0, 0, err
			}
			scopeRows[i] = id
		}
		scopeRow := func(id scope.ScopeID) *int64 {
			if id == scope.NoScope {
				return nil
			}
			v := scopeRows[id]
			return &v
		}

		identRows := make(map[jsast.NodeID]int64, len(a.References()))
		for _, id := range a.References() {
			ann, _ := a.Annotation(id)
			n := tree.Node(id)
			row := &store.Identifier{
				FileID:           fileID,
				Unit:             u.Index,
				Name:             n.Name,
				EnclosingScopeID: scopeRow(a.NearestScope(id)),
				ScopeID:          scopeRow(ann.Scope),
				IsDeclaration:    a.IsDeclaration(id),
				BindingKind:      ann.Classification.BindingKind.String(),
				IsTopLevel:       ann.Classification.IsTopLevel,
				UsedInDynamic:    ann.Classification.UsedInDynamicScope,
				InsideDynamic:    ann.Classification.InsideDynamicScope,
				StartLine:        n.Span.StartLine,
				StartCol:         n.Span.StartCol,
				EndLine:          n.Span.EndLine,
				EndCol:           n.Span.EndCol,
			}
			rowID, err := ds.InsertIdentifier(row)
			if err != nil {
				return 0, 0, err
			}
			identRows[id] = rowID
		}

		for _, id := range a.References() {
			ann, _ := a.Annotation(id)
			if ann.Undeclared() {
				continue
			}
			decl, ok := identRows[ann.Declaration]
			if !ok {
				continue
			}
			if err := ds.LinkDeclaration(identRows[id], decl); err != nil {
				return 0, 0, err
			}
		}

		nScopes += len(scopeRows)
		nIdents += len(identRows)
	}
	return nScopes, nIdents, nil
}
