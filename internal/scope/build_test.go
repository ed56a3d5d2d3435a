package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/varscope/internal/jsast"
)

func ident(tr *jsast.Tree, parent jsast.NodeID, role jsast.Role, name string) jsast.NodeID {
	return tr.Add(parent, jsast.Node{Kind: jsast.KindIdentifier, Role: role, Name: name})
}

func TestBuildRejectsMalformedTrees(t *testing.T) {
	tests := []struct {
		name  string
		build func() *jsast.Tree
	}{
		{
			name:  "empty",
			build: func() *jsast.Tree { return jsast.New(nil) },
		},
		{
			name: "unreachable node",
			build: func() *jsast.Tree {
				tr := jsast.New(nil)
				tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
				tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindIdentifier, Name: "stray"})
				return tr
			},
		},
		{
			name: "cyclic parent chain",
			build: func() *jsast.Tree {
				tr := jsast.New(nil)
				tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
				a := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindBlockStatement})
				b := tr.Add(a, jsast.Node{Kind: jsast.KindBlockStatement})
				tr.Node(a).Parent = b
				return tr
			},
		},
		{
			name: "child with wrong parent",
			build: func() *jsast.Tree {
				tr := jsast.New(nil)
				root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
				a := tr.Add(root, jsast.Node{Kind: jsast.KindBlockStatement})
				b := tr.Add(root, jsast.Node{Kind: jsast.KindBlockStatement})
				tr.Node(a).Children = append(tr.Node(a).Children, b)
				return tr
			},
		},
		{
			name: "child out of range",
			build: func() *jsast.Tree {
				tr := jsast.New(nil)
				root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
				tr.Node(root).Children = []jsast.NodeID{42}
				return tr
			},
		},
		{
			name: "root with parent",
			build: func() *jsast.Tree {
				tr := jsast.New(nil)
				root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
				a := tr.Add(root, jsast.Node{Kind: jsast.KindBlockStatement})
				tr.SetRoot(a)
				return tr
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Analyze(tt.build(), DefaultTaxonomy())
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, ErrStructural))
			var se *StructuralError
			assert.True(t, errors.As(err, &se))
		})
	}

	_, err := Build(nil, DefaultTaxonomy())
	assert.ErrorIs(t, err, ErrStructural)
}

func TestDeclareRejectsInconsistentIdentifiers(t *testing.T) {
	t.Run("declarator without id", func(t *testing.T) {
		tr := jsast.New(nil)
		root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
		decl := tr.Add(root, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: "var"})
		tr.Add(decl, jsast.Node{Kind: jsast.KindVariableDeclarator})

		_, err := Analyze(tr, DefaultTaxonomy())
		var ie *InvariantError
		require.True(t, errors.As(err, &ie), "got %v", err)
		assert.ErrorIs(t, err, ErrStructural)
	})

	t.Run("member expression target", func(t *testing.T) {
		tr := jsast.New(nil)
		root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
		decl := tr.Add(root, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: "let"})
		d := tr.Add(decl, jsast.Node{Kind: jsast.KindVariableDeclarator})
		m := tr.Add(d, jsast.Node{Kind: jsast.KindMemberExpression, Role: jsast.RoleID})
		ident(tr, m, jsast.RoleObject, "a")
		ident(tr, m, jsast.RoleProperty, "b")

		_, err := Analyze(tr, DefaultTaxonomy())
		var ie *InvariantError
		require.True(t, errors.As(err, &ie), "got %v", err)
		assert.Equal(t, m, ie.Node)
	})

	t.Run("unnamed identifier", func(t *testing.T) {
		tr := jsast.New(nil)
		root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
		fn := tr.Add(root, jsast.Node{Kind: jsast.KindFunctionDeclaration})
		ident(tr, fn, jsast.RoleParam, "")

		_, err := Analyze(tr, DefaultTaxonomy())
		var ie *InvariantError
		assert.True(t, errors.As(err, &ie), "got %v", err)
	})
}

func TestComprehensionBindsInItsOwnScope(t *testing.T) {
	// [v for (v of arr)] followed by a use of v outside.
	tr := jsast.New(nil)
	root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
	comp := tr.Add(root, jsast.Node{Kind: jsast.KindComprehensionExpression})
	blk := tr.Add(comp, jsast.Node{Kind: jsast.KindComprehensionBlock})
	left := ident(tr, blk, jsast.RoleLeft, "v")
	ident(tr, blk, jsast.RoleRight, "arr")
	body := ident(tr, comp, jsast.RoleBody, "v")
	outside := ident(tr, root, jsast.RoleNone, "v")

	a, err := Analyze(tr, DefaultTaxonomy())
	require.NoError(t, err)

	own := a.IntroducedBy(comp)
	require.NotEqual(t, NoScope, own)
	assert.Equal(t, CategoryBlock, a.Scope(own).Category)
	assert.Equal(t, left, a.Scope(own).Bindings["v"])

	ann, ok := a.Annotation(body)
	require.True(t, ok)
	assert.Equal(t, left, ann.Declaration)
	assert.Equal(t, BindingBlock, ann.Classification.BindingKind)
	assert.False(t, ann.Classification.IsTopLevel)

	ann, ok = a.Annotation(outside)
	require.True(t, ok)
	assert.True(t, ann.Undeclared())
}

func TestBuildOnlyStampsScopes(t *testing.T) {
	tr := jsast.New(nil)
	root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
	with := tr.Add(root, jsast.Node{Kind: jsast.KindWithStatement})
	ident(tr, with, jsast.RoleObject, "o")
	blk := tr.Add(with, jsast.Node{Kind: jsast.KindBlockStatement, Role: jsast.RoleBody})

	a, err := Build(tr, DefaultTaxonomy())
	require.NoError(t, err)
	require.Len(t, a.Scopes(), 3)

	ws := a.IntroducedBy(with)
	assert.Equal(t, CategoryDynamic, a.Scope(ws).Category)
	assert.Nil(t, a.Scope(ws).Bindings)
	assert.Equal(t, ws, a.NearestScope(blk))
	assert.Equal(t, []ScopeID{a.IntroducedBy(blk), ws, a.Root()}, a.Chain(a.IntroducedBy(blk)))
	assert.Empty(t, a.References())
}

func TestTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	require.NoError(t, tax.Validate())

	assert.Equal(t, CategoryLexical, tax.ClassifyKind(jsast.KindArrowFunction))
	assert.Equal(t, CategoryBlock, tax.ClassifyKind(jsast.KindCatchClause))
	assert.Equal(t, CategoryDynamic, tax.ClassifyKind(jsast.KindWithStatement))
	assert.Equal(t, CategoryNone, tax.ClassifyKind(jsast.KindProgram))
	assert.Equal(t, CategoryNone, tax.ClassifyKind(jsast.KindIdentifier))

	tr := jsast.New(nil)
	root := tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
	assert.Equal(t, CategoryLexical, tax.Classify(tr, root))
	assert.Equal(t, CategoryLexical, Taxonomy{}.Classify(tr, root))

	assert.True(t, tax.IsBlockKeyword("let"))
	assert.True(t, tax.IsBlockKeyword("const"))
	assert.False(t, tax.IsBlockKeyword("var"))

	bad := DefaultTaxonomy()
	bad.Block = append(bad.Block, jsast.KindFunctionExpression)
	assert.Error(t, bad.Validate())

	bad = DefaultTaxonomy()
	bad.Lexical = append(bad.Lexical, jsast.KindWithStatement)
	assert.Error(t, bad.Validate())

	_, err := Analyze(root0(), bad)
	assert.Error(t, err)
}

func root0() *jsast.Tree {
	tr := jsast.New(nil)
	tr.Add(jsast.NoNode, jsast.Node{Kind: jsast.KindProgram})
	return tr
}

func TestStringForms(t *testing.T) {
	assert.Equal(t, "lexical", CategoryLexical.String())
	assert.Equal(t, "dynamic", CategoryDynamic.String())
	assert.Equal(t, "undeclared", BindingUndeclared.String())
	for _, k := range []BindingKind{BindingUndeclared, BindingLexical, BindingBlock} {
		assert.Equal(t, k, ParseBindingKind(k.String()))
	}
}
