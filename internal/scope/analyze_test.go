package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/varscope/internal/frontend/gojafe"
	"github.com/jward/varscope/internal/jsast"
)

func parse(t *testing.T, src string) *jsast.Tree {
	t.Helper()
	tree, err := gojafe.Parser{}.Parse(context.Background(), "test.js", []byte(src))
	require.NoError(t, err)
	return tree
}

func analyze(t *testing.T, src string) *Analysis {
	t.Helper()
	a, err := Analyze(parse(t, src), DefaultTaxonomy())
	require.NoError(t, err)
	return a
}

// named returns the annotated identifiers called name, in source order.
func named(a *Analysis, name string) []jsast.NodeID {
	var out []jsast.NodeID
	for _, id := range a.References() {
		if a.Tree().Node(id).Name == name {
			out = append(out, id)
		}
	}
	return out
}

func firstOfKind(tree *jsast.Tree, kind jsast.Kind) jsast.NodeID {
	for i := 0; i < tree.Len(); i++ {
		if tree.Node(jsast.NodeID(i)).Kind == kind {
			return jsast.NodeID(i)
		}
	}
	return jsast.NoNode
}

func annotation(t *testing.T, a *Analysis, id jsast.NodeID) Annotation {
	t.Helper()
	ann, ok := a.Annotation(id)
	require.True(t, ok, "node %d has no annotation", id)
	return ann
}

func TestScopeTreeHasSingleRoot(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var a; function f() { if (x) { let y; } }`)

	scopes := a.Scopes()
	require.Len(t, scopes, 4)
	assert.Equal(t, ScopeID(0), a.Root())

	root := a.Scope(a.Root())
	assert.Equal(t, NoScope, root.Parent)
	assert.Equal(t, CategoryLexical, root.Category)
	assert.Equal(t, a.Tree().Root(), root.Node)

	roots := 0
	for _, s := range scopes {
		if s.Parent == NoScope {
			roots++
			continue
		}
		chain := a.Chain(s.ID)
		assert.Equal(t, a.Root(), chain[len(chain)-1], "scope %d does not reach the root", s.ID)
		assert.Contains(t, a.Scope(s.Parent).Children, s.ID)
	}
	assert.Equal(t, 1, roots)

	assert.Equal(t, []Category{CategoryLexical, CategoryLexical, CategoryBlock, CategoryBlock},
		[]Category{scopes[0].Category, scopes[1].Category, scopes[2].Category, scopes[3].Category})
}

func TestNearestScopeIsEnclosingScope(t *testing.T) {
	t.Parallel()
	a := analyze(t, `function f() {}`)
	fn := firstOfKind(a.Tree(), jsast.KindFunctionDeclaration)
	require.NotEqual(t, jsast.NoNode, fn)

	assert.Equal(t, a.Root(), a.NearestScope(fn))
	own := a.IntroducedBy(fn)
	require.NotEqual(t, NoScope, own)
	body := a.Tree().Child(fn, jsast.RoleBody)
	assert.Equal(t, own, a.NearestScope(body))
	assert.Equal(t, NoScope, a.NearestScope(a.Tree().Root()))
}

func TestFunctionScopedDeclarationSkipsBlocks(t *testing.T) {
	t.Parallel()
	a := analyze(t, `function f() { if (true) { { var x = 1; } } x; }`)
	fn := firstOfKind(a.Tree(), jsast.KindFunctionDeclaration)

	xs := named(a, "x")
	require.Len(t, xs, 2)
	decl := annotation(t, a, xs[0])
	assert.Equal(t, a.IntroducedBy(fn), decl.Scope)
	assert.Equal(t, BindingLexical, decl.Classification.BindingKind)

	use := annotation(t, a, xs[1])
	assert.Equal(t, xs[0], use.Declaration)
	assert.False(t, use.Classification.IsTopLevel)
}

func TestBlockScopedDeclarationStopsAtBlock(t *testing.T) {
	t.Parallel()
	for _, kw := range []string{"let", "const"} {
		t.Run(kw, func(t *testing.T) {
			t.Parallel()
			a := analyze(t, `if (true) { `+kw+` y = 1; y; } y;`)
			ys := named(a, "y")
			require.Len(t, ys, 3)

			decl := annotation(t, a, ys[0])
			s := a.Scope(decl.Scope)
			assert.Equal(t, CategoryBlock, s.Category)
			assert.Equal(t, jsast.KindBlockStatement, a.Tree().Node(s.Node).Kind)
			assert.Equal(t, BindingBlock, decl.Classification.BindingKind)

			assert.Equal(t, ys[0], annotation(t, a, ys[1]).Declaration)
			assert.True(t, annotation(t, a, ys[2]).Undeclared())
		})
	}
}

func TestBlockKeywordsAreConfigurable(t *testing.T) {
	t.Parallel()
	tax := DefaultTaxonomy()
	tax.BlockKeywords = []string{"let"}

	a, err := Analyze(parse(t, `if (true) { const c = 1; } c;`), tax)
	require.NoError(t, err)

	cs := named(a, "c")
	require.Len(t, cs, 2)
	assert.Equal(t, a.Root(), annotation(t, a, cs[0]).Scope)
	assert.Equal(t, BindingLexical, annotation(t, a, cs[1]).Classification.BindingKind)
	assert.Equal(t, cs[0], annotation(t, a, cs[1]).Declaration)
}

func TestDestructuringRegistersLeaves(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var {a, b: c, d: {e}, f = 1, ...g} = o;
var [h, , [i], j = 2, ...k] = p;`)

	root := a.Scope(a.Root())
	for _, name := range []string{"a", "c", "e", "f", "g", "h", "i", "j", "k"} {
		decl, ok := root.Bindings[name]
		if assert.True(t, ok, name) {
			n := a.Tree().Node(decl)
			assert.Equal(t, jsast.KindIdentifier, n.Kind, name)
			assert.Equal(t, name, n.Name)
			assert.True(t, a.IsDeclaration(decl))
		}
	}
	assert.NotContains(t, root.Bindings, "b")
	assert.NotContains(t, root.Bindings, "d")

	// Pattern keys are not references.
	assert.Empty(t, named(a, "b"))
	assert.Empty(t, named(a, "d"))
}

func TestDynamicScopeTaintsDeclaration(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var obj = {}; var x = 1; var y = 2;
with (obj) { x; }
x; y;`)

	xs := named(a, "x")
	require.Len(t, xs, 3)
	for _, id := range xs {
		c := annotation(t, a, id).Classification
		assert.True(t, c.UsedInDynamicScope, "x node %d", id)
		assert.True(t, c.IsTopLevel)
	}
	assert.False(t, annotation(t, a, xs[0]).Classification.InsideDynamicScope)
	assert.True(t, annotation(t, a, xs[1]).Classification.InsideDynamicScope)
	assert.False(t, annotation(t, a, xs[2]).Classification.InsideDynamicScope)

	for _, id := range named(a, "y") {
		c := annotation(t, a, id).Classification
		assert.False(t, c.UsedInDynamicScope)
		assert.False(t, c.InsideDynamicScope)
	}

	// The with object itself is not inside the dynamic scope it creates.
	objs := named(a, "obj")
	require.Len(t, objs, 2)
	assert.False(t, annotation(t, a, objs[1]).Classification.InsideDynamicScope)
	assert.False(t, annotation(t, a, objs[0]).Classification.UsedInDynamicScope)
}

func TestDeclarationInsideWithDoesNotTaintItself(t *testing.T) {
	t.Parallel()
	a := analyze(t, `with (o) { var w; }`)
	ws := named(a, "w")
	require.Len(t, ws, 1)
	c := annotation(t, a, ws[0]).Classification
	assert.True(t, c.InsideDynamicScope)
	assert.False(t, c.UsedInDynamicScope)
	assert.Equal(t, BindingLexical, c.BindingKind)
}

func TestTopLevelDetection(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var t = 1;
function f() { var u = t; function g() { return t + u; } }`)

	for _, id := range named(a, "t") {
		assert.True(t, annotation(t, a, id).Classification.IsTopLevel)
	}
	for _, id := range named(a, "u") {
		assert.False(t, annotation(t, a, id).Classification.IsTopLevel)
	}
	fs := named(a, "f")
	require.Len(t, fs, 1)
	assert.Equal(t, a.Root(), annotation(t, a, fs[0]).Scope)
}

func TestUndeclaredReference(t *testing.T) {
	t.Parallel()
	a := analyze(t, `foo(); function h() { bar; }`)

	var names []string
	for _, id := range a.Undeclared() {
		names = append(names, a.Tree().Node(id).Name)
		ann := annotation(t, a, id)
		assert.Equal(t, NoScope, ann.Scope)
		assert.Equal(t, jsast.NoNode, ann.Declaration)
		assert.Equal(t, BindingUndeclared, ann.Classification.BindingKind)
		assert.True(t, ann.Classification.IsTopLevel)
	}
	assert.Equal(t, []string{"foo", "bar"}, names)
}

func TestShadowingResolvesToNearestDeclaration(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var x = 1; if (true) { let x = 2; x; } x;`)
	xs := named(a, "x")
	require.Len(t, xs, 4)
	outer, inner, innerUse, outerUse := xs[0], xs[1], xs[2], xs[3]

	ann := annotation(t, a, innerUse)
	assert.Equal(t, inner, ann.Declaration)
	assert.Equal(t, BindingBlock, ann.Classification.BindingKind)
	assert.False(t, ann.Classification.IsTopLevel)

	ann = annotation(t, a, outerUse)
	assert.Equal(t, outer, ann.Declaration)
	assert.Equal(t, BindingLexical, ann.Classification.BindingKind)
	assert.True(t, ann.Classification.IsTopLevel)
}

func TestAnalysisIsIdempotent(t *testing.T) {
	t.Parallel()
	src := `var o = {}; with (o) { q; } function f(a, [b]) { let c = a; return c + b; }`

	snapshot := func() map[jsast.NodeID]Annotation {
		a := analyze(t, src)
		out := make(map[jsast.NodeID]Annotation)
		for _, id := range a.References() {
			out[id] = annotation(t, a, id)
		}
		return out
	}
	assert.Equal(t, snapshot(), snapshot())
}

func TestFunctionNameBindsOutsideAndParamShadowsIt(t *testing.T) {
	t.Parallel()
	a := analyze(t, `function f(f) { return f; }`)
	fs := named(a, "f")
	require.Len(t, fs, 3)
	name, param, use := fs[0], fs[1], fs[2]
	fn := firstOfKind(a.Tree(), jsast.KindFunctionDeclaration)

	assert.Equal(t, name, a.Scope(a.Root()).Bindings["f"])
	assert.Equal(t, param, a.Scope(a.IntroducedBy(fn)).Bindings["f"])

	assert.Equal(t, param, annotation(t, a, use).Declaration)
	// The name identifier sits inside the function node, so the parameter
	// shadows it too.
	assert.Equal(t, param, annotation(t, a, name).Declaration)
	assert.False(t, annotation(t, a, use).Classification.IsTopLevel)
}

func TestFunctionNameVisibleInEnclosingScope(t *testing.T) {
	t.Parallel()
	a := analyze(t, `g(); function g() {} var e = function inner() { inner; }; inner;`)
	gs := named(a, "g")
	require.Len(t, gs, 2)
	assert.Equal(t, gs[1], annotation(t, a, gs[0]).Declaration)

	// A function expression's name is registered in the enclosing scope.
	inners := named(a, "inner")
	require.Len(t, inners, 3)
	assert.Equal(t, inners[0], annotation(t, a, inners[2]).Declaration)
	assert.Equal(t, a.Root(), annotation(t, a, inners[1]).Scope)
}

func TestCatchParameterIsBlockScoped(t *testing.T) {
	t.Parallel()
	a := analyze(t, `try {} catch (e) { var v; e; } e; v;`)
	es := named(a, "e")
	require.Len(t, es, 3)

	decl := annotation(t, a, es[0])
	s := a.Scope(decl.Scope)
	assert.Equal(t, jsast.KindCatchClause, a.Tree().Node(s.Node).Kind)
	assert.Equal(t, BindingBlock, decl.Classification.BindingKind)
	assert.Equal(t, es[0], annotation(t, a, es[1]).Declaration)
	assert.True(t, annotation(t, a, es[2]).Undeclared())

	vs := named(a, "v")
	require.Len(t, vs, 2)
	assert.Equal(t, a.Root(), annotation(t, a, vs[1]).Scope)
}

func TestLoopHeaderBindings(t *testing.T) {
	t.Parallel()
	a := analyze(t, `for (let i = 0; i < 3; i++) { i; }
for (var j in o) {}
for (const k of o) { k; }
i; j;`)

	is := named(a, "i")
	require.Len(t, is, 5)
	s := a.Scope(annotation(t, a, is[0]).Scope)
	assert.Equal(t, jsast.KindForStatement, a.Tree().Node(s.Node).Kind)
	assert.True(t, annotation(t, a, is[4]).Undeclared())

	js := named(a, "j")
	require.Len(t, js, 2)
	assert.Equal(t, a.Root(), annotation(t, a, js[1]).Scope)

	ks := named(a, "k")
	require.Len(t, ks, 2)
	s = a.Scope(annotation(t, a, ks[1]).Scope)
	assert.Equal(t, jsast.KindForOfStatement, a.Tree().Node(s.Node).Kind)
}

func TestNonReferenceIdentifiersAreSkipped(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var o = {};
o.prop; o[key];
({k: 1, [ck]: 2, sh});
lbl: for (;;) { break lbl; }
class K { m() {} [cm]() {} }`)

	assert.Empty(t, named(a, "prop"))
	assert.Empty(t, named(a, "k"))
	assert.Empty(t, named(a, "lbl"))
	assert.Empty(t, named(a, "m"))
	assert.Len(t, named(a, "key"), 1)
	assert.Len(t, named(a, "ck"), 1)
	assert.Len(t, named(a, "sh"), 1)
	assert.Len(t, named(a, "cm"), 1)
}

func TestClassDeclarationIsBlockScoped(t *testing.T) {
	t.Parallel()
	a := analyze(t, `{ class C {} new C(); } C;`)
	cs := named(a, "C")
	require.Len(t, cs, 3)
	assert.Equal(t, BindingBlock, annotation(t, a, cs[0]).Classification.BindingKind)
	assert.Equal(t, cs[0], annotation(t, a, cs[1]).Declaration)
	assert.True(t, annotation(t, a, cs[2]).Undeclared())
}

func TestClassExpressionNameIsVisibleOnlyInside(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var K = class C { m() { return C; } }; C; K;`)
	class := firstOfKind(a.Tree(), jsast.KindClassExpression)
	own := a.IntroducedBy(class)
	require.NotEqual(t, NoScope, own)
	assert.Equal(t, CategoryBlock, a.Scope(own).Category)

	cs := named(a, "C")
	require.Len(t, cs, 3)
	decl := annotation(t, a, cs[0])
	assert.Equal(t, own, decl.Scope)
	assert.Equal(t, BindingBlock, decl.Classification.BindingKind)
	assert.False(t, decl.Classification.IsTopLevel)

	inner := annotation(t, a, cs[1])
	assert.Equal(t, cs[0], inner.Declaration)
	assert.True(t, annotation(t, a, cs[2]).Undeclared())

	ks := named(a, "K")
	require.Len(t, ks, 2)
	assert.Equal(t, a.Root(), annotation(t, a, ks[1]).Scope)
}

func TestClassExpressionWithoutOwnScope(t *testing.T) {
	t.Parallel()
	tax := DefaultTaxonomy()
	tax.Block = []jsast.Kind{jsast.KindBlockStatement}
	a, err := Analyze(parse(t, `var K = class C {}; C;`), tax)
	require.NoError(t, err)

	cs := named(a, "C")
	require.Len(t, cs, 2)
	assert.Equal(t, a.Root(), annotation(t, a, cs[0]).Scope)
	assert.Equal(t, cs[0], annotation(t, a, cs[1]).Declaration)
}

func TestArrowParameters(t *testing.T) {
	t.Parallel()
	a := analyze(t, `const h = (p, {q} = {}, ...r) => p + q + r;`)
	arrow := firstOfKind(a.Tree(), jsast.KindArrowFunction)
	own := a.IntroducedBy(arrow)
	for _, name := range []string{"p", "q", "r"} {
		ids := named(a, name)
		require.Len(t, ids, 2, name)
		assert.Equal(t, own, annotation(t, a, ids[0]).Scope, name)
		assert.Equal(t, ids[0], annotation(t, a, ids[1]).Declaration, name)
	}
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()
	a := analyze(t, `let n = 1; n++; function f() { return n; }`)
	ns := named(a, "n")
	require.Len(t, ns, 3)
	assert.Equal(t, ns, a.ReferencesTo(ns[0]))
}

func TestClearDropsAnnotations(t *testing.T) {
	t.Parallel()
	a := analyze(t, `var a; a;`)
	require.NotEmpty(t, a.References())
	id := a.References()[0]

	a.Clear()
	_, ok := a.Annotation(id)
	assert.False(t, ok)
	assert.Empty(t, a.References())
	assert.Len(t, a.Scopes(), 1)
}
