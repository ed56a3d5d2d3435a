package gojafe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/varscope/internal/jsast"
)

func parse(t *testing.T, src string) *jsast.Tree {
	t.Helper()
	tr, err := Parser{}.Parse(context.Background(), "t.js", []byte(src))
	require.NoError(t, err)
	return tr
}

func kinds(tr *jsast.Tree) map[jsast.Kind]int {
	out := map[jsast.Kind]int{}
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		out[tr.Node(id).Kind]++
		return true
	}, nil)
	return out
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parser{}.Parse(context.Background(), "bad.js", []byte("function (\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goja: parse bad.js")
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parser{}.Parse(ctx, "t.js", []byte("a;"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvert_DeclarationKeywords(t *testing.T) {
	tr := parse(t, "let a = 1; const b = 2; var c;")
	var keywords []string
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if n := tr.Node(id); n.Kind == jsast.KindVariableDeclaration {
			keywords = append(keywords, n.Keyword)
		}
		return true
	}, nil)
	assert.Equal(t, []string{"let", "const", "var"}, keywords)
}

func TestConvert_Patterns(t *testing.T) {
	tr := parse(t, "var {a, b: [c, ...d], e = 1} = o;\nfunction f({x}, y = 2, ...z) {}")
	k := kinds(tr)
	assert.Equal(t, 2, k[jsast.KindObjectPattern])
	assert.Equal(t, 1, k[jsast.KindArrayPattern])
	assert.Equal(t, 2, k[jsast.KindRestElement])
	assert.GreaterOrEqual(t, k[jsast.KindAssignmentPattern], 2)
}

func TestConvert_ScopeKinds(t *testing.T) {
	tr := parse(t, `class K { m() { return () => 1; } }
try { } catch (err) { }
for (let i = 0; i < 1; i++) { }
for (var p in o) { }
for (const v of xs) { }
var g = function named() {};
`)
	k := kinds(tr)
	for _, want := range []jsast.Kind{
		jsast.KindClassDeclaration,
		jsast.KindFunctionExpression,
		jsast.KindArrowFunction,
		jsast.KindCatchClause,
		jsast.KindForStatement,
		jsast.KindForInStatement,
		jsast.KindForOfStatement,
	} {
		assert.Positive(t, k[want], want.String())
	}
}

func TestConvert_MemberPropertyIsNotAReference(t *testing.T) {
	tr := parse(t, "a.b.c;")
	var names []string
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if n := tr.Node(id); n.Kind == jsast.KindIdentifier && n.Role != jsast.RoleProperty {
			names = append(names, n.Name)
		}
		return true
	}, nil)
	assert.Equal(t, []string{"a"}, names)
}
