package treesitter

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

func identifiers(tr *jsast.Tree) []*jsast.Node {
	var out []*jsast.Node
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if n := tr.Node(id); n.Kind == jsast.KindIdentifier {
			out = append(out, n)
		}
		return true
	}, nil)
	return out
}

func TestParse_SyntaxErrorIsTolerated(t *testing.T) {
	tr := parse(t, "var a = ;\nb;")
	assert.Equal(t, jsast.KindProgram, tr.Node(tr.Root()).Kind)
	var names []string
	for _, n := range identifiers(tr) {
		names = append(names, n.Name)
	}
	assert.Contains(t, names, "b")
}

func TestConvert_ProgramSpansWholeSource(t *testing.T) {
	src := "a;\n\n// trailing\n"
	tr := parse(t, src)
	sp := tr.Node(tr.Root()).Span
	assert.Equal(t, 0, sp.Start)
	assert.Equal(t, len(src), sp.End)
}

func TestConvert_DeclarationKeywords(t *testing.T) {
	tr := parse(t, "let a = 1; const b = 2; var c;\nfor (const k in o) {}")
	var keywords []string
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if n := tr.Node(id); n.Kind == jsast.KindVariableDeclaration {
			keywords = append(keywords, n.Keyword)
		}
		return true
	}, nil)
	assert.Equal(t, []string{"let", "const", "var", "const"}, keywords)
}

func TestConvert_IdentifierSpans(t *testing.T) {
	tr := parse(t, "function outer(p) {\n  return p.q;\n}")
	var got []string
	for _, n := range identifiers(tr) {
		if n.Role == jsast.RoleProperty {
			continue
		}
		got = append(got, n.Name)
		if n.Name == "p" && n.Role != jsast.RoleParam {
			assert.Equal(t, 1, n.Span.StartLine)
			assert.Equal(t, 9, n.Span.StartCol)
			assert.Equal(t, 10, n.Span.EndCol)
		}
	}
	assert.Equal(t, []string{"outer", "p", "p"}, got)
}

func TestLanguage_Cached(t *testing.T) {
	assert.Same(t, Language(), Language())
}
