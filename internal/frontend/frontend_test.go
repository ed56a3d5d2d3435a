package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/varscope/internal/jsast"
)

const shapeSource = `var a = 1;
function f(x) {
  return a + x;
}
with (o) { a; }
`

// firstOfKind returns the first node of kind k in pre-order.
func firstOfKind(tr *jsast.Tree, k jsast.Kind) jsast.NodeID {
	found := jsast.NoNode
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if found == jsast.NoNode && tr.Node(id).Kind == k {
			found = id
		}
		return found == jsast.NoNode
	}, nil)
	return found
}

func lineCol(sp jsast.Span) [4]int {
	return [4]int{sp.StartLine, sp.StartCol, sp.EndLine, sp.EndCol}
}

func identNames(tr *jsast.Tree) []string {
	var names []string
	tr.Walk(tr.Root(), func(id jsast.NodeID) bool {
		if n := tr.Node(id); n.Kind == jsast.KindIdentifier {
			names = append(names, n.Name)
		}
		return true
	}, nil)
	return names
}

// Both parsers must produce the same shape for the constructs the scope
// passes look at.
func TestParsers_AgreeOnShape(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := For(name)
			require.NoError(t, err)
			tr, err := p.Parse(context.Background(), "shape.js", []byte(shapeSource))
			require.NoError(t, err)

			assert.Equal(t, jsast.KindProgram, tr.Node(tr.Root()).Kind)
			assert.Equal(t, []string{"a", "f", "x", "a", "x", "o", "a"}, identNames(tr))

			decl := firstOfKind(tr, jsast.KindVariableDeclaration)
			require.NotEqual(t, jsast.NoNode, decl)
			assert.Equal(t, "var", tr.Node(decl).Keyword)

			fn := firstOfKind(tr, jsast.KindFunctionDeclaration)
			require.NotEqual(t, jsast.NoNode, fn)
			fnID := tr.Child(fn, jsast.RoleID)
			require.NotEqual(t, jsast.NoNode, fnID)
			assert.Equal(t, "f", tr.Node(fnID).Name)
			assert.Equal(t, [4]int{1, 9, 1, 10}, lineCol(tr.Node(fnID).Span))

			params := tr.ChildrenWithRole(fn, jsast.RoleParam)
			require.Len(t, params, 1)
			assert.Equal(t, "x", tr.Node(params[0]).Name)
			body := tr.Child(fn, jsast.RoleBody)
			require.NotEqual(t, jsast.NoNode, body)
			assert.Equal(t, jsast.KindBlockStatement, tr.Node(body).Kind)

			with := firstOfKind(tr, jsast.KindWithStatement)
			require.NotEqual(t, jsast.NoNode, with)
			obj := tr.Child(with, jsast.RoleObject)
			require.NotEqual(t, jsast.NoNode, obj)
			assert.Equal(t, "o", tr.Node(obj).Name)
			assert.Equal(t, jsast.KindBlockStatement, tr.Node(tr.Child(with, jsast.RoleBody)).Kind)
		})
	}
}

func TestFor(t *testing.T) {
	p, err := For("")
	require.NoError(t, err)
	assert.Equal(t, Default, p.Name())

	_, err = For("esprima")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown parser "esprima"`)
	assert.Contains(t, err.Error(), "goja, tree-sitter")
}

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		path string
		lang string
		ok   bool
	}{
		{"app.js", LangJavaScript, true},
		{"lib/mod.MJS", LangJavaScript, true},
		{"x.cjs", LangJavaScript, true},
		{"index.html", LangHTML, true},
		{"old.htm", LangHTML, true},
		{"main.ts", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.lang, lang, tt.path)
	}
}

func TestParseFile_HTMLUnits(t *testing.T) {
	doc := "<html>\n<script>var a;</script>\n<script type=\"application/json\">{\"k\": 1}</script>\n<script>a;</script>\n</html>\n"
	p, err := For("goja")
	require.NoError(t, err)

	units, err := ParseFile(context.Background(), p, LangHTML, "index.html", []byte(doc))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].Index)
	assert.Equal(t, 1, units[1].Index)

	ref := firstOfKind(units[1].Tree, jsast.KindIdentifier)
	require.NotEqual(t, jsast.NoNode, ref)
	assert.Equal(t, [4]int{3, 8, 3, 9}, lineCol(units[1].Tree.Node(ref).Span))
}

func TestParseFile_Unsupported(t *testing.T) {
	p, err := For(Default)
	require.NoError(t, err)
	_, err = ParseFile(context.Background(), p, "css", "a.css", nil)
	assert.Error(t, err)
}
