package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/varscope/internal/jsast"
	"github.com/jward/varscope/internal/scope"
)

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	c, err := Parse(nil)
	require.NoError(t, err)

	tax, err := c.Taxonomy()
	require.NoError(t, err)
	assert.Equal(t, scope.DefaultTaxonomy(), tax)
	assert.True(t, c.ParallelOr(true))
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()
	c, err := Parse([]byte(`
frontend: goja
block_keywords: [let]
dynamic_kinds: []
lexical_kinds:
  - FunctionDeclaration
  - FunctionExpression
  - ArrowFunction
parallel: false
skip_dirs: [dist, build]
`))
	require.NoError(t, err)
	assert.Equal(t, "goja", c.Frontend)
	assert.False(t, c.ParallelOr(true))
	assert.Equal(t, []string{"dist", "build"}, c.SkipDirs)

	tax, err := c.Taxonomy()
	require.NoError(t, err)
	assert.Equal(t, []string{"let"}, tax.BlockKeywords)
	assert.Empty(t, tax.Dynamic)
	assert.Contains(t, tax.Lexical, jsast.KindArrowFunction)
	assert.Equal(t, scope.DefaultTaxonomy().Block, tax.Block)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "frontends: goja\n"},
		{"unknown kind", "block_kinds: [IfStatement]\n"},
		{"kind in two categories", "block_kinds: [WithStatement]\n"},
		{"bad yaml", "block_keywords: [let\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndFind(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok := Find(nested)
	assert.False(t, ok)

	path := filepath.Join(root, FileName)
	require.NoError(t, os.WriteFile(path, []byte("frontend: tree-sitter\n"), 0o644))

	found, ok := Find(nested)
	require.True(t, ok)
	assert.Equal(t, path, found)

	c, err := Load(found)
	require.NoError(t, err)
	assert.Equal(t, "tree-sitter", c.Frontend)

	_, err = Load(filepath.Join(root, "missing.yaml"))
	assert.Error(t, err)
}
