package scope

import (
	"fmt"

	"github.com/jward/varscope/internal/jsast"
)

// Category is the kind of scope a node introduces.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryLexical
	CategoryBlock
	CategoryDynamic
)

func (c Category) String() string {
	switch c {
	case CategoryLexical:
		return "lexical"
	case CategoryBlock:
		return "block"
	case CategoryDynamic:
		return "dynamic"
	}
	return "none"
}

// Taxonomy maps node kinds to scope categories and decides which declaration
// keywords are block-scoped. The zero value introduces no scopes except the
// program scope; use DefaultTaxonomy for ECMAScript semantics.
type Taxonomy struct {
	Lexical []jsast.Kind
	Block   []jsast.Kind
	Dynamic []jsast.Kind
	// BlockKeywords lists the VariableDeclaration keywords that declare
	// block-scoped bindings. Any other keyword declares a function-scoped one.
	BlockKeywords []string
}

// DefaultTaxonomy returns the ECMAScript taxonomy. Functions introduce
// lexical scopes and with statements dynamic ones. Blocks, loops, catch
// clauses, comprehensions and class expressions introduce block scopes.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Lexical: []jsast.Kind{
			jsast.KindFunctionDeclaration,
			jsast.KindFunctionExpression,
			jsast.KindArrowFunction,
		},
		Block: []jsast.Kind{
			jsast.KindBlockStatement,
			jsast.KindForStatement,
			jsast.KindForInStatement,
			jsast.KindForOfStatement,
			jsast.KindCatchClause,
			jsast.KindComprehensionExpression,
			jsast.KindClassExpression,
		},
		Dynamic:       []jsast.Kind{jsast.KindWithStatement},
		BlockKeywords: []string{"let", "const"},
	}
}

// Validate reports an error if a kind is listed under more than one category.
func (t Taxonomy) Validate() error {
	seen := make(map[jsast.Kind]Category)
	check := func(kinds []jsast.Kind, c Category) error {
		for _, k := range kinds {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("scope: taxonomy lists %s as both %s and %s", k, prev, c)
			}
			seen[k] = c
		}
		return nil
	}
	if err := check(t.Lexical, CategoryLexical); err != nil {
		return err
	}
	if err := check(t.Block, CategoryBlock); err != nil {
		return err
	}
	return check(t.Dynamic, CategoryDynamic)
}

// ClassifyKind returns the category for a node kind alone.
func (t Taxonomy) ClassifyKind(k jsast.Kind) Category {
	for _, l := range t.Lexical {
		if l == k {
			return CategoryLexical
		}
	}
	for _, d := range t.Dynamic {
		if d == k {
			return CategoryDynamic
		}
	}
	for _, b := range t.Block {
		if b == k {
			return CategoryBlock
		}
	}
	return CategoryNone
}

// Classify returns the category of the scope node id introduces. The tree's
// root is always lexical.
func (t Taxonomy) Classify(tree *jsast.Tree, id jsast.NodeID) Category {
	if id == tree.Root() {
		return CategoryLexical
	}
	return t.ClassifyKind(tree.Node(id).Kind)
}

// IsBlockKeyword reports whether kw declares block-scoped bindings.
func (t Taxonomy) IsBlockKeyword(kw string) bool {
	for _, b := range t.BlockKeywords {
		if b == kw {
			return true
		}
	}
	return false
}

// table precomputes ClassifyKind for every kind.
func (t Taxonomy) table() map[jsast.Kind]Category {
	m := make(map[jsast.Kind]Category)
	for _, k := range jsast.Kinds() {
		if c := t.ClassifyKind(k); c != CategoryNone {
			m[k] = c
		}
	}
	return m
}
