// Package treesitter builds jsast trees from tree-sitter's JavaScript
// grammar.
package treesitter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/jward/varscope/internal/jsast"
)

// Name identifies this front-end in configuration.
const Name = "tree-sitter"

var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

// Language returns the JavaScript grammar, loaded on first use.
func Language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = javascript.GetLanguage()
	})
	return grammar
}

// Parser parses JavaScript with tree-sitter. Syntax errors do not fail the
// parse; erroneous regions become opaque nodes.
type Parser struct{}

// Name returns "tree-sitter".
func (Parser) Name() string { return Name }

// Parse parses src and converts the concrete syntax tree into a jsast tree.
func (Parser) Parse(ctx context.Context, filename string, src []byte) (*jsast.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: parse %s: %w", filename, err)
	}
	defer tree.Close()

	return Convert(tree.RootNode(), src), nil
}

// Convert turns a tree-sitter program node into a jsast tree.
func Convert(root *sitter.Node, src []byte) *jsast.Tree {
	c := &converter{tree: jsast.New(src), src: src}
	id := c.tree.Add(jsast.NoNode, jsast.Node{
		Kind: jsast.KindProgram,
		Type: root.Type(),
		Span: c.tree.Span(0, len(src)),
	})
	c.children(id, root)
	return c.tree
}

type converter struct {
	tree *jsast.Tree
	src  []byte
}

func (c *converter) add(parent jsast.NodeID, role jsast.Role, n *sitter.Node, node jsast.Node) jsast.NodeID {
	node.Role = role
	if node.Type == "" {
		node.Type = n.Type()
	}
	node.Span = c.tree.Span(int(n.StartByte()), int(n.EndByte()))
	return c.tree.Add(parent, node)
}

func (c *converter) ident(parent jsast.NodeID, role jsast.Role, n *sitter.Node) jsast.NodeID {
	return c.add(parent, role, n, jsast.Node{Kind: jsast.KindIdentifier, Name: n.Content(c.src)})
}

// children converts every named child of n under parent.
func (c *converter) children(parent jsast.NodeID, n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c.node(parent, jsast.RoleNone, n.NamedChild(i))
	}
}

// childrenExcept converts the named children of n that are not one of skip.
func (c *converter) childrenExcept(parent jsast.NodeID, n *sitter.Node, skip ...*sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if !containsNode(skip, ch) {
			c.node(parent, jsast.RoleNone, ch)
		}
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func containsNode(list []*sitter.Node, n *sitter.Node) bool {
	for _, l := range list {
		if sameNode(l, n) {
			return true
		}
	}
	return false
}

// field is ChildByFieldName that also treats a null node as absent.
func field(n *sitter.Node, name string) *sitter.Node {
	ch := n.ChildByFieldName(name)
	if ch == nil || ch.IsNull() {
		return nil
	}
	return ch
}

func (c *converter) node(parent jsast.NodeID, role jsast.Role, n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "comment", "hash_bang_line":

	case "parenthesized_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c.node(parent, role, n.NamedChild(i))
		}

	case "identifier", "undefined":
		c.ident(parent, role, n)

	case "property_identifier":
		c.ident(parent, role, n)

	case "statement_identifier":
		c.ident(parent, jsast.RoleLabel, n)

	case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
		p := c.add(parent, role, n, jsast.Node{Kind: jsast.KindProperty, Shorthand: true})
		c.ident(p, jsast.RoleValue, n)

	case "function_declaration", "generator_function_declaration":
		c.function(parent, role, n, jsast.KindFunctionDeclaration)

	case "function", "function_expression", "generator_function":
		c.function(parent, role, n, jsast.KindFunctionExpression)

	case "arrow_function":
		c.arrow(parent, role, n)

	case "method_definition":
		c.method(parent, role, n)

	case "class_declaration":
		c.class(parent, role, n, jsast.KindClassDeclaration)

	case "class":
		c.class(parent, role, n, jsast.KindClassExpression)

	case "field_definition":
		key := field(n, "property")
		p := c.add(parent, role, n, jsast.Node{Kind: jsast.KindProperty, Computed: isComputed(key)})
		c.key(p, key)
		c.node(p, jsast.RoleValue, field(n, "value"))

	case "pair":
		key := field(n, "key")
		p := c.add(parent, role, n, jsast.Node{Kind: jsast.KindProperty, Computed: isComputed(key)})
		c.key(p, key)
		c.node(p, jsast.RoleValue, field(n, "value"))

	case "statement_block":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindBlockStatement})
		c.children(id, n)

	case "for_statement":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindForStatement})
		init, body := field(n, "initializer"), field(n, "body")
		c.node(id, jsast.RoleInit, init)
		c.childrenExcept(id, n, init, body)
		c.node(id, jsast.RoleBody, body)

	case "for_in_statement", "for_of_statement":
		c.forIn(parent, role, n)

	case "catch_clause":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindCatchClause})
		if param := field(n, "parameter"); param != nil {
			c.target(id, jsast.RoleParam, param)
		}
		c.node(id, jsast.RoleBody, field(n, "body"))

	case "with_statement":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindWithStatement})
		c.node(id, jsast.RoleObject, field(n, "object"))
		c.node(id, jsast.RoleBody, field(n, "body"))

	case "variable_declaration":
		c.declaration(parent, role, n, "var")

	case "lexical_declaration":
		kw := "let"
		if k := field(n, "kind"); k != nil {
			kw = k.Type()
		} else if n.ChildCount() > 0 {
			kw = n.Child(0).Type()
		}
		c.declaration(parent, role, n, kw)

	case "assignment_expression":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})
		c.target(id, jsast.RoleLeft, field(n, "left"))
		c.node(id, jsast.RoleRight, field(n, "right"))

	case "member_expression":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindMemberExpression})
		c.node(id, jsast.RoleObject, field(n, "object"))
		if prop := field(n, "property"); prop != nil {
			if prop.Type() == "property_identifier" {
				c.ident(id, jsast.RoleProperty, prop)
			} else {
				c.add(id, jsast.RoleProperty, prop, jsast.Node{Kind: jsast.KindOther})
			}
		}

	case "subscript_expression":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindMemberExpression, Computed: true})
		c.node(id, jsast.RoleObject, field(n, "object"))
		c.node(id, jsast.RoleProperty, field(n, "index"))

	case "labeled_statement":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindLabeledStatement})
		label, body := field(n, "label"), field(n, "body")
		if label != nil {
			c.ident(id, jsast.RoleLabel, label)
		}
		c.node(id, jsast.RoleBody, body)

	case "break_statement", "continue_statement":
		kind := jsast.KindBreakStatement
		if n.Type() == "continue_statement" {
			kind = jsast.KindContinueStatement
		}
		id := c.add(parent, role, n, jsast.Node{Kind: kind})
		if label := field(n, "label"); label != nil {
			c.ident(id, jsast.RoleLabel, label)
		}

	case "import_statement", "private_property_identifier", "string", "number",
		"regex", "true", "false", "null", "this", "super", "template_string":
		// Opaque. Import bindings are module scoped and not resolved here;
		// template_string is handled below when it has substitutions.
		if n.Type() == "template_string" && n.NamedChildCount() > 0 {
			id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})
			c.children(id, n)
			return
		}
		c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})

	case "jsx_opening_element", "jsx_closing_element", "jsx_self_closing_element":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})
		name := field(n, "name")
		if name != nil && name.Type() == "identifier" && isIntrinsicTag(name.Content(c.src)) {
			c.add(id, jsast.RoleKey, name, jsast.Node{Kind: jsast.KindOther})
		} else {
			c.node(id, jsast.RoleNone, name)
		}
		c.childrenExcept(id, n, name)

	case "jsx_attribute":
		// Attribute names are not variables; values may hold expressions.
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})
		for i := 1; i < int(n.NamedChildCount()); i++ {
			c.node(id, jsast.RoleNone, n.NamedChild(i))
		}

	default:
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindOther})
		c.children(id, n)
	}
}

// isIntrinsicTag reports whether a JSX tag name refers to a host element
// rather than a component variable.
func isIntrinsicTag(name string) bool {
	return name != "" && strings.ToLower(name[:1]) == name[:1]
}

func isComputed(key *sitter.Node) bool {
	return key != nil && key.Type() == "computed_property_name"
}

// key converts a property or class member key.
func (c *converter) key(parent jsast.NodeID, key *sitter.Node) {
	if key == nil {
		return
	}
	switch key.Type() {
	case "computed_property_name":
		for i := 0; i < int(key.NamedChildCount()); i++ {
			c.node(parent, jsast.RoleKey, key.NamedChild(i))
		}
	case "property_identifier":
		c.ident(parent, jsast.RoleKey, key)
	default:
		c.add(parent, jsast.RoleKey, key, jsast.Node{Kind: jsast.KindOther})
	}
}

func (c *converter) declaration(parent jsast.NodeID, role jsast.Role, n *sitter.Node, keyword string) {
	id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: keyword})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		did := c.add(id, jsast.RoleNone, d, jsast.Node{Kind: jsast.KindVariableDeclarator})
		c.target(did, jsast.RoleID, field(d, "name"))
		c.node(did, jsast.RoleInit, field(d, "value"))
	}
}

func (c *converter) forIn(parent jsast.NodeID, role jsast.Role, n *sitter.Node) {
	kind := jsast.KindForInStatement
	if op := field(n, "operator"); (op != nil && op.Type() == "of") || n.Type() == "for_of_statement" {
		kind = jsast.KindForOfStatement
	}
	id := c.add(parent, role, n, jsast.Node{Kind: kind})

	left, right, body := field(n, "left"), field(n, "right"), field(n, "body")
	if kw := field(n, "kind"); kw != nil && left != nil {
		decl := c.add(id, jsast.RoleLeft, left, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: kw.Type()})
		d := c.add(decl, jsast.RoleNone, left, jsast.Node{Kind: jsast.KindVariableDeclarator, Type: "variable_declarator"})
		c.target(d, jsast.RoleID, left)
	} else if left != nil {
		c.target(id, jsast.RoleLeft, left)
	}
	c.node(id, jsast.RoleRight, right)
	c.node(id, jsast.RoleBody, body)
}

func (c *converter) function(parent jsast.NodeID, role jsast.Role, n *sitter.Node, kind jsast.Kind) {
	id := c.add(parent, role, n, jsast.Node{Kind: kind})
	if name := field(n, "name"); name != nil {
		c.ident(id, jsast.RoleID, name)
	}
	c.params(id, field(n, "parameters"))
	c.node(id, jsast.RoleBody, field(n, "body"))
}

func (c *converter) arrow(parent jsast.NodeID, role jsast.Role, n *sitter.Node) {
	id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindArrowFunction})
	if p := field(n, "parameter"); p != nil {
		c.target(id, jsast.RoleParam, p)
	} else {
		c.params(id, field(n, "parameters"))
	}
	c.node(id, jsast.RoleBody, field(n, "body"))
}

func (c *converter) params(fn jsast.NodeID, list *sitter.Node) {
	if list == nil {
		return
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p.Type() == "comment" {
			continue
		}
		c.target(fn, jsast.RoleParam, p)
	}
}

// method converts a method definition into a property whose value is a
// function expression, the shape object literal methods have in ESTree.
func (c *converter) method(parent jsast.NodeID, role jsast.Role, n *sitter.Node) {
	name := field(n, "name")
	p := c.add(parent, role, n, jsast.Node{Kind: jsast.KindProperty, Computed: isComputed(name)})
	c.key(p, name)
	fn := c.add(p, jsast.RoleValue, n, jsast.Node{Kind: jsast.KindFunctionExpression, Type: "function_expression"})
	c.params(fn, field(n, "parameters"))
	c.node(fn, jsast.RoleBody, field(n, "body"))
}

func (c *converter) class(parent jsast.NodeID, role jsast.Role, n *sitter.Node, kind jsast.Kind) {
	id := c.add(parent, role, n, jsast.Node{Kind: kind})
	name := field(n, "name")
	if name != nil {
		c.ident(id, jsast.RoleID, name)
	}
	c.childrenExcept(id, n, name)
}

// target converts a binding or assignment target.
func (c *converter) target(parent jsast.NodeID, role jsast.Role, n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier", "undefined":
		c.ident(parent, role, n)

	case "parenthesized_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c.target(parent, role, n.NamedChild(i))
		}

	case "object_pattern", "object":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindObjectPattern})
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c.objectPatternMember(id, n.NamedChild(i))
		}

	case "array_pattern", "array":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindArrayPattern})
		for i := 0; i < int(n.NamedChildCount()); i++ {
			el := n.NamedChild(i)
			if el.Type() == "comment" {
				continue
			}
			c.target(id, jsast.RoleElement, el)
		}

	case "assignment_pattern", "assignment_expression":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindAssignmentPattern})
		c.target(id, jsast.RoleLeft, field(n, "left"))
		c.node(id, jsast.RoleRight, field(n, "right"))

	case "rest_pattern", "spread_element":
		id := c.add(parent, role, n, jsast.Node{Kind: jsast.KindRestElement})
		if n.NamedChildCount() > 0 {
			c.target(id, jsast.RoleArgument, n.NamedChild(0))
		}

	default:
		c.node(parent, role, n)
	}
}

func (c *converter) objectPatternMember(parent jsast.NodeID, n *sitter.Node) {
	switch n.Type() {
	case "comment":

	case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
		p := c.add(parent, jsast.RoleNone, n, jsast.Node{Kind: jsast.KindProperty, Shorthand: true})
		c.ident(p, jsast.RoleValue, n)

	case "pair_pattern", "pair":
		key := field(n, "key")
		p := c.add(parent, jsast.RoleNone, n, jsast.Node{Kind: jsast.KindProperty, Computed: isComputed(key)})
		c.key(p, key)
		c.target(p, jsast.RoleValue, field(n, "value"))

	case "object_assignment_pattern":
		// {a = 1} binds a with a default.
		p := c.add(parent, jsast.RoleNone, n, jsast.Node{Kind: jsast.KindProperty, Shorthand: true})
		ap := c.add(p, jsast.RoleValue, n, jsast.Node{Kind: jsast.KindAssignmentPattern, Type: "assignment_pattern"})
		left := field(n, "left")
		if left != nil && strings.HasPrefix(left.Type(), "shorthand_property_identifier") {
			c.ident(ap, jsast.RoleLeft, left)
		} else {
			c.target(ap, jsast.RoleLeft, left)
		}
		c.node(ap, jsast.RoleRight, field(n, "right"))

	case "rest_pattern", "spread_element":
		c.target(parent, jsast.RoleNone, n)

	default:
		c.node(parent, jsast.RoleNone, n)
	}
}
