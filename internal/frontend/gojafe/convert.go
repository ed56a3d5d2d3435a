// Package gojafe builds jsast trees with the goja ECMAScript parser.
package gojafe

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"

	"github.com/jward/varscope/internal/jsast"
)

// Name identifies this front-end in configuration.
const Name = "goja"

// Parser parses JavaScript with goja.
type Parser struct{}

// Name returns "goja".
func (Parser) Name() string { return Name }

// Parse parses src and converts the result into a jsast tree.
func (Parser) Parse(ctx context.Context, filename string, src []byte) (*jsast.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prog, err := parser.ParseFile(nil, filename, src, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, fmt.Errorf("goja: parse %s: %w", filename, err)
	}
	return Convert(prog, src), nil
}

// Convert turns a goja program into a jsast tree. src must be the text the
// program was parsed from.
func Convert(prog *ast.Program, src []byte) *jsast.Tree {
	c := &converter{tree: jsast.New(src), size: len(src)}
	root := c.tree.Add(jsast.NoNode, jsast.Node{
		Kind: jsast.KindProgram,
		Type: "Program",
		Span: c.tree.Span(0, len(src)),
	})
	for _, s := range prog.Body {
		c.stmt(root, jsast.RoleNone, s)
	}
	return c.tree
}

type converter struct {
	tree *jsast.Tree
	size int
}

// offset maps a goja index (1-based for a file parsed without a FileSet)
// to a byte offset.
func (c *converter) offset(idx file.Idx) int {
	off := int(idx) - 1
	if off < 0 {
		return 0
	}
	if off > c.size {
		return c.size
	}
	return off
}

func (c *converter) add(parent jsast.NodeID, role jsast.Role, src ast.Node, n jsast.Node) jsast.NodeID {
	n.Role = role
	if n.Type == "" {
		n.Type = typeName(src)
	}
	if src != nil {
		n.Span = c.tree.Span(c.offset(src.Idx0()), c.offset(src.Idx1()))
	}
	return c.tree.Add(parent, n)
}

func (c *converter) other(parent jsast.NodeID, role jsast.Role, src ast.Node) jsast.NodeID {
	return c.add(parent, role, src, jsast.Node{Kind: jsast.KindOther})
}

func typeName(n ast.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
}

func (c *converter) stmt(parent jsast.NodeID, role jsast.Role, s ast.Statement) {
	switch s := s.(type) {
	case nil:
	case *ast.BlockStatement:
		c.block(parent, role, s)
	case *ast.VariableStatement:
		c.declaration(parent, role, s, "var", s.List)
	case *ast.LexicalDeclaration:
		c.declaration(parent, role, s, s.Token.String(), s.List)
	case *ast.FunctionDeclaration:
		c.function(parent, role, s.Function, jsast.KindFunctionDeclaration)
	case *ast.ClassDeclaration:
		c.class(parent, role, s.Class, jsast.KindClassDeclaration)
	case *ast.ExpressionStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleNone, s.Expression)
	case *ast.IfStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleNone, s.Test)
		c.stmt(id, jsast.RoleBody, s.Consequent)
		c.stmt(id, jsast.RoleBody, s.Alternate)
	case *ast.ForStatement:
		id := c.add(parent, role, s, jsast.Node{Kind: jsast.KindForStatement})
		switch init := s.Initializer.(type) {
		case *ast.ForLoopInitializerExpression:
			c.expr(id, jsast.RoleInit, init.Expression)
		case *ast.ForLoopInitializerVarDeclList:
			c.declaration(id, jsast.RoleInit, init, "var", init.List)
		case *ast.ForLoopInitializerLexicalDecl:
			c.declaration(id, jsast.RoleInit, &init.LexicalDeclaration, init.LexicalDeclaration.Token.String(), init.LexicalDeclaration.List)
		}
		c.expr(id, jsast.RoleNone, s.Test)
		c.expr(id, jsast.RoleNone, s.Update)
		c.stmt(id, jsast.RoleBody, s.Body)
	case *ast.ForInStatement:
		id := c.add(parent, role, s, jsast.Node{Kind: jsast.KindForInStatement})
		c.forInto(id, s.Into)
		c.expr(id, jsast.RoleRight, s.Source)
		c.stmt(id, jsast.RoleBody, s.Body)
	case *ast.ForOfStatement:
		id := c.add(parent, role, s, jsast.Node{Kind: jsast.KindForOfStatement})
		c.forInto(id, s.Into)
		c.expr(id, jsast.RoleRight, s.Source)
		c.stmt(id, jsast.RoleBody, s.Body)
	case *ast.WhileStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleNone, s.Test)
		c.stmt(id, jsast.RoleBody, s.Body)
	case *ast.DoWhileStatement:
		id := c.other(parent, role, s)
		c.stmt(id, jsast.RoleBody, s.Body)
		c.expr(id, jsast.RoleNone, s.Test)
	case *ast.TryStatement:
		id := c.other(parent, role, s)
		c.block(id, jsast.RoleBody, s.Body)
		if s.Catch != nil {
			cc := c.add(id, jsast.RoleNone, s.Catch, jsast.Node{Kind: jsast.KindCatchClause})
			if s.Catch.Parameter != nil {
				c.target(cc, jsast.RoleParam, s.Catch.Parameter)
			}
			c.block(cc, jsast.RoleBody, s.Catch.Body)
		}
		if s.Finally != nil {
			c.block(id, jsast.RoleNone, s.Finally)
		}
	case *ast.WithStatement:
		id := c.add(parent, role, s, jsast.Node{Kind: jsast.KindWithStatement})
		c.expr(id, jsast.RoleObject, s.Object)
		c.stmt(id, jsast.RoleBody, s.Body)
	case *ast.LabelledStatement:
		id := c.add(parent, role, s, jsast.Node{Kind: jsast.KindLabeledStatement})
		c.ident(id, jsast.RoleLabel, s.Label)
		c.stmt(id, jsast.RoleBody, s.Statement)
	case *ast.BranchStatement:
		kind := jsast.KindOther
		switch s.Token {
		case token.BREAK:
			kind = jsast.KindBreakStatement
		case token.CONTINUE:
			kind = jsast.KindContinueStatement
		}
		id := c.add(parent, role, s, jsast.Node{Kind: kind})
		if s.Label != nil {
			c.ident(id, jsast.RoleLabel, s.Label)
		}
	case *ast.ReturnStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleArgument, s.Argument)
	case *ast.ThrowStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleArgument, s.Argument)
	case *ast.SwitchStatement:
		id := c.other(parent, role, s)
		c.expr(id, jsast.RoleNone, s.Discriminant)
		for _, cs := range s.Body {
			cid := c.other(id, jsast.RoleNone, cs)
			c.expr(cid, jsast.RoleNone, cs.Test)
			for _, st := range cs.Consequent {
				c.stmt(cid, jsast.RoleNone, st)
			}
		}
	default:
		c.other(parent, role, s)
	}
}

func (c *converter) block(parent jsast.NodeID, role jsast.Role, b *ast.BlockStatement) {
	if b == nil {
		return
	}
	id := c.add(parent, role, b, jsast.Node{Kind: jsast.KindBlockStatement})
	for _, s := range b.List {
		c.stmt(id, jsast.RoleNone, s)
	}
}

func (c *converter) declaration(parent jsast.NodeID, role jsast.Role, src ast.Node, keyword string, list []*ast.Binding) {
	id := c.add(parent, role, src, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: keyword})
	for _, b := range list {
		c.declarator(id, b.Target, b.Initializer, b)
	}
}

func (c *converter) declarator(parent jsast.NodeID, target ast.BindingTarget, init ast.Expression, src ast.Node) {
	d := c.add(parent, jsast.RoleNone, src, jsast.Node{Kind: jsast.KindVariableDeclarator, Type: "VariableDeclarator"})
	c.target(d, jsast.RoleID, target)
	c.expr(d, jsast.RoleInit, init)
}

func (c *converter) forInto(parent jsast.NodeID, into ast.ForInto) {
	switch into := into.(type) {
	case *ast.ForIntoVar:
		id := c.add(parent, jsast.RoleLeft, into, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: "var"})
		c.declarator(id, into.Binding.Target, into.Binding.Initializer, into.Binding)
	case *ast.ForDeclaration:
		kw := "let"
		if into.IsConst {
			kw = "const"
		}
		id := c.add(parent, jsast.RoleLeft, into, jsast.Node{Kind: jsast.KindVariableDeclaration, Keyword: kw})
		c.declarator(id, into.Target, nil, into)
	case *ast.ForIntoExpression:
		c.target(parent, jsast.RoleLeft, into.Expression)
	}
}

func (c *converter) ident(parent jsast.NodeID, role jsast.Role, id *ast.Identifier) jsast.NodeID {
	if id == nil {
		return jsast.NoNode
	}
	return c.add(parent, role, id, jsast.Node{Kind: jsast.KindIdentifier, Name: id.Name.String()})
}

func (c *converter) function(parent jsast.NodeID, role jsast.Role, f *ast.FunctionLiteral, kind jsast.Kind) jsast.NodeID {
	id := c.add(parent, role, f, jsast.Node{Kind: kind})
	c.ident(id, jsast.RoleID, f.Name)
	c.params(id, f.ParameterList)
	c.block(id, jsast.RoleBody, f.Body)
	return id
}

func (c *converter) arrow(parent jsast.NodeID, role jsast.Role, f *ast.ArrowFunctionLiteral) {
	id := c.add(parent, role, f, jsast.Node{Kind: jsast.KindArrowFunction})
	c.params(id, f.ParameterList)
	switch body := f.Body.(type) {
	case *ast.BlockStatement:
		c.block(id, jsast.RoleBody, body)
	case *ast.ExpressionBody:
		c.expr(id, jsast.RoleBody, body.Expression)
	}
}

func (c *converter) params(fn jsast.NodeID, pl *ast.ParameterList) {
	if pl == nil {
		return
	}
	for _, b := range pl.List {
		if b.Initializer != nil {
			ap := c.add(fn, jsast.RoleParam, b, jsast.Node{Kind: jsast.KindAssignmentPattern, Type: "AssignmentPattern"})
			c.target(ap, jsast.RoleLeft, b.Target)
			c.expr(ap, jsast.RoleRight, b.Initializer)
			continue
		}
		c.target(fn, jsast.RoleParam, b.Target)
	}
	if pl.Rest != nil {
		r := c.add(fn, jsast.RoleParam, pl.Rest, jsast.Node{Kind: jsast.KindRestElement, Type: "RestElement"})
		c.target(r, jsast.RoleArgument, pl.Rest)
	}
}

func (c *converter) class(parent jsast.NodeID, role jsast.Role, cl *ast.ClassLiteral, kind jsast.Kind) {
	id := c.add(parent, role, cl, jsast.Node{Kind: kind})
	c.ident(id, jsast.RoleID, cl.Name)
	c.expr(id, jsast.RoleNone, cl.SuperClass)
	for _, el := range cl.Body {
		switch el := el.(type) {
		case *ast.MethodDefinition:
			p := c.add(id, jsast.RoleNone, el, jsast.Node{Kind: jsast.KindProperty, Computed: el.Computed})
			c.key(p, el.Key, el.Computed)
			if el.Body != nil {
				c.function(p, jsast.RoleValue, el.Body, jsast.KindFunctionExpression)
			}
		case *ast.FieldDefinition:
			p := c.add(id, jsast.RoleNone, el, jsast.Node{Kind: jsast.KindProperty, Computed: el.Computed})
			c.key(p, el.Key, el.Computed)
			c.expr(p, jsast.RoleValue, el.Initializer)
		case *ast.ClassStaticBlock:
			c.block(id, jsast.RoleBody, el.Block)
		}
	}
}

// key converts a property key. Non-computed identifier keys become
// identifiers so they keep their name and position.
func (c *converter) key(parent jsast.NodeID, key ast.Expression, computed bool) {
	if computed {
		c.expr(parent, jsast.RoleKey, key)
		return
	}
	if s, ok := key.(*ast.StringLiteral); ok && !strings.HasPrefix(s.Literal, `"`) && !strings.HasPrefix(s.Literal, `'`) {
		c.add(parent, jsast.RoleKey, s, jsast.Node{Kind: jsast.KindIdentifier, Name: s.Value.String()})
		return
	}
	if key != nil {
		c.other(parent, jsast.RoleKey, key)
	}
}

func (c *converter) property(parent jsast.NodeID, p ast.Property) {
	switch p := p.(type) {
	case *ast.PropertyShort:
		id := c.add(parent, jsast.RoleNone, p, jsast.Node{Kind: jsast.KindProperty, Shorthand: true})
		if p.Initializer != nil {
			ap := c.add(id, jsast.RoleValue, p, jsast.Node{Kind: jsast.KindAssignmentPattern, Type: "AssignmentPattern"})
			c.ident(ap, jsast.RoleLeft, &p.Name)
			c.expr(ap, jsast.RoleRight, p.Initializer)
			return
		}
		c.ident(id, jsast.RoleValue, &p.Name)
	case *ast.PropertyKeyed:
		id := c.add(parent, jsast.RoleNone, p, jsast.Node{Kind: jsast.KindProperty, Computed: p.Computed})
		c.key(id, p.Key, p.Computed)
		c.expr(id, jsast.RoleValue, p.Value)
	case *ast.SpreadElement:
		id := c.other(parent, jsast.RoleNone, p)
		c.expr(id, jsast.RoleArgument, p.Expression)
	}
}

// target converts a binding or assignment target.
func (c *converter) target(parent jsast.NodeID, role jsast.Role, e ast.Expression) {
	switch e := e.(type) {
	case nil:
	case *ast.Identifier:
		c.ident(parent, role, e)
	case *ast.ObjectPattern:
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindObjectPattern})
		for _, p := range e.Properties {
			switch p := p.(type) {
			case *ast.PropertyKeyed:
				pid := c.add(id, jsast.RoleNone, p, jsast.Node{Kind: jsast.KindProperty, Computed: p.Computed})
				c.key(pid, p.Key, p.Computed)
				c.target(pid, jsast.RoleValue, p.Value)
			default:
				c.property(id, p)
			}
		}
		if e.Rest != nil {
			r := c.add(id, jsast.RoleNone, e.Rest, jsast.Node{Kind: jsast.KindRestElement, Type: "RestElement"})
			c.target(r, jsast.RoleArgument, e.Rest)
		}
	case *ast.ArrayPattern:
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindArrayPattern})
		for _, el := range e.Elements {
			if el != nil {
				c.target(id, jsast.RoleElement, el)
			}
		}
		if e.Rest != nil {
			r := c.add(id, jsast.RoleElement, e.Rest, jsast.Node{Kind: jsast.KindRestElement, Type: "RestElement"})
			c.target(r, jsast.RoleArgument, e.Rest)
		}
	case *ast.AssignExpression:
		if e.Operator != token.ASSIGN {
			c.expr(parent, role, e)
			return
		}
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindAssignmentPattern, Type: "AssignmentPattern"})
		c.target(id, jsast.RoleLeft, e.Left)
		c.expr(id, jsast.RoleRight, e.Right)
	default:
		c.expr(parent, role, e)
	}
}

func (c *converter) expr(parent jsast.NodeID, role jsast.Role, e ast.Expression) {
	switch e := e.(type) {
	case nil:
	case *ast.Identifier:
		c.ident(parent, role, e)
	case *ast.FunctionLiteral:
		c.function(parent, role, e, jsast.KindFunctionExpression)
	case *ast.ArrowFunctionLiteral:
		c.arrow(parent, role, e)
	case *ast.ClassLiteral:
		c.class(parent, role, e, jsast.KindClassExpression)
	case *ast.ObjectPattern, *ast.ArrayPattern:
		c.target(parent, role, e)
	case *ast.DotExpression:
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindMemberExpression})
		c.expr(id, jsast.RoleObject, e.Left)
		c.ident(id, jsast.RoleProperty, &e.Identifier)
	case *ast.PrivateDotExpression:
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindMemberExpression})
		c.expr(id, jsast.RoleObject, e.Left)
		c.other(id, jsast.RoleProperty, &e.Identifier)
	case *ast.BracketExpression:
		id := c.add(parent, role, e, jsast.Node{Kind: jsast.KindMemberExpression, Computed: true})
		c.expr(id, jsast.RoleObject, e.Left)
		c.expr(id, jsast.RoleProperty, e.Member)
	case *ast.OptionalChain:
		c.expr(parent, role, e.Expression)
	case *ast.Optional:
		c.expr(parent, role, e.Expression)
	case *ast.AssignExpression:
		id := c.other(parent, role, e)
		c.target(id, jsast.RoleLeft, e.Left)
		c.expr(id, jsast.RoleRight, e.Right)
	case *ast.ObjectLiteral:
		id := c.other(parent, role, e)
		for _, p := range e.Value {
			c.property(id, p)
		}
	case *ast.ArrayLiteral:
		id := c.other(parent, role, e)
		for _, v := range e.Value {
			c.expr(id, jsast.RoleNone, v)
		}
	case *ast.SpreadElement:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleArgument, e.Expression)
	case *ast.BinaryExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleNone, e.Left)
		c.expr(id, jsast.RoleNone, e.Right)
	case *ast.ConditionalExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleNone, e.Test)
		c.expr(id, jsast.RoleNone, e.Consequent)
		c.expr(id, jsast.RoleNone, e.Alternate)
	case *ast.SequenceExpression:
		id := c.other(parent, role, e)
		for _, x := range e.Sequence {
			c.expr(id, jsast.RoleNone, x)
		}
	case *ast.UnaryExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleArgument, e.Operand)
	case *ast.CallExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleNone, e.Callee)
		for _, a := range e.ArgumentList {
			c.expr(id, jsast.RoleArgument, a)
		}
	case *ast.NewExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleNone, e.Callee)
		for _, a := range e.ArgumentList {
			c.expr(id, jsast.RoleArgument, a)
		}
	case *ast.YieldExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleArgument, e.Argument)
	case *ast.AwaitExpression:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleArgument, e.Argument)
	case *ast.TemplateLiteral:
		id := c.other(parent, role, e)
		c.expr(id, jsast.RoleNone, e.Tag)
		for _, x := range e.Expressions {
			c.expr(id, jsast.RoleNone, x)
		}
	default:
		// Literals, this, super, new.target and parse-error placeholders.
		c.other(parent, role, e)
	}
}
