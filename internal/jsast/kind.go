package jsast

// Kind is the closed set of node kinds the scope analysis distinguishes.
// Front-ends map every other construct to KindOther.
type Kind uint8

const (
	KindOther Kind = iota
	KindProgram
	KindFunctionDeclaration
	KindFunctionExpression
	KindArrowFunction
	KindClassDeclaration
	KindClassExpression
	KindBlockStatement
	KindForStatement
	KindForInStatement
	KindForOfStatement
	KindCatchClause
	KindComprehensionExpression
	KindComprehensionBlock
	KindWithStatement
	KindVariableDeclaration
	KindVariableDeclarator
	KindIdentifier
	KindObjectPattern
	KindArrayPattern
	KindProperty
	KindAssignmentPattern
	KindRestElement
	KindMemberExpression
	KindLabeledStatement
	KindBreakStatement
	KindContinueStatement

	kindCount
)

var kindNames = [kindCount]string{
	KindOther:                   "Other",
	KindProgram:                 "Program",
	KindFunctionDeclaration:     "FunctionDeclaration",
	KindFunctionExpression:      "FunctionExpression",
	KindArrowFunction:           "ArrowFunctionExpression",
	KindClassDeclaration:        "ClassDeclaration",
	KindClassExpression:         "ClassExpression",
	KindBlockStatement:          "BlockStatement",
	KindForStatement:            "ForStatement",
	KindForInStatement:          "ForInStatement",
	KindForOfStatement:          "ForOfStatement",
	KindCatchClause:             "CatchClause",
	KindComprehensionExpression: "ComprehensionExpression",
	KindComprehensionBlock:      "ComprehensionBlock",
	KindWithStatement:           "WithStatement",
	KindVariableDeclaration:     "VariableDeclaration",
	KindVariableDeclarator:      "VariableDeclarator",
	KindIdentifier:              "Identifier",
	KindObjectPattern:           "ObjectPattern",
	KindArrayPattern:            "ArrayPattern",
	KindProperty:                "Property",
	KindAssignmentPattern:       "AssignmentPattern",
	KindRestElement:             "RestElement",
	KindMemberExpression:        "MemberExpression",
	KindLabeledStatement:        "LabeledStatement",
	KindBreakStatement:          "BreakStatement",
	KindContinueStatement:       "ContinueStatement",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(?)"
}

// ParseKind returns the kind with the given ESTree-style name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	// Accept the shorter alias used in configuration files.
	if name == "ArrowFunction" {
		return KindArrowFunction, true
	}
	return KindOther, false
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// IsFunction reports whether k is a function-like kind that owns a name and
// a parameter list.
func (k Kind) IsFunction() bool {
	switch k {
	case KindFunctionDeclaration, KindFunctionExpression, KindArrowFunction:
		return true
	}
	return false
}

// IsPattern reports whether k can appear as a binding target that expands to
// more than one identifier.
func (k Kind) IsPattern() bool {
	switch k {
	case KindObjectPattern, KindArrayPattern, KindAssignmentPattern, KindRestElement:
		return true
	}
	return false
}

// Role labels the edge between a node and its parent.
type Role uint8

const (
	RoleNone     Role = iota
	RoleID            // declared name of a function, class or declarator
	RoleParam         // formal parameter
	RoleBody          // function, loop, catch or with body
	RoleInit          // declarator initializer, for-loop init
	RoleLeft          // for-in/of and comprehension left side, default target
	RoleRight         // for-in/of source, default value
	RoleObject        // member object, with object
	RoleProperty      // member property
	RoleKey           // object/class member key
	RoleValue         // object/class member value
	RoleLabel         // statement label
	RoleElement       // array pattern element
	RoleArgument      // rest element argument

	roleCount
)

var roleNames = [roleCount]string{
	RoleNone:     "",
	RoleID:       "id",
	RoleParam:    "param",
	RoleBody:     "body",
	RoleInit:     "init",
	RoleLeft:     "left",
	RoleRight:    "right",
	RoleObject:   "object",
	RoleProperty: "property",
	RoleKey:      "key",
	RoleValue:    "value",
	RoleLabel:    "label",
	RoleElement:  "element",
	RoleArgument: "argument",
}

func (r Role) String() string {
	if r < roleCount {
		return roleNames[r]
	}
	return "role(?)"
}
