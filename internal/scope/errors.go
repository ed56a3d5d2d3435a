package scope

import (
	"errors"
	"fmt"

	"github.com/jward/varscope/internal/jsast"
)

// ErrStructural is matched by every error that reports a malformed input
// tree. Such errors indicate a front-end bug, not a property of the program.
var ErrStructural = errors.New("malformed syntax tree")

// StructuralError reports a tree whose links do not form a single rooted
// tree.
type StructuralError struct {
	Node   jsast.NodeID
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Node == jsast.NoNode {
		return fmt.Sprintf("scope: %s: %s", ErrStructural, e.Reason)
	}
	return fmt.Sprintf("scope: %s: node %d: %s", ErrStructural, e.Node, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// InvariantError reports a declaring construct whose identifier list cannot
// be resolved to binding identifiers.
type InvariantError struct {
	Node   jsast.NodeID
	Kind   jsast.Kind
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scope: %s: %s %d: %s", ErrStructural, e.Kind, e.Node, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrStructural }
