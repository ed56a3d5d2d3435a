package jsast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented outline of the tree, one node per line.
func Dump(w io.Writer, t *Tree) error {
	if t.Root() == NoNode {
		return nil
	}
	depth := 0
	var err error
	t.Walk(t.Root(), func(id NodeID) bool {
		if err != nil {
			return false
		}
		n := t.Node(id)
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", depth))
		if n.Role != RoleNone {
			b.WriteString(n.Role.String())
			b.WriteString(": ")
		}
		b.WriteString(n.Kind.String())
		if n.Kind == KindOther && n.Type != "" {
			fmt.Fprintf(&b, "(%s)", n.Type)
		}
		if n.Name != "" {
			fmt.Fprintf(&b, " %q", n.Name)
		}
		if n.Keyword != "" {
			fmt.Fprintf(&b, " [%s]", n.Keyword)
		}
		if n.Computed {
			b.WriteString(" computed")
		}
		if n.Shorthand {
			b.WriteString(" shorthand")
		}
		fmt.Fprintf(&b, " @%d:%d\n", n.Span.StartLine, n.Span.StartCol)
		_, err = io.WriteString(w, b.String())
		depth++
		return true
	}, func(NodeID) { depth-- })
	return err
}
