package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/varscope/internal/frontend"
	"github.com/jward/varscope/internal/logger"
	"github.com/jward/varscope/internal/scope"
)

// makeAnalyzeSrcFn creates "analyze_src", which analyses a source string
// without touching the store.
//
// analyze_src(source[, filename]) → []map
//
// The filename selects the language (default javascript). Each map
// describes one identifier: name, unit, declaration, binding_kind,
// top_level, used_in_dynamic, inside_dynamic, its position, and for
// resolved identifiers decl_line/decl_col.
func makeAnalyzeSrcFn(p frontend.Parser, tax scope.Taxonomy) *object.Builtin {
	return object.NewBuiltin("analyze_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("analyze_src: expected 1 or 2 arguments, got %d", len(args))
		}
		src, err := toString(args[0])
		if err != nil {
			return object.Errorf("analyze_src: source: %v", err)
		}
		filename := "<inline>.js"
		if len(args) == 2 {
			if filename, err = toString(args[1]); err != nil {
				return object.Errorf("analyze_src: filename: %v", err)
			}
		}
		lang, ok := frontend.LanguageForFile(filename)
		if !ok {
			lang = frontend.LangJavaScript
		}

		units, err := frontend.ParseFile(ctx, p, lang, filename, []byte(src))
		if err != nil {
			return object.Errorf("analyze_src: %v", err)
		}

		results := []object.Object{}
		for _, u := range units {
			a, err := scope.Analyze(u.Tree, tax)
			if err != nil {
				return object.Errorf("analyze_src: %v", err)
			}
			for _, id := range a.References() {
				ann, _ := a.Annotation(id)
				n := u.Tree.Node(id)
				m := map[string]object.Object{
					"name":            object.NewString(n.Name),
					"unit":            object.NewInt(int64(u.Index)),
					"declaration":     object.NewBool(a.IsDeclaration(id)),
					"binding_kind":    object.NewString(ann.Classification.BindingKind.String()),
					"top_level":       object.NewBool(ann.Classification.IsTopLevel),
					"used_in_dynamic": object.NewBool(ann.Classification.UsedInDynamicScope),
					"inside_dynamic":  object.NewBool(ann.Classification.InsideDynamicScope),
					"line":            object.NewInt(int64(n.Span.StartLine)),
					"col":             object.NewInt(int64(n.Span.StartCol)),
				}
				if !ann.Undeclared() {
					d := u.Tree.Node(ann.Declaration)
					m["decl_line"] = object.NewInt(int64(d.Span.StartLine))
					m["decl_col"] = object.NewInt(int64(d.Span.StartCol))
				}
				results = append(results, object.NewMap(m))
			}
		}
		return object.NewList(results)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	log *logger.Logger
}

func (l *logObject) Info(msg string) {
	l.log.Info("script: %s", msg)
}

func (l *logObject) Warn(msg string) {
	l.log.Info("script: warning: %s", msg)
}

func (l *logObject) Error(msg string) {
	l.log.Error("script: %s", msg)
}
