package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/varscope/internal/store"
)

// Store query host functions. Each returns plain Risor maps so scripts
// never hold Go pointers.

func makeFilesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("files", 0, len(args))
		}
		files, err := s.Files()
		if err != nil {
			return object.Errorf("files: %v", err)
		}
		results := []object.Object{}
		for _, f := range files {
			results = append(results, fileToMap(f))
		}
		return object.NewList(results)
	})
}

func makeFileByPathFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("file_by_path", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("file_by_path", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("file_by_path: %v", err)
		}
		f, queryErr := s.FileByPath(path)
		if queryErr != nil {
			return object.Errorf("file_by_path: %v", queryErr)
		}
		if f == nil {
			return object.Nil
		}
		return fileToMap(f)
	})
}

func makeScopesByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("scopes_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scopes_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("scopes_by_file: %v", err)
		}
		scopes, queryErr := s.ScopesByFile(fileID)
		if queryErr != nil {
			return object.Errorf("scopes_by_file: %v", queryErr)
		}
		return scopesToList(scopes)
	})
}

func makeScopeChainFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("scope_chain", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scope_chain", 1, len(args))
		}
		scopeID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("scope_chain: %v", err)
		}
		chain, queryErr := s.ScopeChain(scopeID)
		if queryErr != nil {
			return object.Errorf("scope_chain: %v", queryErr)
		}
		return scopesToList(chain)
	})
}

func makeIdentifiersByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("identifiers_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("identifiers_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("identifiers_by_file: %v", err)
		}
		idents, queryErr := s.IdentifiersByFile(fileID)
		if queryErr != nil {
			return object.Errorf("identifiers_by_file: %v", queryErr)
		}
		return identifiersToList(idents)
	})
}

func makeIdentifierAtFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("identifier_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("identifier_at", 3, len(args))
		}
		var nums [3]int64
		for i, a := range args {
			n, err := toInt64(a)
			if err != nil {
				return object.Errorf("identifier_at: %v", err)
			}
			nums[i] = n
		}
		ident, queryErr := s.IdentifierAt(nums[0], int(nums[1]), int(nums[2]))
		if queryErr != nil {
			return object.Errorf("identifier_at: %v", queryErr)
		}
		if ident == nil {
			return object.Nil
		}
		return identifierToMap(ident)
	})
}

func makeReferencesToFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("references_to", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("references_to", 1, len(args))
		}
		declID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("references_to: %v", err)
		}
		refs, queryErr := s.ReferencesTo(declID)
		if queryErr != nil {
			return object.Errorf("references_to: %v", queryErr)
		}
		return identifiersToList(refs)
	})
}

func makeDeclarationsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("declarations_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("declarations_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("declarations_by_name: %v", err)
		}
		decls, queryErr := s.DeclarationsByName(name)
		if queryErr != nil {
			return object.Errorf("declarations_by_name: %v", queryErr)
		}
		return identifiersToList(decls)
	})
}

// makeFilteredFn wraps a per-file identifier filter whose file argument is
// optional.
//
// name([file_id]) → []map
func makeFilteredFn(name string, query func(fileID int64) ([]*store.Identifier, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) > 1 {
			return object.Errorf("%s: expected at most 1 argument, got %d", name, len(args))
		}
		var fileID int64
		if len(args) == 1 {
			id, err := toInt64(args[0])
			if err != nil {
				return object.Errorf("%s: %v", name, err)
			}
			fileID = id
		}
		idents, err := query(fileID)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return identifiersToList(idents)
	})
}

// makeDBQueryFn creates a db_query bridge that executes read-only SQL.
// Returns a list of maps (column name → value).
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "WITH") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		// The transaction is never committed, so a WITH ... DELETE that
		// slips past the prefix check cannot persist.
		tx, txErr := s.DB().BeginTx(ctx, nil)
		if txErr != nil {
			return object.Errorf("db_query: %v", txErr)
		}
		defer tx.Rollback()

		rows, queryErr := tx.QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// --- Conversion helpers ---

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func optionalInt(m map[string]object.Object, key string, v *int64) {
	if v != nil {
		m[key] = object.NewInt(*v)
	}
}

func fileToMap(f *store.File) object.Object {
	return object.NewMap(map[string]object.Object{
		"id":         object.NewInt(f.ID),
		"path":       object.NewString(f.Path),
		"language":   object.NewString(f.Language),
		"hash":       object.NewString(f.Hash),
		"line_count": object.NewInt(int64(f.LineCount)),
	})
}

func scopesToList(scopes []*store.Scope) object.Object {
	results := []object.Object{}
	for _, sc := range scopes {
		m := map[string]object.Object{
			"id":         object.NewInt(sc.ID),
			"file_id":    object.NewInt(sc.FileID),
			"unit":       object.NewInt(int64(sc.Unit)),
			"category":   object.NewString(sc.Category),
			"node_type":  object.NewString(sc.NodeType),
			"start_line": object.NewInt(int64(sc.StartLine)),
			"start_col":  object.NewInt(int64(sc.StartCol)),
			"end_line":   object.NewInt(int64(sc.EndLine)),
			"end_col":    object.NewInt(int64(sc.EndCol)),
		}
		optionalInt(m, "parent_scope_id", sc.ParentScopeID)
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}

func identifierToMap(ident *store.Identifier) object.Object {
	m := map[string]object.Object{
		"id":              object.NewInt(ident.ID),
		"file_id":         object.NewInt(ident.FileID),
		"unit":            object.NewInt(int64(ident.Unit)),
		"name":            object.NewString(ident.Name),
		"declaration":     object.NewBool(ident.IsDeclaration),
		"binding_kind":    object.NewString(ident.BindingKind),
		"top_level":       object.NewBool(ident.IsTopLevel),
		"used_in_dynamic": object.NewBool(ident.UsedInDynamic),
		"inside_dynamic":  object.NewBool(ident.InsideDynamic),
		"start_line":      object.NewInt(int64(ident.StartLine)),
		"start_col":       object.NewInt(int64(ident.StartCol)),
		"end_line":        object.NewInt(int64(ident.EndLine)),
		"end_col":         object.NewInt(int64(ident.EndCol)),
	}
	optionalInt(m, "enclosing_scope_id", ident.EnclosingScopeID)
	optionalInt(m, "scope_id", ident.ScopeID)
	optionalInt(m, "declaration_id", ident.DeclarationID)
	return object.NewMap(m)
}

func identifiersToList(idents []*store.Identifier) object.Object {
	results := []object.Object{}
	for _, ident := range idents {
		results = append(results, identifierToMap(ident))
	}
	return object.NewList(results)
}
