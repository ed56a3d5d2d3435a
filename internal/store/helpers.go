package store

import (
	"database/sql"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// nullableID converts a sql.NullInt64 column into an optional ID.
func nullableID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// remap rewrites a fake (negative) ID to its committed ID.
func remap(id *int64, fakeToReal map[int64]int64) *int64 {
	if id == nil || *id >= 0 {
		return id
	}
	realID, ok := fakeToReal[*id]
	if !ok {
		return nil
	}
	return &realID
}
