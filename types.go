package varscope

import "github.com/jward/varscope/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// These are Go type aliases (=): identical to the internal types at compile
// time, so external consumers need no conversion.

type Store = store.Store
type File = store.File
type Scope = store.Scope
type Identifier = store.Identifier
type Summary = store.Summary
