package typegrid

import "github.com/jward/typegrid/internal/store"

// Public type aliases for internal store types returned by Compiler and
// the stored-compilation queries. They are identical to the internal types;
// no conversion is needed.

type Store = store.Store
type Label = store.Label
type Compilation = store.Compilation
type TreeNode = store.TreeNode
type PageRecord = store.PageRecord
type ColumnRecord = store.ColumnRecord
type Diagnostic = store.Diagnostic
