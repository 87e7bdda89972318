package store

import "time"

// Compilation is one compile run of a root grid.
type Compilation struct {
	ID          int64
	RootSheet   string
	Source      string
	Description string
	Version     string
	CompiledAt  time.Time
}

// Label is one (name, description) pair of an object-level ancestor.
type Label struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TreeNode is a stored node of the compiled tree. Children is populated by
// LoadTree and consumed by SaveCompilation.
type TreeNode struct {
	ID             int64
	ParentID       *int64
	Ordinal        int
	Name           string
	Kind           string
	TypeName       string
	Template       string
	Description    string
	AncestorLabels []Label
	Children       []*TreeNode
}

// PageRecord is a stored page. Columns is populated by SaveCompilation's
// caller and by PageByName.
type PageRecord struct {
	ID            int64
	CompilationID int64
	Name          string
	Ordinal       int
	ColumnCount   int
	Columns       []*ColumnRecord
}

// ColumnRecord is one row of a stored page.
type ColumnRecord struct {
	ID             int64
	PageID         int64
	Ordinal        int
	TagName        string
	DataType       string
	Description    string
	AncestorLabels []Label
}

// Diagnostic is a message reported by a hook script for a compilation.
type Diagnostic struct {
	ID            int64
	CompilationID int64
	Hook          string
	Message       string
}
