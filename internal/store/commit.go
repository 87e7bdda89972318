package store

import (
	"database/sql"
	"fmt"
)

// SaveCompilation inserts a compilation, its tree and its pages within a
// single transaction and returns the compilation ID. IDs are written back
// into c, the tree nodes, the pages and their columns.
//
// Insert order respects FK dependencies:
//  1. Compilation
//  2. Nodes, parents before children (depth-first)
//  3. Pages (depend on compilation_id)
//  4. Page columns (depend on page_id)
func (s *Store) SaveCompilation(c *Compilation, roots []*TreeNode, pages []*PageRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("save compilation: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Compilation
	res, err := tx.Exec(
		`INSERT INTO compilations (root_sheet, source, description, version, compiled_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.RootSheet, c.Source, c.Description, c.Version, c.CompiledAt,
	)
	if err != nil {
		return 0, fmt.Errorf("save compilation: insert compilation: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("save compilation: last insert id: %w", err)
	}

	// 2. Nodes
	for i, root := range roots {
		root.Ordinal = i
		if err := insertNodeTx(tx, c.ID, nil, root); err != nil {
			return 0, fmt.Errorf("save compilation: %w", err)
		}
	}

	// 3, 4. Pages and their columns
	for i, p := range pages {
		p.CompilationID = c.ID
		p.Ordinal = i
		res, err := tx.Exec(
			"INSERT INTO pages (compilation_id, name, ordinal) VALUES (?, ?, ?)",
			p.CompilationID, p.Name, p.Ordinal,
		)
		if err != nil {
			return 0, fmt.Errorf("save compilation: page %q: %w", p.Name, err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("save compilation: last insert id: %w", err)
		}
		for j, col := range p.Columns {
			col.PageID = p.ID
			col.Ordinal = j
			if err := insertColumnTx(tx, col); err != nil {
				return 0, fmt.Errorf("save compilation: page %q column %q: %w", p.Name, col.TagName, err)
			}
		}
		p.ColumnCount = len(p.Columns)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save compilation: commit: %w", err)
	}
	return c.ID, nil
}

func insertNodeTx(tx *sql.Tx, compilationID int64, parentID *int64, n *TreeNode) error {
	n.ParentID = parentID
	res, err := tx.Exec(
		`INSERT INTO nodes (compilation_id, parent_id, ordinal, name, kind, type_name, template, description, ancestor_labels)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		compilationID, parentID, n.Ordinal, n.Name, n.Kind, n.TypeName, n.Template, n.Description,
		marshalLabels(n.AncestorLabels),
	)
	if err != nil {
		return fmt.Errorf("node %q: %w", n.Name, err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	for i, child := range n.Children {
		child.Ordinal = i
		if err := insertNodeTx(tx, compilationID, &n.ID, child); err != nil {
			return err
		}
	}
	return nil
}

func insertColumnTx(tx *sql.Tx, c *ColumnRecord) error {
	res, err := tx.Exec(
		`INSERT INTO page_columns (page_id, ordinal, tag_name, data_type, description, ancestor_labels)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.PageID, c.Ordinal, c.TagName, c.DataType, c.Description, marshalLabels(c.AncestorLabels),
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// InsertDiagnostic records a hook message for a compilation.
func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO diagnostics (compilation_id, hook, message) VALUES (?, ?, ?)",
		d.CompilationID, d.Hook, d.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}
