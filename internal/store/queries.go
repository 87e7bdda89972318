package store

import (
	"database/sql"
	"fmt"
)

// --- Compilations ---

const compilationCols = "id, root_sheet, source, description, version, compiled_at"

func scanCompilation(sc interface{ Scan(...any) error }) (*Compilation, error) {
	c := &Compilation{}
	var source, desc, version sql.NullString
	var compiledAt sql.NullTime
	if err := sc.Scan(&c.ID, &c.RootSheet, &source, &desc, &version, &compiledAt); err != nil {
		return nil, err
	}
	c.Source = source.String
	c.Description = desc.String
	c.Version = version.String
	c.CompiledAt = compiledAt.Time
	return c, nil
}

// CompilationByID returns the compilation, or nil when absent.
func (s *Store) CompilationByID(id int64) (*Compilation, error) {
	c, err := scanCompilation(s.db.QueryRow("SELECT "+compilationCols+" FROM compilations WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("compilation by id: %w", err)
	}
	return c, nil
}

// LatestCompilation returns the most recently saved compilation, or nil.
func (s *Store) LatestCompilation() (*Compilation, error) {
	c, err := scanCompilation(s.db.QueryRow("SELECT " + compilationCols + " FROM compilations ORDER BY id DESC LIMIT 1"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest compilation: %w", err)
	}
	return c, nil
}

// Compilations lists all compilations, oldest first.
func (s *Store) Compilations() ([]*Compilation, error) {
	rows, err := s.db.Query("SELECT " + compilationCols + " FROM compilations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("compilations: %w", err)
	}
	defer rows.Close()
	var out []*Compilation
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compilation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Pages ---

// PagesByCompilation returns the compilation's pages in creation order with
// ColumnCount set. Columns is left empty.
func (s *Store) PagesByCompilation(compilationID int64) ([]*PageRecord, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.compilation_id, p.name, p.ordinal, COUNT(c.id)
		 FROM pages p LEFT JOIN page_columns c ON c.page_id = p.id
		 WHERE p.compilation_id = ?
		 GROUP BY p.id ORDER BY p.ordinal`, compilationID,
	)
	if err != nil {
		return nil, fmt.Errorf("pages by compilation: %w", err)
	}
	defer rows.Close()
	var pages []*PageRecord
	for rows.Next() {
		p := &PageRecord{}
		if err := rows.Scan(&p.ID, &p.CompilationID, &p.Name, &p.Ordinal, &p.ColumnCount); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// PageByName returns the named page with its columns, or nil when absent.
func (s *Store) PageByName(compilationID int64, name string) (*PageRecord, error) {
	p := &PageRecord{}
	err := s.db.QueryRow(
		"SELECT id, compilation_id, name, ordinal FROM pages WHERE compilation_id = ? AND name = ?",
		compilationID, name,
	).Scan(&p.ID, &p.CompilationID, &p.Name, &p.Ordinal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("page by name: %w", err)
	}
	if p.Columns, err = s.ColumnsByPage(p.ID); err != nil {
		return nil, err
	}
	p.ColumnCount = len(p.Columns)
	return p, nil
}

// ColumnsByPage returns a page's columns in order.
func (s *Store) ColumnsByPage(pageID int64) ([]*ColumnRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, page_id, ordinal, tag_name, data_type, description, ancestor_labels
		 FROM page_columns WHERE page_id = ? ORDER BY ordinal`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("columns by page: %w", err)
	}
	defer rows.Close()
	var cols []*ColumnRecord
	for rows.Next() {
		c := &ColumnRecord{}
		var dataType, desc, labels sql.NullString
		if err := rows.Scan(&c.ID, &c.PageID, &c.Ordinal, &c.TagName, &dataType, &desc, &labels); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.DataType = dataType.String
		c.Description = desc.String
		c.AncestorLabels = unmarshalLabels(labels.String)
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// PagesReferencing returns the names of pages holding a column whose data
// type is the given page name.
func (s *Store) PagesReferencing(compilationID int64, pageName string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT p.name FROM page_columns c JOIN pages p ON p.id = c.page_id
		 WHERE p.compilation_id = ? AND c.data_type = ? ORDER BY p.ordinal`,
		compilationID, pageName,
	)
	if err != nil {
		return nil, fmt.Errorf("pages referencing: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan page name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Tree ---

// LoadTree rebuilds the stored tree of a compilation and returns its roots
// in their original order.
func (s *Store) LoadTree(compilationID int64) ([]*TreeNode, error) {
	rows, err := s.db.Query(
		`SELECT id, parent_id, ordinal, name, kind, type_name, template, description, ancestor_labels
		 FROM nodes WHERE compilation_id = ? ORDER BY id`, compilationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	defer rows.Close()

	// Parents are inserted before children, so ordering by id sees every
	// parent first.
	byID := make(map[int64]*TreeNode)
	var roots []*TreeNode
	for rows.Next() {
		n := &TreeNode{}
		var parentID sql.NullInt64
		var typeName, template, desc, labels sql.NullString
		if err := rows.Scan(&n.ID, &parentID, &n.Ordinal, &n.Name, &n.Kind, &typeName, &template, &desc, &labels); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.TypeName = typeName.String
		n.Template = template.String
		n.Description = desc.String
		n.AncestorLabels = unmarshalLabels(labels.String)
		byID[n.ID] = n

		if !parentID.Valid {
			roots = append(roots, n)
			continue
		}
		pid := parentID.Int64
		n.ParentID = &pid
		parent, ok := byID[pid]
		if !ok {
			return nil, fmt.Errorf("load tree: node %d has unknown parent %d", n.ID, pid)
		}
		parent.Children = append(parent.Children, n)
	}
	return roots, rows.Err()
}

// --- Diagnostics ---

// DiagnosticsByCompilation returns hook messages in the order reported.
func (s *Store) DiagnosticsByCompilation(compilationID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		"SELECT id, compilation_id, hook, message FROM diagnostics WHERE compilation_id = ? ORDER BY id",
		compilationID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by compilation: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		var hook sql.NullString
		if err := rows.Scan(&d.ID, &d.CompilationID, &hook, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Hook = hook.String
		out = append(out, d)
	}
	return out, rows.Err()
}
