package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/typegrid/internal/store"
)

// CompilationGlobals returns the globals a hook script gets for one stored
// compilation:
//
//	compilation            map: id, root_sheet, source, description, version
//	pages()                list of maps: id, name, ordinal, column_count
//	columns(page)          list of maps: tag_name, data_type, description, labels
//	referencing(page)      names of pages with a column typed as page
//	nodes()                list of root node maps, children nested
//	report(msg)            records a diagnostic against the compilation
//	db_query(sql, ...)     read-only SQL; cur_pages, cur_columns and cur_nodes
//	                       hold this compilation's rows
func (r *Runtime) CompilationGlobals(hook string, compilationID int64) (map[string]any, error) {
	if r.store == nil {
		return nil, fmt.Errorf("runtime: hook %s: no store", hook)
	}
	c, err := r.store.CompilationByID(compilationID)
	if err != nil {
		return nil, fmt.Errorf("runtime: hook %s: %w", hook, err)
	}
	if c == nil {
		return nil, fmt.Errorf("runtime: hook %s: compilation %d not found", hook, compilationID)
	}
	return map[string]any{
		"compilation": object.NewMap(map[string]object.Object{
			"id":          object.NewInt(c.ID),
			"root_sheet":  object.NewString(c.RootSheet),
			"source":      object.NewString(c.Source),
			"description": object.NewString(c.Description),
			"version":     object.NewString(c.Version),
		}),
		"pages":       makePagesFn(r.store, compilationID),
		"columns":     makeColumnsFn(r.store, compilationID),
		"referencing": makeReferencingFn(r.store, compilationID),
		"nodes":       makeNodesFn(r.store, compilationID),
		"report":      makeReportFn(r.store, compilationID, hook),
		"db_query":    makeDBQueryFn(r.store, compilationID),
	}, nil
}

// pages() → list of page maps
func makePagesFn(s *store.Store, compilationID int64) *object.Builtin {
	return object.NewBuiltin("pages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("pages", 0, len(args))
		}
		pages, err := s.PagesByCompilation(compilationID)
		if err != nil {
			return object.Errorf("pages: %v", err)
		}
		results := make([]object.Object, 0, len(pages))
		for _, p := range pages {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":           object.NewInt(p.ID),
				"name":         object.NewString(p.Name),
				"ordinal":      object.NewInt(int64(p.Ordinal)),
				"column_count": object.NewInt(int64(p.ColumnCount)),
			}))
		}
		return object.NewList(results)
	})
}

// columns(page_name) → list of column maps, or nil when the page is absent
func makeColumnsFn(s *store.Store, compilationID int64) *object.Builtin {
	return object.NewBuiltin("columns", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("columns", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("columns: %v", err)
		}
		page, err := s.PageByName(compilationID, name)
		if err != nil {
			return object.Errorf("columns: %v", err)
		}
		if page == nil {
			return object.Nil
		}
		results := make([]object.Object, 0, len(page.Columns))
		for _, c := range page.Columns {
			results = append(results, object.NewMap(map[string]object.Object{
				"tag_name":    object.NewString(c.TagName),
				"data_type":   object.NewString(c.DataType),
				"description": object.NewString(c.Description),
				"labels":      labelsToList(c.AncestorLabels),
			}))
		}
		return object.NewList(results)
	})
}

// referencing(page_name) → list of page names
func makeReferencingFn(s *store.Store, compilationID int64) *object.Builtin {
	return object.NewBuiltin("referencing", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("referencing", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("referencing: %v", err)
		}
		names, err := s.PagesReferencing(compilationID, name)
		if err != nil {
			return object.Errorf("referencing: %v", err)
		}
		return stringsToList(names)
	})
}

// nodes() → list of root node maps with nested children
func makeNodesFn(s *store.Store, compilationID int64) *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("nodes", 0, len(args))
		}
		roots, err := s.LoadTree(compilationID)
		if err != nil {
			return object.Errorf("nodes: %v", err)
		}
		return treeToList(roots)
	})
}

// report(msg) → diagnostic id
func makeReportFn(s *store.Store, compilationID int64, hook string) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		msg, err := toString(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		id, insertErr := s.InsertDiagnostic(&store.Diagnostic{
			CompilationID: compilationID,
			Hook:          hook,
			Message:       msg,
		})
		if insertErr != nil {
			return object.Errorf("report: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func treeToList(nodes []*store.TreeNode) object.Object {
	results := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, object.NewMap(map[string]object.Object{
			"id":          object.NewInt(n.ID),
			"name":        object.NewString(n.Name),
			"kind":        object.NewString(n.Kind),
			"type":        object.NewString(n.TypeName),
			"template":    object.NewString(n.Template),
			"description": object.NewString(n.Description),
			"children":    treeToList(n.Children),
		}))
	}
	return object.NewList(results)
}

func labelsToList(labels []store.Label) object.Object {
	results := make([]object.Object, 0, len(labels))
	for _, l := range labels {
		results = append(results, object.NewMap(map[string]object.Object{
			"name":        object.NewString(l.Name),
			"description": object.NewString(l.Description),
		}))
	}
	return object.NewList(results)
}

func stringsToList(ss []string) object.Object {
	results := make([]object.Object, 0, len(ss))
	for _, s := range ss {
		results = append(results, object.NewString(s))
	}
	return object.NewList(results)
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
