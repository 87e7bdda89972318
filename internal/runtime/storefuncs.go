package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/typegrid/internal/store"
)

// makeDBQueryFn creates "db_query" for ad-hoc read access to the store.
// When compilationID is non-zero, the query can also read that
// compilation's rows through cur_pages, cur_columns and cur_nodes.
//
// db_query(sql, args...) → list of row maps keyed by column name
func makeDBQueryFn(s *store.Store, compilationID int64) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		if compilationID != 0 {
			sqlStr = scopeToCompilation(sqlStr, compilationID)
		}

		queryArgs := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			queryArgs = append(queryArgs, objectToSQLValue(arg))
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
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

// scopeToCompilation prefixes a SELECT with common table expressions that
// restrict the compilation tables to one compilation. The ID is formatted
// into the text so the caller's positional parameters keep their numbering.
func scopeToCompilation(query string, compilationID int64) string {
	return fmt.Sprintf(`WITH
  cur_pages AS (
    SELECT id, name, ordinal FROM pages WHERE compilation_id = %[1]d),
  cur_columns AS (
    SELECT c.id, p.name AS page_name, c.ordinal, c.tag_name, c.data_type, c.description, c.ancestor_labels
    FROM page_columns c JOIN pages p ON p.id = c.page_id
    WHERE p.compilation_id = %[1]d),
  cur_nodes AS (
    SELECT id, parent_id, ordinal, name, kind, type_name, template, description
    FROM nodes WHERE compilation_id = %[1]d)
%[2]s`, compilationID, query)
}

func objectToSQLValue(arg object.Object) any {
	switch v := arg.(type) {
	case *object.Int:
		return v.Value()
	case *object.Float:
		return v.Value()
	case *object.String:
		return v.Value()
	case *object.Bool:
		return v.Value()
	case *object.NilType:
		return nil
	default:
		return fmt.Sprintf("%v", arg)
	}
}

// sqlValueToObject converts a database value to a Risor object.
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

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
