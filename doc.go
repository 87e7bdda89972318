// Package typegrid compiles workbooks of hierarchical type grids into one
// flat table per type.
//
// A workbook holds one root grid and any number of referenced grids. Each
// data row of a grid may open a path of hierarchy cells on the left, and may
// carry a field on the right: a name, a type and a notes cell. A type that is
// not a basic type names another grid, whose content is spliced in under the
// field.
//
// # Pipeline
//
// Compilation runs in two passes, plus two optional steps:
//
//  1. Build: [Builder] scans the root grid row by row, deduplicates
//     hierarchy paths, and resolves references depth-first into a tree of
//     [Node] values. Descriptions marked as placeholders ("PD:xxx:01yy$") are
//     filled in from the sub-process and row value at each reference site.
//
//  2. Flatten: [Flatten] classifies every node as simple, object-level or
//     complex and emits [Column] values into a [PageSet], one [Page] per
//     template. A template's page is filled from the first subtree seen for
//     it.
//
//  3. Persist: with [WithDatabase], the tree and pages are saved to SQLite as
//     one compilation and can be read back with [LoadDocument] and the
//     [Store] queries.
//
//  4. Hooks: with [WithHook], Risor scripts run against the saved
//     compilation and may report diagnostics.
//
// # Usage
//
//	wb, err := xlsx.Open("model.xlsx")
//	if err != nil { ... }
//	defer wb.Close()
//
//	c, err := typegrid.New(
//		typegrid.WithSubProcesses("SP1", "SP2"),
//		typegrid.WithDatabase("model.db"),
//	)
//	if err != nil { ... }
//	defer c.Close()
//
//	res, err := c.Compile(ctx, wb, typegrid.DefaultRootSheet)
//	for _, p := range res.Pages.Pages() {
//		fmt.Println(p.Name, len(p.Columns))
//	}
//
// Missing grids are reported as a [*SheetError] that matches
// [ErrMissingDefinition], and also [ErrUnresolvedReference] when the grid
// was named by another grid's cell. Its Suggestions lists sheets with a
// similar name.
//
// # Hooks
//
// Hook scripts see the compilation through host functions: pages(),
// columns(page), referencing(page), nodes() and report(msg), along with
// log and a read-only db_query. See the internal/runtime package for the
// full set.
package typegrid
