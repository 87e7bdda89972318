package typegrid

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jward/typegrid/internal/ctxlog"
)

// ErrCyclicReference means a grid was reached again while it was still
// being scanned.
var ErrCyclicReference = errors.New("cyclic reference")

// Layout fixes where the builder reads a grid. Rows and columns are 1-based.
type Layout struct {
	// HierarchyColumns is the width of the hierarchy window starting at column 1.
	HierarchyColumns int
	NameColumn       int
	TypeColumn       int
	NotesColumn      int
	// RootFirstRow is the first data row of the root grid, below its
	// description, version and header rows.
	RootFirstRow int
	// RefFirstRow is the first data row of a referenced grid, below its header.
	RefFirstRow int
}

// Root grid metadata cells (row, column).
const (
	descriptionRow = 1
	versionRow     = 2
	metadataCol    = 2
)

// DefaultLayout is the layout of OPC configuration model workbooks.
func DefaultLayout() Layout {
	return Layout{
		HierarchyColumns: 10,
		NameColumn:       15,
		TypeColumn:       16,
		NotesColumn:      17,
		RootFirstRow:     4,
		RefFirstRow:      2,
	}
}

// Validate checks that the layout addresses real, non-overlapping columns.
func (l Layout) Validate() error {
	if l.HierarchyColumns < 1 {
		return fmt.Errorf("layout: hierarchy columns must be positive, got %d", l.HierarchyColumns)
	}
	for _, c := range []int{l.NameColumn, l.TypeColumn, l.NotesColumn} {
		if c <= l.HierarchyColumns {
			return fmt.Errorf("layout: field column %d overlaps the hierarchy window 1..%d", c, l.HierarchyColumns)
		}
	}
	if l.NameColumn == l.TypeColumn || l.NameColumn == l.NotesColumn || l.TypeColumn == l.NotesColumn {
		return errors.New("layout: name, type and notes columns must differ")
	}
	if l.RootFirstRow < 1 || l.RefFirstRow < 1 {
		return errors.New("layout: first data rows must be positive")
	}
	return nil
}

// Builder compiles a root grid and every grid it references into a tree.
// A Builder holds no per-build state and may be reused.
type Builder struct {
	workbook     Workbook
	subProcesses []string
	basicTypes   []string
	layout       Layout
}

// NewBuilder returns a Builder reading from wb. subProcesses is the
// vocabulary of sub-process identifiers; basicTypes the recognized basic
// type names.
func NewBuilder(wb Workbook, subProcesses, basicTypes []string, layout Layout) *Builder {
	return &Builder{
		workbook:     wb,
		subProcesses: subProcesses,
		basicTypes:   basicTypes,
		layout:       layout,
	}
}

// scope is the context a grid is scanned with. It is passed by value down
// the recursion so no grid can observe another's changes.
type scope struct {
	subProcess  string
	descPattern string
	// referrer is nil only while the root grid is scanned.
	referrer *CellRef
	// active holds the grids currently being scanned, outermost first.
	active []string
}

// pathKey identifies a hierarchy node within one grid scan: the node at the
// parent path plus the cell text. A nil parent means a root of the grid.
type pathKey struct {
	parent  *Node
	segment string
}

// Build compiles rootSheet. Any missing or empty grid aborts the build; no
// partial tree is returned.
func (b *Builder) Build(ctx context.Context, rootSheet string) (*Document, error) {
	extent, err := b.openSheet(rootSheet, b.layout.RootFirstRow, nil)
	if err != nil {
		return nil, err
	}

	doc := &Document{Sheet: rootSheet}
	if doc.Description, err = b.cell(rootSheet, descriptionRow, metadataCol); err != nil {
		return nil, err
	}
	if doc.Version, err = b.cell(rootSheet, versionRow, metadataCol); err != nil {
		return nil, err
	}

	doc.Nodes, err = b.scanRows(ctx, rootSheet, b.layout.RootFirstRow, extent, scope{active: []string{rootSheet}})
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("built document", "sheet", rootSheet, "roots", len(doc.Nodes), "nodes", doc.CountNodes())
	return doc, nil
}

// openSheet validates a grid and recalculates it, returning its row extent.
func (b *Builder) openSheet(sheet string, firstRow int, referrer *CellRef) (int, error) {
	if !b.workbook.HasSheet(sheet) {
		return 0, &SheetError{
			Sheet:       sheet,
			Suggestions: SuggestSheets(sheet, b.workbook.SheetNames()),
			Referrer:    referrer,
			Err:         ErrMissingDefinition,
		}
	}
	extent, err := b.workbook.RowExtent(sheet)
	if err != nil {
		return 0, &SheetError{Sheet: sheet, Referrer: referrer, Err: err}
	}
	if extent < firstRow {
		return 0, &SheetError{Sheet: sheet, Referrer: referrer, Err: ErrEmptyDefinition}
	}
	if err := b.workbook.Recalculate(sheet); err != nil {
		return 0, &SheetError{Sheet: sheet, Referrer: referrer, Err: fmt.Errorf("recalculate: %w", err)}
	}
	return extent, nil
}

// scanReference resolves a non-basic type name to the roots of that grid.
func (b *Builder) scanReference(ctx context.Context, sheet string, sc scope) ([]*Node, error) {
	if slices.Contains(sc.active, sheet) {
		return nil, &SheetError{Sheet: sheet, Referrer: sc.referrer, Err: ErrCyclicReference}
	}
	extent, err := b.openSheet(sheet, b.layout.RefFirstRow, sc.referrer)
	if err != nil {
		return nil, err
	}
	sc.active = append(slices.Clip(sc.active), sheet)

	ctxlog.FromContext(ctx).Debug("resolving reference",
		"sheet", sheet, "from", sc.referrer, "sub_process", sc.subProcess, "pattern", sc.descPattern)
	return b.scanRows(ctx, sheet, b.layout.RefFirstRow, extent, sc)
}

// scanRows runs the row/column scan over one grid and returns its roots.
func (b *Builder) scanRows(ctx context.Context, sheet string, firstRow, extent int, sc scope) ([]*Node, error) {
	var roots []*Node
	index := make(map[pathKey]*Node)

	for row := firstRow; row <= extent; row++ {
		var last *Node
		subProcess := sc.subProcess

		for col := 1; col <= b.layout.HierarchyColumns; col++ {
			text, err := b.cell(sheet, row, col)
			if err != nil {
				return nil, err
			}
			if text == "" {
				continue
			}
			key := pathKey{parent: last, segment: text}
			node, ok := index[key]
			if !ok {
				node = &Node{Name: text, Type: StructuralType(), Template: sheet}
				index[key] = node
				if last == nil {
					roots = append(roots, node)
				} else {
					last.addChild(node)
				}
			}
			if b.isSubProcess(text) {
				subProcess = text
			}
			last = node
		}

		name, err := b.cell(sheet, row, b.layout.NameColumn)
		if err != nil {
			return nil, err
		}
		typeName, err := b.cell(sheet, row, b.layout.TypeColumn)
		if err != nil {
			return nil, err
		}
		notes, err := b.cell(sheet, row, b.layout.NotesColumn)
		if err != nil {
			return nil, err
		}

		// A notes cell on a root grid row without hierarchy names a grid
		// that is spliced in as a new root in place of the row's field.
		rootRef := sc.referrer == nil && last == nil && notes != "" && !IsBasicType(notes, b.basicTypes)

		if name != "" || typeName != "" {
			// The field is built even when replaced so a missing grid in
			// its type cell still fails the build.
			field, err := b.field(ctx, sheet, row, name, typeName, notes, subProcess, sc)
			if err != nil {
				return nil, err
			}
			switch {
			case rootRef:
			case last == nil:
				roots = append(roots, field)
			default:
				last.addChild(field)
			}
		}

		if rootRef {
			if b.isSubProcess(name) {
				subProcess = name
			}
			ref, err := b.rootReference(ctx, sheet, row, notes, subProcess, sc)
			if err != nil {
				return nil, err
			}
			roots = append(roots, ref)
		}
	}
	return roots, nil
}

// field builds the node described by a row's name, type and notes cells.
func (b *Builder) field(ctx context.Context, sheet string, row int, name, typeName, notes, subProcess string, sc scope) (*Node, error) {
	basic := IsBasicType(typeName, b.basicTypes)
	placeholder := IsPlaceholder(notes)

	description := notes
	if !basic && placeholder {
		description = ""
	}
	if sc.descPattern != "" {
		description = SubstitutePlaceholders(sc.descPattern, subProcess, notes)
	}

	if b.isSubProcess(name) {
		subProcess = name
	}

	node := &Node{Name: name, Template: sheet, Description: description}
	switch {
	case basic:
		node.Type = LeafType(typeName)
	case typeName != "":
		node.Type = ReferenceType(typeName)
		child := sc
		child.subProcess = subProcess
		child.descPattern = ""
		if placeholder {
			child.descPattern = notes
		}
		child.referrer = &CellRef{Sheet: sheet, Row: row, Col: b.layout.TypeColumn}
		children, err := b.scanReference(ctx, typeName, child)
		if err != nil {
			return nil, err
		}
		node.Children = children
	default:
		node.Type = StructuralType()
	}
	return node, nil
}

// rootReference builds a root node for a row whose only content is a
// notes cell naming another grid.
func (b *Builder) rootReference(ctx context.Context, sheet string, row int, notes, subProcess string, sc scope) (*Node, error) {
	node := &Node{
		Name:     notes,
		Type:     ReferenceType(notes),
		Template: sheet,
	}
	if !IsPlaceholder(notes) {
		node.Description = notes
	}

	child := sc
	child.subProcess = subProcess
	child.descPattern = ""
	child.referrer = &CellRef{Sheet: sheet, Row: row, Col: b.layout.NotesColumn}
	children, err := b.scanReference(ctx, notes, child)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return node, nil
}

func (b *Builder) isSubProcess(text string) bool {
	return slices.Contains(b.subProcesses, text)
}

func (b *Builder) cell(sheet string, row, col int) (string, error) {
	text, err := b.workbook.CellText(sheet, row, col)
	if err != nil {
		return "", &SheetError{Sheet: sheet, Err: fmt.Errorf("read %s: %w", CellRef{Sheet: sheet, Row: row, Col: col}, err)}
	}
	return text, nil
}
