package typegrid

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridRow lays out one data row in the default layout: hierarchy segments
// from column A, then name, type and notes in O, P and Q.
func gridRow(name, typeName, notes string, levels ...string) []string {
	l := DefaultLayout()
	row := make([]string, l.NotesColumn)
	copy(row, levels)
	row[l.NameColumn-1] = name
	row[l.TypeColumn-1] = typeName
	row[l.NotesColumn-1] = notes
	return row
}

// rootGrid returns the rows of a root grid: description, version and a
// header above the data rows.
func rootGrid(description, version string, rows ...[]string) [][]string {
	out := [][]string{
		{"Description", description},
		{"Version", version},
		gridRow("Name", "Type", "Notes", "Level 1"),
	}
	return append(out, rows...)
}

// refGrid returns the rows of a referenced grid: a header above the data rows.
func refGrid(rows ...[]string) [][]string {
	return append([][]string{gridRow("Name", "Type", "Notes")}, rows...)
}

func fixtureWorkbook() *MemoryWorkbook {
	return NewMemoryWorkbook().
		AddSheet("Main", rootGrid("Plant", "1.0",
			gridRow("Motor1", "MotorDef", "drive", "Line"),
			gridRow("Enabled", "Boolean", "", "Line"),
		)).
		AddSheet("MotorDef", refGrid(
			gridRow("Speed", "Double", "rpm"),
		))
}

func build(t *testing.T, wb Workbook, subProcesses ...string) (*Document, error) {
	t.Helper()
	b := NewBuilder(wb, subProcesses, DefaultBasicTypes(), DefaultLayout())
	return b.Build(context.Background(), "Main")
}

func TestBuild_Document(t *testing.T) {
	t.Parallel()

	doc, err := build(t, fixtureWorkbook())
	require.NoError(t, err)

	want := &Document{
		Sheet:       "Main",
		Description: "Plant",
		Version:     "1.0",
		Nodes: []*Node{{
			Name:     "Line",
			Type:     StructuralType(),
			Template: "Main",
			Children: []*Node{
				{
					Name:        "Motor1",
					Type:        ReferenceType("MotorDef"),
					Template:    "Main",
					Description: "drive",
					Children: []*Node{
						{Name: "Speed", Type: LeafType("Double"), Template: "MotorDef", Description: "rpm"},
					},
				},
				{Name: "Enabled", Type: LeafType("Boolean"), Template: "Main"},
			},
		}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, doc.CountNodes())
}

// pathNode follows child names from the roots and returns the node reached.
func pathNode(t *testing.T, roots []*Node, path ...string) *Node {
	t.Helper()
	var found *Node
	nodes := roots
	for _, seg := range path {
		found = nil
		for _, n := range nodes {
			if n.Name == seg {
				found = n
				break
			}
		}
		require.NotNil(t, found, "no node %q on path %v", seg, path)
		nodes = found.Children
	}
	return found
}

func TestBuild_HierarchyPaths(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().AddSheet("Main", rootGrid("", "",
		gridRow("", "", "", "Area", "Line"),
		gridRow("", "", "", "Area", "Cell"),
		// Empty hierarchy cells are skipped.
		gridRow("Temp", "Float", "", "Area", "", "Line"),
		// Same segment under a different parent is a different node.
		gridRow("", "", "", "Yard", "Line"),
	))
	doc, err := build(t, wb)
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	area, yard := doc.Nodes[0], doc.Nodes[1]
	assert.Equal(t, "Area", area.Name)
	assert.Equal(t, "Yard", yard.Name)

	require.Len(t, area.Children, 2)
	line, cell := area.Children[0], area.Children[1]
	assert.Equal(t, "Line", line.Name)
	assert.Equal(t, "Cell", cell.Name)
	require.Len(t, line.Children, 1)
	assert.Equal(t, "Temp", line.Children[0].Name)
	assert.Same(t, line, pathNode(t, doc.Nodes, "Area", "Line"))

	require.Len(t, yard.Children, 1)
	assert.NotSame(t, line, yard.Children[0])
	assert.Empty(t, yard.Children[0].Children)
}

func TestBuild_FieldWithoutHierarchyIsRoot(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().AddSheet("Main", rootGrid("", "",
		gridRow("Enabled", "Boolean", ""),
		gridRow("Spare", "", ""),
		// A basic type in the notes cell is a description, not a grid.
		gridRow("Limit", "Double", "Double"),
		// A row with neither name nor type adds no field.
		gridRow("", "", "Boolean"),
	))
	doc, err := build(t, wb)
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, LeafType("Boolean"), doc.Nodes[0].Type)
	assert.Equal(t, StructuralType(), doc.Nodes[1].Type)
	assert.Equal(t, "Spare", doc.Nodes[1].Name)
	assert.Equal(t, "Double", doc.Nodes[2].Description)
}

func TestBuild_ReferencedGridKeepsNotesAsDescription(t *testing.T) {
	t.Parallel()

	// Only root grid rows splice in grids named by notes cells.
	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("Motor1", "MotorDef", "", "Line"))).
		AddSheet("MotorDef", refGrid(gridRow("Speed", "Double", "rpm")))
	doc, err := build(t, wb)
	require.NoError(t, err)

	speed := doc.Nodes[0].Children[0].Children[0]
	assert.Equal(t, "Speed", speed.Name)
	assert.Equal(t, "rpm", speed.Description)
}

func TestBuild_TypeWithoutName(t *testing.T) {
	t.Parallel()

	t.Run("resolves reference", func(t *testing.T) {
		t.Parallel()
		wb := fixtureWorkbook().AddSheet("Main", rootGrid("", "", gridRow("", "MotorDef", "", "Line")))
		doc, err := build(t, wb)
		require.NoError(t, err)

		line := doc.Nodes[0]
		require.Len(t, line.Children, 1)
		field := line.Children[0]
		assert.Empty(t, field.Name)
		assert.Equal(t, ReferenceType("MotorDef"), field.Type)
		require.Len(t, field.Children, 1)
		assert.Equal(t, "Speed", field.Children[0].Name)
	})

	t.Run("missing grid is fatal", func(t *testing.T) {
		t.Parallel()
		wb := NewMemoryWorkbook().AddSheet("Main", rootGrid("", "", gridRow("", "NoSuchSheet", "", "Line")))
		_, err := build(t, wb)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingDefinition)
		assert.ErrorIs(t, err, ErrUnresolvedReference)
	})

	t.Run("in referenced grid", func(t *testing.T) {
		t.Parallel()
		wb := NewMemoryWorkbook().
			AddSheet("Main", rootGrid("", "", gridRow("Pump1", "PumpDef", "", "Station"))).
			AddSheet("PumpDef", refGrid(gridRow("", "NoSuchSheet", "")))
		_, err := build(t, wb)
		assert.ErrorIs(t, err, ErrMissingDefinition)
	})
}

func TestBuild_ReferencedGridHierarchy(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("Pump1", "PumpDef", "", "Station"))).
		AddSheet("PumpDef", refGrid(
			gridRow("Flow", "Double", "", "Inlet"),
			gridRow("Pressure", "Double", "", "Inlet"),
		))
	doc, err := build(t, wb)
	require.NoError(t, err)

	pump := doc.Nodes[0].Children[0]
	require.Len(t, pump.Children, 1)
	inlet := pump.Children[0]
	assert.Equal(t, "Inlet", inlet.Name)
	assert.Equal(t, "PumpDef", inlet.Template)
	require.Len(t, inlet.Children, 2)
	assert.Equal(t, "PumpDef", inlet.Children[1].Template)
}

func TestBuild_MissingRootSheet(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Mainframe", rootGrid("", "", gridRow("A", "Boolean", ""))).
		AddSheet("Other", refGrid())
	b := NewBuilder(wb, nil, DefaultBasicTypes(), DefaultLayout())
	_, err := b.Build(context.Background(), "main")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingDefinition)
	assert.NotErrorIs(t, err, ErrUnresolvedReference)

	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "main", se.Sheet)
	assert.Equal(t, []string{"Mainframe"}, se.Suggestions)
	assert.Nil(t, se.Referrer)
	assert.Equal(t, `sheet "main" not found (similar sheets: "Mainframe")`, err.Error())
}

func TestBuild_UnresolvedReference(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("Pump1", "PumpDfe", "", "Station"))).
		AddSheet("PumpDef", refGrid(gridRow("Flow", "Double", "")))
	_, err := build(t, wb)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.ErrorIs(t, err, ErrMissingDefinition)

	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PumpDfe", se.Sheet)
	assert.Equal(t, []string{"PumpDef"}, se.Suggestions)
	require.NotNil(t, se.Referrer)
	assert.Equal(t, CellRef{Sheet: "Main", Row: 4, Col: 16}, *se.Referrer)
	assert.Contains(t, err.Error(), "referenced from Main!P4")
}

func TestBuild_EmptyDefinition(t *testing.T) {
	t.Parallel()

	t.Run("root", func(t *testing.T) {
		t.Parallel()
		wb := NewMemoryWorkbook().AddSheet("Main", [][]string{{"", "Plant"}, {"", "1.0"}})
		_, err := build(t, wb)
		assert.ErrorIs(t, err, ErrEmptyDefinition)
		assert.Contains(t, err.Error(), `sheet "Main" has no data rows`)
	})

	t.Run("referenced", func(t *testing.T) {
		t.Parallel()
		wb := NewMemoryWorkbook().
			AddSheet("Main", rootGrid("", "", gridRow("Pump1", "PumpDef", ""))).
			AddSheet("PumpDef", refGrid())
		_, err := build(t, wb)
		assert.ErrorIs(t, err, ErrEmptyDefinition)
		assert.NotErrorIs(t, err, ErrUnresolvedReference)
	})
}

func TestBuild_CyclicReference(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("A1", "ADef", ""))).
		AddSheet("ADef", refGrid(gridRow("B1", "BDef", ""))).
		AddSheet("BDef", refGrid(gridRow("Back", "ADef", "")))
	_, err := build(t, wb)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrCyclicReference)
	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ADef", se.Sheet)
	assert.Equal(t, &CellRef{Sheet: "BDef", Row: 2, Col: 16}, se.Referrer)
}

func TestBuild_SameGridReferencedTwice(t *testing.T) {
	t.Parallel()

	wb := fixtureWorkbook()
	wb.AddSheet("Main", rootGrid("", "",
		gridRow("Motor1", "MotorDef", "", "Line"),
		gridRow("Motor2", "MotorDef", "", "Line"),
	))
	doc, err := build(t, wb)
	require.NoError(t, err)

	line := doc.Nodes[0]
	require.Len(t, line.Children, 2)
	m1, m2 := line.Children[0], line.Children[1]
	require.Len(t, m1.Children, 1)
	require.Len(t, m2.Children, 1)
	// Each reference gets its own subtree.
	assert.NotSame(t, m1.Children[0], m2.Children[0])

	assert.Equal(t, 1, wb.Recalculated("Main"))
	assert.Equal(t, 2, wb.Recalculated("MotorDef"))
}

func TestBuild_PlaceholderSubstitution(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "",
			// Sub-process from a hierarchy cell.
			gridRow("Pump1", "PumpDef", "PD:xxx:01yy$", "SP1"),
			// Sub-process from the name cell of the referencing field.
			gridRow("SP2", "ValveDef", "PD:xxx:02yy$", "Valves"),
			// A placeholder on a basic field is kept as its description.
			gridRow("Raw", "String", "PD:xxx:03yy$", "Valves"),
		)).
		AddSheet("PumpDef", refGrid(
			gridRow("Flow", "Double", "FT"),
			gridRow("Count", "Int32", ""),
		)).
		AddSheet("ValveDef", refGrid(gridRow("Open", "Boolean", "OP")))

	doc, err := build(t, wb, "SP1", "SP2")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	pump := doc.Nodes[0].Children[0]
	assert.Empty(t, pump.Description)
	require.Len(t, pump.Children, 2)
	assert.Equal(t, "PD:SP1:01FT$", pump.Children[0].Description)
	assert.Equal(t, "PD:SP1:01$", pump.Children[1].Description)

	valves := doc.Nodes[1]
	require.Len(t, valves.Children, 2)
	valve := valves.Children[0]
	assert.Equal(t, "SP2", valve.Name)
	assert.Empty(t, valve.Description)
	require.Len(t, valve.Children, 1)
	assert.Equal(t, "PD:SP2:02OP$", valve.Children[0].Description)

	assert.Equal(t, "PD:xxx:03yy$", valves.Children[1].Description)
}

func TestBuild_NestedReferenceResetsPattern(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("Pump1", "PumpDef", "PD:xxx:01yy$", "SP1"))).
		AddSheet("PumpDef", refGrid(gridRow("Motor", "MotorDef", "M"))).
		AddSheet("MotorDef", refGrid(gridRow("Speed", "Double", "rpm")))

	doc, err := build(t, wb, "SP1")
	require.NoError(t, err)

	motor := doc.Nodes[0].Children[0].Children[0]
	assert.Equal(t, "PD:SP1:01M$", motor.Description)
	require.Len(t, motor.Children, 1)
	assert.Equal(t, "rpm", motor.Children[0].Description)
}

func TestBuild_RootReferenceFromNotes(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "",
			gridRow("", "", "Common"),
			// A basic type name in the notes cell is not a reference.
			gridRow("", "", "Double"),
		)).
		AddSheet("Common", refGrid(gridRow("Alarm", "Boolean", "alarm flag")))

	doc, err := build(t, wb)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)

	common := doc.Nodes[0]
	assert.Equal(t, "Common", common.Name)
	assert.Equal(t, ReferenceType("Common"), common.Type)
	assert.Equal(t, "Main", common.Template)
	assert.Equal(t, "Common", common.Description)
	require.Len(t, common.Children, 1)
	assert.Equal(t, "Common", common.Children[0].Template)
}

func TestBuild_RootReferenceReplacesField(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "",
			gridRow("Common Tags", "", "Common"),
			gridRow("Motor1", "MotorDef", "", "Line"),
		)).
		AddSheet("Common", refGrid(gridRow("Alarm", "Boolean", "alarm flag"))).
		AddSheet("MotorDef", refGrid(gridRow("Speed", "Double", "rpm")))

	doc, err := build(t, wb)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	common := doc.Nodes[0]
	assert.Equal(t, "Common", common.Name)
	assert.Equal(t, ReferenceType("Common"), common.Type)
	require.Len(t, common.Children, 1)
	assert.Equal(t, "Alarm", common.Children[0].Name)
	assert.Equal(t, "alarm flag", common.Children[0].Description)
	assert.Equal(t, "Line", doc.Nodes[1].Name)
}

func TestBuild_RootReferenceUsesNameSubProcess(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("SP1", "", "Shared"))).
		AddSheet("Shared", refGrid(gridRow("Valve", "ValveDef", "PD:xxx:05yy$"))).
		AddSheet("ValveDef", refGrid(gridRow("Open", "Boolean", "OP")))

	doc, err := build(t, wb, "SP1")
	require.NoError(t, err)

	open := pathNode(t, doc.Nodes, "Shared", "Valve", "Open")
	assert.Equal(t, "PD:SP1:05OP$", open.Description)
}

func TestBuild_ReplacedFieldReferenceStillResolved(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("Main", rootGrid("", "", gridRow("Tags", "Missing", "Common"))).
		AddSheet("Common", refGrid(gridRow("Alarm", "Boolean", "")))

	_, err := build(t, wb)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Missing", se.Sheet)
}

func TestBuild_RootReferenceMissing(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().AddSheet("Main", rootGrid("", "", gridRow("", "", "Commons")))
	_, err := build(t, wb)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "referenced from Main!Q4")
}

func TestBuild_ReadError(t *testing.T) {
	t.Parallel()

	wb := &failingWorkbook{MemoryWorkbook: fixtureWorkbook(), failSheet: "MotorDef"}
	_, err := build(t, wb)
	require.Error(t, err)
	assert.ErrorIs(t, err, errCellRead)
	assert.Contains(t, err.Error(), "MotorDef!A2")
}

var errCellRead = errors.New("cell read failed")

type failingWorkbook struct {
	*MemoryWorkbook
	failSheet string
}

func (w *failingWorkbook) CellText(name string, row, col int) (string, error) {
	if name == w.failSheet {
		return "", errCellRead
	}
	return w.MemoryWorkbook.CellText(name, row, col)
}

func TestLayout_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultLayout().Validate())

	tests := []struct {
		name   string
		modify func(*Layout)
	}{
		{"no hierarchy", func(l *Layout) { l.HierarchyColumns = 0 }},
		{"overlap", func(l *Layout) { l.NameColumn = 3 }},
		{"duplicate field column", func(l *Layout) { l.TypeColumn = l.NameColumn }},
		{"zero first row", func(l *Layout) { l.RefFirstRow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := DefaultLayout()
			tt.modify(&l)
			assert.Error(t, l.Validate())
		})
	}
}

func TestColumnName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "Q", columnName(17))
	assert.Equal(t, "Z", columnName(26))
	assert.Equal(t, "AA", columnName(27))
	assert.Equal(t, "?", columnName(0))
}

func TestBuild_MissingDefaultRootSheet(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().AddSheet(DefaultRootSheet, rootGrid("", "", gridRow("A", "Boolean", "")))
	b := NewBuilder(wb, nil, DefaultBasicTypes(), DefaultLayout())
	_, err := b.Build(context.Background(), "OPC Confg Model")

	assert.ErrorIs(t, err, ErrMissingDefinition)
	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"OPC Config Model"}, se.Suggestions)
}
