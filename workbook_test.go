package typegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWorkbook(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().
		AddSheet("B", [][]string{{"x"}}).
		AddSheet("A", [][]string{{"a", "b"}, {"", "c"}, {}, {"", ""}})
	assert.Equal(t, []string{"B", "A"}, wb.SheetNames())
	assert.True(t, wb.HasSheet("A"))
	assert.False(t, wb.HasSheet("C"))

	n, err := wb.RowExtent("A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text, err := wb.CellText("A", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "c", text)

	text, err = wb.CellText("A", 9, 9)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = wb.CellText("A", 0, 1)
	assert.Error(t, err)
	_, err = wb.CellText("C", 1, 1)
	assert.Error(t, err)
	_, err = wb.RowExtent("C")
	assert.Error(t, err)
}

func TestMemoryWorkbook_SetCell(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook()
	wb.SetCell("S", 3, 4, "v")
	wb.SetCell("S", 1, 1, "w")
	assert.Equal(t, []string{"S"}, wb.SheetNames())

	n, err := wb.RowExtent("S")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	text, err := wb.CellText("S", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "v", text)
	text, err = wb.CellText("S", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "w", text)
}

func TestMemoryWorkbook_Recalculate(t *testing.T) {
	t.Parallel()

	wb := NewMemoryWorkbook().AddSheet("A", nil)
	require.NoError(t, wb.Recalculate("A"))
	require.NoError(t, wb.Recalculate("A"))
	assert.Equal(t, 2, wb.Recalculated("A"))
	assert.Zero(t, wb.Recalculated("B"))
	assert.Error(t, wb.Recalculate("B"))

	n, err := wb.RowExtent("A")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNodeType(t *testing.T) {
	t.Parallel()

	assert.Empty(t, StructuralType().String())
	assert.Equal(t, "Double", LeafType("Double").String())
	assert.Equal(t, "MotorDef", ReferenceType("MotorDef").String())

	for _, k := range []TypeKind{Structural, Leaf, Reference} {
		got, err := ParseTypeKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseTypeKind("bogus")
	assert.Error(t, err)

	b, err := ReferenceType("MotorDef").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"reference","name":"MotorDef"}`, string(b))
	b, err = StructuralType().MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"structural"}`, string(b))
}

func TestNode_Walk(t *testing.T) {
	t.Parallel()

	root := &Node{Name: "a", Children: []*Node{
		{Name: "b", Children: []*Node{{Name: "c"}}},
		{Name: "d"},
	}}

	var seen []string
	var depths []int
	root.Walk(func(n *Node, depth int) bool {
		seen = append(seen, n.Name)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)

	seen = nil
	root.Walk(func(n *Node, depth int) bool {
		seen = append(seen, n.Name)
		return n.Name != "b"
	})
	assert.Equal(t, []string{"a", "b", "d"}, seen)
	assert.True(t, root.Children[1].IsLeaf())
	assert.False(t, root.IsLeaf())
}
