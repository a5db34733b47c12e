package celledge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notargets/polymesh/mapping"
	"github.com/notargets/polymesh/mesh"
	"github.com/notargets/polymesh/meshobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var unit = r3.Vec{X: 1, Y: 1, Z: 1}

func blockMesh(t *testing.T, nx, ny, nz int) *mesh.PolyMesh {
	m, err := mesh.NewBlockMesh("block", nx, ny, nz, r3.Vec{}, unit)
	require.NoError(t, err)
	return m
}

// checkList verifies every cell of l against the mesh it was built for
func checkList(t *testing.T, l *List, m *mesh.PolyMesh) {
	t.Helper()
	require.Equal(t, m.NCells(), l.Len())
	for celli, c := range m.Cells() {
		d, err := l.Data(celli)
		require.NoError(t, err)
		checkClosed(t, d, c, m.Faces())
		for cfi, fi := range c {
			assert.Equal(t, m.Owner()[fi] == celli, d.COwns()[cfi],
				"cell %d face %d", celli, fi)
		}
	}
}

func TestListCaching(t *testing.T) {
	m := blockMesh(t, 2, 2, 2)
	n := Constructions()

	assert.False(t, Found(m))
	l, err := New(m)
	require.NoError(t, err)
	assert.True(t, Found(m))
	assert.Equal(t, 1, l.Generation())
	assert.Equal(t, TypeName, l.TypeName())
	assert.Same(t, m, l.Mesh())
	checkList(t, l, m)

	again, err := New(m)
	require.NoError(t, err)
	assert.Same(t, l, again)
	assert.Equal(t, n+1, Constructions())

	// Another mesh gets its own list
	other, err := New(blockMesh(t, 1, 1, 1))
	require.NoError(t, err)
	assert.NotSame(t, l, other)
	assert.Equal(t, n+2, Constructions())
}

func TestListAt(t *testing.T) {
	m := blockMesh(t, 2, 1, 1)
	l, err := New(m)
	require.NoError(t, err)

	a, err := l.At(1)
	require.NoError(t, err)
	d, err := l.Data(1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Cell())
	assert.Equal(t, d.CfiAndFeiToCei(), a.CfiAndFeiToCei())
	assert.Equal(t, d.CeiToCfiAndFei(), a.CeiToCfiAndFei())
	assert.Equal(t, d.COwns(), a.COwns())
	assert.False(t, a.Stale())

	// Changing a returned map leaves the cached addressing alone
	a.CfiAndFeiToCei()[0][0] = -5
	a.COwns()[0] = !d.COwns()[0]
	assert.Equal(t, d.CfiAndFeiToCei(), a.CfiAndFeiToCei())
	assert.Equal(t, d.COwns(), a.COwns())

	c := m.Cells()[1]
	for cei, pair := range a.CeiToCfiAndFei() {
		fe := pair[1]
		assert.Equal(t, a.Edge(cei).Key(), m.Faces()[c[fe.Cfi]].Edge(fe.Fei).Key())
	}

	for _, celli := range []int{-1, 2} {
		_, err = l.At(celli)
		var ie *IndexOutOfRangeError
		require.True(t, errors.As(err, &ie), "cell %d", celli)
		assert.Equal(t, celli, ie.Index)
		assert.Equal(t, 2, ie.Size)

		_, err = l.Data(celli)
		assert.True(t, errors.As(err, &ie))
	}
}

func TestListMovePoints(t *testing.T) {
	m := blockMesh(t, 2, 2, 1)
	l, err := New(m)
	require.NoError(t, err)
	before, err := l.Data(0)
	require.NoError(t, err)
	a, err := l.At(0)
	require.NoError(t, err)
	n := Constructions()

	moved := make([]r3.Vec, m.NPoints())
	for i, p := range m.Points() {
		moved[i] = r3.Add(r3.Scale(3, p), unit)
	}
	require.NoError(t, m.MovePoints(moved))

	after, err := New(m)
	require.NoError(t, err)
	assert.Same(t, l, after)
	assert.Equal(t, n, Constructions())
	assert.Equal(t, 1, l.Generation())
	assert.False(t, a.Stale())

	d, err := l.Data(0)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(before, d, cmp.AllowUnexported(Data{})))
}

func TestListTopoChange(t *testing.T) {
	m := blockMesh(t, 3, 2, 1)
	l, err := New(m)
	require.NoError(t, err)
	a, err := l.At(0)
	require.NoError(t, err)

	newToOld := make([]int, m.NCells())
	for i := range newToOld {
		newToOld[i] = m.NCells() - 1 - i
	}
	topo, mp, err := m.RenumberCells(newToOld)
	require.NoError(t, err)
	require.NotEmpty(t, mp.FlipFaces)
	require.NoError(t, m.TopoChange(topo, mp))

	assert.True(t, Found(m))
	after, err := New(m)
	require.NoError(t, err)
	assert.Same(t, l, after)
	assert.Equal(t, 2, l.Generation())
	assert.True(t, a.Stale())
	checkList(t, l, m)

	// The rebuilt list matches one built from scratch
	fresh, err := mesh.NewPolyMesh("fresh", m.Points(), m.Faces(), m.Owner(), m.Neighbour())
	require.NoError(t, err)
	fl, err := New(fresh)
	require.NoError(t, err)
	for celli := 0; celli < l.Len(); celli++ {
		d1, err := l.Data(celli)
		require.NoError(t, err)
		d2, err := fl.Data(celli)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(d1, d2, cmp.AllowUnexported(Data{})), "cell %d", celli)
	}
}

func TestListDistributeAndMapMesh(t *testing.T) {
	m := blockMesh(t, 2, 1, 1)
	l, err := New(m)
	require.NoError(t, err)

	dm := &mapping.DistributionMap{
		CellMap:  mapping.Identity(m.NCells()),
		FaceMap:  mapping.Identity(m.NFaces()),
		PointMap: mapping.Identity(m.NPoints()),
		CellProc: []int{0, 1},
	}
	require.NoError(t, m.Distribute(m.Topology(), dm))
	assert.Equal(t, 2, l.Generation())
	checkList(t, l, m)

	mm := &mapping.MeshMap{CellMap: mapping.Identity(m.NCells()), NSourceCells: m.NCells()}
	require.NoError(t, m.MapMesh(m.Topology(), mm))
	assert.Equal(t, 3, l.Generation())
	checkList(t, l, m)

	after, err := New(m)
	require.NoError(t, err)
	assert.Same(t, l, after)
}

// openCube returns the topology of a unit cube missing its last face
func openCube(t *testing.T) mesh.Topology {
	topo, err := mesh.BlockTopology(1, 1, 1, r3.Vec{}, unit)
	require.NoError(t, err)
	topo.Faces = topo.Faces[:5]
	topo.Owner = topo.Owner[:5]
	return topo
}

func TestListMalformedMesh(t *testing.T) {
	topo := openCube(t)
	m, err := mesh.NewPolyMesh("open", topo.Points, topo.Faces, topo.Owner, topo.Neighbour)
	require.NoError(t, err)
	n := Constructions()

	_, err = New(m)
	var ce *meshobject.ConstructionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, TypeName, ce.TypeName)
	assert.Equal(t, "open", ce.MeshName)

	var me *MalformedCellError
	require.True(t, errors.As(err, &me), "got %v", err)
	assert.Equal(t, 0, me.Cell)
	assert.Equal(t, 1, me.Count)

	assert.False(t, Found(m))
	assert.Equal(t, n, Constructions())
}

func TestListRebuildFailure(t *testing.T) {
	m := blockMesh(t, 1, 1, 1)
	l, err := New(m)
	require.NoError(t, err)

	// Replace the last face by a copy of the one before it
	old := m.Topology()
	topo := mesh.Topology{
		Points:    old.Points,
		Faces:     append([]mesh.Face(nil), old.Faces...),
		Owner:     old.Owner,
		Neighbour: old.Neighbour,
	}
	topo.Faces[5] = append(mesh.Face(nil), old.Faces[4]...)
	mp := &mapping.TopoChangeMap{
		CellMap:  mapping.Identity(1),
		FaceMap:  mapping.Identity(6),
		PointMap: mapping.Identity(8),
	}

	err = m.TopoChange(topo, mp)
	var me *MalformedCellError
	require.True(t, errors.As(err, &me), "got %v", err)
	assert.NotEqual(t, 2, me.Count)

	assert.False(t, Found(m), "a list that failed to rebuild is checked out")
	assert.Equal(t, 1, l.Generation())
	assert.False(t, l.Release())

	_, err = New(m)
	assert.Error(t, err)
}

func TestListDeleteAndRelease(t *testing.T) {
	m := blockMesh(t, 1, 1, 1)

	assert.False(t, Delete(m))
	_, err := New(m)
	require.NoError(t, err)
	assert.True(t, Delete(m))
	assert.False(t, Found(m))

	l, err := New(m)
	require.NoError(t, err)
	assert.True(t, l.Release())
	assert.False(t, Found(m))
	assert.False(t, l.Release())

	// A released list does not remove its replacement
	replacement, err := New(m)
	require.NoError(t, err)
	assert.NotSame(t, l, replacement)
	assert.False(t, l.Release())
	assert.True(t, Found(m))
}

func TestListTetMesh(t *testing.T) {
	points := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 1, Z: 1},
	}
	m, err := mesh.NewTetMesh("tets", points, [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}})
	require.NoError(t, err)

	l, err := New(m)
	require.NoError(t, err)
	checkList(t, l, m)
	for celli := 0; celli < l.Len(); celli++ {
		d, err := l.Data(celli)
		require.NoError(t, err)
		assert.Equal(t, 6, d.NEdges(), "cell %d", celli)
	}
}
