package mesh

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/notargets/polymesh/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	origin = r3.Vec{}
	unit   = r3.Vec{X: 1, Y: 1, Z: 1}
)

func TestEdge(t *testing.T) {
	e := Edge{3, 1}
	assert.Equal(t, 3, e.Start())
	assert.Equal(t, 1, e.End())
	assert.Equal(t, Edge{1, 3}, e.Key())
	assert.Equal(t, 1, e.Compare(Edge{3, 1}))
	assert.Equal(t, -1, e.Compare(Edge{1, 3}))
	assert.Equal(t, 0, e.Compare(Edge{1, 2}))
}

func TestFace(t *testing.T) {
	f := Face{0, 1, 2, 3}
	assert.Equal(t, 4, f.NEdges())
	assert.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, f.Edges())

	r := f.Reverse()
	assert.Equal(t, Face{0, 3, 2, 1}, r)
	for i := 0; i < f.NEdges(); i++ {
		assert.Equal(t, -1, r.Edge(i).Compare(f.Edge(f.NEdges()-1-i)),
			"reversed face-edge %d should run against face-edge %d", i, f.NEdges()-1-i)
	}
}

func TestNewPolyMeshValidation(t *testing.T) {
	topo, err := BlockTopology(2, 1, 1, origin, unit)
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(tp *Topology)
	}{
		{"short owner", func(tp *Topology) { tp.Owner = tp.Owner[:3] }},
		{"too many neighbours", func(tp *Topology) { tp.Neighbour = make([]int, len(tp.Faces)+1) }},
		{"degenerate face", func(tp *Topology) { tp.Faces[0] = Face{0, 1} }},
		{"point out of range", func(tp *Topology) { tp.Faces[0] = Face{0, 1, 99} }},
		{"negative owner", func(tp *Topology) { tp.Owner[0] = -1 }},
		{"self neighbour", func(tp *Topology) { tp.Neighbour[0] = tp.Owner[0] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := cloneTopology(topo)
			tt.modify(&tp)
			_, err := NewPolyMesh("bad", tp.Points, tp.Faces, tp.Owner, tp.Neighbour)
			assert.Error(t, err)
		})
	}
}

func TestBlockMesh(t *testing.T) {
	m, err := NewBlockMesh("block", 2, 3, 4, origin, r3.Vec{X: 2, Y: 3, Z: 4})
	require.NoError(t, err)

	assert.Equal(t, 24, m.NCells())
	assert.Equal(t, 3*4*5, m.NPoints())
	// (nx-1)*ny*nz + nx*(ny-1)*nz + nx*ny*(nz-1)
	assert.Equal(t, 12+16+18, m.NInternalFaces())
	assert.Equal(t, 46+2*(12+8+6), m.NFaces())

	for ci, c := range m.Cells() {
		assert.Len(t, c, 6, "cell %d", ci)
		assert.Equal(t, 12, c.NEdges(m.Faces()), "cell %d", ci)
		assert.Len(t, c.Labels(m.Faces()), 8, "cell %d", ci)
	}

	// Internal faces are upper triangular
	for fi, nei := range m.Neighbour() {
		assert.Less(t, m.Owner()[fi], nei)
	}

	// Face normals point out of the owner and into the neighbour
	for fi := 0; fi < m.NFaces(); fi++ {
		sf := m.FaceAreaVector(fi)
		assert.InDelta(t, 1.0, r3.Norm(sf), 1e-12, "face %d area", fi)
		d := r3.Sub(m.FaceCentre(fi), m.CellCentre(m.Owner()[fi]))
		assert.Greater(t, r3.Dot(sf, d), 0.0, "face %d points into its owner", fi)
		if m.IsInternalFace(fi) {
			d = r3.Sub(m.CellCentre(m.Neighbour()[fi]), m.FaceCentre(fi))
			assert.Greater(t, r3.Dot(sf, d), 0.0, "face %d points away from its neighbour", fi)
		}
	}

	box := m.Bounds()
	assert.Equal(t, origin, box.Min)
	assert.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, box.Max)

	_, err = NewBlockMesh("bad", 0, 1, 1, origin, unit)
	assert.Error(t, err)
}

func TestCellsOrder(t *testing.T) {
	m, err := NewBlockMesh("block", 2, 1, 1, origin, unit)
	require.NoError(t, err)

	// Face 0 is the internal face; cell 1 lists it last since it is only
	// its neighbour
	assert.Equal(t, Cell{0, 1, 3, 5, 7, 9}, m.Cells()[0])
	assert.Equal(t, Cell{2, 4, 6, 8, 10, 0}, m.Cells()[1])
	assert.Equal(t, [][]int{{1}, {0}}, m.CellCells())
}

func TestMovePoints(t *testing.T) {
	m, err := NewBlockMesh("block", 1, 1, 1, origin, unit)
	require.NoError(t, err)
	id := m.ID()

	moved := make([]r3.Vec, m.NPoints())
	for i, p := range m.Points() {
		moved[i] = r3.Scale(2, p)
	}
	require.NoError(t, m.MovePoints(moved))
	assert.Equal(t, id, m.ID())
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 2}, m.Bounds().Max)

	assert.Error(t, m.MovePoints(moved[:3]))
}

func TestRenumberCells(t *testing.T) {
	m, err := NewBlockMesh("block", 3, 1, 1, origin, unit)
	require.NoError(t, err)

	// Reverse the cell order: every internal face must be flipped
	topo, mp, err := m.RenumberCells([]int{2, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1, 0}, mp.CellMap)
	assert.Equal(t, []int{1, 0}, mp.FaceMap[:2])
	assert.ElementsMatch(t, []int{0, 1}, mp.FlipFaces)
	assert.Equal(t, []int{0, 1}, topo.Owner[:2])
	assert.Equal(t, []int{1, 2}, topo.Neighbour)
	assert.Equal(t, m.Faces()[1].Reverse(), topo.Faces[0])

	require.NoError(t, m.TopoChange(topo, mp))
	assert.Equal(t, 3, m.NCells())

	// Face normals still point from owner to neighbour
	for fi := 0; fi < m.NInternalFaces(); fi++ {
		d := r3.Sub(m.CellCentre(m.Neighbour()[fi]), m.CellCentre(m.Owner()[fi]))
		assert.Greater(t, r3.Dot(m.FaceAreaVector(fi), d), 0.0)
	}

	_, _, err = m.RenumberCells([]int{0, 0, 1})
	assert.Error(t, err)
	_, _, err = m.RenumberCells([]int{0, 1})
	assert.Error(t, err)
}

func TestTopoChangeSizeMismatch(t *testing.T) {
	m, err := NewBlockMesh("block", 2, 1, 1, origin, unit)
	require.NoError(t, err)
	before := m.Topology()

	topo, mp, err := m.RenumberCells([]int{1, 0})
	require.NoError(t, err)
	mp.CellMap = []int{0}
	assert.Error(t, m.TopoChange(topo, mp))
	assert.Equal(t, before, m.Topology(), "a rejected change leaves the mesh untouched")
}

func TestNilMaps(t *testing.T) {
	m, err := NewBlockMesh("block", 2, 1, 1, origin, unit)
	require.NoError(t, err)
	before := m.Topology()

	assert.ErrorIs(t, m.TopoChange(before, nil), mapping.ErrNilMap)
	assert.ErrorIs(t, m.Distribute(before, nil), mapping.ErrNilMap)
	assert.ErrorIs(t, m.MapMesh(before, nil), mapping.ErrNilMap)
	assert.Equal(t, before, m.Topology())
}

func TestReadMeshFile(t *testing.T) {
	m, err := ReadMeshFile(filepath.Join("testdata", "twotets.msh"))
	require.NoError(t, err)
	assert.Equal(t, "twotets", m.Name())
	assert.Equal(t, 5, m.NPoints())
	assert.Equal(t, 2, m.NCells())
	assert.Equal(t, 7, m.NFaces())
	assert.Equal(t, 1, m.NInternalFaces())

	_, err = ReadMeshFile(filepath.Join("testdata", "missing.msh"))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	m, err := NewBlockMesh("block", 2, 2, 1, origin, unit)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "block", back.Name())
	assert.NotEqual(t, m.ID(), back.ID())
	assert.Equal(t, m.Topology(), back.Topology())
}

func TestReadRejectsBadPoints(t *testing.T) {
	src := `
name: broken
points:
  - [0, 0]
faces: []
owner: []
`
	_, err := Read(bytes.NewBufferString(src))
	assert.Error(t, err)
}

func cloneTopology(t Topology) Topology {
	c := Topology{
		Points:    append([]r3.Vec(nil), t.Points...),
		Faces:     make([]Face, len(t.Faces)),
		Owner:     append([]int(nil), t.Owner...),
		Neighbour: append([]int(nil), t.Neighbour...),
	}
	for i, f := range t.Faces {
		c.Faces[i] = append(Face(nil), f...)
	}
	return c
}
