// Package mesh provides the polyhedral mesh the demand-driven objects are
// built for: points, faces given as cyclic point lists, and the owner and
// neighbour cell of every face. Cells are derived from the face owners.
//
// Internal faces come first. The normal of an internal face points from its
// owner into its neighbour, the normal of a boundary face out of its owner.
package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/notargets/polymesh/mapping"
	"github.com/notargets/polymesh/meshobject"
	"github.com/notargets/polymesh/registry"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

var log = logrus.New()

// SetLogger replaces the package logger
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
	}
	log = l
}

// Topology is the full connectivity and geometry of a mesh
type Topology struct {
	Points    []r3.Vec
	Faces     []Face
	Owner     []int
	Neighbour []int
}

// PolyMesh is a polyhedral mesh with an object registry for the data
// derived from it
type PolyMesh struct {
	id   uuid.UUID
	name string
	db   *registry.Registry

	points    []r3.Vec
	faces     []Face
	owner     []int
	neighbour []int

	// Derived
	nCells int
	cells  []Cell
}

// NewPolyMesh creates a mesh from its topology
func NewPolyMesh(name string, points []r3.Vec, faces []Face, owner, neighbour []int) (*PolyMesh, error) {
	m := &PolyMesh{
		id:   uuid.New(),
		name: name,
		db:   registry.New(),
	}
	if err := m.reset(Topology{Points: points, Faces: faces, Owner: owner, Neighbour: neighbour}); err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	return m, nil
}

// NewCellMesh creates a single cell mesh: every face is a boundary face
// owned by cell 0
func NewCellMesh(name string, points []r3.Vec, faces []Face) (*PolyMesh, error) {
	return NewPolyMesh(name, points, faces, make([]int, len(faces)), nil)
}

// ID returns the identity of the mesh, stable for its lifetime
func (m *PolyMesh) ID() uuid.UUID { return m.id }

// Name returns the region name of the mesh
func (m *PolyMesh) Name() string { return m.name }

// DB returns the registry holding the objects derived from the mesh
func (m *PolyMesh) DB() registry.DB { return m.db }

func (m *PolyMesh) Points() []r3.Vec { return m.points }
func (m *PolyMesh) Faces() []Face    { return m.faces }
func (m *PolyMesh) Owner() []int     { return m.owner }
func (m *PolyMesh) Neighbour() []int { return m.neighbour }
func (m *PolyMesh) Cells() []Cell    { return m.cells }

func (m *PolyMesh) NPoints() int        { return len(m.points) }
func (m *PolyMesh) NFaces() int         { return len(m.faces) }
func (m *PolyMesh) NInternalFaces() int { return len(m.neighbour) }
func (m *PolyMesh) NCells() int         { return m.nCells }

// IsInternalFace reports whether face fi has a neighbour cell
func (m *PolyMesh) IsInternalFace(fi int) bool {
	return fi < len(m.neighbour)
}

// Topology returns the current topology of the mesh
func (m *PolyMesh) Topology() Topology {
	return Topology{
		Points:    m.points,
		Faces:     m.faces,
		Owner:     m.owner,
		Neighbour: m.neighbour,
	}
}

// CellCells returns, for every cell, the cells sharing an internal face
// with it, in face order
func (m *PolyMesh) CellCells() [][]int {
	cc := make([][]int, m.nCells)
	for fi, nei := range m.neighbour {
		own := m.owner[fi]
		cc[own] = append(cc[own], nei)
		cc[nei] = append(cc[nei], own)
	}
	return cc
}

// Bounds returns the bounding box of the points
func (m *PolyMesh) Bounds() r3.Box {
	if len(m.points) == 0 {
		return r3.Box{}
	}
	box := r3.Box{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, p := range m.points {
		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	return box
}

// CellCentre returns the average of the cell's point positions
func (m *PolyMesh) CellCentre(celli int) r3.Vec {
	labels := m.cells[celli].Labels(m.faces)
	var sum r3.Vec
	for _, p := range labels {
		sum = r3.Add(sum, m.points[p])
	}
	return r3.Scale(1/float64(len(labels)), sum)
}

// reset validates t and installs it as the mesh topology. The mesh is left
// untouched if t is invalid.
func (m *PolyMesh) reset(t Topology) error {
	nCells, err := validate(t)
	if err != nil {
		return err
	}
	m.install(t, nCells)
	return nil
}

func (m *PolyMesh) install(t Topology, nCells int) {
	m.points = t.Points
	m.faces = t.Faces
	m.owner = t.Owner
	m.neighbour = t.Neighbour
	m.nCells = nCells
	m.cells = calcCells(nCells, t.Owner, t.Neighbour)
}

// validate checks the topology is consistent and returns its cell count
func validate(t Topology) (int, error) {
	nPoints := len(t.Points)
	nFaces := len(t.Faces)

	if len(t.Owner) != nFaces {
		return 0, fmt.Errorf("owner list has %d entries for %d faces", len(t.Owner), nFaces)
	}
	if len(t.Neighbour) > nFaces {
		return 0, fmt.Errorf("neighbour list has %d entries for %d faces", len(t.Neighbour), nFaces)
	}

	for fi, f := range t.Faces {
		if len(f) < 3 {
			return 0, fmt.Errorf("face %d has %d points, need at least 3", fi, len(f))
		}
		for _, p := range f {
			if p < 0 || p >= nPoints {
				return 0, fmt.Errorf("face %d references point %d outside [0, %d)", fi, p, nPoints)
			}
		}
	}

	nCells := 0
	for fi, own := range t.Owner {
		if own < 0 {
			return 0, fmt.Errorf("face %d has invalid owner %d", fi, own)
		}
		if own+1 > nCells {
			nCells = own + 1
		}
	}
	for fi, nei := range t.Neighbour {
		if nei < 0 {
			return 0, fmt.Errorf("face %d has invalid neighbour %d", fi, nei)
		}
		if nei == t.Owner[fi] {
			return 0, fmt.Errorf("face %d has cell %d as both owner and neighbour", fi, nei)
		}
		if nei+1 > nCells {
			nCells = nei + 1
		}
	}
	return nCells, nil
}

// calcCells collects the faces of each cell: the faces it owns in face
// order followed by the faces it neighbours in face order
func calcCells(nCells int, owner, neighbour []int) []Cell {
	counts := make([]int, nCells)
	for _, own := range owner {
		counts[own]++
	}
	for _, nei := range neighbour {
		counts[nei]++
	}
	cells := make([]Cell, nCells)
	for ci := range cells {
		cells[ci] = make(Cell, 0, counts[ci])
	}
	for fi, own := range owner {
		cells[own] = append(cells[own], fi)
	}
	for fi, nei := range neighbour {
		cells[nei] = append(cells[nei], fi)
	}
	return cells
}

// MovePoints replaces the point positions. Connectivity and identity are
// unchanged and the registered objects are told the points moved.
func (m *PolyMesh) MovePoints(points []r3.Vec) error {
	if len(points) != len(m.points) {
		return fmt.Errorf("mesh %s: moving %d points with %d positions", m.name, len(m.points), len(points))
	}
	m.points = points
	changed := meshobject.MovePoints(m)
	log.WithFields(logrus.Fields{
		"mesh":    m.name,
		"changed": changed,
	}).Debug("points moved")
	return nil
}

// TopoChange installs a new topology described by mp and updates the
// registered objects
func (m *PolyMesh) TopoChange(t Topology, mp *mapping.TopoChangeMap) error {
	if err := mp.Validate(m.nCells, len(m.faces), len(m.points)); err != nil {
		return fmt.Errorf("mesh %s: topology change: %w", m.name, err)
	}
	if err := m.resetMapped(t, len(mp.CellMap), len(mp.FaceMap), len(mp.PointMap)); err != nil {
		return fmt.Errorf("mesh %s: topology change: %w", m.name, err)
	}
	log.WithField("mesh", m.name).Debug("topology changed")
	return meshobject.TopoChange(m, mp)
}

// Distribute installs the redistributed topology described by mp and
// updates the registered objects
func (m *PolyMesh) Distribute(t Topology, mp *mapping.DistributionMap) error {
	if err := mp.Validate(m.nCells, len(m.faces), len(m.points)); err != nil {
		return fmt.Errorf("mesh %s: distribute: %w", m.name, err)
	}
	if err := m.resetMapped(t, len(mp.CellMap), len(mp.FaceMap), len(mp.PointMap)); err != nil {
		return fmt.Errorf("mesh %s: distribute: %w", m.name, err)
	}
	log.WithFields(logrus.Fields{
		"mesh":   m.name,
		"nProcs": mp.NProcs(),
	}).Debug("mesh distributed")
	return meshobject.Distribute(m, mp)
}

// MapMesh installs a topology mapped from another mesh and updates the
// registered objects
func (m *PolyMesh) MapMesh(t Topology, mp *mapping.MeshMap) error {
	if err := mp.Validate(); err != nil {
		return fmt.Errorf("mesh %s: map mesh: %w", m.name, err)
	}
	if err := m.resetMapped(t, len(mp.CellMap), -1, -1); err != nil {
		return fmt.Errorf("mesh %s: map mesh: %w", m.name, err)
	}
	log.WithField("mesh", m.name).Debug("mesh mapped")
	return meshobject.MapMesh(m, mp)
}

// resetMapped installs t after checking it has the sizes the map describes.
// A negative size is not checked.
func (m *PolyMesh) resetMapped(t Topology, nCells, nFaces, nPoints int) error {
	if nFaces >= 0 && len(t.Faces) != nFaces {
		return fmt.Errorf("map describes %d faces, topology has %d", nFaces, len(t.Faces))
	}
	if nPoints >= 0 && len(t.Points) != nPoints {
		return fmt.Errorf("map describes %d points, topology has %d", nPoints, len(t.Points))
	}
	n, err := validate(t)
	if err != nil {
		return err
	}
	if n != nCells {
		return fmt.Errorf("map describes %d cells, topology has %d", nCells, n)
	}
	m.install(t, n)
	return nil
}

// RenumberCells computes the topology obtained by renumbering the cells so
// that new cell i is old cell newToOld[i]. Internal faces whose owner would
// become larger than their neighbour are flipped, and the internal faces
// are re-sorted by owner then neighbour. Points are unchanged.
func (m *PolyMesh) RenumberCells(newToOld []int) (Topology, *mapping.TopoChangeMap, error) {
	if len(newToOld) != m.nCells {
		return Topology{}, nil, fmt.Errorf("mesh %s: renumbering %d cells with %d entries", m.name, m.nCells, len(newToOld))
	}
	oldToNew := mapping.Reverse(newToOld, m.nCells)
	for oldi, newi := range oldToNew {
		if newi < 0 {
			return Topology{}, nil, fmt.Errorf("mesh %s: cell %d missing from renumbering", m.name, oldi)
		}
	}
	seen := make([]bool, m.nCells)
	for _, old := range newToOld {
		if old < 0 || old >= m.nCells || seen[old] {
			return Topology{}, nil, fmt.Errorf("mesh %s: renumbering is not a permutation", m.name)
		}
		seen[old] = true
	}

	type faceEntry struct {
		old      int
		face     Face
		own, nei int
		flipped  bool
	}

	nInternal := len(m.neighbour)
	entries := make([]faceEntry, len(m.faces))
	for fi, f := range m.faces {
		e := faceEntry{old: fi, face: f, own: oldToNew[m.owner[fi]], nei: -1}
		if fi < nInternal {
			e.nei = oldToNew[m.neighbour[fi]]
			if e.nei < e.own {
				e.own, e.nei = e.nei, e.own
				e.face = f.Reverse()
				e.flipped = true
			}
		}
		entries[fi] = e
	}
	internal := entries[:nInternal]
	sort.SliceStable(internal, func(i, j int) bool {
		if internal[i].own != internal[j].own {
			return internal[i].own < internal[j].own
		}
		return internal[i].nei < internal[j].nei
	})

	t := Topology{
		Points:    m.points,
		Faces:     make([]Face, len(entries)),
		Owner:     make([]int, len(entries)),
		Neighbour: make([]int, nInternal),
	}
	mp := &mapping.TopoChangeMap{
		CellMap:  append([]int(nil), newToOld...),
		FaceMap:  make([]int, len(entries)),
		PointMap: mapping.Identity(len(m.points)),
	}
	for fi, e := range entries {
		t.Faces[fi] = e.face
		t.Owner[fi] = e.own
		if fi < nInternal {
			t.Neighbour[fi] = e.nei
		}
		mp.FaceMap[fi] = e.old
		if e.flipped {
			mp.FlipFaces = append(mp.FlipFaces, fi)
		}
	}
	return t, mp, nil
}
