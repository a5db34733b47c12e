// Package mapping describes how the entities of a mesh were renumbered,
// added or removed by a change in its topology. All maps run from the new
// index to the old index it was derived from; -1 marks a new entity.
package mapping

import (
	"errors"
	"fmt"
)

// ErrNilMap is returned when validating a missing map
var ErrNilMap = errors.New("nil map")

// TopoChangeMap describes a topology change of a mesh
type TopoChangeMap struct {
	CellMap  []int // new cell -> old cell
	FaceMap  []int // new face -> old face
	PointMap []int // new point -> old point

	// Faces (new labels) whose point order was reversed
	FlipFaces []int
}

// DistributionMap describes a redistribution of a mesh across partitions
type DistributionMap struct {
	CellMap  []int // new cell -> old cell
	FaceMap  []int // new face -> old face
	PointMap []int // new point -> old point

	// CellProc holds the destination partition of every old cell
	CellProc []int
}

// MeshMap describes a mesh whose topology was replaced by mapping
// from another mesh
type MeshMap struct {
	CellMap      []int // new cell -> source cell
	NSourceCells int
}

// Identity returns the map 0..n-1
func Identity(n int) []int {
	m := make([]int, n)
	for i := range m {
		m[i] = i
	}
	return m
}

// Validate checks every entry of a new->old map lies in [-1, nOld)
func Validate(name string, m []int, nOld int) error {
	for i, old := range m {
		if old < -1 || old >= nOld {
			return fmt.Errorf("%s: entry %d maps to %d, outside [-1, %d)", name, i, old, nOld)
		}
	}
	return nil
}

// Reverse inverts a new->old map into an old->new map of length nOld.
// Old entities that were removed map to -1.
func Reverse(m []int, nOld int) []int {
	rev := make([]int, nOld)
	for i := range rev {
		rev[i] = -1
	}
	for newi, old := range m {
		if old >= 0 && old < nOld {
			rev[old] = newi
		}
	}
	return rev
}

// Validate checks the sizes and ranges of the topology change map against
// the old mesh sizes
func (m *TopoChangeMap) Validate(nOldCells, nOldFaces, nOldPoints int) error {
	if m == nil {
		return ErrNilMap
	}
	if err := Validate("cell map", m.CellMap, nOldCells); err != nil {
		return err
	}
	if err := Validate("face map", m.FaceMap, nOldFaces); err != nil {
		return err
	}
	if err := Validate("point map", m.PointMap, nOldPoints); err != nil {
		return err
	}
	for _, f := range m.FlipFaces {
		if f < 0 || f >= len(m.FaceMap) {
			return fmt.Errorf("flipped face %d outside [0, %d)", f, len(m.FaceMap))
		}
	}
	return nil
}

// Validate checks the sizes and ranges of the distribution map against the
// old mesh sizes
func (m *DistributionMap) Validate(nOldCells, nOldFaces, nOldPoints int) error {
	if m == nil {
		return ErrNilMap
	}
	if err := Validate("cell map", m.CellMap, nOldCells); err != nil {
		return err
	}
	if err := Validate("face map", m.FaceMap, nOldFaces); err != nil {
		return err
	}
	if err := Validate("point map", m.PointMap, nOldPoints); err != nil {
		return err
	}
	if m.CellProc != nil && len(m.CellProc) != nOldCells {
		return fmt.Errorf("cell partition list has %d entries for %d cells", len(m.CellProc), nOldCells)
	}
	return nil
}

// NProcs returns the number of partitions the cells were distributed to
func (m *DistributionMap) NProcs() int {
	n := 0
	for _, p := range m.CellProc {
		if p+1 > n {
			n = p + 1
		}
	}
	return n
}

// Validate checks the cell map against the source mesh size
func (m *MeshMap) Validate() error {
	if m == nil {
		return ErrNilMap
	}
	return Validate("cell map", m.CellMap, m.NSourceCells)
}
