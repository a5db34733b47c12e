package partitions

import (
	"fmt"

	"github.com/notargets/polymesh/mapping"
	"github.com/notargets/polymesh/mesh"
	"github.com/sirupsen/logrus"
)

// CellRenumbering maps between the global cell numbering of a mesh and the
// local numbering of the cells within each partition. Local numbers follow
// ascending global order.
type CellRenumbering struct {
	NumPartitions int
	NumCells      int

	CellsPerPartition []int
	GlobalToLocal     []map[int]int // [partition][globalCell] -> localCell
	LocalToGlobal     [][]int       // [partition][localCell] -> globalCell
}

// NewCellRenumbering builds the renumbering for the cell to partition map
// eToP
func NewCellRenumbering(eToP []int) (*CellRenumbering, error) {
	if len(eToP) == 0 {
		return nil, fmt.Errorf("empty cell to partition map")
	}

	numPartitions := 0
	for k, p := range eToP {
		if p < 0 {
			return nil, fmt.Errorf("cell %d has invalid partition %d", k, p)
		}
		if p+1 > numPartitions {
			numPartitions = p + 1
		}
	}

	r := &CellRenumbering{
		NumPartitions:     numPartitions,
		NumCells:          len(eToP),
		CellsPerPartition: make([]int, numPartitions),
		GlobalToLocal:     make([]map[int]int, numPartitions),
		LocalToGlobal:     make([][]int, numPartitions),
	}
	for _, p := range eToP {
		r.CellsPerPartition[p]++
	}
	for p := 0; p < numPartitions; p++ {
		r.GlobalToLocal[p] = make(map[int]int, r.CellsPerPartition[p])
		r.LocalToGlobal[p] = make([]int, 0, r.CellsPerPartition[p])
	}

	for global, p := range eToP {
		r.GlobalToLocal[p][global] = len(r.LocalToGlobal[p])
		r.LocalToGlobal[p] = append(r.LocalToGlobal[p], global)
	}
	return r, nil
}

// Offsets returns the first new cell index of every partition when the
// partitions are laid out one after another, plus the total at the end
func (r *CellRenumbering) Offsets() []int {
	offsets := make([]int, r.NumPartitions+1)
	for p, n := range r.CellsPerPartition {
		offsets[p+1] = offsets[p] + n
	}
	return offsets
}

// NewToOld returns the cell order that places the partitions one after
// another: new cell i is global cell NewToOld()[i]
func (r *CellRenumbering) NewToOld() []int {
	newToOld := make([]int, 0, r.NumCells)
	for _, cells := range r.LocalToGlobal {
		newToOld = append(newToOld, cells...)
	}
	return newToOld
}

// Redistribute renumbers the cells of m so that every partition of layout
// occupies a contiguous range, then installs the result through
// m.Distribute so the mesh's registered objects follow the change. The
// returned map carries the destination partition of every old cell.
func Redistribute(m *mesh.PolyMesh, layout *PartitionLayout) (*mapping.DistributionMap, error) {
	if len(layout.EToP) != m.NCells() {
		return nil, fmt.Errorf("layout of %d elements does not fit mesh %s of %d cells",
			len(layout.EToP), m.Name(), m.NCells())
	}

	r, err := NewCellRenumbering(layout.EToP)
	if err != nil {
		return nil, err
	}
	topo, tm, err := m.RenumberCells(r.NewToOld())
	if err != nil {
		return nil, err
	}

	dm := &mapping.DistributionMap{
		CellMap:  tm.CellMap,
		FaceMap:  tm.FaceMap,
		PointMap: tm.PointMap,
		CellProc: append([]int(nil), layout.EToP...),
	}
	if err := m.Distribute(topo, dm); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"mesh":       m.Name(),
		"partitions": r.NumPartitions,
		"flipped":    len(tm.FlipFaces),
	}).Info("redistributed mesh")
	return dm, nil
}
