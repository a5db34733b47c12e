package partitions

import (
	"fmt"
	"sort"

	"github.com/notargets/polymesh/mesh"
)

// GeometryType identifies the shape of a cell
type GeometryType uint8

const (
	Tet        GeometryType = iota // Tetrahedron
	Hex                            // Hexahedron
	Prism                          // Triangular prism
	Pyramid                        // Square-based pyramid
	Polyhedron                     // Anything else
)

func (g GeometryType) String() string {
	switch g {
	case Tet:
		return "tet"
	case Hex:
		return "hex"
	case Prism:
		return "prism"
	case Pyramid:
		return "pyramid"
	default:
		return "polyhedron"
	}
}

// Classify returns the shape of cell c from its face and point counts
func Classify(c mesh.Cell, faces []mesh.Face) GeometryType {
	nPoints := len(c.Labels(faces))
	switch {
	case len(c) == 4 && nPoints == 4:
		return Tet
	case len(c) == 6 && nPoints == 8:
		return Hex
	case len(c) == 5 && nPoints == 6:
		return Prism
	case len(c) == 5 && nPoints == 5:
		return Pyramid
	}
	return Polyhedron
}

// Partition is a collection of cells that are kept together
type Partition struct {
	ID int

	// Element membership
	Elements    []int // Global cell indices in this partition, ascending
	NumElements int   // Actual number of cells
	MaxElements int   // Largest partition size in the layout

	ElementTypes []GeometryType // Shape of each cell
	TypeGroups   []ElementGroup // Cells grouped by shape
}

// ElementGroup represents cells of the same shape within a partition
type ElementGroup struct {
	ElementType GeometryType
	Count       int
	LocalIDs    []int // Indices within the partition
}

// PartitionLayout is the decomposition of a mesh into partitions
type PartitionLayout struct {
	Partitions []Partition

	KpartMax      int // max(NumElements) across all partitions
	TotalElements int // Sum of all actual elements across partitions
	NumPartitions int

	// Element to partition mapping: cell k belongs to partition EToP[k]
	EToP []int
}

// GetPartition returns the partition containing element k, or -1
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency: every element belongs to
// exactly one partition, as recorded in EToP, and the sizes add up
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions stored for NumPartitions %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.EToP) != pl.TotalElements {
		return fmt.Errorf("EToP has %d entries for %d elements", len(pl.EToP), pl.TotalElements)
	}

	actualMax := 0
	seen := make([]bool, pl.TotalElements)
	total := 0
	for i, p := range pl.Partitions {
		if p.ID != i {
			return fmt.Errorf("partition %d stored at position %d", p.ID, i)
		}
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d elements",
				p.ID, p.NumElements, len(p.Elements))
		}
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		for _, k := range p.Elements {
			if k < 0 || k >= pl.TotalElements {
				return fmt.Errorf("partition %d: element %d outside [0, %d)", p.ID, k, pl.TotalElements)
			}
			if seen[k] {
				return fmt.Errorf("partition %d: element %d assigned twice", p.ID, k)
			}
			if pl.EToP[k] != p.ID {
				return fmt.Errorf("partition %d: element %d recorded in partition %d",
					p.ID, k, pl.EToP[k])
			}
			seen[k] = true
		}
		total += p.NumElements
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, expected %d", total, pl.TotalElements)
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	return nil
}

// Interface is the set of internal faces shared by two partitions
type Interface struct {
	Partitions [2]int // lower partition first
	Faces      []int
}

// Interfaces returns the faces of m whose owner and neighbour lie in
// different partitions, grouped by partition pair in ascending order
func (pl *PartitionLayout) Interfaces(m *mesh.PolyMesh) ([]Interface, error) {
	if m.NCells() != len(pl.EToP) {
		return nil, fmt.Errorf("layout of %d elements does not fit mesh %s of %d cells",
			len(pl.EToP), m.Name(), m.NCells())
	}

	groups := make(map[[2]int][]int)
	owner := m.Owner()
	for fi, nei := range m.Neighbour() {
		pa, pb := pl.EToP[owner[fi]], pl.EToP[nei]
		if pa == pb {
			continue
		}
		if pa > pb {
			pa, pb = pb, pa
		}
		key := [2]int{pa, pb}
		groups[key] = append(groups[key], fi)
	}

	ifs := make([]Interface, 0, len(groups))
	for key, faces := range groups {
		ifs = append(ifs, Interface{Partitions: key, Faces: faces})
	}
	sort.Slice(ifs, func(i, j int) bool {
		a, b := ifs[i].Partitions, ifs[j].Partitions
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return ifs, nil
}
