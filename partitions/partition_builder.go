package partitions

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/notargets/polymesh/mesh"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// ErrNoPartitionSize is returned when neither a partition count nor a
// target partition size was given
var ErrNoPartitionSize = errors.New("either NumPartitions or TargetPartitionSize must be positive")

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	Mesh *MeshConnectivity

	// Partitioning parameters. NumPartitions takes precedence over
	// TargetPartitionSize when both are set.
	TargetPartitionSize int
	NumPartitions       int
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements  int
	ElementTypes []GeometryType

	// Cell-to-cell connectivity through internal faces
	CToC [][]int
}

// NewMeshConnectivity extracts the connectivity of m
func NewMeshConnectivity(m *mesh.PolyMesh) *MeshConnectivity {
	types := make([]GeometryType, m.NCells())
	for ci, c := range m.Cells() {
		types[ci] = Classify(c, m.Faces())
	}
	return &MeshConnectivity{
		NumElements:  m.NCells(),
		ElementTypes: types,
		CToC:         m.CellCells(),
	}
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically
	GraphPartition                          // Grow connected partitions breadth first
)

var strategyNames = map[PartitionStrategy]string{
	BlockPartition: "block",
	RoundRobin:     "roundrobin",
	GraphPartition: "graph",
}

func (s PartitionStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy returns the strategy with the given name
func ParseStrategy(name string) (PartitionStrategy, error) {
	for s, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements < 1 {
		return nil, errors.New("no elements to partition")
	}
	numPartitions, err := pb.calculateNumPartitions()
	if err != nil {
		return nil, err
	}

	eToP, err := pb.partitionElements(numPartitions)
	if err != nil {
		return nil, err
	}

	partitions := pb.createPartitions(eToP, numPartitions)
	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"strategy":   pb.Strategy,
		"partitions": numPartitions,
		"kpartMax":   kpartMax,
	}).Debug("built partition layout")
	return layout, nil
}

// calculateNumPartitions determines the partition count. There are never
// more partitions than elements.
func (pb *PartitionBuilder) calculateNumPartitions() (int, error) {
	numPartitions := pb.NumPartitions
	if numPartitions <= 0 {
		if pb.TargetPartitionSize <= 0 {
			return 0, ErrNoPartitionSize
		}
		numPartitions = int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	}
	if numPartitions > pb.Mesh.NumElements {
		numPartitions = pb.Mesh.NumElements
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions, nil
}

// partitionElements assigns elements to partitions
func (pb *PartitionBuilder) partitionElements(numPartitions int) ([]int, error) {
	n := pb.Mesh.NumElements
	eToP := make([]int, n)

	switch pb.Strategy {
	case BlockPartition:
		for p := 0; p < numPartitions; p++ {
			start, end := blockRange(n, numPartitions, p)
			for i := start; i < end; i++ {
				eToP[i] = p
			}
		}

	case RoundRobin:
		for i := 0; i < n; i++ {
			eToP[i] = i % numPartitions
		}

	case GraphPartition:
		return pb.growPartitions(numPartitions)

	default:
		return nil, fmt.Errorf("unsupported partition strategy %v", pb.Strategy)
	}

	return eToP, nil
}

// blockRange returns the elements [start, end) of partition p when n
// elements are split as evenly as possible, larger partitions first
func blockRange(n, numPartitions, p int) (start, end int) {
	size := n / numPartitions
	extra := n % numPartitions
	start = p*size + min(p, extra)
	end = start + size
	if p < extra {
		end++
	}
	return start, end
}

// sortedGraph visits neighbours in ascending order so that traversals are
// reproducible
type sortedGraph struct {
	*simple.UndirectedGraph
}

func (g sortedGraph) From(id int64) graph.Nodes {
	nodes := graph.NodesOf(g.UndirectedGraph.From(id))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

// growPartitions fills the partitions one at a time by breadth first
// growth through the cell connectivity, seeded at the lowest unassigned
// element. A partition that runs out of connected elements is continued
// from the next unassigned seed.
func (pb *PartitionBuilder) growPartitions(numPartitions int) ([]int, error) {
	n := pb.Mesh.NumElements
	if len(pb.Mesh.CToC) != n {
		return nil, fmt.Errorf("connectivity has %d rows for %d elements", len(pb.Mesh.CToC), n)
	}

	g := simple.NewUndirectedGraph()
	for k := 0; k < n; k++ {
		g.AddNode(simple.Node(k))
	}
	for k, nbrs := range pb.Mesh.CToC {
		for _, nbr := range nbrs {
			if nbr < 0 || nbr >= n {
				return nil, fmt.Errorf("element %d connects to %d outside [0, %d)", k, nbr, n)
			}
			if nbr == k || g.HasEdgeBetween(int64(k), int64(nbr)) {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(k), T: simple.Node(nbr)})
		}
	}
	sg := sortedGraph{g}

	eToP := make([]int, n)
	for k := range eToP {
		eToP[k] = -1
	}

	next := 0
	for p := 0; p < numPartitions; p++ {
		start, end := blockRange(n, numPartitions, p)
		want := end - start
		count := 0
		for count < want {
			for eToP[next] >= 0 {
				next++
			}
			bf := traverse.BreadthFirst{
				Traverse: func(e graph.Edge) bool {
					return count < want && eToP[e.To().ID()] < 0
				},
				Visit: func(nd graph.Node) {
					eToP[nd.ID()] = p
					count++
				},
			}
			bf.Walk(sg, simple.Node(next), func(graph.Node, int) bool {
				return count >= want
			})
		}
	}
	return eToP, nil
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{
			ID:       i,
			Elements: make([]int, 0),
		}
	}

	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		if pb.Mesh.ElementTypes != nil {
			partitions[part].ElementTypes = append(partitions[part].ElementTypes,
				pb.Mesh.ElementTypes[elem])
		}
		partitions[part].NumElements++
	}

	for i := range partitions {
		partitions[i].TypeGroups = createElementGroups(&partitions[i])
	}
	return partitions
}

// createElementGroups organizes elements by shape within a partition
func createElementGroups(p *Partition) []ElementGroup {
	if len(p.ElementTypes) == 0 {
		return nil
	}

	byType := make(map[GeometryType][]int)
	for i, elemType := range p.ElementTypes {
		byType[elemType] = append(byType[elemType], i)
	}

	groups := make([]ElementGroup, 0, len(byType))
	for elemType, indices := range byType {
		groups = append(groups, ElementGroup{
			ElementType: elemType,
			Count:       len(indices),
			LocalIDs:    indices,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ElementType < groups[j].ElementType })
	return groups
}

// calculateKpartMax finds maximum elements across all partitions
func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		MaxElements:   0,
		AvgElements:   float64(pl.TotalElements) / float64(pl.NumPartitions),
	}

	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}

	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements

	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}
