// Package celledge provides cell-local addressing between the edges of a
// polyhedral cell and the face-edges that make them up.
//
// Within a cell, faces are numbered by their position in the cell's face
// list (cell-face-index, cfi) and the edges of a face by their position in
// the face (face-edge-index, fei). Every edge of a closed cell (cell-edge,
// cei) is made up of exactly two face-edges from two different faces.
//
// The addressing depends on connectivity alone. A List holds it for every
// cell of a mesh and is cached in the mesh's registry: it survives point
// motion untouched and is rebuilt when the mesh is redistributed, changes
// topology or is mapped.
package celledge

import (
	"fmt"
	"slices"

	"github.com/notargets/polymesh/mesh"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// FaceEdge locates a face-edge within a cell
type FaceEdge struct {
	Cfi int // cell-face-index
	Fei int // face-edge-index
}

// Data is the edge addressing of one cell
type Data struct {
	// cell-face-index and face-edge-index to cell-edge-index
	cfiAndFeiToCei [][]int

	// cell-edge-index to the two face-edges on that edge, in the order
	// they were found
	ceiToCfiAndFei [][2]FaceEdge

	// whether the cell owns each of its faces, judged by the direction of
	// the face-edges relative to the first face
	cOwns []bool
}

// NewData builds the addressing of cell c. cOwnsFirst is the ownership
// flag of the cell's first face.
//
// Cell-edges are numbered in the order they are first met walking the
// faces of c in order and the edges of each face in order. The ownership
// flags are spread out from the first face: a face that shares an edge
// with a face of known ownership has the same ownership if the two
// traverse the edge in opposite directions, and the opposite ownership if
// they traverse it in the same direction.
func NewData(c mesh.Cell, faces []mesh.Face, cOwnsFirst bool) (*Data, error) {
	return buildData(-1, c, faces, cOwnsFirst)
}

// CfiAndFeiToCei returns a copy of the map from cell-face-index and
// face-edge-index to cell-edge-index
func (d *Data) CfiAndFeiToCei() [][]int { return cloneRows(d.cfiAndFeiToCei) }

// CeiToCfiAndFei returns a copy of the map from cell-edge-index to the two
// face-edges on that edge
func (d *Data) CeiToCfiAndFei() [][2]FaceEdge { return slices.Clone(d.ceiToCfiAndFei) }

// COwns returns a copy of the ownership flag of each cell-face
func (d *Data) COwns() []bool { return slices.Clone(d.cOwns) }

func cloneRows(rows [][]int) [][]int {
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// NEdges returns the number of cell-edges
func (d *Data) NEdges() int { return len(d.ceiToCfiAndFei) }

// NFaces returns the number of cell-faces
func (d *Data) NFaces() int { return len(d.cfiAndFeiToCei) }

func buildData(celli int, c mesh.Cell, faces []mesh.Face, cOwnsFirst bool) (*Data, error) {
	if len(c) == 0 {
		return nil, &MalformedCellError{Cell: celli, Reason: "cell has no faces"}
	}

	d := &Data{
		cfiAndFeiToCei: make([][]int, len(c)),
	}

	// Group the face-edges by the undirected edge they lie on
	ceiOf := make(map[mesh.Edge]int)
	var occurrences [][]FaceEdge
	for cfi, fi := range c {
		if fi < 0 || fi >= len(faces) {
			return nil, &MalformedCellError{Cell: celli, Reason: fmt.Sprintf("face %d does not exist", fi)}
		}
		f := faces[fi]
		d.cfiAndFeiToCei[cfi] = make([]int, f.NEdges())
		for fei := 0; fei < f.NEdges(); fei++ {
			key := f.Edge(fei).Key()
			cei, ok := ceiOf[key]
			if !ok {
				cei = len(occurrences)
				ceiOf[key] = cei
				occurrences = append(occurrences, nil)
			}
			occurrences[cei] = append(occurrences[cei], FaceEdge{Cfi: cfi, Fei: fei})
			d.cfiAndFeiToCei[cfi][fei] = cei
		}
	}

	edgeOf := func(fe FaceEdge) mesh.Edge {
		return faces[c[fe.Cfi]].Edge(fe.Fei)
	}

	d.ceiToCfiAndFei = make([][2]FaceEdge, len(occurrences))
	for cei, occ := range occurrences {
		if len(occ) != 2 {
			return nil, &MalformedCellError{Cell: celli, Edge: edgeOf(occ[0]), Count: len(occ)}
		}
		if occ[0].Cfi == occ[1].Cfi {
			return nil, &MalformedCellError{
				Cell:   celli,
				Edge:   edgeOf(occ[0]),
				Count:  2,
				Reason: fmt.Sprintf("edge %v is used twice by cell-face %d", edgeOf(occ[0]), occ[0].Cfi),
			}
		}
		d.ceiToCfiAndFei[cei] = [2]FaceEdge{occ[0], occ[1]}
	}

	owns, err := propagateOwnership(celli, c, d.ceiToCfiAndFei, edgeOf, cOwnsFirst)
	if err != nil {
		return nil, err
	}
	d.cOwns = owns
	return d, nil
}

// propagateOwnership walks the faces of the cell breadth first from the
// first face across shared edges, setting each face's ownership from the
// face it was reached from
func propagateOwnership(celli int, c mesh.Cell, ceiToCfiAndFei [][2]FaceEdge,
	edgeOf func(FaceEdge) mesh.Edge, cOwnsFirst bool) ([]bool, error) {

	nFaces := len(c)
	pairKey := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}

	// Face adjacency, and whether adjacent faces run along their shared
	// edge in the same direction
	g := simple.NewUndirectedGraph()
	for cfi := 0; cfi < nFaces; cfi++ {
		g.AddNode(simple.Node(cfi))
	}
	sameDir := make(map[[2]int]bool)
	for _, pair := range ceiToCfiAndFei {
		a, b := pair[0], pair[1]
		key := pairKey(a.Cfi, b.Cfi)
		if _, ok := sameDir[key]; ok {
			continue
		}
		sameDir[key] = edgeOf(a).Compare(edgeOf(b)) == 1
		g.SetEdge(simple.Edge{F: simple.Node(a.Cfi), T: simple.Node(b.Cfi)})
	}

	owns := make([]bool, nFaces)
	known := make([]bool, nFaces)
	owns[0] = cOwnsFirst
	known[0] = true

	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			u, v := int(e.From().ID()), int(e.To().ID())
			flip := sameDir[pairKey(u, v)]
			switch {
			case known[u] && !known[v]:
				owns[v] = owns[u] != flip
				known[v] = true
			case known[v] && !known[u]:
				owns[u] = owns[v] != flip
				known[u] = true
			}
			return true
		},
	}
	bf.Walk(g, simple.Node(0), nil)

	nReached := 0
	for _, k := range known {
		if k {
			nReached++
		}
	}
	if nReached != nFaces {
		return nil, &DisconnectedCellError{Cell: celli, NFaces: nFaces, NReached: nReached}
	}

	// Every shared edge must agree with the flags the walk settled on
	for _, pair := range ceiToCfiAndFei {
		a, b := pair[0], pair[1]
		flip := edgeOf(a).Compare(edgeOf(b)) == 1
		if owns[b.Cfi] != (owns[a.Cfi] != flip) {
			return nil, &MalformedCellError{
				Cell:   celli,
				Edge:   edgeOf(a),
				Count:  2,
				Reason: fmt.Sprintf("cell-faces %d and %d have inconsistent orientations", a.Cfi, b.Cfi),
			}
		}
	}

	return owns, nil
}
