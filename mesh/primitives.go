package mesh

// Edge is a directed edge between two point labels
type Edge [2]int

// Start returns the first point of the edge
func (e Edge) Start() int { return e[0] }

// End returns the second point of the edge
func (e Edge) End() int { return e[1] }

// Key returns the undirected form of the edge, smaller label first
func (e Edge) Key() Edge {
	if e[0] > e[1] {
		return Edge{e[1], e[0]}
	}
	return e
}

// Compare returns 1 if o is the same edge in the same direction, -1 if it
// is the same edge reversed and 0 if the edges differ
func (e Edge) Compare(o Edge) int {
	switch {
	case e[0] == o[0] && e[1] == o[1]:
		return 1
	case e[0] == o[1] && e[1] == o[0]:
		return -1
	default:
		return 0
	}
}

// Face is a polygon given as a cyclic sequence of point labels. The right
// hand rule on the point order gives the face normal.
type Face []int

// NEdges returns the number of face-edges
func (f Face) NEdges() int {
	return len(f)
}

// Edge returns face-edge i, from point i to point i+1 (cyclic)
func (f Face) Edge(i int) Edge {
	return Edge{f[i], f[(i+1)%len(f)]}
}

// Edges returns all face-edges in order
func (f Face) Edges() []Edge {
	edges := make([]Edge, len(f))
	for i := range f {
		edges[i] = f.Edge(i)
	}
	return edges
}

// Reverse returns the face with opposite orientation. The first point is
// kept so that face-edge i of the result runs along face-edge n-1-i.
func (f Face) Reverse() Face {
	r := make(Face, len(f))
	if len(f) == 0 {
		return r
	}
	r[0] = f[0]
	for i := 1; i < len(f); i++ {
		r[i] = f[len(f)-i]
	}
	return r
}

// Cell is a polyhedron given as a list of face labels
type Cell []int

// Labels returns the distinct point labels of the cell in first-seen order
func (c Cell) Labels(faces []Face) []int {
	seen := make(map[int]bool)
	var labels []int
	for _, fi := range c {
		for _, p := range faces[fi] {
			if !seen[p] {
				seen[p] = true
				labels = append(labels, p)
			}
		}
	}
	return labels
}

// NEdges returns the number of distinct edges of the cell
func (c Cell) NEdges(faces []Face) int {
	seen := make(map[Edge]bool)
	for _, fi := range c {
		for _, e := range faces[fi].Edges() {
			seen[e.Key()] = true
		}
	}
	return len(seen)
}
