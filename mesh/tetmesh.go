package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Faces of a positively oriented tetrahedron, pointing outward
var tetFaces = [4][3]int{
	{0, 2, 1},
	{0, 1, 3},
	{0, 3, 2},
	{1, 2, 3},
}

// NewTetMesh builds a mesh of tetrahedra from their vertex labels. Element
// k becomes cell k. Elements may be given with either orientation; faces
// are oriented out of their owner.
func NewTetMesh(name string, points []r3.Vec, eToV [][4]int) (*PolyMesh, error) {
	topo, err := TetTopology(points, eToV)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	return NewPolyMesh(name, topo.Points, topo.Faces, topo.Owner, topo.Neighbour)
}

// TetTopology derives the faces of a tetrahedral mesh. Internal faces are
// ordered by owner then neighbour, followed by the boundary faces in the
// order they are met.
func TetTopology(points []r3.Vec, eToV [][4]int) (Topology, error) {
	type tetFace struct {
		face     Face
		own, nei int
	}
	var faces []*tetFace
	byKey := make(map[[3]int]*tetFace)

	for k, v := range eToV {
		for _, p := range v {
			if p < 0 || p >= len(points) {
				return Topology{}, fmt.Errorf("element %d references point %d outside [0, %d)", k, p, len(points))
			}
		}
		a, b, c := r3.Sub(points[v[1]], points[v[0]]), r3.Sub(points[v[2]], points[v[0]]), r3.Sub(points[v[3]], points[v[0]])
		vol := r3.Dot(a, r3.Cross(b, c))
		switch {
		case vol == 0:
			return Topology{}, fmt.Errorf("element %d is degenerate", k)
		case vol < 0:
			v[1], v[2] = v[2], v[1]
		}

		for _, lf := range tetFaces {
			f := Face{v[lf[0]], v[lf[1]], v[lf[2]]}
			key := [3]int{f[0], f[1], f[2]}
			sort.Ints(key[:])
			tf, ok := byKey[key]
			switch {
			case !ok:
				tf = &tetFace{face: f, own: k, nei: -1}
				byKey[key] = tf
				faces = append(faces, tf)
			case tf.nei >= 0 || tf.own == k:
				return Topology{}, fmt.Errorf("face %v is shared by more than two elements", key)
			default:
				tf.nei = k
			}
		}
	}

	internal := make([]*tetFace, 0, len(faces))
	boundary := make([]*tetFace, 0, len(faces))
	for _, tf := range faces {
		if tf.nei >= 0 {
			internal = append(internal, tf)
		} else {
			boundary = append(boundary, tf)
		}
	}
	sort.SliceStable(internal, func(i, j int) bool {
		if internal[i].own != internal[j].own {
			return internal[i].own < internal[j].own
		}
		return internal[i].nei < internal[j].nei
	})

	t := Topology{Points: points}
	for _, tf := range internal {
		t.Faces = append(t.Faces, tf.face)
		t.Owner = append(t.Owner, tf.own)
		t.Neighbour = append(t.Neighbour, tf.nei)
	}
	for _, tf := range boundary {
		t.Faces = append(t.Faces, tf.face)
		t.Owner = append(t.Owner, tf.own)
	}
	return t, nil
}
