package mesh

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/gocfd/DG3D/mesh/readers"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadMeshFile reads a tetrahedral mesh in one of the formats the gocfd
// readers understand (Gmsh .msh, Gambit .neu, SU2 .su2). The mesh is named
// after the file. Triangles in the element list are boundary elements and
// are skipped.
func ReadMeshFile(path string) (*PolyMesh, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	points := make([]r3.Vec, len(msh.Vertices))
	for i, v := range msh.Vertices {
		points[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	eToV := make([][4]int, 0, len(msh.EtoV))
	for k, verts := range msh.EtoV {
		switch len(verts) {
		case 3:
		case 4:
			eToV = append(eToV, [4]int{verts[0], verts[1], verts[2], verts[3]})
		default:
			return nil, fmt.Errorf("reading %s: element %d has %d vertices, only tetrahedra are supported",
				path, k, len(verts))
		}
	}
	if len(eToV) == 0 {
		return nil, fmt.Errorf("reading %s: no tetrahedra", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := NewTetMesh(name, points, eToV)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"mesh":  name,
		"cells": m.NCells(),
	}).Debug("read mesh file")
	return m, nil
}
