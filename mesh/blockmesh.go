package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// BlockTopology returns the topology of a box of nx*ny*nz hexahedra
// spanning origin to origin+size. Cells are numbered x fastest, then y,
// then z. Internal faces are ordered by owner then neighbour; the boundary
// faces follow in the order xmin, xmax, ymin, ymax, zmin, zmax.
func BlockTopology(nx, ny, nz int, origin, size r3.Vec) (Topology, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return Topology{}, fmt.Errorf("invalid block dimensions: nx=%d, ny=%d, nz=%d", nx, ny, nz)
	}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return Topology{}, fmt.Errorf("invalid block size %v", size)
	}

	pt := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	cell := func(i, j, k int) int { return i + nx*(j+ny*k) }

	// Faces on the planes x=i, y=j and z=k with normals along +x, +y, +z
	xFace := func(i, j, k int) Face {
		return Face{pt(i, j, k), pt(i, j+1, k), pt(i, j+1, k+1), pt(i, j, k+1)}
	}
	yFace := func(i, j, k int) Face {
		return Face{pt(i, j, k), pt(i, j, k+1), pt(i+1, j, k+1), pt(i+1, j, k)}
	}
	zFace := func(i, j, k int) Face {
		return Face{pt(i, j, k), pt(i+1, j, k), pt(i+1, j+1, k), pt(i, j+1, k)}
	}

	var t Topology

	dx := size.X / float64(nx)
	dy := size.Y / float64(ny)
	dz := size.Z / float64(nz)
	t.Points = make([]r3.Vec, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				t.Points[pt(i, j, k)] = r3.Vec{
					X: origin.X + float64(i)*dx,
					Y: origin.Y + float64(j)*dy,
					Z: origin.Z + float64(k)*dz,
				}
			}
		}
	}

	add := func(f Face, own, nei int) {
		t.Faces = append(t.Faces, f)
		t.Owner = append(t.Owner, own)
		if nei >= 0 {
			t.Neighbour = append(t.Neighbour, nei)
		}
	}

	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := cell(i, j, k)
				if i < nx-1 {
					add(xFace(i+1, j, k), c, cell(i+1, j, k))
				}
				if j < ny-1 {
					add(yFace(i, j+1, k), c, cell(i, j+1, k))
				}
				if k < nz-1 {
					add(zFace(i, j, k+1), c, cell(i, j, k+1))
				}
			}
		}
	}

	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			add(xFace(0, j, k).Reverse(), cell(0, j, k), -1)
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			add(xFace(nx, j, k), cell(nx-1, j, k), -1)
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			add(yFace(i, 0, k).Reverse(), cell(i, 0, k), -1)
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			add(yFace(i, ny, k), cell(i, ny-1, k), -1)
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			add(zFace(i, j, 0).Reverse(), cell(i, j, 0), -1)
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			add(zFace(i, j, nz), cell(i, j, nz-1), -1)
		}
	}

	return t, nil
}

// NewBlockMesh creates a box of nx*ny*nz hexahedra
func NewBlockMesh(name string, nx, ny, nz int, origin, size r3.Vec) (*PolyMesh, error) {
	t, err := BlockTopology(nx, ny, nz, origin, size)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	return NewPolyMesh(name, t.Points, t.Faces, t.Owner, t.Neighbour)
}

// FaceAreaVector returns the area-weighted normal of face fi using
// Newell's method
func (m *PolyMesh) FaceAreaVector(fi int) r3.Vec {
	f := m.faces[fi]
	var n r3.Vec
	for i := range f {
		p := m.points[f[i]]
		q := m.points[f[(i+1)%len(f)]]
		n = r3.Add(n, r3.Cross(p, q))
	}
	return r3.Scale(0.5, n)
}

// FaceCentre returns the average of the face's point positions
func (m *PolyMesh) FaceCentre(fi int) r3.Vec {
	f := m.faces[fi]
	var sum r3.Vec
	for _, p := range f {
		sum = r3.Add(sum, m.points[p])
	}
	return r3.Scale(1/float64(len(f)), sum)
}
