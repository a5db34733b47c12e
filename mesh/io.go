package mesh

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// meshFile is the YAML layout of a mesh
type meshFile struct {
	Name      string      `yaml:"name"`
	Points    [][]float64 `yaml:"points"`
	Faces     [][]int     `yaml:"faces"`
	Owner     []int       `yaml:"owner"`
	Neighbour []int       `yaml:"neighbour,omitempty"`
}

// ReadFile reads a YAML mesh from path. The file name is used as the mesh
// name if the file does not carry one.
func ReadFile(path string) (*PolyMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := read(f, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

// Read reads a YAML mesh
func Read(r io.Reader) (*PolyMesh, error) {
	return read(r, "region0")
}

func read(r io.Reader, defaultName string) (*PolyMesh, error) {
	var mf meshFile
	if err := yaml.NewDecoder(r).Decode(&mf); err != nil {
		return nil, err
	}
	if mf.Name == "" {
		mf.Name = defaultName
	}

	points := make([]r3.Vec, len(mf.Points))
	for i, p := range mf.Points {
		if len(p) != 3 {
			return nil, fmt.Errorf("point %d has %d components, need 3", i, len(p))
		}
		points[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	faces := make([]Face, len(mf.Faces))
	for i, f := range mf.Faces {
		faces[i] = Face(f)
	}
	return NewPolyMesh(mf.Name, points, faces, mf.Owner, mf.Neighbour)
}

// Write writes m as YAML
func Write(w io.Writer, m *PolyMesh) error {
	mf := meshFile{
		Name:      m.name,
		Points:    make([][]float64, len(m.points)),
		Faces:     make([][]int, len(m.faces)),
		Owner:     m.owner,
		Neighbour: m.neighbour,
	}
	for i, p := range m.points {
		mf.Points[i] = []float64{p.X, p.Y, p.Z}
	}
	for i, f := range m.faces {
		mf.Faces[i] = []int(f)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&mf); err != nil {
		return err
	}
	return enc.Close()
}
