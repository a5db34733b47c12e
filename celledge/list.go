package celledge

import (
	"fmt"

	"github.com/notargets/polymesh/mapping"
	"github.com/notargets/polymesh/mesh"
	"github.com/notargets/polymesh/meshobject"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// TypeName is the name the list is registered under in the mesh's registry
const TypeName = "cellEdgeAddressingList"

var log = logrus.New()

// SetLogger replaces the package logger
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
	}
	log = l
}

var manager = meshobject.NewManager(TypeName,
	func(m *mesh.PolyMesh, _ ...any) (*List, error) {
		return newList(m)
	})

// List is the edge addressing of every cell of a mesh
type List struct {
	meshobject.Base[*mesh.PolyMesh]

	data       []*Data
	generation int
}

// New returns the list cached for m, building it on first demand
func New(m *mesh.PolyMesh) (*List, error) {
	return manager.New(m)
}

// Delete removes the list cached for m. It returns false if there was none.
func Delete(m *mesh.PolyMesh) bool {
	return manager.Delete(m)
}

// Found reports whether a list is cached for m
func Found(m *mesh.PolyMesh) bool {
	return manager.Found(m)
}

// Constructions returns the number of lists built so far
func Constructions() int64 {
	return manager.Constructions()
}

func newList(m *mesh.PolyMesh) (*List, error) {
	l := &List{
		Base: meshobject.NewBase(m, TypeName),
	}
	if err := l.build(); err != nil {
		return nil, err
	}
	return l, nil
}

// build computes the addressing of every cell. The first face of a cell
// is taken as owned if the cell is its owner. The list is only replaced if
// every cell succeeds.
func (l *List) build() error {
	m := l.Mesh()
	cells := m.Cells()
	faces := m.Faces()
	owner := m.Owner()

	data := make([]*Data, len(cells))
	var errs error
	for celli, c := range cells {
		cOwnsFirst := len(c) > 0 && owner[c[0]] == celli
		d, err := buildData(celli, c, faces, cOwnsFirst)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		data[celli] = d
	}
	if errs != nil {
		return fmt.Errorf("building cell edge addressing for mesh %s: %w", m.Name(), errs)
	}

	l.data = data
	l.generation++
	log.WithFields(logrus.Fields{
		"mesh":       m.Name(),
		"cells":      len(data),
		"generation": l.generation,
	}).Debug("built cell edge addressing")
	return nil
}

// Len returns the number of cells
func (l *List) Len() int {
	return len(l.data)
}

// Generation counts the builds of the list, starting at 1
func (l *List) Generation() int {
	return l.generation
}

// Data returns the addressing data of cell celli
func (l *List) Data(celli int) (*Data, error) {
	if celli < 0 || celli >= len(l.data) {
		return nil, &IndexOutOfRangeError{Index: celli, Size: len(l.data)}
	}
	return l.data[celli], nil
}

// At returns the addressing view of cell celli
func (l *List) At(celli int) (Addressing, error) {
	if celli < 0 || celli >= len(l.data) {
		return Addressing{}, &IndexOutOfRangeError{Index: celli, Size: len(l.data)}
	}
	return Addressing{list: l, celli: celli, generation: l.generation}, nil
}

// MovePoints leaves the addressing alone; it does not depend on the point
// positions
func (l *List) MovePoints() bool {
	return false
}

// Distribute rebuilds the addressing after the mesh was redistributed
func (l *List) Distribute(*mapping.DistributionMap) error {
	return l.build()
}

// TopoChange rebuilds the addressing after a topology change
func (l *List) TopoChange(*mapping.TopoChangeMap) error {
	return l.build()
}

// MapMesh rebuilds the addressing after the mesh was mapped
func (l *List) MapMesh(*mapping.MeshMap) error {
	return l.build()
}

// Release removes the list from its mesh's registry. Releasing a list
// that is no longer registered does nothing.
func (l *List) Release() bool {
	return l.Deregister(l)
}

// Addressing is a view of the addressing of one cell of a List. It holds
// no data of its own. A view issued before the list was rebuilt is stale
// and must not be used; Stale reports this.
type Addressing struct {
	list       *List
	celli      int
	generation int
}

// Cell returns the cell index of the view
func (a Addressing) Cell() int {
	return a.celli
}

// CfiAndFeiToCei returns a copy of the map from cell-face-index and
// face-edge-index to cell-edge-index
func (a Addressing) CfiAndFeiToCei() [][]int {
	return a.list.data[a.celli].CfiAndFeiToCei()
}

// CeiToCfiAndFei returns a copy of the map from cell-edge-index to the two
// face-edges on that edge
func (a Addressing) CeiToCfiAndFei() [][2]FaceEdge {
	return a.list.data[a.celli].CeiToCfiAndFei()
}

// COwns returns a copy of the ownership flag of each cell-face
func (a Addressing) COwns() []bool {
	return a.list.data[a.celli].COwns()
}

// Edge returns cell-edge cei as point labels, in the direction of its
// first face-edge
func (a Addressing) Edge(cei int) mesh.Edge {
	m := a.list.Mesh()
	fe := a.list.data[a.celli].ceiToCfiAndFei[cei][0]
	return m.Faces()[m.Cells()[a.celli][fe.Cfi]].Edge(fe.Fei)
}

// Stale reports whether the list was rebuilt after the view was issued
func (a Addressing) Stale() bool {
	return a.generation != a.list.generation
}
