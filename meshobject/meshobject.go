// Package meshobject manages objects derived from a mesh that are built on
// demand, cached in the mesh's object registry and kept in step with the
// mesh as it moves, is redistributed or changes topology.
//
// A Manager guarantees at most one live instance of its payload type per
// mesh. The first New call constructs the payload and stores it in the
// mesh's registry under the manager's type name; later calls return the
// stored instance. The mesh notifies its registered objects of changes
// through MovePoints, Distribute, TopoChange and MapMesh; objects that cannot
// follow a change are checked out and rebuilt on next demand.
//
// New is safe for concurrent callers: simultaneous requests for the same
// mesh and payload collapse into one construction. Event dispatch and the
// payloads themselves assume one writer per mesh.
package meshobject

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/golang/groupcache/singleflight"
	"github.com/google/uuid"
	"github.com/notargets/polymesh/registry"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger replaces the package logger
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
	}
	log = l
}

// ErrTypeMismatch is wrapped in a ConstructionError when the registry holds
// an object of another type under the payload's name
var ErrTypeMismatch = errors.New("registered object has unexpected type")

// Mesh is what a demand-driven object needs from its mesh: a stable
// identity, a name for diagnostics and the registry the objects live in
type Mesh interface {
	ID() uuid.UUID
	Name() string
	DB() registry.DB
}

// Constructor builds a payload for a mesh
type Constructor[M Mesh, T any] func(mesh M, args ...any) (T, error)

// ConstructionError reports a payload that could not be built on demand
type ConstructionError struct {
	TypeName string
	MeshName string
	MeshID   uuid.UUID
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing %s for mesh %s (%s): %v", e.TypeName, e.MeshName, e.MeshID, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Manager is the lifecycle controller for one payload type
type Manager[M Mesh, T any] struct {
	typeName      string
	construct     Constructor[M, T]
	group         singleflight.Group
	constructions atomic.Int64
}

// NewManager creates a manager storing payloads under typeName
func NewManager[M Mesh, T any](typeName string, construct Constructor[M, T]) *Manager[M, T] {
	if construct == nil {
		panic("meshobject: nil constructor for " + typeName)
	}
	return &Manager[M, T]{
		typeName:  typeName,
		construct: construct,
	}
}

// TypeName returns the registry name of the payload
func (m *Manager[M, T]) TypeName() string {
	return m.typeName
}

// Constructions returns the number of payloads this manager has built
func (m *Manager[M, T]) Constructions() int64 {
	return m.constructions.Load()
}

// New returns the payload cached for mesh, constructing and registering it
// on first demand. args are passed to the constructor only when a payload
// is built. Nothing is registered if construction fails.
func (m *Manager[M, T]) New(mesh M, args ...any) (T, error) {
	var zero T

	if obj, ok, err := m.lookup(mesh); ok || err != nil {
		return obj, err
	}

	v, err := m.group.Do(m.key(mesh), func() (interface{}, error) {
		// Another caller may have finished while this one waited
		if obj, ok, err := m.lookup(mesh); ok || err != nil {
			return obj, err
		}

		log.WithFields(logrus.Fields{
			"type": m.typeName,
			"mesh": mesh.Name(),
		}).Debug("constructing mesh object")

		obj, err := m.construct(mesh, args...)
		if err != nil {
			return nil, m.constructionError(mesh, err)
		}
		if err = mesh.DB().Store(m.typeName, obj); err != nil {
			return nil, m.constructionError(mesh, err)
		}
		m.constructions.Add(1)
		return obj, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Delete checks the payload out of the mesh's registry. It returns false
// if there was nothing to delete.
func (m *Manager[M, T]) Delete(mesh M) bool {
	if !m.Found(mesh) {
		return false
	}
	log.WithFields(logrus.Fields{
		"type": m.typeName,
		"mesh": mesh.Name(),
	}).Debug("deleting mesh object")
	return mesh.DB().CheckOut(m.typeName)
}

// Found reports whether a payload is cached for mesh
func (m *Manager[M, T]) Found(mesh M) bool {
	return mesh.DB().Found(m.typeName)
}

func (m *Manager[M, T]) lookup(mesh M) (T, bool, error) {
	var zero T
	obj, ok := mesh.DB().Lookup(m.typeName)
	if !ok {
		return zero, false, nil
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false, m.constructionError(mesh,
			fmt.Errorf("%w: %T", ErrTypeMismatch, obj))
	}
	return typed, true, nil
}

func (m *Manager[M, T]) key(mesh M) string {
	return mesh.ID().String() + "/" + m.typeName
}

func (m *Manager[M, T]) constructionError(mesh M, err error) *ConstructionError {
	return &ConstructionError{
		TypeName: m.typeName,
		MeshName: mesh.Name(),
		MeshID:   mesh.ID(),
		Err:      err,
	}
}

// Base holds the state every demand-driven payload shares: the mesh it was
// built for and the name it is registered under
type Base[M Mesh] struct {
	mesh     M
	typeName string
}

// NewBase creates the shared payload state
func NewBase[M Mesh](mesh M, typeName string) Base[M] {
	return Base[M]{mesh: mesh, typeName: typeName}
}

// Mesh returns the mesh the payload was built for
func (b *Base[M]) Mesh() M {
	return b.mesh
}

// TypeName returns the registry name of the payload
func (b *Base[M]) TypeName() string {
	return b.typeName
}

// Deregister removes self from the mesh's registry if it is the object
// registered under the payload's name. Calling it again is a no-op.
func (b *Base[M]) Deregister(self any) bool {
	return b.mesh.DB().CheckOutObject(b.typeName, self)
}
