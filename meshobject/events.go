package meshobject

import (
	"fmt"

	"github.com/notargets/polymesh/mapping"
	"github.com/notargets/polymesh/registry"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Movable objects follow point motion. MovePoints reports whether the
// object changed.
type Movable interface {
	MovePoints() bool
}

// Distributable objects follow point motion and redistribution
type Distributable interface {
	Movable
	Distribute(m *mapping.DistributionMap) error
}

// TopoChangeable objects follow every kind of mesh change
type TopoChangeable interface {
	Distributable
	TopoChange(m *mapping.TopoChangeMap) error
	MapMesh(m *mapping.MeshMap) error
}

// MovePoints notifies the mesh's objects that its points moved. Objects
// that are not Movable are checked out. The names of objects reporting a
// change are returned in registration order.
func MovePoints(mesh Mesh) []string {
	db := mesh.DB()
	var changed []string
	for _, e := range db.Entries() {
		mv, ok := e.Object.(Movable)
		if !ok {
			invalidate(db, mesh, e, "movePoints")
			continue
		}
		if mv.MovePoints() {
			changed = append(changed, e.Name)
		}
		log.WithFields(logrus.Fields{
			"object": e.Name,
			"mesh":   mesh.Name(),
		}).Debug("moved mesh object")
	}
	return changed
}

// Distribute notifies the mesh's objects that it was redistributed
func Distribute(mesh Mesh, m *mapping.DistributionMap) error {
	return dispatch(mesh, "distribute", func(obj any) (bool, error) {
		d, ok := obj.(Distributable)
		if !ok {
			return false, nil
		}
		return true, d.Distribute(m)
	})
}

// TopoChange notifies the mesh's objects that its topology changed
func TopoChange(mesh Mesh, m *mapping.TopoChangeMap) error {
	return dispatch(mesh, "topoChange", func(obj any) (bool, error) {
		tc, ok := obj.(TopoChangeable)
		if !ok {
			return false, nil
		}
		return true, tc.TopoChange(m)
	})
}

// MapMesh notifies the mesh's objects that it was mapped from another mesh
func MapMesh(mesh Mesh, m *mapping.MeshMap) error {
	return dispatch(mesh, "mapMesh", func(obj any) (bool, error) {
		tc, ok := obj.(TopoChangeable)
		if !ok {
			return false, nil
		}
		return true, tc.MapMesh(m)
	})
}

// dispatch applies update to every registered object. Objects the update
// does not apply to, and objects whose update fails, are checked out so
// that no stale object survives the change.
func dispatch(mesh Mesh, event string, update func(obj any) (bool, error)) error {
	db := mesh.DB()
	var errs error
	for _, e := range db.Entries() {
		handled, err := update(e.Object)
		switch {
		case !handled:
			invalidate(db, mesh, e, event)
		case err != nil:
			invalidate(db, mesh, e, event)
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", event, e.Name, err))
		default:
			log.WithFields(logrus.Fields{
				"object": e.Name,
				"mesh":   mesh.Name(),
				"event":  event,
			}).Debug("updated mesh object")
		}
	}
	return errs
}

func invalidate(db registry.DB, mesh Mesh, e registry.Entry, event string) {
	log.WithFields(logrus.Fields{
		"object": e.Name,
		"mesh":   mesh.Name(),
		"event":  event,
	}).Debug("destroying mesh object")
	db.CheckOutObject(e.Name, e.Object)
}
