// Package registry holds the named objects a mesh carries. Objects are
// registered under a unique name and checked out again when they can no
// longer follow the mesh.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	// ErrDuplicate is returned by Store when the name is already taken
	ErrDuplicate = errors.New("object already registered")
	// ErrNilObject is returned by Store for a nil object
	ErrNilObject = errors.New("cannot register nil object")
	// ErrNotComparable is returned by Store for objects whose type does not
	// support ==, such as structs holding slices or maps
	ErrNotComparable = errors.New("cannot register object of non-comparable type")
)

// DB is the object database a mesh carries for its derived objects.
// Each name maps to at most one live object.
type DB interface {
	Store(name string, obj any) error
	Lookup(name string) (any, bool)
	Found(name string) bool
	CheckOut(name string) bool
	CheckOutObject(name string, obj any) bool
	Names() []string
	Entries() []Entry
}

// Entry is a single (name, object) association in a registry snapshot
type Entry struct {
	Name   string
	Object any
}

// Registry is the default DB implementation. Objects are kept in
// registration order so that change notifications visit them
// deterministically.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]any
	order   []string
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		objects: make(map[string]any),
	}
}

// Store registers obj under name. obj must be of a comparable type so
// that CheckOutObject can identify it; pointers always are.
func (r *Registry) Store(name string, obj any) error {
	if obj == nil {
		return fmt.Errorf("%s: %w", name, ErrNilObject)
	}
	if !reflect.TypeOf(obj).Comparable() {
		return fmt.Errorf("%s: %w: %T", name, ErrNotComparable, obj)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicate)
	}
	r.objects[name] = obj
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the object registered under name
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[name]
	return obj, ok
}

// Found reports whether name is registered
func (r *Registry) Found(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// CheckOut removes the object registered under name. Removing a name
// that is not registered is a no-op and returns false.
func (r *Registry) CheckOut(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[name]; !ok {
		return false
	}
	r.remove(name)
	return true
}

// CheckOutObject removes name only if it is currently bound to obj.
// Objects use it to deregister themselves without evicting a
// replacement stored under the same name.
func (r *Registry) CheckOutObject(name string, obj any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.objects[name]
	if !ok || !same(current, obj) {
		return false
	}
	r.remove(name)
	return true
}

// same reports whether a and b are the same object. Values of a type
// without == are never the same as anything.
func same(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// remove deletes name; the caller holds the write lock
func (r *Registry) remove(name string) {
	delete(r.objects, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Entries returns a snapshot of the registered objects in registration
// order. Callers may check entries out while iterating the snapshot.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, Entry{Name: name, Object: r.objects[name]})
	}
	return entries
}

// Len returns the number of registered objects
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// LookupAs returns the object registered under name if it has type T
func LookupAs[T any](db DB, name string) (T, bool) {
	var zero T
	obj, ok := db.Lookup(name)
	if !ok {
		return zero, false
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
