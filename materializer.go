package featcache

import (
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/puzpuzpuz/xsync/v3"
)

// Materializer turns one kind of display object into features.
//
// Materialize, Bounds and Label read live object state and may run
// concurrently with mutations of the object; they must not panic on a torn
// read but may return an error, in which case the previous features are kept.
type Materializer interface {
	// Supports reports whether the materializer handles obj.
	Supports(obj DisplayObject) bool
	// Arity is the fixed number of sub-features per object, at least 1.
	Arity() int
	// Materialize fills out (len(out) == Arity()) from the current object
	// state. ids holds the identifiers reserved for the object, one per slot.
	// A slot that does not apply to the current state is left with ID == NoFeature.
	Materialize(obj DisplayObject, ids []FeatureID, out []Feature) error
	// Bounds returns the envelope of the object's current geometry.
	Bounds(obj DisplayObject) Envelope
	// Label returns the current label text, "" for none.
	Label(obj DisplayObject) (string, error)
}

// Materializers is a priority-ordered registration table of materializers.
// Lookups are resolved once per DisplayObject.Kind and cached.
//
// Materializers is safe for concurrent use.
type Materializers struct {
	mu       sync.RWMutex
	reg      *gpucontext.Registry[Materializer]
	priority []string
	names    []string

	byKind *xsync.MapOf[string, Materializer]
}

// NewMaterializers creates an empty table. Names listed in priority are
// consulted first, in order; other names follow in registration order.
func NewMaterializers(priority ...string) *Materializers {
	return &Materializers{
		reg:      gpucontext.NewRegistry[Materializer](gpucontext.WithPriority(priority...)),
		priority: slices.Clone(priority),
		byKind:   xsync.NewMapOf[string, Materializer](),
	}
}

// Register adds or replaces the factory registered under name.
// Previously resolved kinds are forgotten.
func (m *Materializers) Register(name string, factory func() Materializer) {
	m.mu.Lock()
	if !m.reg.Has(name) {
		m.names = append(m.names, name)
	}
	m.reg.Register(name, factory)
	m.mu.Unlock()
	m.byKind.Clear()
}

// Names returns the registered names in lookup order.
func (m *Materializers) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderLocked()
}

// Resolve returns the materializer for obj, or false when none supports it.
func (m *Materializers) Resolve(obj DisplayObject) (Materializer, bool) {
	if obj == nil {
		return nil, false
	}
	kind := obj.Kind()
	if mat, ok := m.byKind.Load(kind); ok {
		return mat, mat != nil
	}

	m.mu.RLock()
	var found Materializer
	for _, name := range m.orderLocked() {
		if mat := m.reg.Get(name); mat != nil && mat.Supports(obj) {
			found = mat
			break
		}
	}
	m.mu.RUnlock()

	if found != nil && found.Arity() < 1 {
		found = nil
	}
	actual, _ := m.byKind.LoadOrStore(kind, found)
	return actual, actual != nil
}

func (m *Materializers) orderLocked() []string {
	order := make([]string, 0, len(m.names))
	for _, name := range m.priority {
		if m.reg.Has(name) {
			order = append(order, name)
		}
	}
	for _, name := range m.names {
		if !slices.Contains(m.priority, name) {
			order = append(order, name)
		}
	}
	return order
}
