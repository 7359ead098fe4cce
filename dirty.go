package featcache

import "sync/atomic"

// dirtyTracker records which derived properties of a record are stale and
// caches the record's bounding envelope.
//
// All methods are lock-free. Setting a bounds-affecting bit in mask always
// sets boundsDirty first; boundsDirty may also be set on its own. The two are
// cleared independently: getBounds clears the flag, validate clears the mask.
type dirtyTracker struct {
	mask        atomic.Uint32
	boundsDirty atomic.Bool
	bounds      atomic.Pointer[Envelope]
}

func newDirtyTracker() *dirtyTracker {
	d := &dirtyTracker{}
	d.boundsDirty.Store(true)
	return d
}

// mark ORs p into the stale mask. It reports whether this call moved the
// record from clean to dirty, either as a whole or for its bounds; repeated
// marks of an already dirty record report false.
func (d *dirtyTracker) mark(p Property) (transition bool) {
	if p == PropNone {
		return false
	}
	// Bounds first so the mask never shows a bounds bit without the flag.
	if p.AffectsBounds() && d.boundsDirty.CompareAndSwap(false, true) {
		transition = true
	}
	for {
		old := d.mask.Load()
		next := old | uint32(p)
		if old == next {
			return transition
		}
		if d.mask.CompareAndSwap(old, next) {
			return transition || old == 0
		}
	}
}

// take atomically reads and clears the stale mask.
func (d *dirtyTracker) take() Property {
	for {
		old := d.mask.Load()
		if old == 0 {
			return PropNone
		}
		if d.mask.CompareAndSwap(old, 0) {
			return Property(old)
		}
	}
}

// restore puts back bits taken by a validate that could not finish,
// without reporting a transition.
func (d *dirtyTracker) restore(p Property) {
	if p.AffectsBounds() {
		d.boundsDirty.Store(true)
	}
	d.mask.Or(uint32(p))
}

// markAll sets every bit without reporting a transition. Used when
// observation starts and the first validate must do full work.
func (d *dirtyTracker) markAll() {
	d.boundsDirty.Store(true)
	d.mask.Store(uint32(PropAll))
}

func (d *dirtyTracker) pending() Property { return Property(d.mask.Load()) }

// getBounds returns the cached envelope, recomputing it first when dirty.
// Concurrent callers may see a stale envelope, never a partially written one:
// the envelope is published as a whole through an atomic pointer.
func (d *dirtyTracker) getBounds(compute func() Envelope) Envelope {
	if d.boundsDirty.CompareAndSwap(true, false) {
		env := compute()
		d.bounds.Store(&env)
		return env
	}
	if b := d.bounds.Load(); b != nil {
		return *b
	}
	// Another caller cleared the flag and has not published the first
	// envelope yet.
	return compute()
}
