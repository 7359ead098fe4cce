package featcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/featcache/label"
)

// record is the materialized form of one display object together with its
// observation lifecycle.
//
// Lock order is life before mu. life serialises start and stop of
// observation; mu serialises materialization between the query goroutine
// and the edit path. Neither is held by a store across a query.
type record struct {
	obj   DisplayObject
	mat   Materializer
	store *Store
	dirty *dirtyTracker

	life      sync.Mutex
	observing atomic.Bool
	retired   atomic.Bool
	cancel    func() // guarded by life

	editing atomic.Bool

	mu          sync.Mutex
	ids         []FeatureID // guarded by mu
	hashes      []uint64    // guarded by mu
	versions    []uint64    // guarded by mu; kept across absences of a slot
	editTracked []FeatureID // guarded by mu; identifiers registered with the edit sink

	current atomic.Pointer[[]Feature]
	label   atomic.Pointer[label.Layout]
}

func newRecord(s *Store, obj DisplayObject, mat Materializer) *record {
	return &record{
		obj:   obj,
		mat:   mat,
		store: s,
		dirty: newDirtyTracker(),
	}
}

// startObserving reserves identifiers, subscribes to the object and marks
// everything stale. It returns false for a retired record.
func (r *record) startObserving() bool {
	r.life.Lock()
	defer r.life.Unlock()

	if r.retired.Load() {
		return false
	}
	if r.observing.Load() {
		return true
	}

	n := r.mat.Arity()
	ids := make([]FeatureID, n)
	for i := range ids {
		ids[i] = r.store.ids.reserve(r.obj)
	}

	r.mu.Lock()
	r.ids = ids
	r.hashes = make([]uint64, n)
	r.versions = make([]uint64, n)
	r.editTracked = make([]FeatureID, n)
	r.current.Store(nil)
	r.mu.Unlock()

	r.dirty.markAll()
	r.editing.Store(r.obj.Editing())
	r.observing.Store(true)
	r.cancel = r.obj.Subscribe(r.handle)

	r.store.log().Debug("featcache: observing", "object", r.obj.ID(), "ids", ids)
	if r.editing.Load() {
		r.syncEdits()
	}
	return true
}

// stopObserving cancels the subscription, stops edit tracking and releases
// every identifier. The record is retired and never observed again.
// It returns true only for the call that actually tore observation down.
func (r *record) stopObserving() bool {
	r.life.Lock()
	defer r.life.Unlock()

	r.retired.Store(true)
	if !r.observing.CompareAndSwap(true, false) {
		return false
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	r.mu.Lock()
	sink := r.store.opts.editSink
	for i, id := range r.editTracked {
		if id.Valid() {
			if sink != nil {
				sink.StopEditing(id)
			}
			r.editTracked[i] = NoFeature
		}
	}
	for _, id := range r.ids {
		r.store.ids.unreserve(r.obj, id)
	}
	released := r.ids
	r.ids = nil
	r.mu.Unlock()

	r.store.log().Debug("featcache: released", "object", r.obj.ID(), "ids", released)
	return true
}

// handle is the subscription callback registered with the display object.
func (r *record) handle(ev Event) {
	switch ev.Kind {
	case EventChanged:
		r.mark(ev.Props)
	case EventEditStarted:
		r.setEditing(true)
	case EventEditStopped:
		r.setEditing(false)
	}
}

// mark records stale properties and notifies the store on a clean to dirty
// transition. Objects in edit mode are re-materialized at once.
func (r *record) mark(p Property) {
	if r.dirty.mark(p) {
		r.store.itemChanged()
	}
	if r.editing.Load() {
		r.syncEdits()
	}
}

// setEditing switches edit tracking. Entering or leaving edit mode changes
// which sub-features exist (e.g. vertex handles), so it counts as a style change.
func (r *record) setEditing(on bool) {
	if r.editing.Swap(on) == on {
		return
	}
	if r.dirty.mark(PropStyle) {
		r.store.itemChanged()
	}
	r.syncEdits()
}

// syncEdits re-validates the record and pushes the result to the edit sink.
func (r *record) syncEdits() {
	sink := r.store.opts.editSink
	if sink == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.observing.Load() || r.ids == nil {
		return
	}

	feats := r.validateLocked()
	editing := r.editing.Load()
	for i := range r.editTracked {
		tracked := r.editTracked[i]
		var f *Feature
		if i < len(feats) && feats[i].Present() {
			f = &feats[i]
		}
		switch {
		case editing && f != nil && !tracked.Valid():
			sink.StartEditing(*f)
			r.editTracked[i] = f.ID
		case editing && f != nil:
			sink.UpdateEditing(*f)
		case tracked.Valid():
			sink.StopEditing(tracked)
			r.editTracked[i] = NoFeature
		}
	}
}

// validate brings the materialized features up to date and returns them.
// The returned slice is shared and must not be modified.
func (r *record) validate() []Feature {
	if r.dirty.pending() == PropNone {
		if cur := r.current.Load(); cur != nil {
			return *cur
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validateLocked()
}

func (r *record) validateLocked() []Feature {
	var prev []Feature
	if cur := r.current.Load(); cur != nil {
		prev = *cur
	}
	if r.ids == nil {
		return prev
	}

	taken := r.dirty.take()
	if taken == PropNone {
		return prev
	}
	if taken&PropLabel != 0 {
		r.revalidateLabel()
	}
	if prev != nil && taken&^PropVisibility == 0 {
		return prev
	}

	feats := make([]Feature, len(r.ids))
	if err := r.materialize(feats); err != nil {
		r.dirty.restore(taken &^ PropLabel)
		r.store.recomputeFailed(r, err)
		return prev
	}

	lbl := r.label.Load()
	for i := range feats {
		f := &feats[i]
		if !f.Present() {
			continue
		}
		f.ID = r.ids[i]
		f.Object = r.obj.ID()
		if i == 0 {
			f.Label = lbl
		}
		h := f.contentHash()
		switch {
		case r.versions[i] == 0:
			r.versions[i] = 1
		case r.hashes[i] != h:
			r.versions[i]++
		}
		f.Version = r.versions[i]
		r.hashes[i] = h
	}
	r.current.Store(&feats)
	return feats
}

func (r *record) materialize(out []Feature) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrMaterializerPanic, p)
		}
	}()
	return r.mat.Materialize(r.obj, r.ids, out)
}

// revalidateLabel rebuilds the label layout. Failures keep the previous
// layout and leave the label bit set for the next validate.
func (r *record) revalidateLabel() {
	text, err := r.labelText()
	if err != nil {
		r.dirty.restore(PropLabel)
		r.store.log().Debug("featcache: label revalidation failed", "object", r.obj.ID(), "err", err)
		return
	}
	if text == "" {
		r.label.Store(nil)
		return
	}
	r.label.Store(r.store.labels.Layout(text))
}

func (r *record) labelText() (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrMaterializerPanic, p)
		}
	}()
	return r.mat.Label(r.obj)
}

// getBounds returns the record's envelope. Unobserved records receive no
// change events, so their bounds are computed fresh on every call.
func (r *record) getBounds() Envelope {
	if !r.observing.Load() {
		return r.computeBounds()
	}
	return r.dirty.getBounds(r.computeBounds)
}

func (r *record) computeBounds() (env Envelope) {
	defer func() {
		if p := recover(); p != nil {
			env = EmptyEnvelope()
			r.dirty.boundsDirty.Store(true)
		}
	}()
	return r.mat.Bounds(r.obj)
}
