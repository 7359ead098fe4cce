package featcache

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/gogpu/featcache/internal/dispatch"
	"github.com/gogpu/featcache/label"
)

// Store keeps one feature record per live display object and serves
// versioned features to a renderer.
//
// Three kinds of goroutines use a store: any number of mutators calling
// Insert and Delete (and mutating objects, whose change events reach the
// store through subscriptions), one renderer calling Query once per frame,
// and the store's own dispatcher goroutine, which calls the content changed
// callback. No lock is held across a query.
//
// Records are observed lazily: a display object's change events are only
// subscribed to when a query first touches its record, or at insert time
// for objects already in edit mode. Deleted records are torn down at the
// start of the next query, so a cursor that is still iterating never sees
// its records' identifiers released under it.
type Store struct {
	opts   options
	logger *slog.Logger

	mats    *Materializers
	records *xsync.MapOf[ObjectID, *record]
	ids     *idRegistry
	labels  *label.Cache
	machine *dispatch.Machine

	// generation changes whenever the live set does.
	generation atomic.Uint64

	teardownMu sync.Mutex
	teardown   []*record

	snapMu  sync.Mutex
	snap    []*record
	snapGen uint64

	closed    atomic.Bool
	closeOnce sync.Once

	counters storeCounters
}

// Filter restricts the features a query returns. The zero Filter matches
// every visible feature.
type Filter struct {
	// Bounds, when set, drops records whose envelope does not overlap it.
	Bounds *Envelope
	// IDs, when non-nil, is an allow-list of feature identifiers.
	IDs []FeatureID
}

// NewStore creates a store and starts its dispatcher goroutine.
// Call Close to stop it.
func NewStore(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	mats := o.materializers
	if mats == nil {
		mats = NewMaterializers()
	}

	s := &Store{
		opts:    o,
		logger:  logger,
		mats:    mats,
		records: xsync.NewMapOf[ObjectID, *record](),
		ids:     newIDRegistry(),
		labels:  label.NewCache(o.labelOpts, o.labelCacheSize),
		machine: dispatch.New(o.contentChanged, o.retry, logger),
	}
	registerMetrics(o.registerer, s)
	s.machine.Start()

	logger.Info("featcache: store started", "materializers", mats.Names(), "redispatch", o.retry)
	return s
}

// Insert adds obj to the live set. It returns false when no materializer
// supports obj or the store is closed. Inserting an object that is already
// live is a no-op that returns true.
//
// Objects already in edit mode are observed before Insert returns.
func (s *Store) Insert(obj DisplayObject) bool {
	if s.closed.Load() {
		return false
	}
	mat, ok := s.mats.Resolve(obj)
	if !ok {
		return false
	}

	rec, loaded := s.records.LoadOrStore(obj.ID(), newRecord(s, obj, mat))
	if loaded {
		return true
	}
	if obj.Editing() {
		rec.startObserving()
	}
	// Close may have finished its sweep before the store above.
	if s.closed.Load() {
		if r, ok := s.records.LoadAndDelete(obj.ID()); ok && r.stopObserving() {
			s.counters.teardowns.Add(1)
		}
		return false
	}
	s.generation.Add(1)
	s.counters.inserts.Add(1)
	s.itemChanged()
	return true
}

// Delete removes obj from the live set. Queries started afterwards no longer
// see it; its observation is torn down at the start of the next query.
// Delete reports whether obj was live.
func (s *Store) Delete(obj DisplayObject) bool {
	if obj == nil || s.closed.Load() {
		return false
	}
	rec, ok := s.records.LoadAndDelete(obj.ID())
	if !ok {
		return false
	}
	s.enqueueTeardown(rec)
	s.generation.Add(1)
	s.counters.deletes.Add(1)
	s.itemChanged()
	return true
}

// Query returns a cursor over the current features matching f.
// The cursor must be closed. Querying a closed store returns an empty cursor.
func (s *Store) Query(f Filter) *Cursor {
	if s.closed.Load() {
		return &Cursor{closed: true}
	}
	s.machine.BeginQuery()
	s.counters.queries.Add(1)

	s.drainTeardown()
	return newCursor(s, s.snapshot(), f)
}

// Lookup resolves a feature identifier to the display object that owns it.
func (s *Store) Lookup(id FeatureID) (DisplayObject, bool) {
	return s.ids.lookup(id)
}

// HitTest returns the live, visible objects whose bounds overlap env,
// ordered by object id. It does not start observation.
func (s *Store) HitTest(env Envelope) []DisplayObject {
	if s.closed.Load() {
		return nil
	}
	var hits []DisplayObject
	for _, r := range s.snapshot() {
		if r.retired.Load() || !r.obj.Visible() {
			continue
		}
		if r.getBounds().Intersects(env) {
			hits = append(hits, r.obj)
		}
	}
	return hits
}

// Bounds returns the cached envelope of a live object.
func (s *Store) Bounds(id ObjectID) (Envelope, bool) {
	r, ok := s.records.Load(id)
	if !ok {
		return EmptyEnvelope(), false
	}
	return r.getBounds(), true
}

// Len returns the number of live records.
func (s *Store) Len() int { return s.records.Size() }

// Close stops the dispatcher and tears down every record, releasing all
// identifiers. Close is idempotent and always returns nil.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.machine.Close()

		s.records.Range(func(id ObjectID, r *record) bool {
			if _, ok := s.records.LoadAndDelete(id); ok {
				s.enqueueTeardown(r)
			}
			return true
		})
		s.drainTeardown()

		s.snapMu.Lock()
		s.snap = nil
		s.snapMu.Unlock()

		s.logger.Info("featcache: store closed", "teardowns", s.counters.teardowns.Load())
	})
	return nil
}

// Stats is a point-in-time view of store counters.
type Stats struct {
	// Live is the number of records visible to queries.
	Live int
	// PendingTeardown is the number of deleted records awaiting teardown.
	PendingTeardown int
	// Reserved is the number of feature identifiers currently issued.
	Reserved int

	Inserts           uint64
	Deletes           uint64
	Queries           uint64
	Teardowns         uint64
	RecomputeFailures uint64
	// Dispatches counts content changed callbacks.
	Dispatches uint64

	// Executing is the number of open cursors.
	Executing uint64
	// State is the dispatch state: "clean", "pending" or "dispatched".
	State string
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.teardownMu.Lock()
	pending := len(s.teardown)
	s.teardownMu.Unlock()

	state, executing := s.machine.Load()
	return Stats{
		Live:              s.records.Size(),
		PendingTeardown:   pending,
		Reserved:          s.ids.len(),
		Inserts:           s.counters.inserts.Load(),
		Deletes:           s.counters.deletes.Load(),
		Queries:           s.counters.queries.Load(),
		Teardowns:         s.counters.teardowns.Load(),
		RecomputeFailures: s.counters.recomputeFailures.Load(),
		Dispatches:        s.machine.Dispatches(),
		Executing:         executing,
		State:             state.String(),
	}
}

func (s *Store) itemChanged() {
	s.machine.MarkDirty()
}

func (s *Store) recomputeFailed(r *record, err error) {
	s.counters.recomputeFailures.Add(1)
	s.logger.Debug("featcache: recompute failed, keeping previous features",
		"object", r.obj.ID(), "kind", r.obj.Kind(), "err", err)
}

func (s *Store) log() *slog.Logger { return s.logger }

func (s *Store) enqueueTeardown(r *record) {
	s.teardownMu.Lock()
	s.teardown = append(s.teardown, r)
	s.teardownMu.Unlock()
}

// drainTeardown stops observation of every deleted record exactly once.
func (s *Store) drainTeardown() {
	s.teardownMu.Lock()
	queue := s.teardown
	s.teardown = nil
	s.teardownMu.Unlock()

	for _, r := range queue {
		if r.stopObserving() {
			s.counters.teardowns.Add(1)
		}
	}
}

// snapshot returns the live records ordered by object id. The slice is
// shared between cursors and reused while the live set is unchanged.
func (s *Store) snapshot() []*record {
	gen := s.generation.Load()

	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if s.opts.snapshotMemo && s.snap != nil && s.snapGen == gen {
		return s.snap
	}

	recs := make([]*record, 0, s.records.Size())
	s.records.Range(func(_ ObjectID, r *record) bool {
		recs = append(recs, r)
		return true
	})
	slices.SortFunc(recs, func(a, b *record) int {
		return cmp.Compare(a.obj.ID(), b.obj.ID())
	})
	s.snap, s.snapGen = recs, gen
	return recs
}
