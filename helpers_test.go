package featcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/math/f64"
)

var fakeSerial atomic.Uint64

// fakeObject is a minimal DisplayObject. Slot 0 is its position; slot 1 is
// present while second is set.
type fakeObject struct {
	id   ObjectID
	kind string

	mu      sync.Mutex
	pos     f64.Vec3
	label   string
	visible bool
	editing bool
	second  bool
	subs    map[int]func(Event)
	nextSub int

	subscribes atomic.Int32
}

func newFakeObject(kind string, pos f64.Vec3) *fakeObject {
	return &fakeObject{
		id:      ObjectID(fakeSerial.Add(1)),
		kind:    kind,
		pos:     pos,
		visible: true,
		subs:    make(map[int]func(Event)),
	}
}

func (o *fakeObject) ID() ObjectID { return o.id }
func (o *fakeObject) Kind() string { return o.kind }

func (o *fakeObject) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

func (o *fakeObject) Editing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editing
}

func (o *fakeObject) Subscribe(fn func(Event)) func() {
	o.subscribes.Add(1)
	o.mu.Lock()
	o.nextSub++
	key := o.nextSub
	o.subs[key] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, key)
		o.mu.Unlock()
	}
}

func (o *fakeObject) subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

func (o *fakeObject) emit(kind EventKind, p Property) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(Event{Object: o.id, Kind: kind, Props: p})
	}
}

func (o *fakeObject) setPos(p f64.Vec3) {
	o.mu.Lock()
	o.pos = p
	o.mu.Unlock()
	o.emit(EventChanged, PropGeometry)
}

func (o *fakeObject) setLabel(s string) {
	o.mu.Lock()
	o.label = s
	o.mu.Unlock()
	o.emit(EventChanged, PropLabel)
}

func (o *fakeObject) setVisible(v bool) {
	o.mu.Lock()
	o.visible = v
	o.mu.Unlock()
	o.emit(EventChanged, PropVisibility)
}

func (o *fakeObject) setSecond(on bool) {
	o.mu.Lock()
	o.second = on
	o.mu.Unlock()
	o.emit(EventChanged, PropStyle)
}

func (o *fakeObject) setEditing(on bool) {
	o.mu.Lock()
	o.editing = on
	o.mu.Unlock()
	if on {
		o.emit(EventEditStarted, PropNone)
	} else {
		o.emit(EventEditStopped, PropNone)
	}
}

func (o *fakeObject) state() (f64.Vec3, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pos, o.label, o.second
}

var errFakeFailure = errors.New("fake materializer failure")

// fakeMaterializer materializes fakeObjects of one kind.
type fakeMaterializer struct {
	kind  string
	arity int

	fail       atomic.Bool
	panics     atomic.Bool
	labelFails atomic.Bool
	calls      atomic.Int32
	boundsRuns atomic.Int32
}

func (m *fakeMaterializer) Supports(obj DisplayObject) bool {
	_, ok := obj.(*fakeObject)
	return ok && (m.kind == "" || obj.Kind() == m.kind)
}

func (m *fakeMaterializer) Arity() int { return m.arity }

func (m *fakeMaterializer) Materialize(obj DisplayObject, ids []FeatureID, out []Feature) error {
	m.calls.Add(1)
	if m.panics.Load() {
		panic("boom")
	}
	if m.fail.Load() {
		return errFakeFailure
	}
	pos, _, second := obj.(*fakeObject).state()
	out[0] = Feature{ID: ids[0], Geometry: Geometry{Kind: GeometryPoint, Points: []f64.Vec3{pos}}, Style: DefaultStyle}
	if second && len(out) > 1 {
		out[1] = Feature{ID: ids[1], Geometry: Geometry{Kind: GeometryMultiPoint, Points: []f64.Vec3{pos, pos}}}
	}
	return nil
}

func (m *fakeMaterializer) Bounds(obj DisplayObject) Envelope {
	m.boundsRuns.Add(1)
	if m.panics.Load() {
		panic("boom")
	}
	pos, _, _ := obj.(*fakeObject).state()
	return PointEnvelope(pos)
}

func (m *fakeMaterializer) Label(obj DisplayObject) (string, error) {
	if m.labelFails.Load() {
		return "", errFakeFailure
	}
	_, text, _ := obj.(*fakeObject).state()
	return text, nil
}

// testMaterializers registers a fakeMaterializer of the given arity for every kind.
func testMaterializers(arity int) *Materializers {
	m := NewMaterializers()
	mat := &fakeMaterializer{arity: arity}
	m.Register("fake", func() Materializer { return mat })
	return m
}

func newTestStore(t *testing.T, mat *fakeMaterializer, opts ...Option) *Store {
	t.Helper()
	mats := NewMaterializers()
	mats.Register("fake", func() Materializer { return mat })
	s := NewStore(append([]Option{WithMaterializers(mats), WithRedispatchInterval(20 * time.Millisecond)}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// recordingSink is an EditSink that records calls.
type recordingSink struct {
	mu     sync.Mutex
	live   map[FeatureID]Feature
	starts int
	stops  int
	errs   []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{live: make(map[FeatureID]Feature)}
}

func (s *recordingSink) StartEditing(f Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[f.ID]; ok {
		s.errs = append(s.errs, "duplicate start")
	}
	s.live[f.ID] = f
	s.starts++
}

func (s *recordingSink) UpdateEditing(f Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[f.ID]; !ok {
		s.errs = append(s.errs, "update before start")
	}
	s.live[f.ID] = f
}

func (s *recordingSink) StopEditing(id FeatureID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; !ok {
		s.errs = append(s.errs, "stop before start")
	}
	delete(s.live, id)
	s.stops++
}

func (s *recordingSink) get(id FeatureID) (Feature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.live[id]
	return f, ok
}

func (s *recordingSink) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
