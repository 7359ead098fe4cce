package display

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/featcache"
)

var serial atomic.Uint64

// NextID returns a fresh process-unique object identity.
func NextID() featcache.ObjectID {
	return featcache.ObjectID(serial.Add(1))
}

// Object holds the state shared by all display objects: identity,
// visibility, edit mode, label, style and the subscriber list.
//
// Object is embedded by the concrete display object types; it is not a
// display object on its own because it has no kind.
type Object struct {
	id featcache.ObjectID

	mu      sync.RWMutex
	visible bool
	editing bool
	label   string
	style   featcache.Style

	subsMu  sync.Mutex
	subs    map[uint64]func(featcache.Event)
	nextSub uint64
}

func newObject() Object {
	return Object{
		id:      NextID(),
		visible: true,
		style:   featcache.DefaultStyle,
	}
}

// ID returns the object's identity.
func (o *Object) ID() featcache.ObjectID { return o.id }

// Visible reports whether the object is drawn.
func (o *Object) Visible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.visible
}

// Editing reports whether the object is in edit mode.
func (o *Object) Editing() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.editing
}

// Label returns the label text.
func (o *Object) Label() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.label
}

// Style returns the paint attributes.
func (o *Object) Style() featcache.Style {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.style
}

// SetVisible shows or hides the object.
func (o *Object) SetVisible(v bool) {
	o.mu.Lock()
	changed := o.visible != v
	o.visible = v
	o.mu.Unlock()
	if changed {
		o.emit(featcache.EventChanged, featcache.PropVisibility)
	}
}

// SetLabel replaces the label text.
func (o *Object) SetLabel(text string) {
	o.mu.Lock()
	changed := o.label != text
	o.label = text
	o.mu.Unlock()
	if changed {
		o.emit(featcache.EventChanged, featcache.PropLabel)
	}
}

// SetStyle replaces the paint attributes.
func (o *Object) SetStyle(s featcache.Style) {
	o.mu.Lock()
	o.style = s
	o.mu.Unlock()
	o.emit(featcache.EventChanged, featcache.PropStyle)
}

// StartEditing puts the object in edit mode.
func (o *Object) StartEditing() { o.setEditing(true) }

// StopEditing leaves edit mode.
func (o *Object) StopEditing() { o.setEditing(false) }

func (o *Object) setEditing(on bool) {
	o.mu.Lock()
	changed := o.editing != on
	o.editing = on
	o.mu.Unlock()
	if !changed {
		return
	}
	if on {
		o.emit(featcache.EventEditStarted, featcache.PropNone)
	} else {
		o.emit(featcache.EventEditStopped, featcache.PropNone)
	}
}

// Subscribe registers fn for change events.
func (o *Object) Subscribe(fn func(featcache.Event)) (cancel func()) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	if o.subs == nil {
		o.subs = make(map[uint64]func(featcache.Event))
	}
	o.nextSub++
	key := o.nextSub
	o.subs[key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.subsMu.Lock()
			delete(o.subs, key)
			o.subsMu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (o *Object) Subscribers() int {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	return len(o.subs)
}

// Changed emits a change event for props without modifying the object.
// Use it after mutating state the object does not track itself.
func (o *Object) Changed(props featcache.Property) {
	o.emit(featcache.EventChanged, props)
}

func (o *Object) emit(kind featcache.EventKind, props featcache.Property) {
	o.subsMu.Lock()
	fns := make([]func(featcache.Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.subsMu.Unlock()

	ev := featcache.Event{Object: o.id, Kind: kind, Props: props}
	for _, fn := range fns {
		fn(ev)
	}
}
