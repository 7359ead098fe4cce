package featcache

// ObjectID is the process-unique serial identity of a display object.
type ObjectID uint64

// DisplayObject is a mutable scene entity owned by the scene graph.
// The store only references display objects; it never mutates them.
//
// Implementations must be safe for concurrent use: the store reads object
// state from the query goroutine while application code mutates it.
type DisplayObject interface {
	// ID returns the object's stable serial identity.
	ID() ObjectID
	// Kind names the concrete object type. Materializer lookups are cached per kind.
	Kind() string
	// Visible reports whether the object should currently be drawn.
	Visible() bool
	// Editing reports whether an interactive editor currently owns the object.
	Editing() bool
	// Subscribe registers fn for change events and returns a function that
	// cancels the subscription. fn may be called from any goroutine.
	Subscribe(fn func(Event)) (cancel func())
}

// EventKind classifies a display object change event.
type EventKind uint8

const (
	// EventChanged reports that the properties in Event.Props changed.
	EventChanged EventKind = iota
	// EventEditStarted reports that the object entered edit mode.
	EventEditStarted
	// EventEditStopped reports that the object left edit mode.
	EventEditStopped
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventEditStarted:
		return "edit-started"
	case EventEditStopped:
		return "edit-stopped"
	default:
		return "unknown"
	}
}

// Event is a change notification emitted by a display object.
type Event struct {
	Object ObjectID
	Kind   EventKind
	Props  Property
}

// EditSink receives live feature updates for objects in edit mode.
// Edit updates bypass the query path so an editor sees every change at once.
//
// A store never releases an identifier while it is registered with the sink:
// StopEditing is always called first.
type EditSink interface {
	StartEditing(f Feature)
	UpdateEditing(f Feature)
	StopEditing(id FeatureID)
}
