// Package featcache bridges a live, mutable scene graph of display objects to
// a renderer that pulls versioned features once per frame.
//
// # Overview
//
// Application goroutines mutate display objects (position, style,
// visibility, labels) continuously. A renderer on its own goroutine queries a
// [Store] for features and draws them. The store in between:
//
//   - materializes a [Feature] per display object only when a query first needs it,
//   - tracks exactly which derived properties of each record are stale,
//   - coalesces bursts of change events into few "content changed" signals,
//   - never releases a record's identifiers while a cursor may still read it,
//   - issues feature identifiers that are never reused.
//
// # Quick Start
//
//	s := featcache.NewStore(
//	    featcache.WithMaterializers(display.Materializers()),
//	    featcache.WithContentChanged(func() { redraw <- struct{}{} }),
//	)
//	defer s.Close()
//
//	pin := display.NewPlacemark(f64.Vec3{-122.33, 47.61, 0})
//	s.Insert(pin)
//
//	for range redraw {
//	    c := s.Query(featcache.Filter{})
//	    for c.Next() {
//	        draw(c.Feature())
//	    }
//	    c.Close()
//	}
//
// # Change Dispatch
//
// Mutations never block. Each one moves a shared atomic state word to
// "pending"; the dispatcher goroutine flips it to "dispatched" and invokes the
// callback. The next query to start moves it back to clean. If no query
// arrives within the redispatch interval the callback is sent again, so a
// dropped signal cannot leave the renderer stale.
//
// # Hit Testing
//
// [Store.Lookup] maps a feature identifier back to its display object and
// [Store.HitTest] returns the visible objects under an envelope.
package featcache
