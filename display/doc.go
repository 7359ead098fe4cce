// Package display provides reference display objects for a featcache store:
// point placemarks, paths and polygons, together with the materializers
// that turn them into features.
//
// Every setter emits a change event to the object's subscribers, so a store
// observing the object sees the mutation on its next query.
//
//	s := featcache.NewStore(featcache.WithMaterializers(display.Materializers()))
//	pin := display.NewPlacemark(f64.Vec3{20, 10, 0})
//	s.Insert(pin)
//	pin.SetPosition(f64.Vec3{21, 11, 0})
package display
