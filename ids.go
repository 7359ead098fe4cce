package featcache

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// idRegistry issues feature identifiers and maps them back to their owners.
//
// Identifiers come from a monotonically increasing counter and are never
// reissued, so a cursor holding an old identifier can never see it resolve
// to a different object.
type idRegistry struct {
	next   atomic.Int64
	owners *xsync.MapOf[FeatureID, DisplayObject]
}

func newIDRegistry() *idRegistry {
	return &idRegistry{owners: xsync.NewMapOf[FeatureID, DisplayObject]()}
}

// reserve issues a new identifier owned by obj.
func (r *idRegistry) reserve(obj DisplayObject) FeatureID {
	id := FeatureID(r.next.Add(1))
	r.owners.Store(id, obj)
	return id
}

// unreserve drops the mapping for id if obj still owns it.
func (r *idRegistry) unreserve(obj DisplayObject, id FeatureID) bool {
	if !id.Valid() {
		return false
	}
	removed := false
	r.owners.Compute(id, func(owner DisplayObject, loaded bool) (DisplayObject, bool) {
		if !loaded {
			return owner, true
		}
		if owner != obj {
			return owner, false
		}
		removed = true
		return owner, true
	})
	return removed
}

func (r *idRegistry) lookup(id FeatureID) (DisplayObject, bool) {
	return r.owners.Load(id)
}

func (r *idRegistry) len() int { return r.owners.Size() }
