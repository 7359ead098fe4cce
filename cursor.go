package featcache

// Cursor streams the features of one query. Records are observed and
// validated lazily as the cursor reaches them.
//
// A Cursor is not safe for concurrent use. It must be closed, and closing
// it before it is exhausted is always allowed.
//
//	c := s.Query(featcache.Filter{Bounds: &view})
//	defer c.Close()
//	for c.Next() {
//	    f := c.Feature()
//	    // upload f if its (ID, Version) is new
//	}
type Cursor struct {
	store  *Store
	recs   []*record
	bounds *Envelope
	allow  map[FeatureID]struct{}

	next  int
	feats []Feature
	fi    int
	cur   Feature

	closed bool
}

func newCursor(s *Store, recs []*record, f Filter) *Cursor {
	c := &Cursor{
		store:  s,
		recs:   recs,
		bounds: f.Bounds,
	}
	if f.IDs != nil {
		c.allow = make(map[FeatureID]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			c.allow[id] = struct{}{}
		}
	}
	return c
}

// Next advances to the next feature and reports whether there is one.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	for {
		for c.fi < len(c.feats) {
			f := &c.feats[c.fi]
			c.fi++
			if !f.Present() {
				continue
			}
			if c.allow != nil {
				if _, ok := c.allow[f.ID]; !ok {
					continue
				}
			}
			c.cur = *f
			return true
		}
		if c.next >= len(c.recs) {
			c.feats = nil
			return false
		}
		r := c.recs[c.next]
		c.next++
		c.feats, c.fi = c.load(r), 0
	}
}

// load returns the validated features of r, or nil when r yields no rows.
func (c *Cursor) load(r *record) []Feature {
	if r.retired.Load() {
		return nil
	}
	if !r.observing.Load() && !r.startObserving() {
		return nil
	}
	if c.bounds != nil && !r.getBounds().Intersects(*c.bounds) {
		return nil
	}
	feats := r.validate()
	if !r.obj.Visible() {
		return nil
	}
	return feats
}

// Feature returns the current feature. It is only valid after Next returned true.
func (c *Cursor) Feature() Feature { return c.cur }

// Close releases the cursor. It is safe to call Close more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.recs, c.feats = nil, nil
	if c.store != nil {
		c.store.machine.EndQuery()
	}
	return nil
}

// ReadAll drains c, closes it and returns the features it produced.
func ReadAll(c *Cursor) []Feature {
	defer c.Close()
	var out []Feature
	for c.Next() {
		out = append(out, c.Feature())
	}
	return out
}
