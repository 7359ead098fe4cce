package display

import (
	"slices"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/featcache"
)

// KindPath is the kind of *Path.
const KindPath = "path"

// KindPolygon is the kind of *Polygon.
const KindPolygon = "polygon"

// shape is the vertex state shared by paths and polygons.
type shape struct {
	Object

	points   []f64.Vec3
	altitude featcache.AltitudeMode
	extrude  bool
}

func newShape(points []f64.Vec3) shape {
	return shape{Object: newObject(), points: slices.Clone(points)}
}

// Points returns a copy of the vertices.
func (s *shape) Points() []f64.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.points)
}

// SetPoints replaces the vertices.
func (s *shape) SetPoints(points []f64.Vec3) {
	s.mu.Lock()
	s.points = slices.Clone(points)
	s.mu.Unlock()
	s.emit(featcache.EventChanged, featcache.PropGeometry)
}

// MoveVertex moves vertex i. It reports false when i is out of range.
func (s *shape) MoveVertex(i int, p f64.Vec3) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.points) {
		s.mu.Unlock()
		return false
	}
	// Copy on write: materialized features may alias the old slice.
	pts := slices.Clone(s.points)
	pts[i] = p
	s.points = pts
	s.mu.Unlock()
	s.emit(featcache.EventChanged, featcache.PropGeometry)
	return true
}

// AltitudeMode returns how vertex altitudes are interpreted.
func (s *shape) AltitudeMode() featcache.AltitudeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.altitude
}

// SetAltitudeMode changes how vertex altitudes are interpreted.
func (s *shape) SetAltitudeMode(m featcache.AltitudeMode) {
	s.mu.Lock()
	s.altitude = m
	s.mu.Unlock()
	s.emit(featcache.EventChanged, featcache.PropAltitudeMode)
}

// Extrude reports whether walls are drawn down to the ground.
func (s *shape) Extrude() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extrude
}

// SetExtrude toggles the walls.
func (s *shape) SetExtrude(on bool) {
	s.mu.Lock()
	s.extrude = on
	s.mu.Unlock()
	s.emit(featcache.EventChanged, featcache.PropExtrude)
}

type shapeState struct {
	points   []f64.Vec3
	altitude featcache.AltitudeMode
	extrude  bool
	editing  bool
	style    featcache.Style
}

func (s *shape) state() shapeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shapeState{s.points, s.altitude, s.extrude, s.editing, s.style}
}

// Path is an open polyline.
type Path struct{ shape }

// NewPath returns a visible path through points, clamped to ground.
func NewPath(points []f64.Vec3) *Path { return &Path{newShape(points)} }

// Kind implements featcache.DisplayObject.
func (p *Path) Kind() string { return KindPath }

// Polygon is a closed ring. The first vertex is not repeated at the end.
type Polygon struct{ shape }

// NewPolygon returns a visible polygon with the given ring, clamped to ground.
func NewPolygon(ring []f64.Vec3) *Polygon { return &Polygon{newShape(ring)} }

// Kind implements featcache.DisplayObject.
func (p *Polygon) Kind() string { return KindPolygon }

func shapeOf(obj featcache.DisplayObject) (*shape, featcache.GeometryKind, bool) {
	switch o := obj.(type) {
	case *Path:
		return &o.shape, featcache.GeometryLineString, true
	case *Polygon:
		return &o.shape, featcache.GeometryPolygon, true
	}
	return nil, 0, false
}

// ShapeMaterializer materializes paths and polygons into three slots:
//
//	0  the outline or ring
//	1  a ground shadow, when the shape is not clamped to ground
//	2  vertex handles, while the shape is being edited
type ShapeMaterializer struct {
	// Kind restricts the materializer to one of KindPath or KindPolygon.
	// Empty accepts both.
	Kind string
}

// Supports implements featcache.Materializer.
func (m ShapeMaterializer) Supports(obj featcache.DisplayObject) bool {
	if _, _, ok := shapeOf(obj); !ok {
		return false
	}
	return m.Kind == "" || m.Kind == obj.Kind()
}

// Arity implements featcache.Materializer.
func (ShapeMaterializer) Arity() int { return 3 }

// Materialize implements featcache.Materializer.
func (ShapeMaterializer) Materialize(obj featcache.DisplayObject, ids []featcache.FeatureID, out []featcache.Feature) error {
	s, kind, ok := shapeOf(obj)
	if !ok {
		return featcache.ErrUnsupported
	}
	st := s.state()
	if len(st.points) == 0 {
		return nil
	}
	out[0] = featcache.Feature{
		ID:           ids[0],
		Geometry:     featcache.Geometry{Kind: kind, Points: st.points},
		Style:        st.style,
		AltitudeMode: st.altitude,
		Extrude:      st.extrude,
	}
	if st.altitude != featcache.ClampToGround {
		shadow := make([]f64.Vec3, len(st.points))
		for i, p := range st.points {
			shadow[i] = f64.Vec3{p[0], p[1], 0}
		}
		shadowStyle := st.style
		shadowStyle.Stroke.A *= 0.5
		shadowStyle.Fill.A *= 0.5
		out[1] = featcache.Feature{
			ID:           ids[1],
			Geometry:     featcache.Geometry{Kind: kind, Points: shadow},
			Style:        shadowStyle,
			AltitudeMode: featcache.ClampToGround,
		}
	}
	if st.editing {
		out[2] = featcache.Feature{
			ID:           ids[2],
			Geometry:     featcache.Geometry{Kind: featcache.GeometryMultiPoint, Points: st.points},
			Style:        st.style,
			AltitudeMode: st.altitude,
		}
	}
	return nil
}

// Bounds implements featcache.Materializer.
func (ShapeMaterializer) Bounds(obj featcache.DisplayObject) featcache.Envelope {
	s, _, ok := shapeOf(obj)
	if !ok {
		return featcache.EmptyEnvelope()
	}
	st := s.state()
	e := featcache.EnvelopeOf(st.points)
	if st.extrude && st.altitude != featcache.ClampToGround && !e.IsEmpty() {
		e.MinZ = min(e.MinZ, 0)
	}
	return e
}

// Label implements featcache.Materializer.
func (ShapeMaterializer) Label(obj featcache.DisplayObject) (string, error) {
	s, _, ok := shapeOf(obj)
	if !ok {
		return "", featcache.ErrUnsupported
	}
	return s.Label(), nil
}

// Materializers returns a table resolving every display object type in
// this package.
func Materializers() *featcache.Materializers {
	m := featcache.NewMaterializers(KindPlacemark, KindPath, KindPolygon)
	m.Register(KindPlacemark, func() featcache.Materializer { return PlacemarkMaterializer{} })
	m.Register(KindPath, func() featcache.Materializer { return ShapeMaterializer{Kind: KindPath} })
	m.Register(KindPolygon, func() featcache.Materializer { return ShapeMaterializer{Kind: KindPolygon} })
	return m
}
