package display

import (
	"golang.org/x/image/math/f64"

	"github.com/gogpu/featcache"
)

// KindPlacemark is the kind of *Placemark.
const KindPlacemark = "placemark"

// Placemark is a labelled point.
type Placemark struct {
	Object

	pos      f64.Vec3
	altitude featcache.AltitudeMode
	extrude  bool
}

// NewPlacemark returns a visible placemark at pos, clamped to ground.
func NewPlacemark(pos f64.Vec3) *Placemark {
	return &Placemark{Object: newObject(), pos: pos}
}

// Kind implements featcache.DisplayObject.
func (p *Placemark) Kind() string { return KindPlacemark }

// Position returns the placemark position.
func (p *Placemark) Position() f64.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// SetPosition moves the placemark.
func (p *Placemark) SetPosition(pos f64.Vec3) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
	p.emit(featcache.EventChanged, featcache.PropGeometry)
}

// AltitudeMode returns how the position altitude is interpreted.
func (p *Placemark) AltitudeMode() featcache.AltitudeMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.altitude
}

// SetAltitudeMode changes how the position altitude is interpreted.
func (p *Placemark) SetAltitudeMode(m featcache.AltitudeMode) {
	p.mu.Lock()
	p.altitude = m
	p.mu.Unlock()
	p.emit(featcache.EventChanged, featcache.PropAltitudeMode)
}

// Extrude reports whether a line is drawn from the position to the ground.
func (p *Placemark) Extrude() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extrude
}

// SetExtrude toggles the ground line.
func (p *Placemark) SetExtrude(on bool) {
	p.mu.Lock()
	p.extrude = on
	p.mu.Unlock()
	p.emit(featcache.EventChanged, featcache.PropExtrude)
}

type placemarkState struct {
	pos      f64.Vec3
	altitude featcache.AltitudeMode
	extrude  bool
	style    featcache.Style
}

func (p *Placemark) state() placemarkState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return placemarkState{p.pos, p.altitude, p.extrude, p.style}
}

// PlacemarkMaterializer materializes placemarks into two slots: the point
// and, when extruded above the ground, a vertical line down to altitude 0.
type PlacemarkMaterializer struct{}

// Supports implements featcache.Materializer.
func (PlacemarkMaterializer) Supports(obj featcache.DisplayObject) bool {
	_, ok := obj.(*Placemark)
	return ok
}

// Arity implements featcache.Materializer.
func (PlacemarkMaterializer) Arity() int { return 2 }

// Materialize implements featcache.Materializer.
func (PlacemarkMaterializer) Materialize(obj featcache.DisplayObject, ids []featcache.FeatureID, out []featcache.Feature) error {
	p, ok := obj.(*Placemark)
	if !ok {
		return featcache.ErrUnsupported
	}
	st := p.state()
	out[0] = featcache.Feature{
		ID:           ids[0],
		Geometry:     featcache.Geometry{Kind: featcache.GeometryPoint, Points: []f64.Vec3{st.pos}},
		Style:        st.style,
		AltitudeMode: st.altitude,
		Extrude:      st.extrude,
	}
	if st.extrude && st.altitude != featcache.ClampToGround {
		ground := st.pos
		ground[2] = 0
		out[1] = featcache.Feature{
			ID:           ids[1],
			Geometry:     featcache.Geometry{Kind: featcache.GeometryLineString, Points: []f64.Vec3{st.pos, ground}},
			Style:        st.style,
			AltitudeMode: st.altitude,
		}
	}
	return nil
}

// Bounds implements featcache.Materializer.
func (PlacemarkMaterializer) Bounds(obj featcache.DisplayObject) featcache.Envelope {
	p, ok := obj.(*Placemark)
	if !ok {
		return featcache.EmptyEnvelope()
	}
	st := p.state()
	e := featcache.PointEnvelope(st.pos)
	if st.extrude && st.altitude != featcache.ClampToGround {
		ground := st.pos
		ground[2] = 0
		e = e.Extend(ground)
	}
	return e
}

// Label implements featcache.Materializer.
func (PlacemarkMaterializer) Label(obj featcache.DisplayObject) (string, error) {
	p, ok := obj.(*Placemark)
	if !ok {
		return "", featcache.ErrUnsupported
	}
	return p.Label(), nil
}
