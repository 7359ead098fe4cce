package featcache

import (
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"
)

// Envelope is an axis-aligned 3D bounding box. An envelope whose bounds are
// NaN is unknown; use EmptyEnvelope to construct one.
type Envelope struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// EmptyEnvelope returns an envelope with every bound set to NaN.
func EmptyEnvelope() Envelope {
	nan := math.NaN()
	return Envelope{nan, nan, nan, nan, nan, nan}
}

// PointEnvelope returns the degenerate envelope at p.
func PointEnvelope(p f64.Vec3) Envelope {
	return Envelope{p[0], p[1], p[2], p[0], p[1], p[2]}
}

// EnvelopeOf returns the smallest envelope holding all points,
// or EmptyEnvelope when pts is empty.
func EnvelopeOf(pts []f64.Vec3) Envelope {
	if len(pts) == 0 {
		return EmptyEnvelope()
	}
	e := PointEnvelope(pts[0])
	for _, p := range pts[1:] {
		e = e.Extend(p)
	}
	return e
}

// IsEmpty reports whether the envelope is unknown.
func (e Envelope) IsEmpty() bool {
	return math.IsNaN(e.MinX) || math.IsNaN(e.MinY) || math.IsNaN(e.MaxX) || math.IsNaN(e.MaxY)
}

// Extend returns the envelope grown to include p.
func (e Envelope) Extend(p f64.Vec3) Envelope {
	if e.IsEmpty() {
		return PointEnvelope(p)
	}
	e.MinX, e.MaxX = math.Min(e.MinX, p[0]), math.Max(e.MaxX, p[0])
	e.MinY, e.MaxY = math.Min(e.MinY, p[1]), math.Max(e.MaxY, p[1])
	if math.IsNaN(e.MinZ) {
		e.MinZ, e.MaxZ = p[2], p[2]
	} else {
		e.MinZ, e.MaxZ = math.Min(e.MinZ, p[2]), math.Max(e.MaxZ, p[2])
	}
	return e
}

// Intersects reports whether the X/Y extents of e and o overlap.
// Touching edges count as overlap. Empty envelopes intersect nothing.
// Altitude is ignored: spatial filters are 2D.
func (e Envelope) Intersects(o Envelope) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return false
	}
	return e.MinX <= o.MaxX && o.MinX <= e.MaxX &&
		e.MinY <= o.MaxY && o.MinY <= e.MaxY
}

// GeometryKind identifies the shape of a feature geometry.
type GeometryKind uint8

const (
	// GeometryPoint is a single position.
	GeometryPoint GeometryKind = iota
	// GeometryLineString is an open sequence of positions.
	GeometryLineString
	// GeometryPolygon is a closed ring; the last point is not repeated.
	GeometryPolygon
	// GeometryMultiPoint is a set of unconnected positions, e.g. vertex handles.
	GeometryMultiPoint
)

// String returns the geometry kind name.
func (k GeometryKind) String() string {
	switch k {
	case GeometryPoint:
		return "point"
	case GeometryLineString:
		return "linestring"
	case GeometryPolygon:
		return "polygon"
	case GeometryMultiPoint:
		return "multipoint"
	default:
		return "unknown"
	}
}

// Geometry is the coordinate payload of a feature. Points hold
// (longitude, latitude, altitude) in that order.
type Geometry struct {
	Kind   GeometryKind `msgpack:"kind"`
	Points []f64.Vec3   `msgpack:"points"`
}

// Bounds returns the envelope of the geometry points.
func (g Geometry) Bounds() Envelope { return EnvelopeOf(g.Points) }

// AltitudeMode controls how feature altitudes are interpreted by the renderer.
type AltitudeMode uint8

const (
	// ClampToGround ignores altitude and drapes the feature on the terrain.
	ClampToGround AltitudeMode = iota
	// RelativeToGround offsets altitude from the terrain.
	RelativeToGround
	// Absolute uses altitude as height above the ellipsoid.
	Absolute
)

// String returns the altitude mode name.
func (m AltitudeMode) String() string {
	switch m {
	case ClampToGround:
		return "clamp-to-ground"
	case RelativeToGround:
		return "relative-to-ground"
	case Absolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// Style holds the paint attributes of a feature.
type Style struct {
	Stroke      gputypes.Color `msgpack:"stroke"`
	Fill        gputypes.Color `msgpack:"fill"`
	StrokeWidth float64        `msgpack:"stroke_width"`
}

// DefaultStyle is an opaque white 1-pixel stroke with no fill.
var DefaultStyle = Style{
	Stroke:      gputypes.ColorWhite,
	Fill:        gputypes.ColorTransparent,
	StrokeWidth: 1,
}
