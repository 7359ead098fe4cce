package featcache

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/featcache/label"
)

// FeatureID is the stable handle of one renderable sub-feature.
type FeatureID int64

// NoFeature is the sentinel identifier. It is never issued by a store.
const NoFeature FeatureID = 0

// Valid reports whether id is an issued identifier.
func (id FeatureID) Valid() bool { return id > NoFeature }

// Feature is the renderer-facing form of one sub-feature of a display object.
//
// Version starts at 1 when the identifier is issued and increases every time
// the feature content changes. Renderers can skip re-uploading a feature
// whose (ID, Version) pair they have already seen.
type Feature struct {
	ID           FeatureID     `msgpack:"id"`
	Object       ObjectID      `msgpack:"object"`
	Geometry     Geometry      `msgpack:"geometry"`
	Style        Style         `msgpack:"style"`
	AltitudeMode AltitudeMode  `msgpack:"altitude_mode"`
	Extrude      bool          `msgpack:"extrude"`
	Label        *label.Layout `msgpack:"label,omitempty"`
	Version      uint64        `msgpack:"version"`
}

// Present reports whether the slot holds a materialized sub-feature.
func (f *Feature) Present() bool { return f.ID.Valid() }

// contentHash hashes everything a renderer draws. Identity and Version are
// excluded.
func (f *Feature) contentHash() uint64 {
	var buf [8]byte
	d := xxhash.New()
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}

	_, _ = d.Write([]byte{byte(f.Geometry.Kind), byte(f.AltitudeMode), boolByte(f.Extrude)})
	for _, p := range f.Geometry.Points {
		put(p[0])
		put(p[1])
		put(p[2])
	}
	s := f.Style
	for _, v := range [...]float64{
		s.Stroke.R, s.Stroke.G, s.Stroke.B, s.Stroke.A,
		s.Fill.R, s.Fill.G, s.Fill.B, s.Fill.A,
		s.StrokeWidth,
	} {
		put(v)
	}
	if f.Label != nil {
		_, _ = d.WriteString(f.Label.Text)
	}
	return d.Sum64()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
