package featcache

import "strings"

// Property is a bitmask of derived feature properties that can go stale.
type Property uint32

const (
	// PropGeometry marks the shape coordinates as stale.
	PropGeometry Property = 1 << iota
	// PropStyle marks colours and stroke width as stale.
	PropStyle
	// PropLabel marks the label text as stale.
	PropLabel
	// PropAltitudeMode marks the altitude mode as stale.
	PropAltitudeMode
	// PropExtrude marks the extrude flag as stale.
	PropExtrude
	// PropVisibility marks the visibility flag as changed.
	PropVisibility

	// PropNone is the empty mask.
	PropNone Property = 0

	// PropAll has every property bit set.
	PropAll = PropGeometry | PropStyle | PropLabel | PropAltitudeMode | PropExtrude | PropVisibility

	// boundsAffecting is the subset of properties that can move the envelope.
	boundsAffecting = PropGeometry | PropAltitudeMode | PropExtrude
)

var propertyNames = [...]string{"geometry", "style", "label", "altitude-mode", "extrude", "visibility"}

// AffectsBounds reports whether p includes a property that can change bounds.
func (p Property) AffectsBounds() bool { return p&boundsAffecting != 0 }

// Has reports whether every bit of q is set in p.
func (p Property) Has(q Property) bool { return p&q == q }

// String returns a "|"-separated list of property names.
func (p Property) String() string {
	if p == PropNone {
		return "none"
	}
	var parts []string
	for i, name := range propertyNames {
		if p&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if rest := p &^ PropAll; rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}
