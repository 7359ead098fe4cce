// Package label lays out feature label text for the renderer's label path.
//
// Layout is deliberately cheap compared with geometry rebuilds: text is
// normalised to NFC, its base direction is taken from the first strong
// character (UAX #9 rule P2), and it is wrapped greedily at UAX #14 line
// break opportunities with a per-line grapheme budget.
//
//	l := label.Build("Mount Rainier National Park", label.Options{MaxLineGraphemes: 12, MaxLines: 2})
//	// l.Lines == []string{"Mount", "Rainier", ...}
//
// Cache memoises layouts by text for a fixed set of options.
package label
