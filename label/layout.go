package label

import (
	"strings"
	"unicode"

	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/unicode/bidi"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis terminates the last line of a truncated layout.
const Ellipsis = "…"

// Default layout limits.
const (
	DefaultMaxLineGraphemes = 32
	DefaultMaxLines         = 2
)

// Direction is the base writing direction of a label.
type Direction uint8

const (
	// LeftToRight is the default direction, also used for labels without strong characters.
	LeftToRight Direction = iota
	// RightToLeft is used when the first strong character is right-to-left.
	RightToLeft
)

// String returns "ltr" or "rtl".
func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

// Options bound the size of a layout. Zero fields use the defaults.
type Options struct {
	MaxLineGraphemes int `toml:"max_line_graphemes"`
	MaxLines         int `toml:"max_lines"`
}

// DefaultOptions returns the default layout limits.
func DefaultOptions() Options {
	return Options{MaxLineGraphemes: DefaultMaxLineGraphemes, MaxLines: DefaultMaxLines}
}

func (o Options) normalized() Options {
	if o.MaxLineGraphemes <= 0 {
		o.MaxLineGraphemes = DefaultMaxLineGraphemes
	}
	if o.MaxLines <= 0 {
		o.MaxLines = DefaultMaxLines
	}
	return o
}

// Layout is an immutable wrapped label.
type Layout struct {
	Text      string    `msgpack:"text"`
	Lines     []string  `msgpack:"lines"`
	Direction Direction `msgpack:"direction"`
	Graphemes int       `msgpack:"graphemes"`
	Truncated bool      `msgpack:"truncated"`
}

// Build lays out text. Leading and trailing white space is dropped; an
// empty result has no lines.
func Build(text string, opts Options) *Layout {
	opts = opts.normalized()
	text = norm.NFC.String(strings.TrimSpace(text))
	l := &Layout{Text: text, Direction: baseDirection(text)}
	if text == "" {
		return l
	}

	var seg segmenter.Segmenter
	seg.InitWithString(text)
	l.Graphemes = countGraphemes(&seg)

	var (
		lines []string
		cur   strings.Builder
		width int
	)
	flush := func() {
		if s := strings.TrimRightFunc(cur.String(), unicode.IsSpace); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
		width = 0
	}

	var clusters segmenter.Segmenter
	it := seg.LineIterator()
	for it.Next() {
		line := it.Line()
		clusters.Init(line.Text)
		n := countGraphemes(&clusters)

		if width > 0 && width+n > opts.MaxLineGraphemes {
			flush()
		}
		if n > opts.MaxLineGraphemes {
			// A single unbreakable run wider than a line is split at grapheme boundaries.
			gi := clusters.GraphemeIterator()
			for gi.Next() {
				if width == opts.MaxLineGraphemes {
					flush()
				}
				cur.WriteString(string(gi.Grapheme().Text))
				width++
			}
		} else {
			cur.WriteString(string(line.Text))
			width += n
		}
		if line.IsMandatoryBreak {
			flush()
		}
	}
	flush()

	if len(lines) > opts.MaxLines {
		lines = lines[:opts.MaxLines]
		lines[len(lines)-1] += Ellipsis
		l.Truncated = true
	}
	l.Lines = lines
	return l
}

func countGraphemes(seg *segmenter.Segmenter) int {
	n := 0
	it := seg.GraphemeIterator()
	for it.Next() {
		n++
	}
	return n
}

// baseDirection applies UAX #9 rule P2: the first strong character decides.
func baseDirection(text string) Direction {
	for _, r := range text {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return LeftToRight
		case bidi.R, bidi.AL:
			return RightToLeft
		}
	}
	return LeftToRight
}
