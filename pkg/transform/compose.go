// Package transform builds and evaluates SVG transform attribute values.
//
// [Compose] appends a translation to an existing transform list the way the
// post-treatment pass positions inlined metafile content. [Parse] evaluates a
// transform list into an affine matrix so that callers can check that a
// composed value still parses and means what it should.
package transform

import (
	"math"
	"strconv"
	"strings"
)

// Translate returns the translation fragment for (dx, dy).
//
// The fragment carries one leading and two trailing spaces so it can be
// appended to any existing transform list without a separator.
func Translate(dx, dy float64) string {
	var b strings.Builder
	b.WriteString(" translate(")
	b.WriteString(FormatNumber(dx))
	b.WriteByte(',')
	b.WriteString(FormatNumber(dy))
	b.WriteString(")  ")
	return b.String()
}

// Compose appends the translation by (dx, dy) to existing. An empty existing
// value yields the translation fragment alone.
//
// In SVG a transform list applies its last entry to coordinates first, so
// the result maps a point p to existing(translate(p)).
func Compose(existing string, dx, dy float64) string {
	return existing + Translate(dx, dy)
}

// FormatNumber formats v as a plain decimal number: no exponent, the
// shortest digits that round-trip, and always a fractional part.
// Non-finite values format as "0.0" since they have no place in a transform.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
