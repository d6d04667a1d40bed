package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"seehuhn.de/go/geom/matrix"
)

var errSyntax = errors.New("transform syntax error")

// Parse evaluates an SVG transform list into the matrix it denotes.
//
// The result uses the row-vector convention of package matrix: entries
// {a, b, c, d, e, f} map (x, y) to (a*x + c*y + e, b*x + d*y + f). An empty
// or all-whitespace list is the identity.
func Parse(s string) (matrix.Matrix, error) {
	p := parser{s: s}
	m := matrix.Identity
	for {
		p.skipSeparators()
		if p.done() {
			return m, nil
		}
		name := p.ident()
		if name == "" {
			return matrix.Identity, p.errorf("expected transform name")
		}
		args, err := p.args()
		if err != nil {
			return matrix.Identity, err
		}
		t, err := build(name, args)
		if err != nil {
			return matrix.Identity, p.errorf("%s: %v", name, err)
		}
		// later entries apply to coordinates first
		m = t.Mul(m)
	}
}

func build(name string, a []float64) (matrix.Matrix, error) {
	switch name {
	case "matrix":
		if len(a) != 6 {
			return matrix.Identity, errArgCount(len(a))
		}
		return matrix.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, nil
	case "translate":
		switch len(a) {
		case 1:
			return matrix.Translate(a[0], 0), nil
		case 2:
			return matrix.Translate(a[0], a[1]), nil
		}
	case "scale":
		switch len(a) {
		case 1:
			return matrix.Scale(a[0], a[0]), nil
		case 2:
			return matrix.Scale(a[0], a[1]), nil
		}
	case "rotate":
		switch len(a) {
		case 1:
			return rotation(a[0]), nil
		case 3:
			return matrix.Translate(-a[1], -a[2]).Mul(rotation(a[0])).Mul(matrix.Translate(a[1], a[2])), nil
		}
	case "skewX":
		if len(a) == 1 {
			return matrix.Matrix{1, 0, math.Tan(a[0] * math.Pi / 180), 1, 0, 0}, nil
		}
	case "skewY":
		if len(a) == 1 {
			return matrix.Matrix{1, math.Tan(a[0] * math.Pi / 180), 0, 1, 0, 0}, nil
		}
	default:
		return matrix.Identity, fmt.Errorf("unknown transform")
	}
	return matrix.Identity, errArgCount(len(a))
}

func rotation(deg float64) matrix.Matrix {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return matrix.Matrix{cos, sin, -sin, cos, 0, 0}
}

func errArgCount(n int) error {
	return fmt.Errorf("unexpected number of arguments (%d)", n)
}

type parser struct {
	s   string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.s) }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", errSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for !p.done() && isSpace(p.s[p.pos]) {
		p.pos++
	}
}

func (p *parser) skipSeparators() {
	for !p.done() && (isSpace(p.s[p.pos]) || p.s[p.pos] == ',') {
		p.pos++
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.done() {
		c := p.s[p.pos]
		if c < 'A' || c > 'Z' && c < 'a' || c > 'z' {
			break
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) args() ([]float64, error) {
	p.skipSpace()
	if p.done() || p.s[p.pos] != '(' {
		return nil, p.errorf("expected '('")
	}
	p.pos++

	var args []float64
	for {
		p.skipSeparators()
		if p.done() {
			return nil, p.errorf("unterminated argument list")
		}
		if p.s[p.pos] == ')' {
			p.pos++
			return args, nil
		}
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
}

// number scans one SVG number. Numbers may follow each other without a
// separator when the sign or a second decimal point makes the boundary
// unambiguous, as in "10-5" or "0.5.5".
func (p *parser) number() (float64, error) {
	start := p.pos
	if !p.done() && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
		p.pos++
	}
	digits := p.digits()
	if !p.done() && p.s[p.pos] == '.' {
		p.pos++
		digits += p.digits()
	}
	if digits == 0 {
		p.pos = start
		return 0, p.errorf("expected number")
	}
	if !p.done() && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if !p.done() && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		if p.digits() == 0 {
			p.pos = mark
		}
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("%v", err)
	}
	return v, nil
}

func (p *parser) digits() int {
	n := 0
	for !p.done() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
		n++
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
