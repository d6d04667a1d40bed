package posttreat

import (
	"context"
	"math"
	"slices"
	"strconv"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/visio2svg/pkg/datauri"
	verrors "github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/observability"
	"github.com/matzehuels/visio2svg/pkg/transform"
)

// Outcome tells the rewriter what happened to an image element.
type Outcome int

const (
	// Recursed means the image does not embed a metafile and was left in
	// place; its children still have to be visited.
	Recursed Outcome = iota
	// Replaced means the image was swapped for a group.
	Replaced
	// Skipped means the image embeds a metafile but could not be replaced.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Skipped:
		return "skipped"
	}
	return "recursed"
}

// reserved attributes are consumed by the replacement and not copied.
func reserved(key string) bool {
	switch key {
	case "href", "x", "y", "width", "height":
		return true
	}
	return false
}

// resolver replaces one image element at a time.
type resolver struct {
	ctx       context.Context
	converter metafile.Converter
	logger    *log.Logger
	page      string
	report    *Report
}

// resolve replaces img with a group holding the vector content of its
// embedded metafile. Images that do not embed a metafile are left alone.
func (r *resolver) resolve(img *etree.Element) Outcome {
	href := img.SelectAttr("href")
	if href == nil || !datauri.IsEMF(href.Value) {
		return Recursed
	}
	parent := img.Parent()
	if parent == nil {
		r.logger.Warn("cannot replace image without parent", "page", r.page)
		r.report.Skipped++
		return Skipped
	}

	x := parseLength(img.SelectAttrValue("x", ""))
	y := parseLength(img.SelectAttrValue("y", ""))
	width := parseLength(img.SelectAttrValue("width", ""))
	height := parseLength(img.SelectAttrValue("height", ""))
	if !finite(x) || !finite(y) {
		r.logger.Warn("image position out of range, using 0", "page", r.page,
			"x", img.SelectAttrValue("x", ""), "y", img.SelectAttrValue("y", ""))
	}

	g := r.group(img, x, y)

	data, err := datauri.DecodeEMF(href.Value)
	if err != nil {
		r.logger.Warn("Base64 decode failed", "page", r.page, "err", err, "bytes", len(data))
		r.report.DecodeFailures++
		observability.Image().OnDecodeError(r.ctx, r.page,
			verrors.Wrap(verrors.ErrCodeDecodeFailed, err, "Base64 decode failed"))
	}

	var svg string
	if r.converter == nil {
		err = verrors.New(verrors.ErrCodeConversionFailed, "no metafile converter")
	} else {
		svg, err = r.converter.Convert(r.ctx, data, metafile.DefaultOptions(width, height))
	}
	if err == nil && svg == "" {
		err = verrors.New(verrors.ErrCodeConversionFailed, "converter produced no output")
	}
	if err != nil {
		r.logger.Warn("Failed to convert emf", "page", r.page, "err", err, "bytes", len(data))
		r.report.ConversionFailures++
		observability.Image().OnConversionError(r.ctx, r.page, err)
	} else {
		r.adopt(g, svg)
	}

	parent.InsertChildAt(img.Index(), g)
	parent.RemoveChild(img)
	r.report.Replaced++
	observability.Image().OnImageReplaced(r.ctx, r.page, len(data))
	return Replaced
}

// group builds the element replacing img: same namespace prefix, every
// attribute but the reserved ones, and a transform translated to (x, y).
func (r *resolver) group(img *etree.Element, x, y float64) *etree.Element {
	g := etree.NewElement("g")
	g.Space = img.Space

	translated := false
	for _, a := range img.Attr {
		if reserved(a.Key) {
			continue
		}
		v := a.Value
		if a.Key == "transform" {
			if _, err := transform.Parse(v); err != nil {
				r.logger.Debug("malformed transform", "page", r.page, "transform", v, "err", err)
			}
			v = transform.Compose(v, x, y)
			translated = true
		}
		g.CreateAttr(a.FullKey(), v)
	}
	if !translated {
		g.CreateAttr("transform", transform.Compose("", x, y))
	}
	return g
}

// adopt parses converter output and moves the children of its top-level
// element into g. Damaged output is repaired; if it cannot be read completely
// g receives what was read.
func (r *resolver) adopt(g *etree.Element, svg string) {
	frag, damage, err := parseRecoverable([]byte(svg))
	switch {
	case err != nil:
		r.logger.Warn("cannot read converted metafile markup", "page", r.page, "err", err)
	case damage != nil:
		r.logger.Warn("repaired converted metafile markup", "page", r.page, "err", damage)
	}
	if damage != nil {
		r.report.ParseErrors++
	}
	root := frag.Root()
	if root == nil {
		return
	}
	for _, t := range slices.Clone(root.Child) {
		g.AddChild(t)
	}
}

// parseLength reads the leading decimal number of s the way C's atof does:
// leading space is skipped, trailing garbage such as a unit is ignored and
// anything unreadable is 0.
func parseLength(s string) float64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	// out of range values come back as ±Inf along with an error
	v, _ := strconv.ParseFloat(s[start:i], 64)
	return v
}

func finite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
