// Package posttreat inlines embedded EMF images into generated SVG.
//
// Visio pages often carry EMF metafiles, which SVG generators can only emit
// as image elements with a data:image/emf;base64 href that browsers do not
// render. [Treater.PostTreat] parses a page, converts each such metafile to
// SVG with a [metafile.Converter], and puts the result where the image was:
//
//	<image x="10" y="20" width="5" height="5" href="data:image/emf;base64,..."/>
//
// becomes
//
//	<g transform=" translate(10.0,20.0)  ">...converted content...</g>
//
// The group keeps every attribute of the image except href, x, y, width and
// height. Problems with a single image are logged and counted in the
// [Report]; they never abort the page. Damaged markup is repaired before
// the images are replaced.
package posttreat

import (
	"context"
	"io"
	"time"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/observability"
)

// DefaultIndent is the number of spaces per level in post-treated output.
const DefaultIndent = 2

// Report counts what happened to the images of one page.
type Report struct {
	Images             int `json:"images"`              // image elements visited
	Replaced           int `json:"replaced"`            // images swapped for a group
	Skipped            int `json:"skipped"`             // metafile images left in place
	DecodeFailures     int `json:"decode_failures"`     // payloads that did not decode cleanly
	ConversionFailures int `json:"conversion_failures"` // groups left empty
	ParseErrors        int `json:"parse_errors"`        // damaged page or converter markup
}

// Add accumulates o into r.
func (r *Report) Add(o Report) {
	r.Images += o.Images
	r.Replaced += o.Replaced
	r.Skipped += o.Skipped
	r.DecodeFailures += o.DecodeFailures
	r.ConversionFailures += o.ConversionFailures
	r.ParseErrors += o.ParseErrors
}

// Treater post-treats generated SVG pages. A Treater is safe for concurrent
// use if its Converter is.
type Treater struct {
	// Converter turns metafile bytes into SVG.
	Converter metafile.Converter

	// Logger receives per-image diagnostics. Nil discards them.
	Logger *log.Logger

	// Indent is the number of spaces per nesting level in the output.
	// Zero writes compact output.
	Indent int
}

// New returns a Treater indenting by DefaultIndent.
func New(conv metafile.Converter, logger *log.Logger) *Treater {
	return &Treater{Converter: conv, Logger: logger, Indent: DefaultIndent}
}

var discard = log.NewWithOptions(io.Discard, log.Options{})

func (t *Treater) logger() *log.Logger {
	if t.Logger == nil {
		return discard
	}
	return t.Logger
}

// PostTreat replaces the embedded metafile images of markup and returns the
// rewritten document. name identifies the page in diagnostics.
//
// Damaged markup is repaired and counted in Report.ParseErrors. Markup that
// cannot be read even after repair, or that has no root element, is returned
// unchanged. The error result is reserved for failures writing the output.
func (t *Treater) PostTreat(ctx context.Context, markup []byte, name string) ([]byte, Report, error) {
	start := time.Now()
	logger := t.logger()

	var report Report
	doc, damage, err := parseRecoverable(markup)
	if damage != nil {
		report.ParseErrors++
	}
	switch {
	case err != nil:
		logger.Warn("cannot read markup, leaving page unchanged", "page", name, "err", err)
		return markup, report, nil
	case doc.Root() == nil:
		logger.Warn("no root element, leaving page unchanged", "page", name)
		return markup, report, nil
	case damage != nil:
		logger.Warn("repaired malformed markup", "page", name, "err", damage)
	}

	t.rewrite(ctx, doc.Root(), name, &report)

	// the root itself may have been an image that got replaced
	out, err := serialize(doc.Root(), t.Indent)
	if err != nil {
		return nil, report, err
	}

	observability.Convert().OnPagePostTreated(ctx, name, report.Images, report.Replaced, time.Since(start))
	return out, report, nil
}

// Rewrite replaces the embedded metafile images in root and its descendants.
// root may belong to a caller-owned document; its siblings are not visited.
// An image without a parent cannot be replaced and is reported as skipped.
func (t *Treater) Rewrite(ctx context.Context, root *etree.Element, name string) Report {
	var report Report
	t.rewrite(ctx, root, name, &report)
	return report
}

func (t *Treater) rewrite(ctx context.Context, root *etree.Element, name string, report *Report) {
	w := rewriter{resolver{
		ctx:       ctx,
		converter: t.Converter,
		logger:    t.logger(),
		page:      name,
		report:    report,
	}}
	w.visit(root)
}
