// Package pipeline provides the Visio to SVG conversion pipeline.
//
// This package implements the complete decode → generate → post-treat flow
// used by the CLI and the HTTP API. By centralizing this logic, both entry
// points behave the same way and share one cache.
//
// # Architecture
//
// A conversion runs in three stages:
//
//  1. Check: the input must be a Visio document the decoder supports
//  2. Generate: the decoder renders every page (or stencil) to SVG and
//     names it
//  3. Post-treat: embedded EMF images of every page are replaced by their
//     vector content
//
// # Usage
//
// Create a Runner and convert a document:
//
//	runner := pipeline.NewRunner(decoder, converter, cache, nil, logger)
//	result, err := runner.Convert(ctx, data, pipeline.Options{Mode: pipeline.ModeDocument})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, page := range result.Pages {
//	    os.WriteFile(page.Name+".svg", page.SVG, 0644)
//	}
package pipeline

import (
	"time"

	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Conversion modes.
const (
	// ModeDocument converts the drawing pages of a document.
	ModeDocument = "document"

	// ModeStencils converts the stencil masters of a document.
	ModeStencils = "stencils"
)

const (
	// DefaultMode is the default conversion mode.
	DefaultMode = ModeDocument

	// DefaultScaling is the only scaling currently applied.
	DefaultScaling = 1.0

	// DefaultIndent is the default number of spaces per level in the output.
	DefaultIndent = posttreat.DefaultIndent
)

// ValidModes is the set of supported conversion modes.
var ValidModes = map[string]bool{
	ModeDocument: true,
	ModeStencils: true,
}

// =============================================================================
// Options - Conversion Configuration
// =============================================================================

// Options contains the configuration of one conversion.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Mode selects drawing pages or stencil masters.
	Mode string `json:"mode,omitempty"`

	// Scaling is reserved for geometry scaling. Only 1.0 has an effect
	// today; other positive values are accepted and recorded.
	Scaling float64 `json:"scaling,omitempty"`

	// Indent is the number of spaces per nesting level of the output SVG.
	// Negative values select compact output.
	Indent int `json:"indent,omitempty"`

	// Refresh bypasses cached results and overwrites them.
	Refresh bool `json:"refresh,omitempty"`
}

// Page is one generated and post-treated SVG document.
type Page struct {
	Name   string           `json:"name"`
	SVG    []byte           `json:"svg"`
	Report posttreat.Report `json:"report"`
}

// Result contains the outputs of a conversion.
type Result struct {
	// DocumentHash is the content hash of the input document.
	DocumentHash string `json:"document_hash"`

	// Mode is the mode the document was converted in.
	Mode string `json:"mode"`

	// Pages holds the converted pages in document order. Names are unique.
	Pages []Page `json:"pages"`

	// Stats contains timing and image counts.
	Stats Stats `json:"stats"`

	// CacheHit reports whether the result came from the cache.
	CacheHit bool `json:"-"`
}

// Lookup returns the page named name.
func (r *Result) Lookup(name string) (Page, bool) {
	for _, p := range r.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

// Names returns the page names in document order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		names[i] = p.Name
	}
	return names
}

// Stats contains conversion statistics.
type Stats struct {
	PageCount     int              `json:"page_count"`
	Images        posttreat.Report `json:"images"`
	GenerateTime  time.Duration    `json:"generate_time"`
	PostTreatTime time.Duration    `json:"post_treat_time"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateMode checks that a mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return errors.New(errors.ErrCodeInvalidMode, "invalid mode: %q (must be one of: document, stencils)", mode)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Scaling == 0 {
		o.Scaling = DefaultScaling
	}
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	if o.Scaling < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scaling must be positive, got %v", o.Scaling)
	}
	return nil
}

// indent returns the post-treatment indent for o.
func (o *Options) indent() int {
	if o.Indent < 0 {
		return 0
	}
	if o.Indent == 0 {
		return DefaultIndent
	}
	return o.Indent
}

// ConversionKeyOpts returns cache key options for the conversion.
func (o *Options) ConversionKeyOpts() cache.ConversionKeyOpts {
	return cache.ConversionKeyOpts{
		Mode:    o.Mode,
		Scaling: o.Scaling,
		Indent:  o.indent(),
	}
}
