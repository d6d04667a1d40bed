// Package metafile converts EMF metafiles to SVG markup.
//
// The post-treatment pass hands every embedded EMF payload to a [Converter].
// [CommandConverter] runs the emf2svg-conv tool from libemf2svg,
// [CachedConverter] stores results by content hash, and [Func] adapts a plain
// function, which is what tests use.
package metafile

import "context"

// Options controls one metafile conversion.
type Options struct {
	// Verbose asks the converter to print record-level diagnostics.
	Verbose bool

	// EMFPlus enables EMF+ record handling.
	EMFPlus bool

	// Namespace is the XML namespace prefix for generated elements, without
	// the colon. Empty means no prefix.
	Namespace string

	// SVGDelimiter wraps the output in a standalone <svg> document.
	SVGDelimiter bool

	// ImgWidth and ImgHeight give the box the metafile is rendered into,
	// taken from the image element being replaced.
	ImgWidth  float64
	ImgHeight float64
}

// DefaultOptions returns the options used for inlined images: EMF+ on and
// everything else off. The caller fills in the image size.
func DefaultOptions(width, height float64) Options {
	return Options{
		EMFPlus:   true,
		ImgWidth:  width,
		ImgHeight: height,
	}
}

// Converter turns EMF bytes into SVG markup.
//
// The returned markup must have a single top-level element whose children
// are the drawing. An empty result with a nil error counts as a failure for
// callers that need content.
type Converter interface {
	Convert(ctx context.Context, data []byte, opts Options) (string, error)
}

// Func adapts an ordinary function to the Converter interface.
type Func func(ctx context.Context, data []byte, opts Options) (string, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, data []byte, opts Options) (string, error) {
	return f(ctx, data, opts)
}
