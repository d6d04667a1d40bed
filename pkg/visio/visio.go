// Package visio reads Visio documents and generates one SVG document per
// page or stencil.
//
// A [Decoder] walks a document and reports what it finds to a [Generator].
// Generators are event sinks: [TitleGenerator] records page names,
// [SVGGenerator] records markup, and [Tee] feeds both from a single pass so
// the two lists line up index by index.
//
// [CommandDecoder] is the production decoder. It runs the libvisio-tools
// programs vsd2xhtml and vss2xhtml and splits their XHTML output into pages.
package visio

import "context"

// Decoder reads Visio documents.
type Decoder interface {
	// IsSupported reports whether data looks like a document the decoder can
	// read. It does not detect encryption; Parse reports that.
	IsSupported(data []byte) bool

	// Parse generates one SVG document per drawing page.
	Parse(ctx context.Context, data []byte, gen Generator) error

	// ParseStencils generates one SVG document per stencil master.
	ParseStencils(ctx context.Context, data []byte, gen Generator) error
}
