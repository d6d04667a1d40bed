// Package pkg provides the libraries behind visio2svg.
//
// # Overview
//
// visio2svg turns Visio documents into standalone SVG files, one per page or
// stencil. Pages that embed EMF metafiles as base64 data URIs get those
// images replaced by the converted vector content. The pkg directory is
// organized as follows:
//
//  1. [visio] - Format detection and the decoder producing one SVG per page
//  2. [posttreat] - The pass inlining embedded EMF images
//  3. [metafile] - EMF to SVG converters
//  4. [datauri] - Base64 data URI decoding
//  5. [transform] - SVG transform composition and evaluation
//  6. [pipeline] - Orchestration (check → generate → post-treat)
//  7. [cache] - Result caching (file, Redis, none)
//  8. [observability] - Hooks for metrics and tracing
//  9. [errors] - Structured error codes
//
// # Architecture
//
// The data flow through visio2svg:
//
//	Visio document (.vsd, .vsdx, .vss, .vssx)
//	         ↓
//	    [visio] package (sniff, decode, split into pages)
//	         ↓
//	    [posttreat] package (inline EMF images via [metafile])
//	         ↓
//	    SVG files
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/visio2svg/pkg/metafile"
//	    "github.com/matzehuels/visio2svg/pkg/pipeline"
//	    "github.com/matzehuels/visio2svg/pkg/visio"
//	)
//
//	dec := visio.NewCommandDecoder("", "", 30*time.Second, logger)
//	conv := metafile.NewCommandConverter("", 30*time.Second, logger)
//	runner := pipeline.NewRunner(dec, conv, nil, nil, logger)
//	result, err := runner.VSD2SVG(ctx, data)
//
// [visio]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/visio
// [posttreat]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/posttreat
// [metafile]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/metafile
// [datauri]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/datauri
// [transform]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/transform
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/visio2svg/pkg/errors
package pkg
