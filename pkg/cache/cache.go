// Package cache provides byte caches for conversion results.
//
// Converting a document runs external tools for the document itself and for
// every embedded metafile, so both whole conversions and single metafile
// conversions are cached by content hash. Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that callers never assemble key strings by
// hand; [ScopedKeyer] adds a namespace prefix.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long conversion results stay cached when no TTL is
// configured.
const DefaultTTL = 7 * 24 * time.Hour

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// ConversionKey is the key of a whole document conversion.
	ConversionKey(docHash string, opts ConversionKeyOpts) string

	// MetafileKey is the key of one metafile converted to SVG.
	MetafileKey(dataHash string, opts MetafileKeyOpts) string
}

// ConversionKeyOpts holds the options that change a conversion result.
type ConversionKeyOpts struct {
	Mode    string  `json:"mode"`
	Scaling float64 `json:"scaling"`
	Indent  int     `json:"indent"`
}

// MetafileKeyOpts holds the options that change a metafile conversion.
type MetafileKeyOpts struct {
	EMFPlus      bool    `json:"emfplus"`
	Namespace    string  `json:"namespace,omitempty"`
	SVGDelimiter bool    `json:"svg_delimiter"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

// DefaultKeyer builds unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ConversionKey returns "conversion:<hash of docHash and opts>".
func (DefaultKeyer) ConversionKey(docHash string, opts ConversionKeyOpts) string {
	return hashKey("conversion", docHash, opts)
}

// MetafileKey returns "emf:<hash of dataHash and opts>".
func (DefaultKeyer) MetafileKey(dataHash string, opts MetafileKeyOpts) string {
	return hashKey("emf", dataHash, opts)
}
