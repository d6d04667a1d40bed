package metafile

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/observability"
)

// CachedConverter stores the results of another Converter by content hash
// and options. Documents often embed the same metafile many times (stencil
// masters, logos), so repeated payloads only run the tool once.
type CachedConverter struct {
	inner  Converter
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedConverter wraps inner. A nil keyer uses cache.DefaultKeyer and a
// zero ttl uses cache.DefaultTTL.
func NewCachedConverter(inner Converter, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *CachedConverter {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl == 0 {
		ttl = cache.DefaultTTL
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &CachedConverter{inner: inner, cache: c, keyer: keyer, ttl: ttl, logger: logger}
}

// Convert returns a cached result when there is one and otherwise converts
// and stores the result. Failures and empty results are never cached. Cache
// errors are logged and treated as misses.
func (c *CachedConverter) Convert(ctx context.Context, data []byte, opts Options) (string, error) {
	key := c.keyer.MetafileKey(cache.Hash(data), cache.MetafileKeyOpts{
		EMFPlus:      opts.EMFPlus,
		Namespace:    opts.Namespace,
		SVGDelimiter: opts.SVGDelimiter,
		Width:        opts.ImgWidth,
		Height:       opts.ImgHeight,
	})

	hooks := observability.Cache()
	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("metafile cache read failed", "err", err)
	} else if ok {
		hooks.OnCacheHit(ctx, "emf")
		return string(b), nil
	}
	hooks.OnCacheMiss(ctx, "emf")

	svg, err := c.inner.Convert(ctx, data, opts)
	if err != nil || svg == "" {
		return svg, err
	}

	if err := c.cache.Set(ctx, key, []byte(svg), c.ttl); err != nil {
		c.logger.Warn("metafile cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, "emf", len(svg))
	}
	return svg, nil
}

var _ Converter = (*CachedConverter)(nil)
