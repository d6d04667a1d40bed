package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/observability"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

// Runner converts documents with caching.
// Both CLI and API use this to avoid duplicating the conversion flow.
//
// The Runner is stateless except for its collaborators - it doesn't store
// conversion results. Multiple goroutines can safely use the same Runner
// with different options as long as the decoder and converter allow it.
type Runner struct {
	Decoder   visio.Decoder
	Converter metafile.Converter
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger

	// TTL is how long results stay cached. Zero uses cache.DefaultTTL.
	TTL time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If logger is nil, log output is discarded.
func NewRunner(dec visio.Decoder, conv metafile.Converter, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Decoder:   dec,
		Converter: conv,
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
	}
}

// VSD2SVG converts the drawing pages of a document.
func (r *Runner) VSD2SVG(ctx context.Context, data []byte) (*Result, error) {
	return r.Convert(ctx, data, Options{Mode: ModeDocument, Scaling: DefaultScaling})
}

// VSS2SVG converts the stencil masters of a document.
func (r *Runner) VSS2SVG(ctx context.Context, data []byte) (*Result, error) {
	return r.Convert(ctx, data, Options{Mode: ModeStencils, Scaling: DefaultScaling})
}

// Convert runs the complete check → generate → post-treat flow with caching.
//
// Unsupported input fails with UNSUPPORTED_FORMAT, a failing decoder with
// GENERATION_FAILED and a document without pages with NO_OUTPUT. Problems
// with single embedded images do not fail the conversion; they are logged
// and counted in the page reports.
func (r *Runner) Convert(ctx context.Context, data []byte, opts Options) (result *Result, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty input")
	}

	start := time.Now()
	hooks := observability.Convert()
	hooks.OnConvertStart(ctx, opts.Mode, len(data))
	defer func() {
		pages := 0
		if result != nil {
			pages = len(result.Pages)
		}
		hooks.OnConvertComplete(ctx, opts.Mode, pages, time.Since(start), err)
	}()

	docHash := cache.Hash(data)
	cacheKey := r.Keyer.ConversionKey(docHash, opts.ConversionKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if cached, ok := r.cached(ctx, cacheKey); ok {
			r.Logger.Debug("conversion cache hit", "hash", docHash[:12], "pages", len(cached.Pages))
			return cached, nil
		}
	}

	if r.Decoder == nil || !r.Decoder.IsSupported(data) {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"Unsupported file format (unsupported version) or file is encrypted")
	}

	// Stage 1: Generate
	genStart := time.Now()
	names, markups, err := r.generate(ctx, data, opts.Mode)
	if err != nil {
		return nil, err
	}
	result = &Result{
		DocumentHash: docHash,
		Mode:         opts.Mode,
		Pages:        make([]Page, 0, len(markups)),
	}
	result.Stats.GenerateTime = time.Since(genStart)

	r.Logger.Info("generated pages",
		"mode", opts.Mode,
		"pages", len(markups),
		"duration", result.Stats.GenerateTime)

	// Stage 2: Post-treat
	ptStart := time.Now()
	treater := &posttreat.Treater{Converter: r.Converter, Logger: r.Logger, Indent: opts.indent()}
	for i, markup := range markups {
		out, report, err := treater.PostTreat(ctx, markup, names[i])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write page %q", names[i])
		}
		result.Pages = append(result.Pages, Page{Name: names[i], SVG: out, Report: report})
		result.Stats.Images.Add(report)
	}
	result.Stats.PostTreatTime = time.Since(ptStart)
	result.Stats.PageCount = len(result.Pages)

	r.Logger.Info("post-treated pages",
		"images", result.Stats.Images.Images,
		"replaced", result.Stats.Images.Replaced,
		"duration", result.Stats.PostTreatTime)

	if blob, err := json.Marshal(result); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, blob, r.ttl()); err != nil {
			r.Logger.Warn("conversion cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "conversion", len(blob))
		}
	}
	return result, nil
}

// generate decodes data once and returns the page names and markup, which
// line up index by index.
func (r *Runner) generate(ctx context.Context, data []byte, mode string) ([]string, [][]byte, error) {
	titles := &visio.TitleGenerator{}
	svgs := &visio.SVGGenerator{}
	gen := visio.Tee(titles, svgs)

	parse := r.Decoder.Parse
	if mode == ModeStencils {
		parse = r.Decoder.ParseStencils
	}
	if err := parse(ctx, data, gen); err != nil {
		if errors.Is(err, errors.ErrCodeUnsupported) {
			return nil, nil, err
		}
		return nil, nil, errors.Wrap(errors.ErrCodeGenerationFailed, err, "SVG Generation failed")
	}

	names, markups := titles.Names(), svgs.Pages()
	if len(names) == 0 || len(markups) == 0 {
		return nil, nil, errors.New(errors.ErrCodeNoOutput, "No SVG document generated")
	}
	if len(names) != len(markups) {
		return nil, nil, errors.New(errors.ErrCodeGenerationFailed,
			"SVG Generation failed: %d names for %d pages", len(names), len(markups))
	}
	return visio.UniqueNames(names, len(names), "Page"), markups, nil
}

// cached returns the cached result under key. Unreadable entries are
// misses.
func (r *Runner) cached(ctx context.Context, key string) (*Result, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("conversion cache read failed", "err", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, "conversion")
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil || len(res.Pages) == 0 {
		hooks.OnCacheMiss(ctx, "conversion")
		return nil, false
	}
	hooks.OnCacheHit(ctx, "conversion")
	res.CacheHit = true
	return &res, true
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.DefaultTTL
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
