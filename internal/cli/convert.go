package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	verrors "github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/pipeline"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

const defaultJobs = 4

// convertOpts holds the command-line flags for the convert command.
type convertOpts struct {
	output   string   // output directory
	stencils bool     // convert stencil masters instead of drawing pages
	jobs     int      // documents converted concurrently
	pick     bool     // choose pages interactively
	pages    []string // page names to write
	indent   int      // spaces per level; negative means use the config
	noCache  bool     // disable caching
	refresh  bool     // bypass cached results
}

// converted is one finished document.
type converted struct {
	input  string
	result *pipeline.Result
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	opts := convertOpts{jobs: defaultJobs, indent: -1}

	cmd := &cobra.Command{
		Use:   "convert [file...]",
		Short: "Convert Visio documents to SVG files",
		Long: `Convert Visio documents to SVG files.

Every drawing page (or, with --stencils, every stencil master) is written to
its own SVG file named after the page. EMF images embedded in the pages are
converted to vector graphics and inlined.

With a single input the files go to --output (default: a directory named
after the document). With several inputs each document gets a subdirectory
of --output.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pick && len(args) > 1 {
				return fmt.Errorf("--select works on a single document")
			}
			if opts.jobs < 1 {
				return fmt.Errorf("--jobs must be at least 1")
			}
			return c.runConvert(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&opts.stencils, "stencils", false, "convert stencil masters instead of drawing pages")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", opts.jobs, "documents to convert concurrently")
	cmd.Flags().BoolVar(&opts.pick, "select", false, "choose the pages to write interactively")
	cmd.Flags().StringSliceVarP(&opts.pages, "page", "p", nil, "write only the named page(s)")
	cmd.Flags().IntVar(&opts.indent, "indent", opts.indent, "spaces per nesting level, 0 for compact output (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

// runConvert converts all inputs concurrently, then writes their pages.
func (c *CLI) runConvert(ctx context.Context, inputs []string, opts convertOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	popts := pipeline.Options{
		Mode:    pipeline.ModeDocument,
		Indent:  c.indentFlag(opts.indent),
		Refresh: opts.refresh,
	}
	if opts.stencils {
		popts.Mode = pipeline.ModeStencils
	}

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, os.Stderr, "Converting", len(inputs))
	spinner.Start()

	results := make([]converted, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for i, input := range inputs {
		g.Go(func() error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			res, err := runner.Convert(gctx, data, popts)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			c.Logger.Debug("converted", "input", input, "pages", len(res.Pages), "cached", res.CacheHit)
			results[i] = converted{input: input, result: res}
			spinner.Advance()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		msg := "Conversion failed"
		if spinner.Cancelled() {
			msg = "Conversion cancelled"
		}
		spinner.StopWithError(msg)
		return err
	}
	spinner.Stop()

	for _, r := range results {
		pages, err := c.choosePages(r.result, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", r.input, err)
		}
		if len(pages) == 0 {
			printWarning("No pages selected from %s", r.input)
			continue
		}

		files, err := writePages(outputDir(r.input, opts.output, len(inputs)), pages)
		if err != nil {
			return err
		}

		var images, replaced int
		for _, p := range pages {
			images += p.Report.Images
			replaced += p.Report.Replaced
		}
		printSuccess("Converted %s", r.input)
		printStats(len(pages), images, replaced, r.result.CacheHit)
		for _, f := range files {
			printFile(f)
		}
	}

	prog.done(fmt.Sprintf("Converted %d documents", len(inputs)))
	return nil
}

// choosePages applies --page and --select to a result.
func (c *CLI) choosePages(res *pipeline.Result, opts convertOpts) ([]pipeline.Page, error) {
	pages := res.Pages
	if len(opts.pages) > 0 {
		pages = make([]pipeline.Page, 0, len(opts.pages))
		for _, name := range opts.pages {
			if err := verrors.ValidatePageName(name); err != nil {
				return nil, err
			}
			p, ok := res.Lookup(name)
			if !ok {
				return nil, verrors.New(verrors.ErrCodeNotFound, "no page named %q (have: %s)",
					name, strings.Join(res.Names(), ", "))
			}
			pages = append(pages, p)
		}
	}
	if opts.pick {
		return runPagePicker(pages)
	}
	return pages, nil
}

// outputDir returns the directory the pages of input are written to.
func outputDir(input, output string, inputs int) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	switch {
	case output == "":
		return base
	case inputs == 1:
		return output
	}
	return filepath.Join(output, base)
}

// writePages writes one SVG file per page into dir and returns the paths.
func writePages(dir string, pages []pipeline.Page) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	names := fileNames(pages)
	paths := make([]string, len(pages))
	for i, p := range pages {
		path := filepath.Join(dir, names[i]+".svg")
		if err := os.WriteFile(path, p.SVG, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths[i] = path
	}
	return paths, nil
}

// fileNames returns distinct file names (without extension) for pages.
func fileNames(pages []pipeline.Page) []string {
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = verrors.SanitizeFileName(p.Name)
	}
	return visio.UniqueNames(names, len(names), "page")
}
