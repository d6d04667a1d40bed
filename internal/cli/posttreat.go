package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/visio2svg/pkg/posttreat"
)

// postTreatOpts holds the command-line flags for the posttreat command.
type postTreatOpts struct {
	output  string // output file (stdout if empty)
	name    string // page name used in diagnostics
	indent  int    // spaces per level; negative means use the config
	noCache bool   // disable caching of converted metafiles
}

// postTreatCommand creates the posttreat command.
func (c *CLI) postTreatCommand() *cobra.Command {
	opts := postTreatOpts{indent: -1}

	cmd := &cobra.Command{
		Use:   "posttreat [file.svg|-]",
		Short: "Inline the EMF images of an SVG file",
		Long: `Inline the EMF images of an SVG file.

Every image element whose href is a data:image/emf;base64 URI is replaced by
a group holding the converted vector content, positioned where the image
was. Other images are left alone. Reads standard input when the file is "-"
or missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return c.runPostTreat(cmd.Context(), input, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.name, "name", "", "page name used in diagnostics (default: file name)")
	cmd.Flags().IntVar(&opts.indent, "indent", opts.indent, "spaces per nesting level, 0 for compact output (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runPostTreat(ctx context.Context, input string, stdin io.Reader, stdout io.Writer, opts postTreatOpts) error {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	store, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	name := opts.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}

	indent := c.indentFlag(opts.indent)
	if indent < 0 {
		indent = 0
	}
	treater := &posttreat.Treater{
		Converter: c.newConverter(store),
		Logger:    c.Logger,
		Indent:    indent,
	}
	out, report, err := treater.PostTreat(ctx, data, name)
	if err != nil {
		return fmt.Errorf("post-treat %s: %w", input, err)
	}

	c.Logger.Info("post-treated",
		"page", name,
		"images", report.Images,
		"replaced", report.Replaced,
		"failed", report.DecodeFailures+report.ConversionFailures)

	if opts.output == "" {
		_, err := stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printFile(opts.output)
	return nil
}
