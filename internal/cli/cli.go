// Package cli implements the visio2svg command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/visio2svg/internal/config"
	"github.com/matzehuels/visio2svg/pkg/buildinfo"
	"github.com/matzehuels/visio2svg/pkg/cache"
	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/pipeline"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default configuration file location.
	ConfigPath string

	// Config is loaded before any subcommand runs.
	Config config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "visio2svg converts Visio documents to SVG",
		Long:         `visio2svg converts the pages and stencils of Visio documents (.vsd, .vss, .vsdx, .vssx) to standalone SVG files, inlining embedded EMF images as vector graphics.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/visio2svg/config.toml)")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.postTreatCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file into c.Config.
func (c *CLI) loadConfig() error {
	path := c.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			c.Logger.Debug("no config path", "err", err)
			return nil
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.Config = cfg
	c.Logger.Debug("config loaded", "path", path)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	tools := c.Config.Tools
	dec := visio.NewCommandDecoder(tools.VSD2XHTML, tools.VSS2XHTML, tools.Timeout.Duration, c.Logger)
	runner := pipeline.NewRunner(dec, c.newConverter(store), store, nil, c.Logger)
	runner.TTL = c.Config.Cache.TTL.Duration
	return runner, nil
}

// newConverter returns the metafile converter, caching its results in store.
func (c *CLI) newConverter(store cache.Cache) metafile.Converter {
	tools := c.Config.Tools
	conv := metafile.NewCommandConverter(tools.EMF2SVG, tools.Timeout.Duration, c.Logger)
	return metafile.NewCachedConverter(conv, store, nil, c.Config.Cache.TTL.Duration, c.Logger)
}

// newCache opens the configured cache backend. A file cache that cannot be
// created degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts, err := c.Config.CacheOptions()
	if err != nil {
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		if opts.Backend == cache.BackendRedis {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return store, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// indentFlag maps the --indent flag to pipeline.Options.Indent. A negative
// flag value means the flag was not given and the config applies.
func (c *CLI) indentFlag(flag int) int {
	if flag < 0 {
		return c.Config.Output.PipelineIndent()
	}
	return config.Output{Indent: flag}.PipelineIndent()
}
