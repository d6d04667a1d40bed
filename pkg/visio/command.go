package visio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/visio2svg/pkg/errors"
)

// Default libvisio-tools commands.
const (
	DefaultDocumentCommand = "vsd2xhtml"
	DefaultStencilCommand  = "vss2xhtml"
)

// CommandDecoder decodes documents by running the libvisio-tools programs.
// Both read a file and print an XHTML page holding one svg element per
// drawing page or stencil.
type CommandDecoder struct {
	// DocumentCommand renders drawing pages. Empty means vsd2xhtml.
	DocumentCommand string

	// StencilCommand renders stencil masters. Empty means vss2xhtml.
	StencilCommand string

	// Timeout bounds a single run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// TempDir is where input files are written. Empty means os.TempDir().
	TempDir string

	Logger *log.Logger
}

// NewCommandDecoder returns a CommandDecoder using the given commands.
// Empty command names select the defaults.
func NewCommandDecoder(document, stencil string, timeout time.Duration, logger *log.Logger) *CommandDecoder {
	return &CommandDecoder{
		DocumentCommand: document,
		StencilCommand:  stencil,
		Timeout:         timeout,
		Logger:          logger,
	}
}

// IsSupported reports whether data is a binary or XML Visio container.
func (d *CommandDecoder) IsSupported(data []byte) bool {
	return Sniff(data) != FormatUnknown
}

// Parse renders every drawing page of data.
func (d *CommandDecoder) Parse(ctx context.Context, data []byte, gen Generator) error {
	return d.parse(ctx, data, gen, false)
}

// ParseStencils renders every stencil master of data.
func (d *CommandDecoder) ParseStencils(ctx context.Context, data []byte, gen Generator) error {
	return d.parse(ctx, data, gen, true)
}

func (d *CommandDecoder) parse(ctx context.Context, data []byte, gen Generator, stencils bool) error {
	format := Sniff(data)
	if format == FormatUnknown {
		return verrors.New(verrors.ErrCodeUnsupported, "not a Visio document")
	}

	command, prefix := or(d.DocumentCommand, DefaultDocumentCommand), "Page"
	if stencils {
		command, prefix = or(d.StencilCommand, DefaultStencilCommand), "Stencil"
	}

	xhtml, err := d.run(ctx, command, data, format)
	if err != nil {
		return err
	}
	pages, err := SplitXHTML(xhtml)
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeGenerationFailed, err, "%s output is not XHTML", command)
	}

	var names []string
	if format == FormatXML {
		names, err = PackageNames(data, stencils)
		if err != nil {
			d.logger().Debug("no names in package", "err", err)
		}
	}
	if len(names) != len(pages) {
		if len(names) > 0 {
			d.logger().Debug("page names do not match pages", "names", len(names), "pages", len(pages))
		}
		names = nil
	}
	names = UniqueNames(names, len(pages), prefix)

	for i, page := range pages {
		gen.StartPage(names[i])
		gen.Markup(page)
		gen.EndPage()
	}
	return nil
}

// run writes data to a temporary file and returns the stdout of command
// run on it.
func (d *CommandDecoder) run(ctx context.Context, command string, data []byte, format Format) ([]byte, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeToolNotFound, err,
			"%s not found; install libvisio-tools", command)
	}

	dir, err := os.MkdirTemp(d.TempDir, "visio-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := ".vsd"
	if format == FormatXML {
		ext = ".vsdx"
	}
	in := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(in, data, 0600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, verrors.Wrap(verrors.ErrCodeTimeout, ctx.Err(), "%s timed out", command)
		case strings.Contains(msg, "Unsupported file format"):
			return nil, verrors.New(verrors.ErrCodeUnsupported,
				"Unsupported file format (unsupported version) or file is encrypted")
		}
		return nil, verrors.Wrap(verrors.ErrCodeGenerationFailed, err, "%s: %s", command, msg)
	}
	if stderr.Len() > 0 {
		d.logger().Debug(command, "stderr", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var discard = log.NewWithOptions(io.Discard, log.Options{})

func (d *CommandDecoder) logger() *log.Logger {
	if d.Logger == nil {
		return discard
	}
	return d.Logger
}

// UniqueNames returns n names. Missing names become prefix-1, prefix-2 and
// so on; repeated names get a -2, -3 suffix.
func UniqueNames(names []string, n int, prefix string) []string {
	out := make([]string, n)
	seen := make(map[string]bool, n)
	for i := range out {
		name := ""
		if i < len(names) {
			name = strings.TrimSpace(names[i])
		}
		if name == "" {
			name = fmt.Sprintf("%s-%d", prefix, i+1)
		}
		candidate := name
		for k := 2; seen[candidate]; k++ {
			candidate = fmt.Sprintf("%s-%d", name, k)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var _ Decoder = (*CommandDecoder)(nil)
