package metafile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	verrors "github.com/matzehuels/visio2svg/pkg/errors"
)

// DefaultCommand is the libemf2svg command line tool.
const DefaultCommand = "emf2svg-conv"

// CommandConverter converts metafiles by running emf2svg-conv.
//
// The tool only reads and writes files, so every call goes through a
// private temporary directory that is removed afterwards.
type CommandConverter struct {
	// Command is the executable name or path. Empty means DefaultCommand.
	Command string

	// Timeout bounds a single run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// TempDir is where the working directories are created. Empty means
	// os.TempDir().
	TempDir string

	// Logger receives the tool's stderr at debug level. Nil discards it.
	Logger *log.Logger
}

// NewCommandConverter returns a CommandConverter for command.
func NewCommandConverter(command string, timeout time.Duration, logger *log.Logger) *CommandConverter {
	return &CommandConverter{Command: command, Timeout: timeout, Logger: logger}
}

// Convert writes data to a temporary .emf file, runs the tool on it and
// returns the SVG it produced. Output of a run without SVGDelimiter is a
// bare element list; it is wrapped in <svg> so that callers always get a
// single top-level element.
func (c *CommandConverter) Convert(ctx context.Context, data []byte, opts Options) (string, error) {
	command := c.Command
	if command == "" {
		command = DefaultCommand
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", verrors.Wrap(verrors.ErrCodeToolNotFound, err,
			"%s not found; install libemf2svg", command)
	}

	dir, err := os.MkdirTemp(c.TempDir, "emf2svg-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.emf")
	out := filepath.Join(dir, "out.svg")
	if err := os.WriteFile(in, data, 0600); err != nil {
		return "", fmt.Errorf("write metafile: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, Args(in, out, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if c.Logger != nil && stderr.Len() > 0 {
		c.Logger.Debug("emf2svg-conv", "stderr", strings.TrimSpace(stderr.String()))
	}
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", verrors.Wrap(verrors.ErrCodeTimeout, ctx.Err(), "%s timed out", command)
		}
		return "", verrors.Wrap(verrors.ErrCodeConversionFailed, runErr,
			"%s: %s", command, strings.TrimSpace(stderr.String()))
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", verrors.Wrap(verrors.ErrCodeConversionFailed, err, "%s produced no output", command)
	}
	if len(bytes.TrimSpace(svg)) == 0 {
		return "", nil
	}
	if !opts.SVGDelimiter {
		return wrap(string(svg), opts.Namespace), nil
	}
	return string(svg), nil
}

// Args returns the emf2svg-conv arguments converting in to out with opts.
func Args(in, out string, opts Options) []string {
	args := []string{"-i", in, "-o", out}
	if opts.EMFPlus {
		args = append(args, "-e")
	}
	if opts.ImgWidth > 0 {
		args = append(args, "-w", strconv.Itoa(int(opts.ImgWidth)))
	}
	if opts.ImgHeight > 0 {
		args = append(args, "-h", strconv.Itoa(int(opts.ImgHeight)))
	}
	if opts.Verbose {
		args = append(args, "-v")
	}
	if opts.SVGDelimiter {
		args = append(args, "-p")
	}
	return args
}

// wrap puts a bare element list inside an <svg> element declaring the
// namespaces the list may use.
func wrap(body, ns string) string {
	tag := "svg"
	if ns != "" {
		tag = ns + ":svg"
	}
	var b strings.Builder
	b.WriteString("<" + tag + ` xmlns="http://www.w3.org/2000/svg"`)
	if ns != "" {
		b.WriteString(" xmlns:" + ns + `="http://www.w3.org/2000/svg"`)
	}
	b.WriteString(` xmlns:xlink="http://www.w3.org/1999/xlink">`)
	b.WriteString(body)
	b.WriteString("</" + tag + ">")
	return b.String()
}

var _ Converter = (*CommandConverter)(nil)
