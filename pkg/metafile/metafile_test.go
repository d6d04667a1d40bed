package metafile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/visio2svg/pkg/cache"
	verrors "github.com/matzehuels/visio2svg/pkg/errors"
)

func TestDefaultOptions(t *testing.T) {
	got := DefaultOptions(5, 7)
	want := Options{EMFPlus: true, ImgWidth: 5, ImgHeight: 7}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DefaultOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "defaults",
			opts: Options{},
			want: []string{"-i", "in.emf", "-o", "out.svg"},
		},
		{
			name: "image options",
			opts: DefaultOptions(120.7, 80),
			want: []string{"-i", "in.emf", "-o", "out.svg", "-e", "-w", "120", "-h", "80"},
		},
		{
			name: "verbose with delimiter",
			opts: Options{Verbose: true, SVGDelimiter: true},
			want: []string{"-i", "in.emf", "-o", "out.svg", "-v", "-p"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Args("in.emf", "out.svg", tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	got := wrap("<rect/>", "")
	if !strings.HasPrefix(got, `<svg xmlns="http://www.w3.org/2000/svg"`) || !strings.HasSuffix(got, "<rect/></svg>") {
		t.Errorf("wrap = %q", got)
	}
	got = wrap("<svg:rect/>", "svg")
	if !strings.HasPrefix(got, "<svg:svg ") || !strings.Contains(got, `xmlns:svg="http://www.w3.org/2000/svg"`) {
		t.Errorf("wrap with namespace = %q", got)
	}
}

func TestCommandConverterToolNotFound(t *testing.T) {
	c := &CommandConverter{Command: "emf2svg-conv-does-not-exist"}
	_, err := c.Convert(context.Background(), []byte{0}, Options{})
	if !verrors.Is(err, verrors.ErrCodeToolNotFound) {
		t.Errorf("err = %v, want TOOL_NOT_FOUND", err)
	}
}

// writeScript creates an executable shell script standing in for
// emf2svg-conv. It receives the same arguments as the real tool.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fake-emf2svg")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandConverter(t *testing.T) {
	// copies "<rect/>" to the path following -o
	tool := writeScript(t, `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then printf '<rect/>' > "$2"; fi
  shift
done`)

	c := &CommandConverter{Command: tool, TempDir: t.TempDir()}
	got, err := c.Convert(context.Background(), []byte{1, 2, 3}, DefaultOptions(5, 5))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.HasSuffix(got, "><rect/></svg>") {
		t.Errorf("Convert = %q, want wrapped <rect/>", got)
	}

	// delimited output is returned as is
	got, err = c.Convert(context.Background(), []byte{1}, Options{SVGDelimiter: true})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != "<rect/>" {
		t.Errorf("Convert with delimiter = %q, want %q", got, "<rect/>")
	}
}

func TestCommandConverterFailure(t *testing.T) {
	tool := writeScript(t, `echo "bad record" >&2; exit 3`)
	c := &CommandConverter{Command: tool}
	_, err := c.Convert(context.Background(), []byte{1}, Options{})
	if !verrors.Is(err, verrors.ErrCodeConversionFailed) {
		t.Fatalf("err = %v, want CONVERSION_FAILED", err)
	}
	if !strings.Contains(err.Error(), "bad record") {
		t.Errorf("err = %v, want stderr in message", err)
	}
}

func TestCommandConverterTimeout(t *testing.T) {
	tool := writeScript(t, `exec sleep 5`)
	c := &CommandConverter{Command: tool, Timeout: 50 * time.Millisecond}
	_, err := c.Convert(context.Background(), []byte{1}, Options{})
	if !verrors.Is(err, verrors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
}

func TestCachedConverter(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	inner := Func(func(ctx context.Context, data []byte, opts Options) (string, error) {
		calls++
		return "<svg><rect/></svg>", nil
	})
	c := NewCachedConverter(inner, store, nil, 0, nil)

	for i := 0; i < 3; i++ {
		got, err := c.Convert(ctx, []byte{0, 0, 0}, DefaultOptions(5, 5))
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		if got != "<svg><rect/></svg>" {
			t.Errorf("Convert = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("inner called %d times, want 1", calls)
	}

	// different size is a different entry
	if _, err := c.Convert(ctx, []byte{0, 0, 0}, DefaultOptions(6, 5)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("inner called %d times, want 2", calls)
	}
}

func TestCachedConverterDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	calls := 0
	boom := errors.New("boom")
	inner := Func(func(context.Context, []byte, Options) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "", nil
	})
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewCachedConverter(inner, store, nil, time.Hour, nil)

	if _, err := c.Convert(ctx, []byte{9}, Options{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if got, err := c.Convert(ctx, []byte{9}, Options{}); err != nil || got != "" {
		t.Errorf("Convert = %q, %v; want empty result", got, err)
	}
	if _, err := c.Convert(ctx, []byte{9}, Options{}); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("inner called %d times, want 3", calls)
	}
}
