package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/visio2svg/pkg/cache"
	verrors "github.com/matzehuels/visio2svg/pkg/errors"
	"github.com/matzehuels/visio2svg/pkg/metafile"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
	"github.com/matzehuels/visio2svg/pkg/visio"
)

// fakeDecoder generates fixed pages. Documents are supported when they
// start with "VSD".
type fakeDecoder struct {
	pages    []fakePage
	stencils []fakePage
	err      error
	calls    int
}

type fakePage struct {
	name string
	svg  string
}

func (d *fakeDecoder) IsSupported(data []byte) bool {
	return bytes.HasPrefix(data, []byte("VSD"))
}

func (d *fakeDecoder) Parse(ctx context.Context, data []byte, gen visio.Generator) error {
	return d.emit(d.pages, gen)
}

func (d *fakeDecoder) ParseStencils(ctx context.Context, data []byte, gen visio.Generator) error {
	return d.emit(d.stencils, gen)
}

func (d *fakeDecoder) emit(pages []fakePage, gen visio.Generator) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	for _, p := range pages {
		gen.StartPage(p.name)
		gen.Markup([]byte(p.svg))
		gen.EndPage()
	}
	return nil
}

// unnamedDecoder reports markup for a page it never started.
type unnamedDecoder struct{ fakeDecoder }

func (d *unnamedDecoder) Parse(ctx context.Context, data []byte, gen visio.Generator) error {
	gen.StartPage("Page-1")
	gen.Markup([]byte("<svg/>"))
	gen.EndPage()
	gen.StartPage("Page-2")
	return nil
}

var rect = metafile.Func(func(context.Context, []byte, metafile.Options) (string, error) {
	return "<svg><rect/></svg>", nil
})

const emfPage = `<svg><image x="10" y="20" width="5" height="5" href="data:image/emf;base64,AAAA"/></svg>`

func TestValidateMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{"document", false},
		{"stencils", false},
		{"Document", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateMode(tt.mode)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMode(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options: %v", err)
	}
	if o.Mode != ModeDocument || o.Scaling != DefaultScaling {
		t.Errorf("defaults = %+v", o)
	}

	bad := Options{Mode: "pages"}
	if err := bad.ValidateAndSetDefaults(); !verrors.Is(err, verrors.ErrCodeInvalidMode) {
		t.Errorf("unknown mode err = %v, want INVALID_MODE", err)
	}

	neg := Options{Scaling: -1}
	if err := neg.ValidateAndSetDefaults(); !verrors.Is(err, verrors.ErrCodeInvalidInput) {
		t.Errorf("negative scaling err = %v, want INVALID_INPUT", err)
	}
}

func TestOptionsIndent(t *testing.T) {
	tests := []struct {
		indent int
		want   int
	}{
		{0, DefaultIndent},
		{4, 4},
		{-1, 0},
	}
	for _, tt := range tests {
		o := Options{Indent: tt.indent}
		if got := o.indent(); got != tt.want {
			t.Errorf("Options{Indent: %d}.indent() = %d, want %d", tt.indent, got, tt.want)
		}
	}
}

func TestConvert(t *testing.T) {
	dec := &fakeDecoder{pages: []fakePage{
		{"Background", "<svg><rect/></svg>"},
		{"Main", emfPage},
	}}
	r := NewRunner(dec, rect, nil, nil, nil)

	res, err := r.Convert(context.Background(), []byte("VSD doc"), Options{Indent: -1})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if diff := cmp.Diff([]string{"Background", "Main"}, res.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	main, ok := res.Lookup("Main")
	if !ok {
		t.Fatal("Lookup(Main) failed")
	}
	want := `<svg><g transform=" translate(10.0,20.0)  "><rect/></g></svg>`
	if string(main.SVG) != want {
		t.Errorf("Main = %s, want %s", main.SVG, want)
	}
	if main.Report.Replaced != 1 {
		t.Errorf("Main report = %+v", main.Report)
	}
	if res.Stats.PageCount != 2 || res.Stats.Images.Images != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.DocumentHash != cache.Hash([]byte("VSD doc")) {
		t.Errorf("DocumentHash = %s", res.DocumentHash)
	}
	if _, ok := res.Lookup("Missing"); ok {
		t.Error("Lookup(Missing) should fail")
	}
}

func TestConvertModes(t *testing.T) {
	dec := &fakeDecoder{
		pages:    []fakePage{{"Page-1", "<svg/>"}},
		stencils: []fakePage{{"Rectangle", "<svg/>"}, {"Circle", "<svg/>"}},
	}
	r := NewRunner(dec, rect, nil, nil, nil)
	ctx := context.Background()

	res, err := r.VSS2SVG(ctx, []byte("VSD"))
	if err != nil {
		t.Fatalf("VSS2SVG: %v", err)
	}
	if diff := cmp.Diff([]string{"Rectangle", "Circle"}, res.Names()); diff != "" {
		t.Errorf("stencil names mismatch (-want +got):\n%s", diff)
	}
	if res.Mode != ModeStencils {
		t.Errorf("Mode = %q", res.Mode)
	}

	res, err = r.VSD2SVG(ctx, []byte("VSD"))
	if err != nil {
		t.Fatalf("VSD2SVG: %v", err)
	}
	if diff := cmp.Diff([]string{"Page-1"}, res.Names()); diff != "" {
		t.Errorf("page names mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertErrors(t *testing.T) {
	boom := errors.New("libvisio crashed")
	tests := []struct {
		name string
		dec  visio.Decoder
		data string
		opts Options
		want verrors.Code
	}{
		{"empty input", &fakeDecoder{}, "", Options{}, verrors.ErrCodeInvalidInput},
		{"bad mode", &fakeDecoder{}, "VSD", Options{Mode: "x"}, verrors.ErrCodeInvalidMode},
		{"unsupported", &fakeDecoder{}, "PDF", Options{}, verrors.ErrCodeUnsupported},
		{"decoder error", &fakeDecoder{err: boom}, "VSD", Options{}, verrors.ErrCodeGenerationFailed},
		{"encrypted", &fakeDecoder{err: verrors.New(verrors.ErrCodeUnsupported, "encrypted")}, "VSD", Options{}, verrors.ErrCodeUnsupported},
		{"no pages", &fakeDecoder{}, "VSD", Options{}, verrors.ErrCodeNoOutput},
		{"no stencils", &fakeDecoder{pages: []fakePage{{"p", "<svg/>"}}}, "VSD", Options{Mode: ModeStencils}, verrors.ErrCodeNoOutput},
		{"count mismatch", &unnamedDecoder{}, "VSD", Options{}, verrors.ErrCodeGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(tt.dec, rect, nil, nil, nil)
			res, err := r.Convert(context.Background(), []byte(tt.data), tt.opts)
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if got := verrors.GetCode(err); got != tt.want {
				t.Errorf("error code = %q (%v), want %q", got, err, tt.want)
			}
		})
	}
}

func TestConvertDuplicateNames(t *testing.T) {
	dec := &fakeDecoder{pages: []fakePage{{"Page", "<svg/>"}, {"Page", "<svg/>"}}}
	res, err := NewRunner(dec, rect, nil, nil, nil).Convert(context.Background(), []byte("VSD"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Page", "Page-2"}, res.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertImageFailuresAreNotFatal(t *testing.T) {
	failing := metafile.Func(func(context.Context, []byte, metafile.Options) (string, error) {
		return "", errors.New("bad emf")
	})
	dec := &fakeDecoder{pages: []fakePage{{"Main", emfPage}}}
	res, err := NewRunner(dec, failing, nil, nil, nil).Convert(context.Background(), []byte("VSD"), Options{Indent: -1})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := posttreat.Report{Images: 1, Replaced: 1, ConversionFailures: 1}
	if diff := cmp.Diff(want, res.Stats.Images); diff != "" {
		t.Errorf("image stats mismatch (-want +got):\n%s", diff)
	}
	if string(res.Pages[0].SVG) != `<svg><g transform=" translate(10.0,20.0)  "/></svg>` {
		t.Errorf("page = %s", res.Pages[0].SVG)
	}
}

func TestConvertCaching(t *testing.T) {
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dec := &fakeDecoder{pages: []fakePage{{"Main", emfPage}}}
	r := NewRunner(dec, rect, store, nil, nil)
	ctx := context.Background()

	first, err := r.Convert(ctx, []byte("VSD"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first conversion should miss the cache")
	}

	second, err := r.Convert(ctx, []byte("VSD"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second conversion should hit the cache")
	}
	if dec.calls != 1 {
		t.Errorf("decoder called %d times, want 1", dec.calls)
	}
	if diff := cmp.Diff(first.Pages, second.Pages); diff != "" {
		t.Errorf("cached pages mismatch (-want +got):\n%s", diff)
	}

	// other options are a different entry
	if _, err := r.Convert(ctx, []byte("VSD"), Options{Indent: 4}); err != nil {
		t.Fatal(err)
	}
	if dec.calls != 2 {
		t.Errorf("decoder called %d times, want 2", dec.calls)
	}

	// refresh bypasses the cache
	third, err := r.Convert(ctx, []byte("VSD"), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit || dec.calls != 3 {
		t.Errorf("refresh: hit %v, calls %d", third.CacheHit, dec.calls)
	}
}
