package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/visio2svg/pkg/pipeline"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
)

func TestFileNames(t *testing.T) {
	pages := []pipeline.Page{{Name: "a/b"}, {Name: "a:b"}, {Name: ".."}, {Name: "Plan"}}
	want := []string{"a_b", "a_b-2", "page", "Plan"}
	if diff := cmp.Diff(want, fileNames(pages)); diff != "" {
		t.Errorf("fileNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputDir(t *testing.T) {
	tests := []struct {
		input, output string
		inputs        int
		want          string
	}{
		{"docs/plan.vsd", "", 1, "plan"},
		{"docs/plan.vsd", "out", 1, "out"},
		{"docs/plan.vsd", "out", 2, filepath.Join("out", "plan")},
		{"shapes.vssx", "", 3, "shapes"},
	}
	for _, tt := range tests {
		if got := outputDir(tt.input, tt.output, tt.inputs); got != tt.want {
			t.Errorf("outputDir(%q, %q, %d) = %q, want %q", tt.input, tt.output, tt.inputs, got, tt.want)
		}
	}
}

func TestIndentFlag(t *testing.T) {
	c := New(io.Discard, LogInfo)
	tests := []struct {
		flag, config, want int
	}{
		{-1, 2, 2},
		{-1, 0, -1},
		{0, 2, -1},
		{4, 2, 4},
	}
	for _, tt := range tests {
		c.Config.Output.Indent = tt.config
		if got := c.indentFlag(tt.flag); got != tt.want {
			t.Errorf("indentFlag(%d) with config %d = %d, want %d", tt.flag, tt.config, got, tt.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[output]\nindent = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(io.Discard, LogInfo)
	c.ConfigPath = path
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if c.Config.Output.Indent != 4 {
		t.Errorf("Indent = %d, want 4", c.Config.Output.Indent)
	}

	if err := os.WriteFile(path, []byte("[output\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.loadConfig(); err == nil {
		t.Error("loadConfig() expected error for invalid file")
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pick(pages []pipeline.Page, keys ...string) PageListModel {
	var m tea.Model = NewPageListModel(pages)
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m.(PageListModel)
}

func TestPageListModel(t *testing.T) {
	pages := []pipeline.Page{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	names := func(ps []pipeline.Page) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	tests := []struct {
		name string
		keys []string
		done bool
		want []string
	}{
		{"enter takes cursor", []string{"down", "enter"}, true, []string{"B"}},
		{"toggle", []string{" ", "down", "down", " ", "enter"}, true, []string{"A", "C"}},
		{"toggle twice", []string{" ", " ", "down", "enter"}, true, []string{"B"}},
		{"all", []string{"a", "enter"}, true, []string{"A", "B", "C"}},
		{"all then none", []string{"a", "a"}, false, []string{}},
		{"quit", []string{" ", "esc"}, false, []string{"A"}},
		{"cursor stops at end", []string{"down", "down", "down", "enter"}, true, []string{"C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := pick(pages, tt.keys...)
			if m.Done != tt.done {
				t.Errorf("Done = %v, want %v", m.Done, tt.done)
			}
			if diff := cmp.Diff(tt.want, names(m.Selected())); diff != "" {
				t.Errorf("Selected() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPageListModelView(t *testing.T) {
	m := NewPageListModel([]pipeline.Page{
		{Name: "Overview", Report: posttreat.Report{Images: 2, Replaced: 1}},
		{Name: "Detail"},
	})
	view := m.View()
	for _, want := range []string{"Select Pages", "Overview", "Detail", "1/2", "0 selected"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestNamesTable(t *testing.T) {
	out := namesTable([]string{"Overview", "Detail"}, []string{"Box"})
	for _, want := range []string{"Page", "Stencil", "Overview", "Detail", "Box"} {
		if !strings.Contains(out, want) {
			t.Errorf("namesTable() missing %q:\n%s", want, out)
		}
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const fakeVSD2XHTML = `cat <<'EOF'
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<svg xmlns="http://www.w3.org/2000/svg"><image x="10" y="20" width="5" height="5" href="data:image/emf;base64,AAAA"/></svg>
<svg xmlns="http://www.w3.org/2000/svg"><circle r="1"/></svg>
</body></html>
EOF`

// writes "<rect/>" to the path following -o
const fakeEMF2SVG = `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then printf '<rect/>' > "$2"; fi
  shift
done`

// setupTools writes fake conversion tools and a config using them.
func setupTools(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	vsd := writeScript(t, dir, "vsd2xhtml", fakeVSD2XHTML)
	emf := writeScript(t, dir, "emf2svg-conv", fakeEMF2SVG)

	cfg := fmt.Sprintf("[tools]\nvsd2xhtml = %q\nemf2svg = %q\n\n[cache]\nbackend = \"none\"\n", vsd, emf)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func visioDocument(t *testing.T, dir, name string) string {
	t.Helper()
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 504)...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestConvertCommand(t *testing.T) {
	cfg := setupTools(t)
	work := t.TempDir()
	doc := visioDocument(t, work, "plan.vsd")
	out := filepath.Join(work, "out")

	if err := execute(t, "--config", cfg, "convert", "--indent", "0", "-o", out, doc); err != nil {
		t.Fatalf("convert error: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(out, "Page-1.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(first, []byte(`<g transform=" translate(10.0,20.0)  "><rect/></g>`)) {
		t.Errorf("Page-1.svg = %s", first)
	}
	if bytes.Contains(first, []byte("data:image/emf")) {
		t.Errorf("Page-1.svg still embeds the metafile: %s", first)
	}
	if _, err := os.Stat(filepath.Join(out, "Page-2.svg")); err != nil {
		t.Errorf("Page-2.svg: %v", err)
	}
}

func TestConvertCommandBatch(t *testing.T) {
	cfg := setupTools(t)
	work := t.TempDir()
	a := visioDocument(t, work, "a.vsd")
	b := visioDocument(t, work, "b.vsd")
	out := filepath.Join(work, "out")

	if err := execute(t, "--config", cfg, "convert", "-j", "2", "-p", "Page-2", "-o", out, a, b); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	for _, dir := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(out, dir, "Page-2.svg")); err != nil {
			t.Errorf("%s/Page-2.svg: %v", dir, err)
		}
		if _, err := os.Stat(filepath.Join(out, dir, "Page-1.svg")); err == nil {
			t.Errorf("%s/Page-1.svg written despite --page", dir)
		}
	}
}

func TestConvertCommandErrors(t *testing.T) {
	cfg := setupTools(t)
	work := t.TempDir()
	doc := visioDocument(t, work, "plan.vsd")
	text := filepath.Join(work, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no args", []string{"convert"}},
		{"missing file", []string{"convert", filepath.Join(work, "missing.vsd")}},
		{"unsupported", []string{"convert", "-o", work, text}},
		{"unknown page", []string{"convert", "-o", work, "-p", "Nope", doc}},
		{"invalid page", []string{"convert", "-o", work, "-p", "../x", doc}},
		{"select many", []string{"convert", "--select", doc, doc}},
		{"zero jobs", []string{"convert", "-j", "0", doc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfg}, tt.args...)
			if err := execute(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPostTreatCommand(t *testing.T) {
	cfg := setupTools(t)
	work := t.TempDir()
	in := filepath.Join(work, "page.svg")
	page := `<svg><image x="1" y="2" width="5" height="5" href="data:image/emf;base64,AAAA"/></svg>`
	if err := os.WriteFile(in, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(work, "treated.svg")

	if err := execute(t, "--config", cfg, "posttreat", "--indent", "0", "-o", out, in); err != nil {
		t.Fatalf("posttreat error: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `<svg><g transform=" translate(1.0,2.0)  "><rect/></g></svg>`
	if string(got) != want {
		t.Errorf("output = %s, want %s", got, want)
	}
}

func TestPostTreatStdin(t *testing.T) {
	cfg := setupTools(t)
	c := New(io.Discard, LogInfo)
	c.ConfigPath = cfg
	if err := c.loadConfig(); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	stdin := strings.NewReader(`<svg><a/></svg>`)
	err := c.runPostTreat(context.Background(), "-", stdin, &stdout, postTreatOpts{indent: 0, noCache: true})
	if err != nil {
		t.Fatalf("runPostTreat() error: %v", err)
	}
	if stdout.String() != "<svg><a/></svg>" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	c := New(io.Discard, LogInfo)
	dir, err := c.fileCacheDir()
	if err != nil {
		t.Fatalf("fileCacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg-cache", appName); dir != want {
		t.Errorf("fileCacheDir() = %q, want %q", dir, want)
	}

	c.Config.Cache.Backend = "redis"
	if _, err := c.fileCacheDir(); err == nil {
		t.Error("fileCacheDir() expected error for redis backend")
	}
}
