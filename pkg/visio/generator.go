package visio

import "bytes"

// Generator receives the pages of a document in order.
//
// For every page a decoder calls StartPage once, Markup zero or more times
// with consecutive chunks of the page's SVG, and EndPage once.
type Generator interface {
	StartPage(name string)
	Markup(svg []byte)
	EndPage()
}

// TitleGenerator records page names and ignores markup.
type TitleGenerator struct {
	names []string
}

// StartPage records name.
func (g *TitleGenerator) StartPage(name string) { g.names = append(g.names, name) }

// Markup does nothing.
func (g *TitleGenerator) Markup([]byte) {}

// EndPage does nothing.
func (g *TitleGenerator) EndPage() {}

// Names returns the recorded names in page order.
func (g *TitleGenerator) Names() []string { return g.names }

// SVGGenerator records the markup of every page.
type SVGGenerator struct {
	pages [][]byte
	cur   bytes.Buffer
	open  bool
}

// StartPage begins a new page. An unterminated previous page is ended first.
func (g *SVGGenerator) StartPage(string) {
	if g.open {
		g.EndPage()
	}
	g.cur.Reset()
	g.open = true
}

// Markup appends svg to the current page. Markup outside a page is dropped.
func (g *SVGGenerator) Markup(svg []byte) {
	if g.open {
		g.cur.Write(svg)
	}
}

// EndPage stores the current page.
func (g *SVGGenerator) EndPage() {
	if !g.open {
		return
	}
	g.pages = append(g.pages, bytes.Clone(g.cur.Bytes()))
	g.cur.Reset()
	g.open = false
}

// Pages returns the markup of every ended page in order.
func (g *SVGGenerator) Pages() [][]byte { return g.pages }

// Tee returns a Generator that forwards every event to each of gens in turn.
func Tee(gens ...Generator) Generator {
	return tee(gens)
}

type tee []Generator

func (t tee) StartPage(name string) {
	for _, g := range t {
		g.StartPage(name)
	}
}

func (t tee) Markup(svg []byte) {
	for _, g := range t {
		g.Markup(svg)
	}
}

func (t tee) EndPage() {
	for _, g := range t {
		g.EndPage()
	}
}
