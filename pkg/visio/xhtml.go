package visio

import (
	"bytes"
	"errors"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Namespaces declared on every page split out of an XHTML document.
const (
	NamespaceSVG   = "http://www.w3.org/2000/svg"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
)

// SplitXHTML returns every outermost svg element of an XHTML document as a
// standalone SVG document. The namespace declarations the elements inherit
// from the XHTML root are added to each page. Malformed input is read up to
// the first error.
func SplitXHTML(xhtml []byte) ([][]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Permissive:    true,
		CharsetReader: charset.NewReaderLabel,
	}
	// a truncated document still yields the pages read before the damage
	err := doc.ReadFromBytes(xhtml)
	root := doc.Root()
	if root == nil {
		if err == nil {
			err = errors.New("no root element")
		}
		return nil, err
	}

	var svgs []*etree.Element
	collectSVG(root, &svgs)

	pages := make([][]byte, 0, len(svgs))
	for _, el := range svgs {
		page := etree.NewDocument()
		svg := el.Copy()
		declare(svg, "xmlns", NamespaceSVG)
		declare(svg, "xmlns:svg", NamespaceSVG)
		declare(svg, "xmlns:xlink", NamespaceXLink)
		page.SetRoot(svg)

		var buf bytes.Buffer
		if _, err := page.WriteTo(&buf); err != nil {
			return nil, err
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

func collectSVG(el *etree.Element, out *[]*etree.Element) {
	if el.Tag == "svg" {
		*out = append(*out, el)
		return
	}
	for _, child := range el.ChildElements() {
		collectSVG(child, out)
	}
}

func declare(el *etree.Element, key, value string) {
	if el.SelectAttr(key) == nil {
		el.CreateAttr(key, value)
	}
}
