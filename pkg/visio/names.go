package visio

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Part names holding page and master names in a VSDX package.
const (
	pagesPart   = "visio/pages/pages.xml"
	mastersPart = "visio/masters/masters.xml"
)

type vsdxPages struct {
	Pages []vsdxSheet `xml:"Page"`
}

type vsdxMasters struct {
	Masters []vsdxSheet `xml:"Master"`
}

type vsdxSheet struct {
	ID         string `xml:"ID,attr"`
	Name       string `xml:"Name,attr"`
	NameU      string `xml:"NameU,attr"`
	Background string `xml:"Background,attr"`
}

func (s vsdxSheet) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.NameU
}

// PackageNames returns the names of the drawing pages (or stencil masters)
// of a VSDX package in document order. Background pages are skipped since
// they are drawn as part of the foreground pages that use them.
func PackageNames(data []byte, stencils bool) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	part := pagesPart
	if stencils {
		part = mastersPart
	}
	raw, err := readPart(zr, part)
	if err != nil {
		return nil, err
	}

	var names []string
	if stencils {
		var m vsdxMasters
		if err := xml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", part, err)
		}
		for _, s := range m.Masters {
			names = append(names, s.name())
		}
		return names, nil
	}

	var p vsdxPages
	if err := xml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", part, err)
	}
	for _, s := range p.Pages {
		if s.Background == "1" {
			continue
		}
		names = append(names, s.name())
	}
	return names, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s: not in package", name)
}
