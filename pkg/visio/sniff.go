package visio

import (
	"archive/zip"
	"bytes"
)

// Format identifies a Visio container format.
type Format int

const (
	// FormatUnknown is anything that is not a Visio document.
	FormatUnknown Format = iota
	// FormatBinary is the OLE2 compound file used by .vsd, .vss and .vst.
	FormatBinary
	// FormatXML is the OPC package used by .vsdx, .vssx and .vstx.
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatXML:
		return "xml"
	}
	return "unknown"
}

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// Sniff detects the container format of data. A ZIP archive only counts as
// a Visio document when it holds visio/document.xml.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, oleMagic):
		return FormatBinary
	case bytes.HasPrefix(data, zipMagic):
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return FormatUnknown
		}
		for _, f := range zr.File {
			if f.Name == "visio/document.xml" {
				return FormatXML
			}
		}
	}
	return FormatUnknown
}
