// Package datauri recognises and decodes the base64 data URIs that SVG
// generators use to embed EMF metafiles in image elements.
//
// Unlike encoding/base64, [Decode] skips whitespace, stops at the first
// '=' and never produces more bytes than the caller allows.
package datauri

import (
	"errors"
	"strings"
)

// ErrNotEMF is returned by [DecodeEMF] for hrefs without the EMF prefix.
var ErrNotEMF = errors.New("not an EMF data URI")

// EMFPrefix is the data URI prefix of an embedded EMF metafile.
const EMFPrefix = "data:image/emf;base64,"

// IsEMF reports whether href is an embedded EMF data URI.
func IsEMF(href string) bool {
	return strings.HasPrefix(href, EMFPrefix)
}

// EMFPayload returns the base64 segment of an EMF data URI and whether href
// carried the EMF prefix at all.
func EMFPayload(href string) (string, bool) {
	return strings.CutPrefix(href, EMFPrefix)
}

// DecodeEMF decodes the payload of an EMF data URI.
//
// The output capacity is the length of the encoded segment, which always
// covers the decoded size. Partial output is returned together with any
// decode error.
func DecodeEMF(href string) ([]byte, error) {
	payload, ok := EMFPayload(href)
	if !ok {
		return nil, ErrNotEMF
	}
	return Decode([]byte(payload), len(payload))
}
