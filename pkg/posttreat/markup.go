package posttreat

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
)

var errInvalidUTF8 = errors.New("invalid UTF-8, read as Windows-1252")

// parseRecoverable reads markup into a document.
//
// Well-formed markup is read as it is. Bytes that are not UTF-8, in a
// document that does not declare another encoding, are read as Windows-1252.
// Markup that still does not parse is repaired: a '<' that starts no tag is
// escaped, end tags without a matching open element are dropped and elements
// left open are closed where their parent ends. damage describes the first
// problem found when either step changed the input. A non-nil err means the
// repaired markup could not be read completely either; doc then holds what
// was read up to that point.
//
// Whitespace-only text between elements is dropped.
func parseRecoverable(markup []byte) (doc *etree.Document, damage, err error) {
	if !utf8.Valid(markup) && declaresUTF8(markup) {
		markup = windows1252Fallback(markup)
		damage = errInvalidUTF8
	}
	doc, err = readMarkup(markup)
	if err == nil {
		return doc, damage, nil
	}
	if damage == nil {
		damage = err
	}
	doc, err = readMarkup(repair(markup))
	return doc, damage, err
}

func readMarkup(markup []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Permissive:    true,
		CharsetReader: charset.NewReaderLabel,
	}
	err := doc.ReadFromBytes(markup)
	if root := doc.Root(); root != nil {
		stripBlanks(root)
	}
	return doc, err
}

// declaresUTF8 reports whether markup is meant to be UTF-8: its XML
// declaration names no encoding, names UTF-8, or is missing.
func declaresUTF8(markup []byte) bool {
	enc := declaredEncoding(markup)
	return enc == "" || strings.EqualFold(enc, "utf-8") || strings.EqualFold(enc, "utf8")
}

func declaredEncoding(markup []byte) string {
	const space = " \t\r\n"
	s := bytes.TrimLeft(markup, "\ufeff"+space)
	if !bytes.HasPrefix(s, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(s, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := s[:end]
	i := bytes.Index(decl, []byte("encoding"))
	if i < 0 {
		return ""
	}
	rest := bytes.TrimLeft(decl[i+len("encoding"):], space)
	if len(rest) == 0 || rest[0] != '=' {
		return ""
	}
	rest = bytes.TrimLeft(rest[1:], space)
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	j := bytes.IndexByte(rest[1:], rest[0])
	if j < 0 {
		return ""
	}
	return string(rest[1 : j+1])
}

// windows1252Fallback keeps every valid UTF-8 sequence of markup and reads
// each remaining byte as Windows-1252.
func windows1252Fallback(markup []byte) []byte {
	out := make([]byte, 0, len(markup)+len(markup)/8)
	for len(markup) > 0 {
		r, size := utf8.DecodeRune(markup)
		if r == utf8.RuneError && size == 1 {
			r = charmap.Windows1252.DecodeByte(markup[0])
		}
		out = utf8.AppendRune(out, r)
		markup = markup[size:]
	}
	return out
}

var (
	cdataStart   = []byte("<![CDATA[")
	cdataEnd     = []byte("]]>")
	commentStart = []byte("<!--")
	commentEnd   = []byte("-->")
)

// repair rewrites damaged markup into a form the XML reader accepts. It
// relies on the lenient HTML tokenizer to find tags and copies each token's
// raw bytes, so names, attribute case and quoting stay as they were.
func repair(markup []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(markup))
	z.AllowCDATA(true)

	var out bytes.Buffer
	var open []string
	for {
		tt := z.Next()
		raw := z.Raw()
		switch tt {
		case html.ErrorToken:
			// a tag cut off by the end of input is dropped
			for i := len(open) - 1; i >= 0; i-- {
				writeEndTag(&out, open[i])
			}
			return out.Bytes()

		case html.TextToken:
			if bytes.HasPrefix(raw, cdataStart) {
				out.Write(raw)
				if !bytes.HasSuffix(raw, cdataEnd) {
					out.Write(cdataEnd)
				}
				continue
			}
			out.Write(bytes.ReplaceAll(raw, []byte("<"), []byte("&lt;")))

		case html.StartTagToken:
			// SVG title, style and script hold markup, not HTML raw text
			z.NextIsNotRawText()
			open = append(open, tagName(raw))
			out.Write(raw)

		case html.SelfClosingTagToken:
			out.Write(raw)

		case html.EndTagToken:
			name := tagName(raw)
			i := len(open) - 1
			for i >= 0 && open[i] != name {
				i--
			}
			if i < 0 {
				continue
			}
			for j := len(open) - 1; j >= i; j-- {
				writeEndTag(&out, open[j])
			}
			open = open[:i]

		case html.DoctypeToken:
			out.Write(raw)

		case html.CommentToken:
			switch {
			case bytes.HasPrefix(raw, commentStart):
				out.Write(raw)
				if !bytes.HasSuffix(raw, commentEnd) {
					out.Write(commentEnd)
				}
			case bytes.HasPrefix(raw, []byte("<?")):
				out.Write(raw)
			}
		}
	}
}

// tagName returns the name of a raw start or end tag, case preserved.
func tagName(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte("<"))
	raw = bytes.TrimPrefix(raw, []byte("/"))
	end := bytes.IndexAny(raw, " \t\r\n\f/>")
	if end >= 0 {
		raw = raw[:end]
	}
	return string(raw)
}

func writeEndTag(out *bytes.Buffer, name string) {
	out.WriteString("</")
	out.WriteString(name)
	out.WriteByte('>')
}

// stripBlanks removes whitespace-only text from elements whose content is
// made of elements only. Text in mixed content and in text-only elements
// is significant and stays.
func stripBlanks(e *etree.Element) {
	hasText, hasMarkup := false, false
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.CharData:
			if !t.IsWhitespace() {
				hasText = true
			}
		default:
			hasMarkup = true
		}
	}
	if !hasText && hasMarkup {
		for i := len(e.Child) - 1; i >= 0; i-- {
			if _, ok := e.Child[i].(*etree.CharData); ok {
				e.RemoveChildAt(i)
			}
		}
	}
	for _, c := range e.ChildElements() {
		stripBlanks(c)
	}
}

// serialize writes e and its subtree without an XML declaration.
//
// With indent > 0 every child of an element-only element goes on its own
// line, indented by indent spaces per level. An element holding any text
// is written exactly as it is, including its subtree.
func serialize(e *etree.Element, indent int) ([]byte, error) {
	var buf bytes.Buffer
	p := printer{w: bufio.NewWriter(&buf), indent: indent}
	p.element(e, 0, indent > 0)
	if err := p.w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type printer struct {
	w      *bufio.Writer
	ws     etree.WriteSettings
	indent int
}

func (p *printer) element(e *etree.Element, depth int, format bool) {
	p.w.WriteByte('<')
	p.w.WriteString(e.FullTag())
	for i := range e.Attr {
		p.w.WriteByte(' ')
		e.Attr[i].WriteTo(p.w, &p.ws)
	}
	if len(e.Child) == 0 {
		p.w.WriteString("/>")
		return
	}
	p.w.WriteByte('>')

	if format {
		for _, t := range e.Child {
			if _, ok := t.(*etree.CharData); ok {
				format = false
				break
			}
		}
	}
	for _, t := range e.Child {
		if format {
			p.newline(depth + 1)
		}
		if c, ok := t.(*etree.Element); ok {
			p.element(c, depth+1, format)
		} else {
			t.WriteTo(p.w, &p.ws)
		}
	}
	if format {
		p.newline(depth)
	}

	p.w.WriteString("</")
	p.w.WriteString(e.FullTag())
	p.w.WriteByte('>')
}

func (p *printer) newline(depth int) {
	p.w.WriteByte('\n')
	p.w.WriteString(strings.Repeat(" ", depth*p.indent))
}
