// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"
	"io"
	"strings"

	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/attr"
)

// Element is a top level element read from the stream.
// The inner tokens are copied so an Element remains valid after the decoder
// has moved on, and it may be replayed any number of times.
type Element struct {
	Start xml.StartElement
	inner []xml.Token
}

// Name returns the qualified name of the element.
func (e Element) Name() xml.Name {
	return e.Start.Name
}

// Attr returns the value of the first unqualified attribute with the given
// local name, or the empty string.
func (e Element) Attr(local string) string {
	return attr.Get(e.Start.Attr, local)
}

// TokenReader returns a reader over the entire element, including its start
// and end tokens.
func (e Element) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(e.Inner(), e.Start)
}

// Inner returns a reader over the tokens between the start and end element.
func (e Element) Inner() xml.TokenReader {
	toks := e.inner
	return xmlstream.ReaderFunc(func() (xml.Token, error) {
		if len(toks) == 0 {
			return nil, io.EOF
		}
		t := toks[0]
		toks = toks[1:]
		return xml.CopyToken(t), nil
	})
}

// Decode unmarshals the element into v as xml.Unmarshal would.
func (e Element) Decode(v interface{}) error {
	return xml.NewTokenDecoder(e.TokenReader()).Decode(v)
}

// Children returns the direct child elements of e in document order.
func (e Element) Children() []Element {
	var children []Element
	depth := 0
	var cur *Element
	for _, tok := range e.inner {
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				children = append(children, Element{Start: t})
				cur = &children[len(children)-1]
				continue
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				cur = nil
				continue
			}
		}
		if cur != nil {
			cur.inner = append(cur.inner, tok)
		}
	}
	return children
}

// Child returns the first direct child with the given name.
// An empty namespace in name matches any namespace.
func (e Element) Child(name xml.Name) (Element, bool) {
	for _, c := range e.Children() {
		if c.Start.Name.Local == name.Local && (name.Space == "" || c.Start.Name.Space == name.Space) {
			return c, true
		}
	}
	return Element{}, false
}

// Text returns the character data directly inside e with surrounding
// whitespace removed.
func (e Element) Text() string {
	var b strings.Builder
	depth := 0
	for _, tok := range e.inner {
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// readElement consumes tokens from r up to and including the end element
// matching start.
func readElement(r xml.TokenReader, start xml.StartElement) (Element, error) {
	el := Element{Start: start.Copy()}
	inner := xmlstream.Inner(r)
	for {
		tok, err := inner.Token()
		if tok != nil {
			el.inner = append(el.inner, xml.CopyToken(tok))
		}
		switch err {
		case nil:
		case io.EOF:
			return el, nil
		default:
			return el, err
		}
	}
}
