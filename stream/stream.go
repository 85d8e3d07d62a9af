// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"

	"mellium.im/jabber/internal/decl"
	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/jid"
)

// Info contains metadata extracted from a stream start token.
type Info struct {
	Name    xml.Name
	XMLNS   string
	To      jid.JID
	From    jid.JID
	ID      string
	Version Version
	Lang    string
}

// FromStartElement sets the data in Info from the provided StartElement.
// The returned errors are always stream errors.
func (i *Info) FromStartElement(s xml.StartElement) error {
	if s.Name.Local != "stream" || s.Name.Space != NS {
		return InvalidNamespace
	}
	i.Name = s.Name
	for _, attr := range s.Attr {
		switch attr.Name {
		case xml.Name{Local: "to"}:
			if err := (&i.To).UnmarshalXMLAttr(attr); err != nil {
				return ImproperAddressing
			}
		case xml.Name{Local: "from"}:
			if err := (&i.From).UnmarshalXMLAttr(attr); err != nil {
				return ImproperAddressing
			}
		case xml.Name{Local: "id"}:
			i.ID = attr.Value
		case xml.Name{Local: "version"}:
			if err := (&i.Version).UnmarshalXMLAttr(attr); err != nil {
				return BadFormat
			}
		case xml.Name{Local: "xmlns"}:
			if attr.Value != ns.Client {
				return InvalidNamespace
			}
			i.XMLNS = attr.Value
		case xml.Name{Space: "xmlns", Local: "stream"}:
			if attr.Value != NS {
				return InvalidNamespace
			}
		case xml.Name{Space: "xml", Local: "lang"}, xml.Name{Space: ns.XML, Local: "lang"}:
			i.Lang = attr.Value
		}
	}
	return nil
}

// Send writes an XML declaration followed by a client stream header to w.
// Go's xml.Encoder cannot produce the prefixed stream:stream element so the
// header is printed directly.
func Send(w io.Writer, to jid.JID, lang string) error {
	b := bufio.NewWriter(w)
	_, err := fmt.Fprintf(b,
		decl.XMLHeader+`<stream:stream to='%s' xmlns='%s' xmlns:stream='%s' `,
		to.Domainpart(), ns.Client, NS,
	)
	if err != nil {
		return err
	}
	if lang != "" {
		if _, err = b.WriteString("xml:lang='"); err != nil {
			return err
		}
		if err = xml.EscapeText(b, []byte(lang)); err != nil {
			return err
		}
		if _, err = b.WriteString("' "); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(b, "version='%s'>", DefaultVersion); err != nil {
		return err
	}
	return b.Flush()
}

// Close writes the closing stream tag to w.
func Close(w io.Writer) error {
	_, err := io.WriteString(w, "</stream:stream>")
	return err
}
