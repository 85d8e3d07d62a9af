// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/jabber/internal/attr"
	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/jid"
)

// Is tests whether name is a valid client stanza based on name and space.
// Stanzas written without an explicit namespace are accepted as well since
// they inherit the stream's default namespace.
func Is(name xml.Name) bool {
	return (name.Local == "iq" || name.Local == "message" || name.Local == "presence") &&
		(name.Space == ns.Client || name.Space == "")
}

// header is the set of attributes common to all stanzas.
type header struct {
	id   string
	to   jid.JID
	from jid.JID
	lang string
	typ  string
}

func (h header) start(local string) xml.StartElement {
	a := make([]xml.Attr, 0, 5)
	a = attr.Append(a, "id", h.id)
	if !h.to.IsZero() {
		a = append(a, xml.Attr{Name: xml.Name{Local: "to"}, Value: h.to.String()})
	}
	if !h.from.IsZero() {
		a = append(a, xml.Attr{Name: xml.Name{Local: "from"}, Value: h.from.String()})
	}
	if h.lang != "" {
		a = append(a, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: h.lang})
	}
	a = attr.Append(a, "type", h.typ)
	return xml.StartElement{Name: xml.Name{Local: local}, Attr: a}
}

// parseHeader reads the common attributes of start.
// Unparsable addresses are an error since replies could not be routed.
func parseHeader(start xml.StartElement) (header, error) {
	var h header
	for _, a := range start.Attr {
		var err error
		switch {
		case a.Name.Local == "id" && a.Name.Space == "":
			h.id = a.Value
		case a.Name.Local == "to" && a.Name.Space == "":
			err = h.to.UnmarshalXMLAttr(a)
		case a.Name.Local == "from" && a.Name.Space == "":
			err = h.from.UnmarshalXMLAttr(a)
		case a.Name.Local == "lang" && (a.Name.Space == ns.XML || a.Name.Space == "xml"):
			h.lang = a.Value
		case a.Name.Local == "type" && a.Name.Space == "":
			h.typ = a.Value
		}
		if err != nil {
			return h, err
		}
	}
	return h, nil
}
