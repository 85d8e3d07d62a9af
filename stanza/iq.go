// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"

	"mellium.im/jabber/jid"
)

// IQType is the type of an IQ stanza.
// It should normally be one of the constants defined in this package.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// ErrUnknownIQType is returned when an IQ carries a type other than get, set,
// result, or error.
var ErrUnknownIQType = errors.New("stanza: unknown IQ type")

// MarshalText ensures that the default value for IQType is marshaled to XML as
// a valid IQ get request.
// It satisfies the encoding.TextMarshaler interface for IQType.
func (t IQType) MarshalText() ([]byte, error) {
	if t == "" {
		t = GetIQ
	}
	return []byte(t), nil
}

// IsRequest reports whether the type requires a reply.
func (t IQType) IsRequest() bool {
	return t == GetIQ || t == SetIQ || t == ""
}

// IQ ("Information Query") is used as a general request response mechanism.
// IQ's are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	ID   string
	To   jid.JID
	From jid.JID
	Lang string
	Type IQType
}

// NewIQ reads the header of an IQ from its start element.
func NewIQ(start xml.StartElement) (IQ, error) {
	h, err := parseHeader(start)
	if err != nil {
		return IQ{}, err
	}
	iq := IQ{ID: h.id, To: h.to, From: h.from, Lang: h.lang, Type: IQType(h.typ)}
	switch iq.Type {
	case GetIQ, SetIQ, ResultIQ, ErrorIQ:
	default:
		return iq, ErrUnknownIQType
	}
	return iq, nil
}

// StartElement converts the IQ into an XML token.
func (iq IQ) StartElement() xml.StartElement {
	typ, _ := iq.Type.MarshalText()
	return header{id: iq.ID, to: iq.To, from: iq.From, lang: iq.Lang, typ: string(typ)}.start("iq")
}

// Wrap wraps the payload in a stanza.
//
// If to is the zero value for jid.JID, no to attribute is set on the resulting
// IQ.
func (iq IQ) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.StartElement())
}

// Result returns a token reader for a result reply to iq with the given
// payload.
// The reply is addressed to the original sender and has its addresses
// swapped.
func (iq IQ) Result(payload xml.TokenReader) xml.TokenReader {
	iq.Type = ResultIQ
	iq.From, iq.To = iq.To, iq.From
	return iq.Wrap(payload)
}

// Error returns a token reader for an error reply to iq.
func (iq IQ) Error(err Error) xml.TokenReader {
	iq.Type = ErrorIQ
	iq.From, iq.To = iq.To, iq.From
	return iq.Wrap(err.TokenReader())
}
