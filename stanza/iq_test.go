// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"bytes"
	"encoding"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"mellium.im/xmlstream"

	"mellium.im/jabber/jid"
	"mellium.im/jabber/stanza"
)

var _ encoding.TextMarshaler = stanza.IQType("")

func encode(t *testing.T, r xml.TokenReader) string {
	t.Helper()
	b := new(bytes.Buffer)
	e := xml.NewEncoder(b)
	if _, err := xmlstream.Copy(e, r); err != nil {
		t.Fatalf("Error encoding tokens: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Error flushing: %v", err)
	}
	return b.String()
}

var pingStart = xml.StartElement{Name: xml.Name{Space: "urn:xmpp:ping", Local: "ping"}}

var iqTests = [...]struct {
	iq  stanza.IQ
	out string
}{
	0: {
		iq:  stanza.IQ{ID: "123", To: jid.MustParse("new@example.net")},
		out: `<iq id="123" to="new@example.net" type="get"></iq>`,
	},
	1: {
		iq:  stanza.IQ{ID: "bind", Type: stanza.SetIQ},
		out: `<iq id="bind" type="set"></iq>`,
	},
	2: {
		iq:  stanza.IQ{Type: stanza.ResultIQ, From: jid.MustParse("example.net"), Lang: "en"},
		out: `<iq from="example.net" xml:lang="en" type="result"></iq>`,
	},
}

func TestIQStartElement(t *testing.T) {
	for i, tc := range iqTests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			if out := encode(t, tc.iq.Wrap(nil)); out != tc.out {
				t.Errorf("Unexpected output:\nwant=%s,\n got=%s", tc.out, out)
			}
		})
	}
}

func TestIQWrapPayload(t *testing.T) {
	iq := stanza.IQ{ID: "1", To: jid.MustParse("example.net"), Type: stanza.GetIQ}
	out := encode(t, iq.Wrap(xmlstream.Wrap(nil, pingStart)))
	const want = `<iq id="1" to="example.net" type="get"><ping xmlns="urn:xmpp:ping"></ping></iq>`
	if out != want {
		t.Errorf("Unexpected output:\nwant=%s,\n got=%s", want, out)
	}
}

func TestNewIQ(t *testing.T) {
	for i, tc := range [...]struct {
		in  string
		iq  stanza.IQ
		err error
	}{
		0: {
			in: `<iq id="a" type="get" from="juliet@example.com/balcony" to="example.com"/>`,
			iq: stanza.IQ{ID: "a", Type: stanza.GetIQ, From: jid.MustParse("juliet@example.com/balcony"), To: jid.MustParse("example.com")},
		},
		1: {
			in: `<iq id="bind" type="result"/>`,
			iq: stanza.IQ{ID: "bind", Type: stanza.ResultIQ},
		},
		2: {
			in:  `<iq id="b" type="wat"/>`,
			iq:  stanza.IQ{ID: "b", Type: "wat"},
			err: stanza.ErrUnknownIQType,
		},
		3: {
			in:  `<iq id="c"/>`,
			iq:  stanza.IQ{ID: "c"},
			err: stanza.ErrUnknownIQType,
		},
	} {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			d := xml.NewDecoder(strings.NewReader(tc.in))
			tok, err := d.Token()
			if err != nil {
				t.Fatal(err)
			}
			iq, err := stanza.NewIQ(tok.(xml.StartElement))
			if err != tc.err {
				t.Fatalf("Unexpected error: want=%v, got=%v", tc.err, err)
			}
			if iq != tc.iq {
				t.Errorf("Unexpected IQ: want=%+v, got=%+v", tc.iq, iq)
			}
		})
	}
}

func TestIQResultSwapsAddresses(t *testing.T) {
	iq := stanza.IQ{
		ID:   "v1",
		Type: stanza.GetIQ,
		From: jid.MustParse("romeo@example.net/orchard"),
		To:   jid.MustParse("juliet@example.com/balcony"),
	}
	out := encode(t, iq.Result(nil))
	const want = `<iq id="v1" to="romeo@example.net/orchard" from="juliet@example.com/balcony" type="result"></iq>`
	if out != want {
		t.Errorf("Unexpected output:\nwant=%s,\n got=%s", want, out)
	}
}

func TestIQErrorReply(t *testing.T) {
	iq := stanza.IQ{ID: "X", Type: stanza.GetIQ, From: jid.MustParse("example.net")}
	out := encode(t, iq.Error(stanza.Error{Type: stanza.Cancel, Condition: stanza.ServiceUnavailable}))
	const want = `<iq id="X" to="example.net" type="error"><error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"></service-unavailable></error></iq>`
	if out != want {
		t.Errorf("Unexpected output:\nwant=%s,\n got=%s", want, out)
	}
}

func TestIsRequest(t *testing.T) {
	for typ, want := range map[stanza.IQType]bool{
		stanza.GetIQ:    true,
		stanza.SetIQ:    true,
		stanza.ResultIQ: false,
		stanza.ErrorIQ:  false,
	} {
		if got := typ.IsRequest(); got != want {
			t.Errorf("Unexpected result for %q: want=%t, got=%t", typ, want, got)
		}
	}
}
