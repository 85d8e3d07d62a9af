// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ping implements XEP-0199: XMPP Ping.
package ping // import "mellium.im/jabber/ping"

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabber"
	"mellium.im/jabber/jid"
	"mellium.im/jabber/stanza"
)

// NS is the XML namespace used by XMPP pings. It is provided as a convenience.
const NS = `urn:xmpp:ping`

func payload() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NS, Local: "ping"}})
}

// IQ returns a ping request addressed to to.
func IQ(id string, to jid.JID) xml.TokenReader {
	iq := stanza.IQ{ID: id, To: to, Type: stanza.GetIQ}
	return iq.Wrap(payload())
}

// Handle registers a handler on c that answers pings and returns a function
// that removes it.
func Handle(c *jabber.Client) (remove func()) {
	return c.RegisterIQHandler(NS, jabber.IQHandlerFunc(func(iq stanza.IQ, _ jabber.Element) bool {
		if iq.Type != stanza.GetIQ {
			return false
		}
		if err := c.Send(iq.Result(nil)); err != nil {
			c.Logger().WithError(err).WithField("id", iq.ID).Warn("ping: error answering ping")
		}
		return true
	}))
}

// Send pings to and calls f with the result once the reply arrives.
// The error passed to f is nil if the entity replied with a result, and the
// stanza error it replied with otherwise.
// If the client disconnects before a reply arrives f is never called.
func Send(ctx context.Context, c *jabber.Client, to jid.JID, f func(error)) (string, error) {
	iq := stanza.IQ{To: to, Type: stanza.GetIQ}
	return c.SendIQ(ctx, iq, payload(), jabber.IQIDHandlerFunc(func(reply stanza.IQ, el jabber.Element, _ interface{}) bool {
		if reply.Type == stanza.ResultIQ {
			f(nil)
			return true
		}
		var se stanza.Error
		if e, ok := el.Child(xml.Name{Local: "error"}); ok {
			if err := e.Decode(&se); err != nil {
				c.Logger().WithError(err).WithField("id", reply.ID).Warn("ping: malformed error reply")
			}
		}
		f(se)
		return true
	}), nil)
}
