// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"github.com/pkg/errors"
	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/jid"
	"mellium.im/jabber/stanza"
)

// Fixed ids of the resource binding and session establishment requests.
const (
	bindID    = "bind"
	sessionID = "session"
)

func (c *Client) bind() {
	var payload xml.TokenReader
	if res := c.cfg.JID.Resourcepart(); res != "" {
		payload = textElement("resource", res)
	}
	iq := stanza.IQ{ID: bindID, Type: stanza.SetIQ}
	c.log.Debug("jabber: binding resource")
	if c.sendControl(iq.Wrap(xmlstream.Wrap(payload, xml.StartElement{
		Name: xml.Name{Space: ns.Bind, Local: "bind"},
	}))) {
		c.setNeg(bindingResource)
	}
}

// replyIQ returns the IQ header and stanza error of a reply with the given id.
func (c *Client) replyIQ(el Element, id string) (iq stanza.IQ, se stanza.Error, ok bool) {
	if el.Start.Name.Local != "iq" || el.Attr("id") != id {
		return iq, se, false
	}
	iq, err := stanza.NewIQ(el.Start)
	if err != nil || !(iq.Type == stanza.ResultIQ || iq.Type == stanza.ErrorIQ) {
		return iq, se, false
	}
	if iq.Type == stanza.ErrorIQ {
		if e, found := el.Child(xml.Name{Local: "error"}); found {
			// A malformed error is reported as an unknown condition.
			if err := e.Decode(&se); err != nil {
				c.log.WithError(err).WithField("id", id).Warn("jabber: malformed stanza error")
			}
		}
	}
	return iq, se, true
}

func (c *Client) handleBind(el Element) bool {
	iq, se, ok := c.replyIQ(el, bindID)
	if !ok {
		return false
	}
	if iq.Type == stanza.ErrorIQ {
		reason := bindError(se)
		c.log.WithField("condition", string(se.Condition)).Error("jabber: resource binding failed")
		c.listeners.each(nil, func(h interface{}) {
			h.(ConnectionListener).OnResourceBindError(reason)
		})
		c.disconnect(ConnResourceBindFailed, se)
		return true
	}

	var reply struct {
		JID jid.JID `xml:"urn:ietf:params:xml:ns:xmpp-bind bind>jid"`
	}
	if err := el.Decode(&reply); err != nil || reply.JID.IsZero() {
		if err == nil {
			err = errors.New("jabber: bind result did not contain an address")
		}
		c.listeners.each(nil, func(h interface{}) {
			h.(ConnectionListener).OnResourceBindError(RbErrorUnknownError)
		})
		c.disconnect(ConnResourceBindFailed, errors.Wrap(err, "jabber: decoding bind result"))
		return true
	}
	c.mu.Lock()
	c.jid = reply.JID
	features := c.features
	c.mu.Unlock()
	c.log.WithField("jid", reply.JID.String()).Debug("jabber: resource bound")

	if features.Has(Session) && !features.Has(SessionOptional) {
		c.establishSession()
		return true
	}
	c.ready()
	return true
}
