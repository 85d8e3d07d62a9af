// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/stanza"
)

// establishSession sends the session request of RFC 3921 §3.
func (c *Client) establishSession() {
	iq := stanza.IQ{ID: sessionID, Type: stanza.SetIQ}
	c.log.Debug("jabber: establishing session")
	if c.sendControl(iq.Wrap(xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: ns.Session, Local: "session"},
	}))) {
		c.setNeg(establishingSession)
	}
}

func (c *Client) handleSession(el Element) bool {
	iq, se, ok := c.replyIQ(el, sessionID)
	if !ok {
		return false
	}
	if iq.Type == stanza.ErrorIQ {
		reason := sessionError(se)
		c.log.WithField("condition", string(se.Condition)).Error("jabber: session establishment failed")
		c.listeners.each(nil, func(h interface{}) {
			h.(ConnectionListener).OnSessionCreateError(reason)
		})
		c.disconnect(ConnSessionCreateFailed, se)
		return true
	}
	c.ready()
	return true
}
