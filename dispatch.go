// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"github.com/sirupsen/logrus"

	"mellium.im/jabber/stanza"
)

// RegisterConnectionListener adds l to the listeners notified of connection
// events and returns a function that removes it.
func (c *Client) RegisterConnectionListener(l ConnectionListener) (remove func()) {
	return c.listeners.add("", l)
}

// RegisterIQHandler registers h for IQs whose payload is in namespace ns.
// Any number of handlers may be registered for the same namespace and all of
// them are called.
func (c *Client) RegisterIQHandler(ns string, h IQHandler) (remove func()) {
	return c.iqHandlers.add(ns, h)
}

// RemoveIQHandler removes every handler registered for namespace ns.
func (c *Client) RemoveIQHandler(ns string) {
	c.iqHandlers.removeKey(ns)
}

// TrackID arranges for h to be called with context when a result or error IQ
// with the given id arrives.
// The handler is called at most once, and is forgotten if the client
// disconnects first.
// Tracking an id that is already tracked replaces the previous handler.
func (c *Client) TrackID(id string, h IQIDHandler, context interface{}) {
	c.pending.track(id, h, context)
}

// RemoveIDHandler stops tracking id.
func (c *Client) RemoveIDHandler(id string) {
	c.pending.remove(id)
}

// RegisterMessageHandler adds h to the handlers called for every message and
// returns a function that removes it.
func (c *Client) RegisterMessageHandler(h MessageHandler) (remove func()) {
	return c.msgHandlers.add("", h)
}

// RegisterPresenceHandler adds h to the handlers called for every presence
// that is not a subscription request and returns a function that removes it.
func (c *Client) RegisterPresenceHandler(h PresenceHandler) (remove func()) {
	return c.presHandlers.add("", h)
}

// RegisterSubscriptionHandler adds h to the handlers called for subscription
// presences and returns a function that removes it.
func (c *Client) RegisterSubscriptionHandler(h SubscriptionHandler) (remove func()) {
	return c.subsHandlers.add("", h)
}

// RegisterTagHandler adds h to the handlers called for top level elements
// with the given name that are not stanzas and returns a function that removes
// it.
func (c *Client) RegisterTagHandler(name xml.Name, h TagHandler) (remove func()) {
	return c.tagHandlers.add(name.Space+" "+name.Local, h)
}

func (c *Client) dispatch(el Element) {
	name := el.Start.Name
	if !stanza.Is(name) {
		c.dispatchTag(el)
		return
	}
	switch name.Local {
	case "iq":
		c.dispatchIQ(el)
	case "message":
		msg, err := stanza.NewMessage(el.Start)
		if err != nil {
			c.log.WithError(err).Warn("jabber: dropping malformed message")
			return
		}
		c.msgHandlers.each(nil, func(h interface{}) {
			h.(MessageHandler).HandleMessage(msg, el)
		})
	case "presence":
		p, err := stanza.NewPresence(el.Start)
		if err != nil {
			c.log.WithError(err).Warn("jabber: dropping malformed presence")
			return
		}
		if p.Type.IsSubscription() {
			c.subsHandlers.each(nil, func(h interface{}) {
				h.(SubscriptionHandler).HandleSubscription(p, el)
			})
			return
		}
		c.presHandlers.each(nil, func(h interface{}) {
			h.(PresenceHandler).HandlePresence(p, el)
		})
	}
}

func (c *Client) dispatchTag(el Element) {
	key := el.Start.Name.Space + " " + el.Start.Name.Local
	handled := false
	c.tagHandlers.each(func(k string) bool { return k == key }, func(h interface{}) {
		handled = true
		h.(TagHandler).HandleTag(el)
	})
	if !handled {
		c.log.WithFields(logrus.Fields{
			"name":  el.Start.Name.Local,
			"space": el.Start.Name.Space,
		}).Debug("jabber: dropping unhandled element")
	}
}

// payloadNamespaces returns the namespaces of the direct children of el.
func payloadNamespaces(el Element) map[string]struct{} {
	spaces := make(map[string]struct{})
	for _, child := range el.Children() {
		spaces[child.Start.Name.Space] = struct{}{}
	}
	return spaces
}

// dispatchIQ delivers an IQ to the handler tracking its id, then to every
// handler registered for the namespace of its payload.
// A get or set that no handler claims is answered with service-unavailable.
func (c *Client) dispatchIQ(el Element) {
	iq, err := stanza.NewIQ(el.Start)
	if err != nil {
		c.log.WithError(err).Warn("jabber: dropping malformed iq")
		return
	}

	handled := false
	if !iq.Type.IsRequest() {
		if p, ok := c.pending.take(iq.ID); ok {
			handled = p.h.HandleIQID(iq, el, p.context)
		}
	}

	spaces := payloadNamespaces(el)
	c.iqHandlers.each(func(ns string) bool {
		_, ok := spaces[ns]
		return ok
	}, func(h interface{}) {
		if h.(IQHandler).HandleIQ(iq, el) {
			handled = true
		}
	})

	if handled || !iq.Type.IsRequest() {
		return
	}
	c.log.WithFields(logrus.Fields{
		"id":   iq.ID,
		"from": iq.From.String(),
	}).Debug("jabber: replying to unhandled iq")
	reply := stanza.IQ{ID: iq.ID, To: iq.From, Type: stanza.ErrorIQ}
	err = c.Send(reply.Wrap(stanza.Error{
		Type:      stanza.Cancel,
		Condition: stanza.ServiceUnavailable,
	}.TokenReader()))
	if err != nil {
		c.log.WithError(err).Warn("jabber: error replying to unhandled iq")
	}
}
