// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"mellium.im/jabber/stanza"
)

// IQHandler responds to IQ stanzas carrying a payload in a registered
// namespace.
//
// HandleIQ reports whether the handler took care of the IQ.
// A get or set IQ that no handler took care of is answered with an error.
type IQHandler interface {
	HandleIQ(iq stanza.IQ, el Element) bool
}

// The IQHandlerFunc type is an adapter to allow the use of ordinary functions
// as IQ handlers.
// If f is a function with the appropriate signature, IQHandlerFunc(f) is an
// IQHandler that calls f.
type IQHandlerFunc func(iq stanza.IQ, el Element) bool

// HandleIQ calls f(iq, el).
func (f IQHandlerFunc) HandleIQ(iq stanza.IQ, el Element) bool {
	return f(iq, el)
}

// IQIDHandler receives the reply to a tracked IQ along with the context value
// given when it was tracked.
type IQIDHandler interface {
	HandleIQID(iq stanza.IQ, el Element, context interface{}) bool
}

// The IQIDHandlerFunc type is an adapter to allow the use of ordinary
// functions as IQIDHandlers.
type IQIDHandlerFunc func(iq stanza.IQ, el Element, context interface{}) bool

// HandleIQID calls f(iq, el, context).
func (f IQIDHandlerFunc) HandleIQID(iq stanza.IQ, el Element, context interface{}) bool {
	return f(iq, el, context)
}

// MessageHandler receives message stanzas.
type MessageHandler interface {
	HandleMessage(msg stanza.Message, el Element)
}

// The MessageHandlerFunc type is an adapter to allow the use of ordinary
// functions as message handlers.
type MessageHandlerFunc func(msg stanza.Message, el Element)

// HandleMessage calls f(msg, el).
func (f MessageHandlerFunc) HandleMessage(msg stanza.Message, el Element) {
	f(msg, el)
}

// PresenceHandler receives presence stanzas that are not subscription
// requests.
type PresenceHandler interface {
	HandlePresence(p stanza.Presence, el Element)
}

// The PresenceHandlerFunc type is an adapter to allow the use of ordinary
// functions as presence handlers.
type PresenceHandlerFunc func(p stanza.Presence, el Element)

// HandlePresence calls f(p, el).
func (f PresenceHandlerFunc) HandlePresence(p stanza.Presence, el Element) {
	f(p, el)
}

// SubscriptionHandler receives subscribe, subscribed, unsubscribe and
// unsubscribed presences.
type SubscriptionHandler interface {
	HandleSubscription(p stanza.Presence, el Element)
}

// The SubscriptionHandlerFunc type is an adapter to allow the use of ordinary
// functions as subscription handlers.
type SubscriptionHandlerFunc func(p stanza.Presence, el Element)

// HandleSubscription calls f(p, el).
func (f SubscriptionHandlerFunc) HandleSubscription(p stanza.Presence, el Element) {
	f(p, el)
}

// TagHandler receives top level elements that are not stanzas.
type TagHandler interface {
	HandleTag(el Element)
}

// The TagHandlerFunc type is an adapter to allow the use of ordinary functions
// as tag handlers.
type TagHandlerFunc func(el Element)

// HandleTag calls f(el).
func (f TagHandlerFunc) HandleTag(el Element) {
	f(el)
}
