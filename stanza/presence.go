// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabber/jid"
)

// PresenceType is the type of a presence stanza.
// It should normally be one of the constants defined in this package.
type PresenceType string

const (
	// AvailablePresence is a special case that signals that the entity is
	// available for communication.
	AvailablePresence PresenceType = ""

	// ErrorPresence indicates that an error has occurred regarding processing of
	// a previously sent presence stanza.
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is sent when the sender wishes to subscribe to the
	// recipient's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that the sender has allowed the recipient to
	// receive future presence broadcasts.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence indicates that the sender is no longer available for
	// communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence indicates that the sender is unsubscribing from the
	// receiver's presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that the subscription request has been
	// denied, or a previously granted subscription has been revoked.
	UnsubscribedPresence PresenceType = "unsubscribed"
)

// IsSubscription reports whether the type belongs to subscription management
// rather than availability.
func (t PresenceType) IsSubscription() bool {
	switch t {
	case SubscribePresence, SubscribedPresence, UnsubscribePresence, UnsubscribedPresence:
		return true
	}
	return false
}

// Presence is an XMPP stanza that is used as an indication that an entity is
// available for communication. It is used to set a status message, broadcast
// availability, and manage subscriptions.
type Presence struct {
	ID   string
	To   jid.JID
	From jid.JID
	Lang string
	Type PresenceType
}

// NewPresence reads the header of a presence from its start element.
func NewPresence(start xml.StartElement) (Presence, error) {
	h, err := parseHeader(start)
	return Presence{ID: h.id, To: h.to, From: h.from, Lang: h.lang, Type: PresenceType(h.typ)}, err
}

// StartElement converts the Presence into an XML token.
func (p Presence) StartElement() xml.StartElement {
	return header{id: p.ID, to: p.To, from: p.From, lang: p.Lang, typ: string(p.Type)}.start("presence")
}

// Wrap wraps the payload in a stanza.
//
// If to is the zero value for jid.JID, no to attribute is set on the resulting
// presence.
func (p Presence) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, p.StartElement())
}
