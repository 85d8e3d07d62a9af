// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"

	"mellium.im/jabber/jid"
)

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a standalone message that is sent outside the context of
	// a one-to-one conversation or groupchat, and to which it is expected that
	// the recipient will reply.
	NormalMessage MessageType = "normal"

	// ChatMessage represents a message sent in the context of a one-to-one chat
	// session.
	ChatMessage MessageType = "chat"

	// ErrorMessage is generated by an entity that experiences an error when
	// processing a message received from another entity.
	ErrorMessage MessageType = "error"

	// GroupChatMessage is sent in the context of a multi-user chat environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage is used to provide alerts, notifications, or other
	// transient information to which no reply is expected.
	HeadlineMessage MessageType = "headline"
)

// Message is an XMPP stanza that contains a payload for direct one-to-one
// communication with another network entity.
type Message struct {
	ID   string
	To   jid.JID
	From jid.JID
	Lang string
	Type MessageType
}

// NewMessage reads the header of a message from its start element.
func NewMessage(start xml.StartElement) (Message, error) {
	h, err := parseHeader(start)
	return Message{ID: h.id, To: h.to, From: h.from, Lang: h.lang, Type: MessageType(h.typ)}, err
}

// StartElement converts the Message into an XML token.
func (msg Message) StartElement() xml.StartElement {
	return header{id: msg.ID, to: msg.To, from: msg.From, lang: msg.Lang, typ: string(msg.Type)}.start("message")
}

// Wrap wraps the payload in a stanza.
func (msg Message) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, msg.StartElement())
}
