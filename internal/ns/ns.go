// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the jabber package
// and other internal packages.
package ns // import "mellium.im/jabber/internal/ns"

// List of commonly used namespaces.
const (
	Client   = "jabber:client"
	Stream   = "http://etherx.jabber.org/streams"
	Stanza   = "urn:ietf:params:xml:ns:xmpp-stanzas"
	Streams  = "urn:ietf:params:xml:ns:xmpp-streams"
	XML      = "http://www.w3.org/XML/1998/namespace"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
	SASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	Bind     = "urn:ietf:params:xml:ns:xmpp-bind"
	Session  = "urn:ietf:params:xml:ns:xmpp-session"

	// Stream compression (XEP-0138).
	Compress        = "http://jabber.org/protocol/compress"
	CompressFeature = "http://jabber.org/features/compress"

	// Legacy authentication (XEP-0078) and in-band registration (XEP-0077).
	Auth            = "jabber:iq:auth"
	AuthFeature     = "http://jabber.org/features/iq-auth"
	RegisterFeature = "http://jabber.org/features/iq-register"

	// Stream management acknowledgements (XEP-0198).
	Ack = "urn:xmpp:sm:3"
)
