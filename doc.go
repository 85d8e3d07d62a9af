// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jabber is a client side implementation of the XMPP core protocol
// (RFC 6120) along with the legacy extensions still found on older servers.
//
// A Client establishes an XML stream over a Transport and negotiates the
// features the server advertises in a fixed order: STARTTLS, stream
// compression, authentication, resource binding, and finally session
// establishment.
// Once negotiation has finished the client is Ready and every stanza read from
// the stream is routed to the handlers registered on the client.
//
// Be advised: This API is still unstable and is subject to change.
//
// Negotiation
//
// Authentication uses SASL (RFC 4422) where possible, preferring DIGEST-MD5,
// then PLAIN, then EXTERNAL when a client certificate is configured, and
// ANONYMOUS when no credentials are configured at all.
// Servers that do not speak SASL, or clients that set ForceLegacyAuth, use
// Non-SASL authentication (XEP-0078) instead.
//
// After every successful TLS handshake the peer certificate is summarized in a
// CertInfo and handed to the registered ConnectionListeners, any of which may
// reject the connection.
//
// Dispatch
//
// IQ stanzas are first matched against pending requests tracked by id, and then
// against every handler registered for the namespace of the IQ payload.
// A get or set IQ that no handler claims is answered with a
// service-unavailable error.
// Messages, presences and subscription requests are delivered to every handler
// of the matching kind in the order they were registered.
package jabber // import "mellium.im/jabber"
