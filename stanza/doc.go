// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains functionality for dealing with XMPP stanzas and
// stanza level errors.
//
// Stanzas (Message, Presence, and IQ) are the "primitives" of XMPP. Messages
// are used to send data that is fire-and-forget such as chat messages, Presence
// is used as a general broadcast mechanism and to manage subscriptions, and IQ
// (Info-Query) is used as a request response mechanism for data that requires
// a response.
//
// The types in this package only describe the stanza headers. Payloads are
// carried as token streams and wrapped with the Wrap methods.
package stanza // import "mellium.im/jabber/stanza"
