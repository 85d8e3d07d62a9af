// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package transport provides a TCP implementation of jabber.Transport.
//
// The server is located using DNS SRV records for the xmpp-client service,
// falling back to port 5222 on the domain itself.
// Connections may optionally be made through a SOCKS5 proxy.
//
// Peer certificates are not verified during the TLS handshake.
// Instead the chain and hostname are checked afterwards and reported as a
// jabber.CertInfo so that the client can decide whether to continue.
package transport // import "mellium.im/jabber/transport"
