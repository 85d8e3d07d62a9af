// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"context"
	"crypto/tls"
	"io"
)

// Transport is the byte level connection to the server.
//
// Reads and writes always go through the innermost active layer, so after
// StartTLS or StartCompression succeed the same Transport carries encrypted or
// compressed data.
// A Transport must be reusable: Connect is called again after Close when the
// client reconnects.
// The mellium.im/jabber/transport package provides a TCP implementation.
type Transport interface {
	io.ReadWriter

	// Connect establishes the underlying connection.
	// It blocks until the connection is established or fails.
	Connect(ctx context.Context) error

	// IsSecure reports whether the connection is already encrypted.
	IsSecure() bool

	// StartTLS performs a TLS handshake over the existing connection and
	// reports the result of verifying the peer certificate.
	// A certificate that fails verification is not an error, the CertInfo
	// status describes the problems found and the client decides whether to
	// continue.
	StartTLS(ctx context.Context, cfg *tls.Config) (CertInfo, error)

	// CanCompress reports whether the named compression method is supported.
	CanCompress(method string) bool

	// StartCompression wraps the connection in the named compression method.
	StartCompression(method string) error

	// Close closes the connection.
	Close() error
}
