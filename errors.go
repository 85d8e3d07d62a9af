// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"github.com/pkg/errors"

	"mellium.im/jabber/internal/saslerr"
	"mellium.im/jabber/stanza"
)

// Errors returned by the Client.
var (
	ErrNotConnected     = errors.New("jabber: client is not connected")
	ErrAlreadyConnected = errors.New("jabber: client is already connected")
)

// ConnectionError is the reason a connection was torn down.
type ConnectionError uint8

// A list of reasons for disconnecting.
const (
	ConnNoError ConnectionError = iota

	// ConnStreamError means the server sent a stream error, see
	// Client.StreamError.
	ConnStreamError

	// ConnStreamClosed means the server closed the stream.
	ConnStreamClosed

	// ConnIOError means reading from or writing to the transport failed.
	ConnIOError

	// ConnNoSupportedAuth means no authentication method could be agreed upon.
	ConnNoSupportedAuth

	// ConnTLSFailed means STARTTLS or stream compression failed, or the peer
	// certificate was rejected.
	ConnTLSFailed

	// ConnAuthenticationFailed means the server rejected our credentials, see
	// Client.AuthError.
	ConnAuthenticationFailed

	// ConnUserDisconnected means Disconnect was called or the context passed to
	// Serve was canceled.
	ConnUserDisconnected

	// ConnResourceBindFailed means the server rejected resource binding.
	ConnResourceBindFailed

	// ConnSessionCreateFailed means the server rejected session establishment.
	ConnSessionCreateFailed
)

var connErrorNames = [...]string{
	ConnNoError:              "no error",
	ConnStreamError:          "stream error",
	ConnStreamClosed:         "stream closed",
	ConnIOError:              "i/o error",
	ConnNoSupportedAuth:      "no supported authentication mechanism",
	ConnTLSFailed:            "tls failed",
	ConnAuthenticationFailed: "authentication failed",
	ConnUserDisconnected:     "user disconnected",
	ConnResourceBindFailed:   "resource binding failed",
	ConnSessionCreateFailed:  "session creation failed",
}

func (e ConnectionError) String() string {
	if int(e) < len(connErrorNames) {
		return connErrorNames[e]
	}
	return "unknown"
}

// DisconnectError is returned by Serve and Err when the connection was torn
// down.
// Err is the underlying error, if any.
type DisconnectError struct {
	Reason ConnectionError
	Err    error
}

func (e *DisconnectError) Error() string {
	if e.Err == nil {
		return "jabber: " + e.Reason.String()
	}
	return "jabber: " + e.Reason.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DisconnectError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error for use with github.com/pkg/errors.
func (e *DisconnectError) Cause() error {
	return e.Err
}

// ResourceBindError is the reason the server gave for rejecting resource
// binding.
type ResourceBindError uint8

// A list of resource binding errors.
const (
	RbErrorUnknownError ResourceBindError = iota
	RbErrorBadRequest
	RbErrorNotAllowed
	RbErrorConflict
)

func (e ResourceBindError) String() string {
	switch e {
	case RbErrorBadRequest:
		return "bad-request"
	case RbErrorNotAllowed:
		return "not-allowed"
	case RbErrorConflict:
		return "conflict"
	}
	return "unknown-error"
}

func bindError(se stanza.Error) ResourceBindError {
	switch {
	case se.Type == stanza.Modify && se.Condition == stanza.BadRequest:
		return RbErrorBadRequest
	case se.Type == stanza.Cancel && se.Condition == stanza.NotAllowed:
		return RbErrorNotAllowed
	case se.Type == stanza.Cancel && se.Condition == stanza.Conflict:
		return RbErrorConflict
	}
	return RbErrorUnknownError
}

// SessionCreateError is the reason the server gave for rejecting session
// establishment.
type SessionCreateError uint8

// A list of session establishment errors.
const (
	ScErrorUnknownError SessionCreateError = iota
	ScErrorInternalServerError
	ScErrorForbidden
	ScErrorConflict
)

func (e SessionCreateError) String() string {
	switch e {
	case ScErrorInternalServerError:
		return "internal-server-error"
	case ScErrorForbidden:
		return "forbidden"
	case ScErrorConflict:
		return "conflict"
	}
	return "unknown-error"
}

func sessionError(se stanza.Error) SessionCreateError {
	switch {
	case se.Type == stanza.Wait && se.Condition == stanza.InternalServerError:
		return ScErrorInternalServerError
	case se.Type == stanza.Auth && se.Condition == stanza.Forbidden:
		return ScErrorForbidden
	case se.Type == stanza.Cancel && se.Condition == stanza.Conflict:
		return ScErrorConflict
	}
	return ScErrorUnknownError
}

// AuthenticationError is the reason the server gave for rejecting
// authentication.
type AuthenticationError uint8

// A list of authentication errors.
// The Sasl errors are SASL failure conditions (RFC 6120 §6.5), the NonSasl
// errors are those of XEP-0078.
const (
	AuthErrorUndefined AuthenticationError = iota
	SaslAborted
	SaslAccountDisabled
	SaslCredentialsExpired
	SaslEncryptionRequired
	SaslIncorrectEncoding
	SaslInvalidAuthzid
	SaslInvalidMechanism
	SaslMalformedRequest
	SaslMechanismTooWeak
	SaslNotAuthorized
	SaslTemporaryAuthFailure
	NonSaslConflict
	NonSaslNotAcceptable
	NonSaslNotAuthorized
)

var saslConditions = map[saslerr.Condition]AuthenticationError{
	saslerr.Aborted:              SaslAborted,
	saslerr.AccountDisabled:      SaslAccountDisabled,
	saslerr.CredentialsExpired:   SaslCredentialsExpired,
	saslerr.EncryptionRequired:   SaslEncryptionRequired,
	saslerr.IncorrectEncoding:    SaslIncorrectEncoding,
	saslerr.InvalidAuthzID:       SaslInvalidAuthzid,
	saslerr.InvalidMechanism:     SaslInvalidMechanism,
	saslerr.MalformedRequest:     SaslMalformedRequest,
	saslerr.MechanismTooWeak:     SaslMechanismTooWeak,
	saslerr.NotAuthorized:        SaslNotAuthorized,
	saslerr.TemporaryAuthFailure: SaslTemporaryAuthFailure,
}

func (e AuthenticationError) String() string {
	for c, ae := range saslConditions {
		if ae == e {
			return "sasl " + string(c)
		}
	}
	switch e {
	case NonSaslConflict:
		return "non-sasl conflict"
	case NonSaslNotAcceptable:
		return "non-sasl not-acceptable"
	case NonSaslNotAuthorized:
		return "non-sasl not-authorized"
	}
	return "undefined"
}

func saslError(f saslerr.Failure) AuthenticationError {
	return saslConditions[f.Condition]
}

func legacyAuthError(se stanza.Error) AuthenticationError {
	switch se.Condition {
	case stanza.Conflict:
		return NonSaslConflict
	case stanza.NotAcceptable:
		return NonSaslNotAcceptable
	case stanza.NotAuthorized:
		return NonSaslNotAuthorized
	}
	return AuthErrorUndefined
}
