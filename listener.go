// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

// ConnectionListener is notified of changes to the state of the connection.
type ConnectionListener interface {
	// OnConnect is called once negotiation has finished.
	OnConnect()

	// OnDisconnect is called once when the connection is torn down.
	OnDisconnect(reason ConnectionError)

	// OnResourceBindError is called if the server rejects resource binding.
	OnResourceBindError(err ResourceBindError)

	// OnSessionCreateError is called if the server rejects session
	// establishment.
	OnSessionCreateError(err SessionCreateError)

	// OnTLSConnect is called after every TLS handshake and reports whether the
	// peer certificate should be accepted.
	OnTLSConnect(info CertInfo) bool
}

// ListenerFuncs is a ConnectionListener built from optional functions.
// A nil function is a no-op, and a nil TLSConnect accepts certificates with
// no problems.
type ListenerFuncs struct {
	Connect            func()
	Disconnect         func(reason ConnectionError)
	ResourceBindError  func(err ResourceBindError)
	SessionCreateError func(err SessionCreateError)
	TLSConnect         func(info CertInfo) bool
}

// OnConnect calls l.Connect if it is not nil.
func (l ListenerFuncs) OnConnect() {
	if l.Connect != nil {
		l.Connect()
	}
}

// OnDisconnect calls l.Disconnect if it is not nil.
func (l ListenerFuncs) OnDisconnect(reason ConnectionError) {
	if l.Disconnect != nil {
		l.Disconnect(reason)
	}
}

// OnResourceBindError calls l.ResourceBindError if it is not nil.
func (l ListenerFuncs) OnResourceBindError(err ResourceBindError) {
	if l.ResourceBindError != nil {
		l.ResourceBindError(err)
	}
}

// OnSessionCreateError calls l.SessionCreateError if it is not nil.
func (l ListenerFuncs) OnSessionCreateError(err SessionCreateError) {
	if l.SessionCreateError != nil {
		l.SessionCreateError(err)
	}
}

// OnTLSConnect calls l.TLSConnect if it is not nil, otherwise it accepts the
// certificate only if no problems were found.
func (l ListenerFuncs) OnTLSConnect(info CertInfo) bool {
	if l.TLSConnect != nil {
		return l.TLSConnect(info)
	}
	return info.OK()
}
