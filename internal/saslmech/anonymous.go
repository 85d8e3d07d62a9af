// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package saslmech

import (
	"mellium.im/sasl"
)

// Anonymous is the SASL ANONYMOUS mechanism (RFC 4505).
// No trace information is sent.
var Anonymous = sasl.Mechanism{
	Name: "ANONYMOUS",
	Start: func(*sasl.Negotiator) (bool, []byte, interface{}, error) {
		return false, nil, nil, nil
	},
	Next: func(*sasl.Negotiator, []byte, interface{}) (bool, []byte, interface{}, error) {
		return false, nil, nil, sasl.ErrTooManySteps
	},
}

// External is the SASL EXTERNAL mechanism (RFC 4422 appendix A).
// The credentials are established by the TLS client certificate, and the
// optional identity is sent as the authorization identity.
var External = sasl.Mechanism{
	Name: "EXTERNAL",
	Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
		_, _, identity := m.Credentials()
		if identity == nil {
			identity = []byte{}
		}
		return false, identity, nil, nil
	},
	Next: func(*sasl.Negotiator, []byte, interface{}) (bool, []byte, interface{}, error) {
		return false, nil, nil, sasl.ErrTooManySteps
	},
}
