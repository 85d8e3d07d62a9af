// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package saslmech implements SASL mechanisms that older servers still offer
// but that are not part of mellium.im/sasl.
//
// Each mechanism is a sasl.Mechanism and is driven by a sasl.Negotiator like
// any other.
package saslmech // import "mellium.im/jabber/internal/saslmech"
