// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package x509 parses the XMPP specific subject alternative names of X.509
// certificates and matches them against a domain as described in RFC 6120
// §13.7.1.2 and RFC 7673.
package x509 // import "mellium.im/jabber/x509"

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"strings"
)

var (
	oidExtensionSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidXMPPAddr                = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 5}
	oidSRVName                 = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 8, 7}
)

// Certificate is an X.509 certificate with the XMPP specific names parsed
// out of its subject alternative name extension.
type Certificate struct {
	x509.Certificate

	SRVNames      []string
	XMPPAddresses []string
}

// FromCertificate parses the subject alternative names of crt.
func FromCertificate(crt *x509.Certificate) (*Certificate, error) {
	c := &Certificate{Certificate: *crt}
	err := c.parseExtensions(crt.Extensions)
	return c, err
}

// ParseCertificate parses a single certificate from the given ASN.1 DER data.
func ParseCertificate(asn1Data []byte) (*Certificate, error) {
	crt, err := x509.ParseCertificate(asn1Data)
	if err != nil {
		return nil, err
	}
	return FromCertificate(crt)
}

// MatchesDomain reports whether the certificate identifies the XMPP client
// service at domain using a DNS name, an id-on-xmppAddr, or a client SRVName.
func (c *Certificate) MatchesDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	for _, a := range c.XMPPAddresses {
		if strings.EqualFold(a, domain) {
			return true
		}
	}
	for _, s := range c.SRVNames {
		if strings.EqualFold(s, "_xmpp-client."+domain) {
			return true
		}
	}
	if len(c.Raw) == 0 {
		return false
	}
	return c.Certificate.VerifyHostname(domain) == nil
}

func (c *Certificate) parseExtensions(extensions []pkix.Extension) error {
	for _, ext := range extensions {
		if !ext.Id.Equal(oidExtensionSubjectAltName) {
			continue
		}
		if err := c.parseSAN(ext.Value); err != nil {
			return err
		}
	}
	return nil
}

// parseSAN walks the GeneralNames sequence (RFC 5280 §4.2.1.6) and collects
// the otherName entries that carry XMPP identities.
func (c *Certificate) parseSAN(value []byte) error {
	var seq asn1.RawValue
	rest, err := asn1.Unmarshal(value, &seq)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errors.New("x509: trailing data after X.509 extension")
	}
	if !seq.IsCompound || seq.Tag != asn1.TagSequence || seq.Class != asn1.ClassUniversal {
		return asn1.StructuralError{Msg: "bad SAN sequence"}
	}

	rest = seq.Bytes
	for len(rest) > 0 {
		var v asn1.RawValue
		if rest, err = asn1.Unmarshal(rest, &v); err != nil {
			return err
		}
		// otherName [0]
		if v.Class != asn1.ClassContextSpecific || v.Tag != 0 {
			continue
		}
		oid, name, err := parseOtherName(v.Bytes)
		if err != nil {
			return err
		}
		switch {
		case oid.Equal(oidXMPPAddr):
			c.XMPPAddresses = append(c.XMPPAddresses, name)
		case oid.Equal(oidSRVName):
			c.SRVNames = append(c.SRVNames, name)
		}
	}
	return nil
}

// parseOtherName decodes the body of an otherName:
//
//	OtherName ::= SEQUENCE {
//	     type-id    OBJECT IDENTIFIER,
//	     value      [0] EXPLICIT ANY DEFINED BY type-id }
func parseOtherName(b []byte) (asn1.ObjectIdentifier, string, error) {
	var oid asn1.ObjectIdentifier
	rest, err := asn1.Unmarshal(b, &oid)
	if err != nil {
		return nil, "", err
	}
	var explicit asn1.RawValue
	if _, err = asn1.Unmarshal(rest, &explicit); err != nil {
		return nil, "", err
	}
	var inner asn1.RawValue
	if _, err = asn1.Unmarshal(explicit.Bytes, &inner); err != nil {
		return nil, "", err
	}
	return oid, string(inner.Bytes), nil
}
