// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"crypto/tls"
	"crypto/x509"
	"strings"
	"time"

	xmppx509 "mellium.im/jabber/x509"
)

// CertStatus is a set of problems found while verifying a peer certificate.
type CertStatus uint8

// A list of certificate status bits.
// CertOK is the absence of any problem.
const (
	CertOK            CertStatus = 0
	CertInvalid       CertStatus = 1 << 0
	CertSignerUnknown CertStatus = 1 << 1
	CertRevoked       CertStatus = 1 << 2
	CertExpired       CertStatus = 1 << 3
	CertNotActive     CertStatus = 1 << 4
	CertWrongPeer     CertStatus = 1 << 5
	CertSignerNotCA   CertStatus = 1 << 6
)

func (s CertStatus) String() string {
	if s == CertOK {
		return "ok"
	}
	var names []string
	for _, b := range [...]struct {
		bit  CertStatus
		name string
	}{
		{CertInvalid, "invalid"},
		{CertSignerUnknown, "signer-unknown"},
		{CertRevoked, "revoked"},
		{CertExpired, "expired"},
		{CertNotActive, "not-active"},
		{CertWrongPeer, "wrong-peer"},
		{CertSignerNotCA, "signer-not-ca"},
	} {
		if s&b.bit != 0 {
			names = append(names, b.name)
		}
	}
	return strings.Join(names, "|")
}

// CertInfo summarizes a TLS handshake and the verification of the peer
// certificate.
type CertInfo struct {
	Status     CertStatus
	ChainValid bool

	// Issuer and Server are the common names of the issuer and subject of the
	// leaf certificate.
	Issuer string
	Server string

	NotBefore time.Time
	NotAfter  time.Time

	Protocol    string
	Cipher      string
	MAC         string
	Compression string

	Chain []*x509.Certificate
}

// OK reports whether no problems were found with the certificate.
func (ci CertInfo) OK() bool {
	return ci.Status == CertOK
}

// NewCertInfo verifies the peer certificates of state against roots (or the
// system roots if roots is nil) and checks that the leaf is valid for domain.
func NewCertInfo(state tls.ConnectionState, roots *x509.CertPool, domain string) CertInfo {
	return newCertInfo(state, roots, domain, time.Now())
}

func newCertInfo(state tls.ConnectionState, roots *x509.CertPool, domain string, now time.Time) CertInfo {
	info := CertInfo{
		Protocol:    tlsVersionName(state.Version),
		Cipher:      tls.CipherSuiteName(state.CipherSuite),
		Compression: "NULL",
		Chain:       state.PeerCertificates,
	}
	info.MAC = cipherMAC(info.Cipher)

	if len(state.PeerCertificates) == 0 {
		info.Status = CertInvalid
		return info
	}
	leaf := state.PeerCertificates[0]
	info.Issuer = leaf.Issuer.CommonName
	info.Server = leaf.Subject.CommonName
	info.NotBefore = leaf.NotBefore
	info.NotAfter = leaf.NotAfter

	if now.Before(leaf.NotBefore) {
		info.Status |= CertNotActive
	}
	if now.After(leaf.NotAfter) {
		info.Status |= CertExpired
	}

	intermediates := x509.NewCertPool()
	for _, c := range state.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	switch e := err.(type) {
	case nil:
		info.ChainValid = true
	case x509.UnknownAuthorityError:
		info.Status |= CertSignerUnknown
	case x509.CertificateInvalidError:
		switch e.Reason {
		case x509.Expired:
			if info.Status&(CertExpired|CertNotActive) == 0 {
				info.Status |= CertExpired
			}
		case x509.NotAuthorizedToSign, x509.CANotAuthorizedForThisName:
			info.Status |= CertSignerNotCA
		default:
			info.Status |= CertInvalid
		}
	default:
		info.Status |= CertInvalid
	}

	crt, err := xmppx509.FromCertificate(leaf)
	if err != nil {
		info.Status |= CertInvalid
	}
	if domain != "" && (crt == nil || !crt.MatchesDomain(domain)) {
		info.Status |= CertWrongPeer
	}
	return info
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	}
	return ""
}

// cipherMAC derives the MAC from the name of a cipher suite.
// AEAD suites authenticate as part of the cipher.
func cipherMAC(suite string) string {
	switch {
	case suite == "":
		return ""
	case strings.Contains(suite, "GCM"), strings.Contains(suite, "POLY1305"):
		return "AEAD"
	case strings.HasSuffix(suite, "_SHA384"):
		return "SHA384"
	case strings.HasSuffix(suite, "_SHA256"):
		return "SHA256"
	case strings.HasSuffix(suite, "_SHA"):
		return "SHA1"
	}
	return ""
}
