// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"
	"strings"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/stream"
)

// StreamFeatureSet is the set of features advertised by the server in its
// most recent <stream:features/> element.
type StreamFeatureSet uint16

// A list of stream features understood by the client.
const (
	StartTLS StreamFeatureSet = 1 << iota
	SASLDigestMD5
	SASLPlain
	SASLAnonymous
	SASLExternal
	Bind
	Session
	IQAuth
	IQRegister
	Ack
	CompressZlib
	CompressDCLZ

	// SessionOptional is set alongside Session when the server marks session
	// establishment as optional (RFC 6121 errata).
	SessionOptional

	// SASLMechanisms is the set of all SASL mechanisms understood by the
	// client.
	SASLMechanisms = SASLDigestMD5 | SASLPlain | SASLAnonymous | SASLExternal
)

// Has reports whether every feature in f is present in s.
func (s StreamFeatureSet) Has(f StreamFeatureSet) bool {
	return s&f == f
}

var featureNames = [...]struct {
	f    StreamFeatureSet
	name string
}{
	{StartTLS, "starttls"},
	{SASLDigestMD5, "DIGEST-MD5"},
	{SASLPlain, "PLAIN"},
	{SASLAnonymous, "ANONYMOUS"},
	{SASLExternal, "EXTERNAL"},
	{Bind, "bind"},
	{Session, "session"},
	{IQAuth, "iq-auth"},
	{IQRegister, "iq-register"},
	{Ack, "ack"},
	{CompressZlib, "zlib"},
	{CompressDCLZ, "lzw"},
	{SessionOptional, "session-optional"},
}

func (s StreamFeatureSet) String() string {
	var names []string
	for _, n := range featureNames {
		if s&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return "[" + strings.Join(names, " ") + "]"
}

var featuresName = xml.Name{Space: stream.NS, Local: "features"}

// parseFeatures builds a feature set from a <stream:features/> element.
// If no known feature element is present the server is assumed to support
// only Non-SASL authentication.
// A known element that only lists unsupported mechanisms or methods does not
// trigger the fallback.
func parseFeatures(el Element) StreamFeatureSet {
	var f StreamFeatureSet
	known := 0
	for _, c := range el.Children() {
		known++
		switch c.Start.Name {
		case xml.Name{Space: ns.StartTLS, Local: "starttls"}:
			f |= StartTLS
		case xml.Name{Space: ns.SASL, Local: "mechanisms"}:
			for _, m := range c.Children() {
				if m.Start.Name.Local != "mechanism" {
					continue
				}
				switch m.Text() {
				case "DIGEST-MD5":
					f |= SASLDigestMD5
				case "PLAIN":
					f |= SASLPlain
				case "ANONYMOUS":
					f |= SASLAnonymous
				case "EXTERNAL":
					f |= SASLExternal
				}
			}
		case xml.Name{Space: ns.Bind, Local: "bind"}:
			f |= Bind
		case xml.Name{Space: ns.Session, Local: "session"}:
			f |= Session
			if _, ok := c.Child(xml.Name{Local: "optional"}); ok {
				f |= SessionOptional
			}
		case xml.Name{Space: ns.AuthFeature, Local: "auth"}:
			f |= IQAuth
		case xml.Name{Space: ns.RegisterFeature, Local: "register"}:
			f |= IQRegister
		case xml.Name{Space: ns.Ack, Local: "sm"}:
			f |= Ack
		case xml.Name{Space: ns.CompressFeature, Local: "compression"}:
			for _, m := range c.Children() {
				if m.Start.Name.Local != "method" {
					continue
				}
				switch m.Text() {
				case "zlib":
					f |= CompressZlib
				case "lzw":
					f |= CompressDCLZ
				}
			}
		default:
			known--
		}
	}
	if known == 0 {
		f = IQAuth
	}
	return f
}
