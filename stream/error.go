// Copyright 2015 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"
)

// A list of stream errors defined in RFC 6120 §4.9.3
var (
	BadFormat              = Error{Err: "bad-format"}
	BadNamespacePrefix     = Error{Err: "bad-namespace-prefix"}
	Conflict               = Error{Err: "conflict"}
	ConnectionTimeout      = Error{Err: "connection-timeout"}
	HostGone               = Error{Err: "host-gone"}
	HostUnknown            = Error{Err: "host-unknown"}
	ImproperAddressing     = Error{Err: "improper-addressing"}
	InternalServerError    = Error{Err: "internal-server-error"}
	InvalidFrom            = Error{Err: "invalid-from"}
	InvalidNamespace       = Error{Err: "invalid-namespace"}
	InvalidXML             = Error{Err: "invalid-xml"}
	NotAuthorized          = Error{Err: "not-authorized"}
	NotWellFormed          = Error{Err: "not-well-formed"}
	PolicyViolation        = Error{Err: "policy-violation"}
	RemoteConnectionFailed = Error{Err: "remote-connection-failed"}
	Reset                  = Error{Err: "reset"}
	ResourceConstraint     = Error{Err: "resource-constraint"}
	RestrictedXML          = Error{Err: "restricted-xml"}
	SeeOtherHost           = Error{Err: "see-other-host"}
	SystemShutdown         = Error{Err: "system-shutdown"}
	UndefinedCondition     = Error{Err: "undefined-condition"}
	UnsupportedEncoding    = Error{Err: "unsupported-encoding"}
	UnsupportedFeature     = Error{Err: "unsupported-feature"}
	UnsupportedStanzaType  = Error{Err: "unsupported-stanza-type"}
	UnsupportedVersion     = Error{Err: "unsupported-version"}
)

// A Error represents an unrecoverable stream-level error.
//
// Data holds the character data of the condition element (the new address for
// see-other-host) and Text the optional human readable description.
type Error struct {
	Err  string
	Data string
	Text string
	Lang string
}

// Error satisfies the builtin error interface and returns the name of the
// StreamError. For instance, given the error:
//
//	<stream:error>
//	  <restricted-xml xmlns="urn:ietf:params:xml:ns:xmpp-streams"/>
//	</stream:error>
//
// Error() would return "restricted-xml".
func (s Error) Error() string {
	return s.Err
}

// Is reports whether target is a stream error with the same condition.
// This lets errors.Is match the condition variables in this package.
func (s Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Err == s.Err
}

// UnmarshalXML satisfies the xml package's Unmarshaler interface and allows
// StreamError's to be correctly unmarshaled from XML.
func (s *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	se := struct {
		Conditions []struct {
			XMLName xml.Name
			Data    string `xml:",chardata"`
		} `xml:",any"`
		Text []struct {
			Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Data string `xml:",chardata"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-streams text"`
	}{}
	if err := d.DecodeElement(&se, &start); err != nil {
		return err
	}
	for _, c := range se.Conditions {
		if c.XMLName.Space == ErrorNS {
			s.Err = c.XMLName.Local
			s.Data = c.Data
			break
		}
	}
	if len(se.Text) > 0 {
		s.Text = se.Text[0].Data
		s.Lang = se.Text[0].Lang
	}
	return nil
}
