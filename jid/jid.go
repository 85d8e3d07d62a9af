// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jid

import (
	"encoding/xml"
	"errors"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// Errors returned when a JID cannot be parsed or composed.
var (
	ErrInvalidUTF8    = errors.New("jid: address contains invalid UTF-8")
	ErrEmptyLocalpart = errors.New("jid: the localpart must be larger than 0 bytes")
	ErrEmptyResource  = errors.New("jid: the resourcepart must be larger than 0 bytes")
	ErrLongLocalpart  = errors.New("jid: the localpart must be smaller than 1024 bytes")
	ErrLongResource   = errors.New("jid: the resourcepart must be smaller than 1024 bytes")
	ErrDomainLength   = errors.New("jid: the domainpart must be between 1 and 1023 bytes")
	ErrForbiddenLocal = errors.New("jid: localpart contains forbidden characters")
	ErrInvalidIPv6    = errors.New("jid: domainpart is not a valid IPv6 address")
)

// JID represents an XMPP address comprising a localpart, domainpart, and
// resourcepart. All parts are valid UTF-8 in their canonical form.
type JID struct {
	localpart    string
	domainpart   string
	resourcepart string
}

// Parse constructs a new JID from the given string representation.
func Parse(s string) (JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return JID{}, err
	}
	return New(localpart, domainpart, resourcepart)
}

// MustParse is like Parse but panics if the JID cannot be parsed.
// It simplifies safe initialization of JIDs from known-good constant strings.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		if strconv.CanBackquote(s) {
			s = "`" + s + "`"
		} else {
			s = strconv.Quote(s)
		}
		panic(`jid: Parse(` + s + `): ` + err.Error())
	}
	return j
}

// New constructs a new JID from the given localpart, domainpart, and
// resourcepart.
func New(localpart, domainpart, resourcepart string) (JID, error) {
	if !utf8.ValidString(localpart) || !utf8.ValidString(resourcepart) {
		return JID{}, ErrInvalidUTF8
	}

	domainpart, err := prepDomain(domainpart)
	if err != nil {
		return JID{}, err
	}

	if localpart != "" {
		localpart, err = precis.UsernameCaseMapped.String(localpart)
		if err != nil {
			return JID{}, err
		}
	}
	if resourcepart != "" {
		resourcepart, err = precis.OpaqueString.String(resourcepart)
		if err != nil {
			return JID{}, err
		}
	}

	if err := commonChecks(localpart, domainpart, resourcepart); err != nil {
		return JID{}, err
	}
	return JID{
		localpart:    localpart,
		domainpart:   domainpart,
		resourcepart: resourcepart,
	}, nil
}

// prepDomain converts any A-labels to U-labels as required by RFC 7622 §3.2.1
// and case maps the result.
func prepDomain(domainpart string) (string, error) {
	if isBracketed(domainpart) {
		return domainpart, checkIP6String(domainpart)
	}
	d, err := idna.ToUnicode(domainpart)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(d) {
		return "", ErrInvalidUTF8
	}
	return strings.ToLower(d), nil
}

// WithResource returns a copy of the JID with a new resourcepart.
// This elides validation of the localpart and domainpart.
func (j JID) WithResource(resourcepart string) (JID, error) {
	if resourcepart == "" {
		return j.Bare(), nil
	}
	if !utf8.ValidString(resourcepart) {
		return j, ErrInvalidUTF8
	}
	r, err := precis.OpaqueString.String(resourcepart)
	if err != nil {
		return j, err
	}
	if len(r) > 1023 {
		return j, ErrLongResource
	}
	j.resourcepart = r
	return j, nil
}

// Bare returns a copy of the JID without a resourcepart. This is sometimes
// called a "bare" JID.
func (j JID) Bare() JID {
	j.resourcepart = ""
	return j
}

// Domain returns a copy of the JID without a resourcepart or localpart.
func (j JID) Domain() JID {
	return JID{domainpart: j.domainpart}
}

// Localpart gets the localpart of a JID (eg "username").
func (j JID) Localpart() string {
	return j.localpart
}

// Domainpart gets the domainpart of a JID (eg. "example.net").
func (j JID) Domainpart() string {
	return j.domainpart
}

// Resourcepart gets the resourcepart of a JID.
func (j JID) Resourcepart() string {
	return j.resourcepart
}

// IsZero reports whether j is the empty address.
func (j JID) IsZero() bool {
	return j.domainpart == "" && j.localpart == "" && j.resourcepart == ""
}

// Network satisfies the net.Addr interface by returning the name of the network
// ("xmpp").
func (JID) Network() string {
	return "xmpp"
}

// String converts an JID to its string representation.
func (j JID) String() string {
	var b strings.Builder
	b.Grow(len(j.localpart) + len(j.domainpart) + len(j.resourcepart) + 2)
	if j.localpart != "" {
		b.WriteString(j.localpart)
		b.WriteByte('@')
	}
	b.WriteString(j.domainpart)
	if j.resourcepart != "" {
		b.WriteByte('/')
		b.WriteString(j.resourcepart)
	}
	return b.String()
}

// Equal performs an octet-for-octet comparison with the given JID.
func (j JID) Equal(j2 JID) bool {
	return j == j2
}

// MarshalXML satisfies the xml.Marshaler interface and marshals the JID as
// XML chardata.
func (j JID) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(j.String())); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML satisfies the xml.Unmarshaler interface and unmarshals the JID
// from the elements chardata.
func (j *JID) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	data := struct {
		CharData string `xml:",chardata"`
	}{}
	if err := d.DecodeElement(&data, &start); err != nil {
		return err
	}
	j2, err := Parse(strings.TrimSpace(data.CharData))
	if err != nil {
		return err
	}
	*j = j2
	return nil
}

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface and marshals the JID
// as an XML attribute.
// The empty JID results in no attribute being written.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface and unmarshals
// an XML attribute into a valid JID (or returns an error).
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		*j = JID{}
		return nil
	}
	j2, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = j2
	return nil
}

// SplitString splits out the localpart, domainpart, and resourcepart from a
// string representation of a JID. The parts are not guaranteed to be valid.
//
// Separators are matched before any transformation is applied (RFC 7622 §3.1)
// and a trailing label separator is stripped from the domainpart.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {
	if sep := strings.IndexByte(s, '/'); sep != -1 {
		if sep == len(s)-1 {
			return "", "", "", ErrEmptyResource
		}
		resourcepart = s[sep+1:]
		s = s[:sep]
	}

	switch sep := strings.IndexByte(s, '@'); sep {
	case -1:
		domainpart = s
	case 0:
		return "", "", "", ErrEmptyLocalpart
	default:
		localpart = s[:sep]
		domainpart = s[sep+1:]
	}

	domainpart = strings.TrimSuffix(domainpart, ".")
	return localpart, domainpart, resourcepart, nil
}

func isBracketed(domainpart string) bool {
	return len(domainpart) > 2 && strings.HasPrefix(domainpart, "[") && strings.HasSuffix(domainpart, "]")
}

func checkIP6String(domainpart string) error {
	if ip := net.ParseIP(domainpart[1 : len(domainpart)-1]); ip == nil || ip.To4() != nil {
		return ErrInvalidIPv6
	}
	return nil
}

func commonChecks(localpart, domainpart, resourcepart string) error {
	if len(localpart) > 1023 {
		return ErrLongLocalpart
	}

	// RFC 7622 §3.3.1 lists characters that are still not allowed in
	// localparts even though the UsernameCaseMapped profile permits them.
	if strings.ContainsAny(localpart, `"&'/:<>@`) {
		return ErrForbiddenLocal
	}

	if len(resourcepart) > 1023 {
		return ErrLongResource
	}

	if l := len(domainpart); l < 1 || l > 1023 {
		return ErrDomainLength
	}
	return nil
}
