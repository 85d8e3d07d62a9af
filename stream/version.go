// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultVersion is the version of XMPP advertised in stream headers.
var DefaultVersion = Version{Major: 1, Minor: 0}

// Version is a version of XMPP.
// The zero value is used for streams without a version attribute which
// indicates a server that predates XMPP 1.0.
type Version struct {
	Major uint8
	Minor uint8
}

// ParseVersion parses a string of the form "Major.Minor" into a Version struct
// or returns an error.
func ParseVersion(s string) (Version, error) {
	v := Version{}
	idx := strings.IndexByte(s, '.')
	if idx == -1 || strings.IndexByte(s[idx+1:], '.') != -1 {
		return v, errors.New("stream: XMPP version must have a single separator")
	}
	major, err := strconv.ParseUint(s[:idx], 10, 8)
	if err != nil {
		return v, err
	}
	minor, err := strconv.ParseUint(s[idx+1:], 10, 8)
	if err != nil {
		return v, err
	}
	v.Major = uint8(major)
	v.Minor = uint8(minor)
	return v, nil
}

// Less compares the major and minor version numbers, returning true if v is
// less than b.
func (v Version) Less(b Version) bool {
	return v.Major < b.Major || (v.Major == b.Major && v.Minor < b.Minor)
}

// String prints a representation of the XMPP version in the form "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MarshalXMLAttr satisfies the MarshalerAttr interface and marshals the version
// as an XML attribute using its string representation.
func (v Version) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: v.String()}, nil
}

// UnmarshalXMLAttr satisfies the UnmarshalerAttr interface and unmarshals an
// XML attribute into a valid XMPP version (or returns an error).
func (v *Version) UnmarshalXMLAttr(attr xml.Attr) error {
	newVersion, err := ParseVersion(attr.Value)
	if err != nil {
		return err
	}
	*v = newVersion
	return nil
}
