// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for working with XML attribute lists.
package attr // import "mellium.im/jabber/internal/attr"

import (
	"encoding/xml"
)

// Get returns the value of the first attribute with the provided local name
// from a list of attributes or an empty string if no such attribute exists.
func Get(attr []xml.Attr, local string) string {
	_, v := Lookup(attr, local)
	return v
}

// Lookup is like Get except that it also reports the index of the attribute,
// or -1 if no attribute with the given local name exists.
func Lookup(attr []xml.Attr, local string) (int, string) {
	for i, a := range attr {
		if a.Name.Local == local {
			return i, a.Value
		}
	}
	return -1, ""
}

// Append returns attr with a new unqualified attribute added if value is not
// empty.
func Append(attr []xml.Attr, local, value string) []xml.Attr {
	if value == "" {
		return attr
	}
	return append(attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}
