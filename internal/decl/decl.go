// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package decl contains functionality related to XML declarations.
package decl // import "mellium.im/jabber/internal/decl"

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// XMLHeader is the declaration written before every stream header.
const XMLHeader = `<?xml version='1.0' ?>`

// Skip wraps a token reader and drops XML declarations.
// Servers send a new declaration on every stream restart so declarations are
// skipped wherever they occur, not only as the first token.
func Skip(r xml.TokenReader) xml.TokenReader {
	return xmlstream.ReaderFunc(func() (xml.Token, error) {
		for {
			tok, err := r.Token()
			if proc, ok := tok.(xml.ProcInst); ok && proc.Target == "xml" {
				if err != nil {
					return nil, err
				}
				continue
			}
			return tok, err
		}
	})
}
