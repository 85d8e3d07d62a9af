// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package saslerr provides error conditions for the XMPP profile of SASL as
// defined by RFC 6120 §6.5.
package saslerr // import "mellium.im/jabber/internal/saslerr"

import (
	"encoding/xml"

	"golang.org/x/text/language"

	"mellium.im/jabber/internal/ns"
)

// Condition is a SASL error condition carried by a <failure/> element.
type Condition string

// Standard SASL error conditions.
const (
	None                 Condition = ""
	Aborted              Condition = "aborted"
	AccountDisabled      Condition = "account-disabled"
	CredentialsExpired   Condition = "credentials-expired"
	EncryptionRequired   Condition = "encryption-required"
	IncorrectEncoding    Condition = "incorrect-encoding"
	InvalidAuthzID       Condition = "invalid-authzid"
	InvalidMechanism     Condition = "invalid-mechanism"
	MalformedRequest     Condition = "malformed-request"
	MechanismTooWeak     Condition = "mechanism-too-weak"
	NotAuthorized        Condition = "not-authorized"
	TemporaryAuthFailure Condition = "temporary-auth-failure"
)

// String returns the element name of the condition.
func (c Condition) String() string {
	return string(c)
}

// Failure is a decoded SASL <failure/> element.
//
// If Lang is set before decoding and the failure contains several text
// elements, the text whose language best matches Lang is kept.
type Failure struct {
	Condition Condition
	Lang      language.Tag
	Text      string
}

// Error satisfies the error interface for a Failure. It returns the text string
// if set, or the condition otherwise.
func (f Failure) Error() string {
	if f.Text != "" {
		return f.Text
	}
	return string(f.Condition)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for a Failure.
func (f *Failure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var (
		cond  Condition
		tags  []language.Tag
		texts []string
	)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "text" || (t.Name.Space != "" && t.Name.Space != ns.SASL) {
				if cond == None {
					cond = Condition(t.Name.Local)
				}
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			var text struct {
				Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
				Data string `xml:",chardata"`
			}
			if err := d.DecodeElement(&text, &t); err != nil {
				return err
			}
			tag, err := language.Parse(text.Lang)
			if err != nil {
				continue
			}
			tags = append(tags, tag)
			texts = append(texts, text.Data)
		case xml.EndElement:
			f.Condition = cond
			if len(tags) == 0 {
				f.Text = ""
				return nil
			}
			_, idx, _ := language.NewMatcher(tags).Match(f.Lang)
			f.Lang = tags[idx]
			f.Text = texts[idx]
			return nil
		}
	}
}
