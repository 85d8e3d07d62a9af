// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"

	"github.com/pkg/errors"
	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/jid"
	"mellium.im/jabber/stanza"
)

// defaultResource is requested during Non-SASL authentication, which requires
// a resource, if none was configured.
const defaultResource = "jabber"

// legacyAuth tracks a Non-SASL authentication exchange (XEP-0078).
type legacyAuth struct {
	active   bool
	id       string
	resource string
	fieldsOK bool
}

func textElement(local, text string) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(text)),
		xml.StartElement{Name: xml.Name{Local: local}},
	)
}

func authQuery(payload ...xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.MultiReader(payload...),
		xml.StartElement{Name: xml.Name{Space: ns.Auth, Local: "query"}},
	)
}

// startLegacyAuth requests the authentication fields supported by the
// server.
func (c *Client) startLegacyAuth() {
	c.log.Debug("jabber: starting non-sasl authentication")
	resource := c.cfg.JID.Resourcepart()
	if resource == "" {
		resource = defaultResource
	}
	c.legacy = legacyAuth{
		active:   true,
		id:       c.NewID(),
		resource: resource,
	}
	iq := stanza.IQ{
		ID:   c.legacy.id,
		To:   c.cfg.JID.Domain(),
		Type: stanza.GetIQ,
	}
	if c.sendControl(iq.Wrap(authQuery(textElement("username", c.cfg.JID.Localpart())))) {
		c.setNeg(authenticating)
	}
}

func (c *Client) handleLegacyAuth(el Element) bool {
	if el.Start.Name.Local != "iq" || el.Attr("id") != c.legacy.id {
		return false
	}
	iq, err := stanza.NewIQ(el.Start)
	if err != nil {
		c.log.WithError(err).Warn("jabber: malformed non-sasl authentication reply")
		return true
	}
	if iq.Type.IsRequest() {
		return false
	}
	switch iq.Type {
	case stanza.ErrorIQ:
		var se stanza.Error
		if e, ok := el.Child(xml.Name{Local: "error"}); ok {
			if err := e.Decode(&se); err != nil {
				c.log.WithError(err).Warn("jabber: malformed stanza error")
			}
		}
		c.mu.Lock()
		c.authErr = legacyAuthError(se)
		c.mu.Unlock()
		c.disconnect(ConnAuthenticationFailed, se)
	case stanza.ResultIQ:
		if !c.legacy.fieldsOK {
			c.sendLegacyCredentials(el)
			return true
		}
		j, err := jid.New(c.cfg.JID.Localpart(), c.cfg.JID.Domainpart(), c.legacy.resource)
		if err != nil {
			c.disconnect(ConnAuthenticationFailed, errors.Wrap(err, "jabber: building address"))
			return true
		}
		c.mu.Lock()
		c.jid = j
		c.mu.Unlock()
		c.log.Info("jabber: authenticated")
		c.authed = true
		c.legacy = legacyAuth{}
		c.ready()
	}
	return true
}

// sendLegacyCredentials answers the list of fields with the credentials,
// using a digest if the server supports it.
func (c *Client) sendLegacyCredentials(fields Element) {
	c.legacy.fieldsOK = true
	c.legacy.id = c.NewID()

	secret := textElement("password", c.cfg.Password)
	if query, ok := fields.Child(xml.Name{Space: ns.Auth, Local: "query"}); ok {
		if _, ok := query.Child(xml.Name{Local: "digest"}); ok && c.StreamID() != "" {
			secret = textElement("digest", legacyDigest(c.StreamID(), c.cfg.Password))
		}
	}
	iq := stanza.IQ{
		ID:   c.legacy.id,
		To:   c.cfg.JID.Domain(),
		Type: stanza.SetIQ,
	}
	c.sendControl(iq.Wrap(authQuery(
		textElement("username", c.cfg.JID.Localpart()),
		secret,
		textElement("resource", c.legacy.resource),
	)))
}

// legacyDigest computes the XEP-0078 digest: hex(SHA1(stream id + password)).
func legacyDigest(streamID, password string) string {
	h := sha1.Sum([]byte(streamID + password))
	return hex.EncodeToString(h[:])
}
