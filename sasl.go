// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"

	"github.com/pkg/errors"
	"mellium.im/sasl"
	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/internal/saslerr"
	"mellium.im/jabber/internal/saslmech"
)

var errNoSupportedAuth = errors.New("jabber: no supported authentication mechanism")

// tlsStater is implemented by transports that can report the state of their
// TLS connection for use by channel binding mechanisms.
type tlsStater interface {
	ConnectionState() (tls.ConnectionState, bool)
}

func (c *Client) hasCredentials() bool {
	return c.cfg.JID.Localpart() != "" && c.cfg.Password != ""
}

// selectAuth picks an authentication method from those advertised in f.
// If legacy is true Non-SASL authentication should be used, otherwise mech is
// the SASL mechanism to use.
func (c *Client) selectAuth(f StreamFeatureSet) (mech sasl.Mechanism, legacy, ok bool) {
	switch {
	case c.cfg.ForceLegacyAuth:
		return mech, true, true
	case c.cfg.NoSASL:
		return mech, true, f.Has(IQAuth)
	}

	creds := c.hasCredentials()
	switch {
	case creds && f.Has(SASLDigestMD5):
		return saslmech.DigestMD5(c.cfg.JID.Domainpart()), false, true
	case creds && f.Has(SASLPlain):
		return sasl.Plain, false, true
	case c.cfg.hasClientCert() && f.Has(SASLExternal):
		return saslmech.External, false, true
	case !creds && f.Has(SASLAnonymous):
		return saslmech.Anonymous, false, true
	case creds && f.Has(IQAuth):
		return mech, true, true
	}
	return mech, false, false
}

func (c *Client) authenticate(f StreamFeatureSet) {
	mech, legacy, ok := c.selectAuth(f)
	switch {
	case !ok && !c.cfg.NoSASL && !c.hasCredentials() && !c.cfg.hasClientCert():
		// Nothing to authenticate with, so the stream stays unauthenticated.
		c.log.Debug("jabber: no credentials configured, skipping authentication")
		c.ready()
	case !ok:
		c.disconnect(ConnNoSupportedAuth, errNoSupportedAuth)
	case legacy:
		c.startLegacyAuth()
	default:
		c.startSASL(mech, f)
	}
}

func remoteMechanisms(f StreamFeatureSet) []string {
	var names []string
	for _, n := range featureNames {
		if SASLMechanisms.Has(n.f) && f.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return names
}

func (c *Client) startSASL(mech sasl.Mechanism, f StreamFeatureSet) {
	c.log.WithField("mechanism", mech.Name).Debug("jabber: starting sasl authentication")
	opts := []sasl.Option{
		sasl.Credentials(func() ([]byte, []byte, []byte) {
			return []byte(c.cfg.JID.Localpart()), []byte(c.cfg.Password), []byte(c.cfg.Authzid)
		}),
		sasl.RemoteMechanisms(remoteMechanisms(f)...),
	}
	if ts, ok := c.t.(tlsStater); ok {
		if state, ok := ts.ConnectionState(); ok {
			opts = append(opts, sasl.TLSState(state))
		}
	}
	c.sasl = sasl.NewClient(mech, opts...)

	more, resp, err := c.sasl.Step(nil)
	if err != nil {
		c.disconnect(ConnAuthenticationFailed, errors.Wrap(err, "jabber: starting sasl"))
		return
	}
	c.saslMore = more
	if c.sendControl(saslElement("auth", resp, true, xml.Attr{
		Name:  xml.Name{Local: "mechanism"},
		Value: mech.Name,
	})) {
		c.setNeg(authenticating)
	}
}

// saslElement builds a SASL element carrying data.
//
// RFC 6120 §6.4.2:
//     If the initiating entity needs to send a zero-length initial response,
//     it MUST transmit the response as a single equals sign character ("="),
//     which indicates that the response is present but contains no data.
//
// A nil data is sent as an empty element.
func saslElement(local string, data []byte, initial bool, attr ...xml.Attr) xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: ns.SASL, Local: local}, Attr: attr}
	var payload xml.TokenReader
	switch {
	case data == nil:
	case len(data) == 0:
		if initial {
			payload = xmlstream.Token(xml.CharData("="))
		}
	default:
		payload = xmlstream.Token(xml.CharData(base64.StdEncoding.EncodeToString(data)))
	}
	return xmlstream.Wrap(payload, start)
}

func decodeSASLData(s string) ([]byte, error) {
	if s == "=" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func (c *Client) handleSASL(el Element) bool {
	if el.Start.Name.Space != ns.SASL || c.sasl == nil {
		return false
	}
	switch el.Start.Name.Local {
	case "challenge":
		challenge, err := decodeSASLData(el.Text())
		if err != nil {
			c.abortSASL(errors.Wrap(err, "jabber: decoding sasl challenge"))
			return true
		}
		more, resp, err := c.sasl.Step(challenge)
		if err != nil {
			c.abortSASL(err)
			return true
		}
		c.saslMore = more
		c.sendControl(saslElement("response", resp, false))
	case "success":
		if c.saslMore {
			data, err := decodeSASLData(el.Text())
			if err == nil && len(data) > 0 {
				_, _, err = c.sasl.Step(data)
			}
			if err != nil {
				c.disconnect(ConnAuthenticationFailed, errors.Wrap(err, "jabber: verifying sasl success"))
				return true
			}
		}
		c.log.Info("jabber: authenticated")
		c.authed = true
		c.sasl = nil
		c.restart()
	case "failure":
		var f saslerr.Failure
		if err := el.Decode(&f); err != nil {
			c.log.WithError(err).Warn("jabber: malformed sasl failure")
		}
		c.mu.Lock()
		c.authErr = saslError(f)
		c.mu.Unlock()
		c.disconnect(ConnAuthenticationFailed, f)
	default:
		return false
	}
	return true
}

// abortSASL tells the server we are giving up on the current exchange.
func (c *Client) abortSASL(err error) {
	c.sendControl(xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: ns.SASL, Local: "abort"}}))
	c.mu.Lock()
	c.authErr = SaslAborted
	c.mu.Unlock()
	c.disconnect(ConnAuthenticationFailed, err)
}
