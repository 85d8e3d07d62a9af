// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"mellium.im/xmlstream"

	"mellium.im/jabber/internal/ns"
)

var errCertRejected = errors.New("jabber: peer certificate rejected")

func (c *Client) startTLS() {
	c.log.Debug("jabber: requesting starttls")
	if c.sendControl(xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: ns.StartTLS, Local: "starttls"},
	})) {
		c.setNeg(negotiatingTLS)
	}
}

func (c *Client) handleStartTLS(el Element) bool {
	if el.Start.Name.Space != ns.StartTLS {
		return false
	}
	switch el.Start.Name.Local {
	case "proceed":
		info, err := c.t.StartTLS(c.ctx, c.cfg.tlsConfig())
		if err != nil {
			c.disconnect(ConnTLSFailed, err)
			return true
		}
		c.log.WithFields(logrus.Fields{
			"status":   info.Status.String(),
			"protocol": info.Protocol,
			"cipher":   info.Cipher,
		}).Debug("jabber: tls handshake complete")
		if !c.acceptCert(info) {
			c.disconnect(ConnTLSFailed, errCertRejected)
			return true
		}
		c.restart()
	case "failure":
		c.disconnect(ConnTLSFailed, errors.New("jabber: server refused starttls"))
	default:
		return false
	}
	return true
}

// acceptCert asks every connection listener whether to accept the peer
// certificate.
// If there are no listeners only certificates without problems are accepted.
func (c *Client) acceptCert(info CertInfo) bool {
	if c.listeners.len() == 0 {
		return info.OK()
	}
	ok := true
	c.listeners.each(nil, func(h interface{}) {
		if !h.(ConnectionListener).OnTLSConnect(info) {
			ok = false
		}
	})
	return ok
}
