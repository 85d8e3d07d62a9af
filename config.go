// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"crypto/tls"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"mellium.im/jabber/jid"
)

// Config represents the configurable options of a Client.
type Config struct {
	// JID is the address to authenticate as.
	// If it has a resourcepart it is requested during resource binding,
	// otherwise the server assigns one.
	JID jid.JID

	// Password is used for SASL and Non-SASL authentication.
	// If it is empty (and no client certificate is configured) the client
	// attempts ANONYMOUS authentication.
	Password string

	// Authzid is an optional authorization identity sent during SASL
	// authentication.
	Authzid string

	// Lang is the default language of the stream, sent as xml:lang.
	Lang language.Tag

	// NoTLS disables STARTTLS even if the server advertises it.
	NoTLS bool

	// TLSConfig is used when negotiating STARTTLS.
	// If ServerName is empty the domainpart of JID is used.
	// Client certificates configured here enable SASL EXTERNAL.
	TLSConfig *tls.Config

	// NoSASL disables SASL, leaving only Non-SASL authentication.
	NoSASL bool

	// ForceLegacyAuth uses Non-SASL authentication even if the server
	// advertises SASL mechanisms or does not advertise Non-SASL authentication.
	ForceLegacyAuth bool

	// Compression enables stream compression if the transport supports one of
	// the methods offered by the server.
	Compression bool

	// AutoPresence sends initial presence with the given priority once the
	// client is ready.
	AutoPresence bool
	Priority     int

	// Logger receives debug and error logs from the negotiation engine.
	// If nil, the logrus standard logger is used.
	Logger logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	l := c.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "jabber")
}

func (c Config) tlsConfig() *tls.Config {
	if c.TLSConfig == nil {
		return &tls.Config{ServerName: c.JID.Domainpart()}
	}
	if c.TLSConfig.ServerName != "" {
		return c.TLSConfig
	}
	cfg := c.TLSConfig.Clone()
	cfg.ServerName = c.JID.Domainpart()
	return cfg
}

func (c Config) hasClientCert() bool {
	return c.TLSConfig != nil &&
		(len(c.TLSConfig.Certificates) > 0 || c.TLSConfig.GetClientCertificate != nil)
}

func (c Config) lang() string {
	if c.Lang == language.Und {
		return ""
	}
	return c.Lang.String()
}

// priority clamps Priority to the range allowed by RFC 6121 §4.7.2.3.
func (c Config) priority() int {
	switch {
	case c.Priority > 127:
		return 127
	case c.Priority < -128:
		return -128
	}
	return c.Priority
}
