// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"

	"mellium.im/jabber"
	"mellium.im/jabber/jid"
	"mellium.im/jabber/transport"
)

// config is the contents of the configuration file.
type config struct {
	JID      jid.JID
	Password string
	Lang     language.Tag

	Server string
	Port   uint16
	Proxy  proxyConfig

	TLS         tlsConfig
	NoSASL      bool
	LegacyAuth  bool
	Compression bool
	Presence    bool
	Priority    int
	Echo        bool

	Log logConfig
}

type proxyConfig struct {
	Addr     string `yaml:"addr"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type tlsConfig struct {
	Disabled bool `yaml:"disabled"`
	Insecure bool `yaml:"insecure"`
}

type logConfig struct {
	Level  logrus.Level
	Format string
}

type logConfigProxy struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UnmarshalYAML satisfies the yaml.Unmarshaler interface.
func (c *logConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := logConfigProxy{}
	if err := unmarshal(&p); err != nil {
		return err
	}
	c.Level = logrus.InfoLevel
	if p.Level != "" {
		lvl, err := logrus.ParseLevel(p.Level)
		if err != nil {
			return errors.Wrap(err, "jabberc: log level")
		}
		c.Level = lvl
	}
	switch p.Format {
	case "", "text", "json":
	default:
		return errors.Errorf("jabberc: unrecognized log format: %s", p.Format)
	}
	c.Format = p.Format
	return nil
}

type configProxy struct {
	JID         string      `yaml:"jid"`
	Password    string      `yaml:"password"`
	Lang        string      `yaml:"lang"`
	Server      string      `yaml:"server"`
	Port        uint16      `yaml:"port"`
	Proxy       proxyConfig `yaml:"proxy"`
	TLS         tlsConfig   `yaml:"tls"`
	NoSASL      bool        `yaml:"no_sasl"`
	LegacyAuth  bool        `yaml:"legacy_auth"`
	Compression bool        `yaml:"compression"`
	Presence    bool        `yaml:"presence"`
	Priority    int         `yaml:"priority"`
	Echo        bool        `yaml:"echo"`
	Log         logConfig   `yaml:"log"`
}

// UnmarshalYAML satisfies the yaml.Unmarshaler interface.
func (c *config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	p := configProxy{Log: logConfig{Level: logrus.InfoLevel}}
	if err := unmarshal(&p); err != nil {
		return err
	}
	j, err := jid.Parse(p.JID)
	if err != nil {
		return errors.Wrapf(err, "jabberc: invalid jid %q", p.JID)
	}
	if p.Lang != "" {
		c.Lang, err = language.Parse(p.Lang)
		if err != nil {
			return errors.Wrapf(err, "jabberc: invalid lang %q", p.Lang)
		}
	}
	c.JID = j
	c.Password = p.Password
	c.Server = p.Server
	c.Port = p.Port
	c.Proxy = p.Proxy
	c.TLS = p.TLS
	c.NoSASL = p.NoSASL
	c.LegacyAuth = p.LegacyAuth
	c.Compression = p.Compression
	c.Presence = p.Presence
	c.Priority = p.Priority
	c.Echo = p.Echo
	c.Log = p.Log
	return nil
}

func loadConfig(r io.Reader) (*config, error) {
	cfg := &config{}
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "jabberc: decoding config")
	}
	return cfg, nil
}

func loadConfigFile(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadConfig(f)
}

func (c *config) logger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.Log.Level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func (c *config) client(l logrus.FieldLogger) jabber.Config {
	return jabber.Config{
		JID:             c.JID,
		Password:        c.Password,
		Lang:            c.Lang,
		NoTLS:           c.TLS.Disabled,
		TLSConfig:       &tls.Config{ServerName: c.JID.Domainpart(), MinVersion: tls.VersionTLS12},
		NoSASL:          c.NoSASL,
		ForceLegacyAuth: c.LegacyAuth,
		Compression:     c.Compression,
		AutoPresence:    c.Presence,
		Priority:        c.Priority,
		Logger:          l,
	}
}

func (c *config) transport(l logrus.FieldLogger) *transport.TCP {
	t := &transport.TCP{
		Domain: c.JID.Domainpart(),
		Server: c.Server,
		Port:   c.Port,
		Proxy:  c.Proxy.Addr,
		Logger: l,
	}
	if c.Proxy.User != "" {
		t.ProxyAuth = &proxy.Auth{User: c.Proxy.User, Password: c.Proxy.Password}
	}
	return t
}
