// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/xml"

	"github.com/sirupsen/logrus"
	"mellium.im/xmlstream"

	"mellium.im/jabber"
	"mellium.im/jabber/ping"
	"mellium.im/jabber/stanza"
)

// newClient builds a client for cfg and registers the handlers used by the
// command.
func newClient(cfg *config, t jabber.Transport, logger logrus.FieldLogger) *jabber.Client {
	c := jabber.New(t, cfg.client(logger))

	c.RegisterConnectionListener(jabber.ListenerFuncs{
		Connect: func() {
			logger.WithField("jid", c.JID().String()).Info("jabberc: online")
		},
		Disconnect: func(reason jabber.ConnectionError) {
			entry := logger.WithField("reason", reason.String())
			if se := c.StreamError(); se != nil {
				entry = entry.WithField("stream_error", se.Err)
			}
			if reason == jabber.ConnAuthenticationFailed {
				entry = entry.WithField("auth_error", c.AuthError().String())
			}
			entry.Info("jabberc: offline")
		},
		TLSConnect: func(info jabber.CertInfo) bool {
			logger.WithFields(logrus.Fields{
				"status":   info.Status.String(),
				"issuer":   info.Issuer,
				"protocol": info.Protocol,
				"cipher":   info.Cipher,
			}).Info("jabberc: tls established")
			return info.OK() || cfg.TLS.Insecure
		},
	})

	ping.Handle(c)

	c.RegisterMessageHandler(jabber.MessageHandlerFunc(func(msg stanza.Message, el jabber.Element) {
		body, ok := el.Child(xml.Name{Local: "body"})
		if !ok {
			return
		}
		logger.WithFields(logrus.Fields{
			"from": msg.From.String(),
			"type": string(msg.Type),
		}).Info(body.Text())
		if !cfg.Echo || msg.Type != stanza.ChatMessage {
			return
		}
		reply := stanza.Message{To: msg.From.Bare(), Type: stanza.ChatMessage}
		if err := c.Send(reply.Wrap(bodyElement(body.Text()))); err != nil {
			logger.WithError(err).Warn("jabberc: error sending echo")
		}
	}))

	c.RegisterSubscriptionHandler(jabber.SubscriptionHandlerFunc(func(p stanza.Presence, _ jabber.Element) {
		logger.WithFields(logrus.Fields{
			"from": p.From.String(),
			"type": string(p.Type),
		}).Info("jabberc: subscription request ignored")
	}))
	return c
}

func bodyElement(text string) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(text)),
		xml.StartElement{Name: xml.Name{Local: "body"}},
	)
}

func run(ctx context.Context, cfg *config, logger *logrus.Logger) error {
	c := newClient(cfg, cfg.transport(logger), logger)
	return c.Run(ctx)
}
