// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"encoding/xml"

	"github.com/sirupsen/logrus"

	"mellium.im/jabber/internal/ns"
	"mellium.im/jabber/stream"
)

func (c *Client) handleEvent(ev Event) {
	switch ev.Kind {
	case StreamStart:
		c.handleStreamStart(ev.Info)
	case StreamErrorEvent:
		se := ev.Err
		c.mu.Lock()
		c.streamErr = &se
		c.mu.Unlock()
		c.disconnect(ConnStreamError, se)
	case StreamEnd:
		c.disconnect(ConnStreamClosed, nil)
	case StreamElement:
		c.handleElement(ev.Element)
	}
}

func (c *Client) handleStreamStart(info stream.Info) {
	c.mu.Lock()
	c.streamInfo = info
	c.mu.Unlock()
	c.log.WithFields(logrus.Fields{
		"id":      info.ID,
		"version": info.Version.String(),
	}).Debug("jabber: stream started")

	if c.neg != awaitingStream {
		c.log.Warn("jabber: unexpected stream header")
		return
	}
	c.setNeg(awaitingFeatures)
	// Servers that predate XMPP 1.0 do not advertise features.
	if info.Version.Less(stream.DefaultVersion) {
		c.handleFeatures(IQAuth)
	}
}

func (c *Client) handleElement(el Element) {
	c.log.WithFields(logrus.Fields{
		"name":  el.Start.Name.Local,
		"space": el.Start.Name.Space,
	}).Debug("jabber: received element")

	if c.negotiate(el) {
		return
	}
	if isControl(el.Start.Name) {
		c.log.WithFields(logrus.Fields{
			"name":  el.Start.Name.Local,
			"state": c.neg.String(),
		}).Warn("jabber: ignoring unexpected negotiation element")
		return
	}
	c.dispatch(el)
}

// isControl reports whether name belongs to one of the negotiation protocols.
func isControl(name xml.Name) bool {
	switch name.Space {
	case ns.StartTLS, ns.SASL, ns.Compress:
		return true
	}
	return name == featuresName
}

// negotiate feeds el to the current negotiation step and reports whether it
// was consumed.
func (c *Client) negotiate(el Element) bool {
	switch c.neg {
	case awaitingFeatures:
		if el.Start.Name != featuresName {
			return false
		}
		c.handleFeatures(parseFeatures(el))
		return true
	case negotiatingTLS:
		return c.handleStartTLS(el)
	case negotiatingCompression:
		return c.handleCompression(el)
	case authenticating:
		if c.legacy.active {
			return c.handleLegacyAuth(el)
		}
		return c.handleSASL(el)
	case bindingResource:
		return c.handleBind(el)
	case establishingSession:
		return c.handleSession(el)
	}
	return false
}

// handleFeatures picks the next feature to negotiate.
func (c *Client) handleFeatures(f StreamFeatureSet) {
	c.mu.Lock()
	c.features = f
	c.mu.Unlock()
	c.log.WithField("features", f.String()).Debug("jabber: received stream features")

	if !c.cfg.NoTLS && f.Has(StartTLS) && !c.t.IsSecure() {
		c.startTLS()
		return
	}
	if method := c.compressionMethod(f); method != "" {
		c.startCompression(method)
		return
	}
	if c.authed {
		if f.Has(Bind) {
			c.bind()
			return
		}
		c.ready()
		return
	}
	c.authenticate(f)
}

// ready finishes negotiation.
func (c *Client) ready() {
	c.setNeg(ready)
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Connected
	c.mu.Unlock()
	c.log.WithField("jid", c.JID().String()).Info("jabber: connected")

	if c.cfg.AutoPresence {
		if err := c.sendInitialPresence(); err != nil {
			c.disconnect(ConnIOError, err)
			return
		}
	}
	c.listeners.each(nil, func(h interface{}) {
		h.(ConnectionListener).OnConnect()
	})
}
