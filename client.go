// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"context"
	"encoding/xml"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"mellium.im/sasl"
	"mellium.im/xmlstream"

	"mellium.im/jabber/jid"
	"mellium.im/jabber/stanza"
	"mellium.im/jabber/stream"
)

// ConnectionState is the state of the connection as seen from outside of the
// client.
type ConnectionState uint8

// A list of connection states.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// negState is the state of stream negotiation.
// It is only read and written by the goroutine running Serve.
type negState uint8

const (
	awaitingStream negState = iota
	awaitingFeatures
	negotiatingTLS
	negotiatingCompression
	authenticating
	bindingResource
	establishingSession
	ready
)

func (s negState) String() string {
	switch s {
	case awaitingStream:
		return "awaiting-stream"
	case awaitingFeatures:
		return "awaiting-features"
	case negotiatingTLS:
		return "negotiating-tls"
	case negotiatingCompression:
		return "negotiating-compression"
	case authenticating:
		return "authenticating"
	case bindingResource:
		return "binding-resource"
	case establishingSession:
		return "establishing-session"
	case ready:
		return "ready"
	}
	return "errored"
}

// Client is a connection to an XMPP server.
//
// Connect, Serve and Run must not be called concurrently, but the remaining
// methods are safe for concurrent use, including from within handlers.
type Client struct {
	cfg   Config
	t     Transport
	log   logrus.FieldLogger
	newID func() string

	writeMu sync.Mutex
	enc     *xml.Encoder

	// Negotiation state, owned by the goroutine running Serve.
	ctx        context.Context
	dec        *Decoder
	neg        negState
	authed     bool
	compressed bool
	compressor string
	sasl       *sasl.Negotiator
	saslMore   bool
	legacy     legacyAuth

	mu         sync.Mutex
	state      ConnectionState
	features   StreamFeatureSet
	jid        jid.JID
	streamInfo stream.Info
	streamErr  *stream.Error
	authErr    AuthenticationError
	err        error

	listeners    handlerList
	iqHandlers   handlerList
	msgHandlers  handlerList
	presHandlers handlerList
	subsHandlers handlerList
	tagHandlers  handlerList
	pending      pendingTable
}

// New returns a client that connects over t.
func New(t Transport, cfg Config) *Client {
	return &Client{
		cfg:   cfg,
		t:     t,
		log:   cfg.logger().WithField("jid", cfg.JID.String()),
		newID: func() string { return uuid.New().String() },
		jid:   cfg.JID,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JID returns the address of the client.
// After resource binding this is the full address assigned by the server.
func (c *Client) JID() jid.JID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jid
}

// Features returns the features advertised by the server in its most recent
// feature advertisement.
func (c *Client) Features() StreamFeatureSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.features
}

// StreamID returns the id of the current stream as assigned by the server.
func (c *Client) StreamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamInfo.ID
}

// StreamError returns the stream error sent by the server, if any.
func (c *Client) StreamError() *stream.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamErr
}

// AuthError returns the reason the server gave for rejecting authentication.
func (c *Client) AuthError() AuthenticationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authErr
}

// Err returns the error that caused the last disconnect as a
// *DisconnectError, or nil if the client has not been disconnected since it
// last connected.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Logger returns the logger of the client so that extensions built on it can
// log with the same fields.
func (c *Client) Logger() logrus.FieldLogger {
	return c.log
}

// NewID returns a new unique stanza id.
func (c *Client) NewID() string {
	return c.newID()
}

// Connect connects the transport and sends the initial stream header.
// Negotiation is driven by Serve.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = Connecting
	c.features = 0
	c.jid = c.cfg.JID
	c.streamInfo = stream.Info{}
	c.streamErr = nil
	c.authErr = AuthErrorUndefined
	c.err = nil
	c.mu.Unlock()

	c.ctx = ctx
	c.authed = false
	c.compressed = false
	c.compressor = ""
	c.sasl = nil
	c.saslMore = false
	c.legacy = legacyAuth{}

	c.log.Debug("jabber: connecting")
	if err := c.t.Connect(ctx); err != nil {
		c.disconnect(ConnIOError, errors.Wrap(err, "jabber: connecting transport"))
		return c.Err()
	}
	return c.restart()
}

// restart sends a new stream header and resets the encoder and decoder.
// It is used when the stream is first opened and after every successful
// STARTTLS, compression or SASL negotiation.
func (c *Client) restart() error {
	c.writeMu.Lock()
	c.enc = xml.NewEncoder(c.t)
	err := stream.Send(c.t, c.cfg.JID, c.cfg.lang())
	c.writeMu.Unlock()
	if err != nil {
		c.disconnect(ConnIOError, errors.Wrap(err, "jabber: sending stream header"))
		return c.Err()
	}
	c.dec = NewDecoder(c.t)
	c.setNeg(awaitingStream)
	return nil
}

// Serve reads from the stream, negotiates features and dispatches stanzas
// until the connection is torn down.
// Canceling ctx disconnects the client.
//
// Serve returns nil if the client was disconnected by Disconnect or by
// canceling ctx, and a *DisconnectError otherwise.
func (c *Client) Serve(ctx context.Context) error {
	if c.State() == Disconnected || c.dec == nil {
		return ErrNotConnected
	}
	c.ctx = ctx

	// The watcher only tears the connection down to unblock the read below.
	// Listeners are notified on this goroutine before Serve returns.
	done := make(chan struct{})
	stopped := make(chan struct{})
	canceled := false
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			canceled = c.shutdown(ConnUserDisconnected, ctx.Err())
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-stopped
		if canceled {
			c.notifyDisconnect(ConnUserDisconnected)
		}
	}()

	for {
		ev, err := c.dec.Next()
		if c.State() == Disconnected {
			return c.serveErr()
		}
		if err != nil {
			var se stream.Error
			if errors.As(err, &se) {
				c.disconnect(ConnStreamError, se)
			} else {
				c.disconnect(ConnIOError, errors.Wrap(err, "jabber: reading stream"))
			}
			return c.serveErr()
		}
		c.handleEvent(ev)
		if c.State() == Disconnected {
			return c.serveErr()
		}
	}
}

func (c *Client) serveErr() error {
	err := c.Err()
	var de *DisconnectError
	if errors.As(err, &de) && de.Reason == ConnUserDisconnected {
		return nil
	}
	return err
}

// Run connects and serves the connection until it is torn down.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Serve(ctx)
}

// Disconnect closes the stream and the transport.
// It is safe to call more than once and from within handlers.
func (c *Client) Disconnect() {
	c.disconnect(ConnUserDisconnected, nil)
}

func (c *Client) disconnect(reason ConnectionError, err error) {
	if c.shutdown(reason, err) {
		c.notifyDisconnect(reason)
	}
}

// shutdown marks the client as disconnected, closes the stream and the
// transport, and reports whether this call did so.
// It does not call any listeners and may run on any goroutine.
func (c *Client) shutdown(reason ConnectionError, err error) bool {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return false
	}
	c.state = Disconnected
	c.err = &DisconnectError{Reason: reason, Err: err}
	c.mu.Unlock()

	c.pending.clear()

	entry := c.log.WithField("reason", reason.String())
	if err != nil {
		entry = entry.WithError(err)
	}
	if reason == ConnUserDisconnected || reason == ConnStreamClosed {
		entry.Debug("jabber: disconnected")
	} else {
		entry.Error("jabber: disconnected")
	}

	c.writeMu.Lock()
	if c.enc != nil && reason != ConnIOError {
		if e := stream.Close(c.t); e != nil {
			c.log.WithError(e).Debug("jabber: error closing stream")
		}
	}
	c.enc = nil
	c.writeMu.Unlock()
	if e := c.t.Close(); e != nil {
		c.log.WithError(e).Debug("jabber: error closing transport")
	}
	return true
}

func (c *Client) notifyDisconnect(reason ConnectionError) {
	c.listeners.each(nil, func(h interface{}) {
		h.(ConnectionListener).OnDisconnect(reason)
	})
}

// Send writes the tokens from r to the stream.
// It is safe to call Send concurrently and from within handlers.
func (c *Client) Send(r xml.TokenReader) error {
	if c.State() == Disconnected {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.enc == nil {
		return ErrNotConnected
	}
	if _, err := xmlstream.Copy(c.enc, r); err != nil {
		return err
	}
	return c.enc.Flush()
}

// Encode writes the XML encoding of v to the stream.
func (c *Client) Encode(v interface{}) error {
	if c.State() == Disconnected {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.enc == nil {
		return ErrNotConnected
	}
	return c.enc.Encode(v)
}

// SendIQ sends iq wrapping payload and arranges for h to be called with data
// when the reply arrives.
// If iq has no id a new one is generated.
// The id of the IQ is returned.
func (c *Client) SendIQ(ctx context.Context, iq stanza.IQ, payload xml.TokenReader, h IQIDHandler, data interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if iq.ID == "" {
		iq.ID = c.NewID()
	}
	if h != nil {
		c.TrackID(iq.ID, h, data)
	}
	if err := c.Send(iq.Wrap(payload)); err != nil {
		c.RemoveIDHandler(iq.ID)
		return iq.ID, err
	}
	return iq.ID, nil
}

func (c *Client) setNeg(s negState) {
	if c.neg != s {
		c.log.WithFields(logrus.Fields{"from": c.neg.String(), "to": s.String()}).Debug("jabber: negotiation state changed")
	}
	c.neg = s
}

// sendControl writes a negotiation element and disconnects on failure.
func (c *Client) sendControl(r xml.TokenReader) bool {
	if err := c.Send(r); err != nil {
		c.disconnect(ConnIOError, errors.Wrap(err, "jabber: sending negotiation element"))
		return false
	}
	return true
}
