// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"io/ioutil"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"mellium.im/jabber/jid"
)

const (
	testServerHeader = `<?xml version='1.0'?><stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' id='c2s123' from='example.net' version='1.0'>`
	testStreamEnd    = `</stream:stream>`

	featuresPlain = `<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>`
	saslSuccess   = `<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>`
	featuresBind  = `<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></stream:features>`
	bindResult    = `<iq type='result' id='bind'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>juliet@example.net/r</jid></bind></iq>`
)

// fakeTransport replays a scripted server and records everything written by
// the client.
type fakeTransport struct {
	in io.Reader

	mu          sync.Mutex
	out         bytes.Buffer
	secure      bool
	closed      int
	connectErr  error
	certInfo    CertInfo
	tlsErr      error
	tlsConfig   *tls.Config
	methods     map[string]bool
	compression string
}

func newFakeTransport(script string) *fakeTransport {
	return &fakeTransport{in: strings.NewReader(script)}
}

func (t *fakeTransport) Read(p []byte) (int, error) {
	return t.in.Read(p)
}

// ReadByte keeps the xml.Decoder from buffering past the element that
// triggers a stream restart.
func (t *fakeTransport) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(t.in, b[:])
	return b[0], err
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

func (t *fakeTransport) Connect(context.Context) error {
	return t.connectErr
}

func (t *fakeTransport) IsSecure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.secure
}

func (t *fakeTransport) StartTLS(_ context.Context, cfg *tls.Config) (CertInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tlsConfig = cfg
	if t.tlsErr != nil {
		return CertInfo{}, t.tlsErr
	}
	t.secure = true
	return t.certInfo, nil
}

func (t *fakeTransport) CanCompress(method string) bool {
	return t.methods[method]
}

func (t *fakeTransport) StartCompression(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compression = method
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed++
	t.mu.Unlock()
	if c, ok := t.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *fakeTransport) written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.String()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}

// newTestClient returns a client that authenticates as juliet@example.net
// against the scripted server and generates the ids id1, id2, etc.
func newTestClient(t *fakeTransport, cfg Config) *Client {
	if cfg.JID.IsZero() {
		cfg.JID = jid.MustParse("juliet@example.net")
	}
	cfg.Logger = discardLogger()
	c := New(t, cfg)
	n := 0
	c.newID = func() string {
		n++
		return "id" + strconv.Itoa(n)
	}
	return c
}

// events records connection listener callbacks.
type events struct {
	mu          sync.Mutex
	connects    int
	disconnects []ConnectionError
	bindErrs    []ResourceBindError
	sessionErrs []SessionCreateError
	certs       []CertInfo
}

func (e *events) listener(accept bool) ListenerFuncs {
	return ListenerFuncs{
		Connect: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.connects++
		},
		Disconnect: func(reason ConnectionError) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.disconnects = append(e.disconnects, reason)
		},
		ResourceBindError: func(err ResourceBindError) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.bindErrs = append(e.bindErrs, err)
		},
		SessionCreateError: func(err SessionCreateError) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.sessionErrs = append(e.sessionErrs, err)
		},
		TLSConnect: func(info CertInfo) bool {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.certs = append(e.certs, info)
			return accept
		},
	}
}

func disconnectReason(t *testing.T, c *Client) ConnectionError {
	t.Helper()
	de, ok := c.Err().(*DisconnectError)
	if !ok {
		t.Fatalf("expected a *DisconnectError, got %T: %v", c.Err(), c.Err())
	}
	return de.Reason
}
