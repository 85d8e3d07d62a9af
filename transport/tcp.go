// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"mellium.im/jabber"
	"mellium.im/jabber/compress"
	"mellium.im/jabber/internal/discover"
)

// DefaultPort is used when Server is set without a Port.
const DefaultPort = 5222

// Errors returned by TCP.
var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrNoService    = errors.New("transport: domain does not offer the xmpp-client service")
	ErrTLSActive    = errors.New("transport: tls is already active")
)

// contextDialer is implemented by the SOCKS5 dialer of golang.org/x/net/proxy.
type contextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// TCP is a jabber.Transport over a TCP connection.
// The zero value is not usable, Domain must be set.
//
// A TCP may be reconnected after it is closed.
type TCP struct {
	// Domain is the XMPP domain to connect to.
	Domain string

	// Server and Port skip SRV lookup and connect to the given host.
	// If Port is zero DefaultPort is used.
	Server string
	Port   uint16

	// Proxy is the address of a SOCKS5 proxy, if any.
	Proxy     string
	ProxyAuth *proxy.Auth

	// Resolver is used for SRV lookups.
	// If nil, net.DefaultResolver is used.
	Resolver discover.Resolver

	// Dialer is used to connect to the server or the proxy.
	Dialer net.Dialer

	// RootCAs are used to verify the server certificate if the tls.Config
	// passed to StartTLS has none.
	// If nil, the system roots are used.
	RootCAs *x509.CertPool

	// Logger receives debug logs.
	// If nil, the logrus standard logger is used.
	Logger logrus.FieldLogger

	mu       sync.Mutex
	conn     net.Conn
	tlsConn  *tls.Conn
	rw       io.ReadWriter
	r        *bufio.Reader
	closers  []io.Closer
	compress string
}

func (t *TCP) log() logrus.FieldLogger {
	l := t.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithFields(logrus.Fields{"component": "transport", "domain": t.Domain})
}

func (t *TCP) addrs(ctx context.Context) ([]*net.SRV, error) {
	if t.Server != "" {
		port := t.Port
		if port == 0 {
			port = DefaultPort
		}
		return []*net.SRV{{Target: t.Server, Port: port}}, nil
	}
	addrs, err := discover.LookupService(ctx, t.Resolver, discover.Client, t.Domain)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: looking up %s", t.Domain)
	}
	if len(addrs) == 0 {
		return nil, ErrNoService
	}
	return addrs, nil
}

func (t *TCP) dial(ctx context.Context, addr string) (net.Conn, error) {
	if t.Proxy == "" {
		return t.Dialer.DialContext(ctx, "tcp", addr)
	}
	d, err := proxy.SOCKS5("tcp", t.Proxy, t.ProxyAuth, &t.Dialer)
	if err != nil {
		return nil, errors.Wrap(err, "transport: configuring socks5 proxy")
	}
	if cd, ok := d.(contextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return d.Dial("tcp", addr)
}

// Connect looks up and dials the server, trying each address in turn until
// one succeeds.
func (t *TCP) Connect(ctx context.Context) error {
	t.mu.Lock()
	connected := t.conn != nil
	t.mu.Unlock()
	if connected {
		return errors.New("transport: already connected")
	}

	addrs, err := t.addrs(ctx)
	if err != nil {
		return err
	}
	log := t.log()
	for _, a := range addrs {
		addr := net.JoinHostPort(a.Target, strconv.FormatUint(uint64(a.Port), 10))
		log.WithField("addr", addr).Debug("transport: dialing")
		conn, e := t.dial(ctx, addr)
		if e != nil {
			log.WithError(e).WithField("addr", addr).Debug("transport: dial failed")
			err = e
			continue
		}
		t.mu.Lock()
		t.conn = conn
		t.setLayer(conn)
		t.mu.Unlock()
		return nil
	}
	return errors.Wrapf(err, "transport: connecting to %s", t.Domain)
}

// setLayer makes rw the innermost layer.
// t.mu must be held.
func (t *TCP) setLayer(rw io.ReadWriter) {
	t.rw = rw
	t.r = bufio.NewReader(rw)
}

func (t *TCP) reader() (*bufio.Reader, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.r == nil {
		return nil, ErrNotConnected
	}
	return t.r, nil
}

// Read reads from the innermost layer of the connection.
func (t *TCP) Read(p []byte) (int, error) {
	r, err := t.reader()
	if err != nil {
		return 0, err
	}
	return r.Read(p)
}

// ReadByte reads a single byte from the innermost layer of the connection.
// It keeps xml.Decoder from adding its own buffer, which would swallow data
// sent after a stream restart.
func (t *TCP) ReadByte() (byte, error) {
	r, err := t.reader()
	if err != nil {
		return 0, err
	}
	return r.ReadByte()
}

// Write writes to the innermost layer of the connection.
func (t *TCP) Write(p []byte) (int, error) {
	t.mu.Lock()
	w := t.rw
	t.mu.Unlock()
	if w == nil {
		return 0, ErrNotConnected
	}
	return w.Write(p)
}

// IsSecure reports whether a TLS handshake has completed.
func (t *TCP) IsSecure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tlsConn != nil
}

// ConnectionState returns the state of the TLS connection, if any.
func (t *TCP) ConnectionState() (tls.ConnectionState, bool) {
	t.mu.Lock()
	c := t.tlsConn
	t.mu.Unlock()
	if c == nil {
		return tls.ConnectionState{}, false
	}
	return c.ConnectionState(), true
}

// StartTLS performs a TLS handshake over the connection.
// The peer certificate is checked against cfg.RootCAs (or RootCAs) and
// cfg.ServerName after the handshake, and the result is returned for the
// caller to act on.
func (t *TCP) StartTLS(ctx context.Context, cfg *tls.Config) (jabber.CertInfo, error) {
	t.mu.Lock()
	conn, active := t.conn, t.tlsConn != nil
	t.mu.Unlock()
	switch {
	case conn == nil:
		return jabber.CertInfo{}, ErrNotConnected
	case active:
		return jabber.CertInfo{}, ErrTLSActive
	}

	if cfg == nil {
		cfg = &tls.Config{ServerName: t.Domain}
	}
	cfg = cfg.Clone()
	roots := cfg.RootCAs
	if roots == nil {
		roots = t.RootCAs
	}
	// The chain is checked by jabber.NewCertInfo once the handshake is done.
	cfg.InsecureSkipVerify = true

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return jabber.CertInfo{}, errors.Wrap(err, "transport: tls handshake")
	}
	info := jabber.NewCertInfo(tlsConn.ConnectionState(), roots, cfg.ServerName)
	t.log().WithFields(logrus.Fields{
		"protocol": info.Protocol,
		"cipher":   info.Cipher,
		"status":   info.Status.String(),
	}).Debug("transport: tls established")

	t.mu.Lock()
	t.tlsConn = tlsConn
	t.setLayer(tlsConn)
	t.mu.Unlock()
	return info, nil
}

// CanCompress reports whether method is one of the methods in the compress
// package.
func (t *TCP) CanCompress(method string) bool {
	_, ok := compress.Lookup(method)
	return ok
}

// StartCompression wraps the innermost layer of the connection in the named
// compression method.
func (t *TCP) StartCompression(method string) error {
	m, ok := compress.Lookup(method)
	if !ok {
		return errors.Errorf("transport: unsupported compression method %q", method)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rw == nil {
		return ErrNotConnected
	}
	if t.compress != "" {
		return errors.Errorf("transport: compression %q is already active", t.compress)
	}
	rw, err := m.Wrapper(t.rw)
	if err != nil {
		return errors.Wrapf(err, "transport: starting %s compression", method)
	}
	if c, ok := rw.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}
	t.compress = method
	t.setLayer(rw)
	return nil
}

// Close closes the connection and then any compression layers.
func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	var c io.Closer = t.conn
	if t.tlsConn != nil {
		c = t.tlsConn
	}
	err := c.Close()
	for i := len(t.closers) - 1; i >= 0; i-- {
		if e := t.closers[i].Close(); e != nil {
			t.log().WithError(e).Debug("transport: closing compression layer")
		}
	}
	t.conn, t.tlsConn, t.rw, t.r, t.closers, t.compress = nil, nil, nil, nil, nil, ""
	return err
}
