// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"regexp"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"mellium.im/jabber"
	"mellium.im/jabber/jid"
	"mellium.im/jabber/ping"
	"mellium.im/jabber/stanza"
)

const (
	header = `<stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' id='s1' from='example.net' version='1.0'>`
	login  = header +
		`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>` +
		`<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>` + header +
		`<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></stream:features>` +
		`<iq type='result' id='bind'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>juliet@example.net/r</jid></bind></iq>`
	end = `</stream:stream>`
)

var pingReq = regexp.MustCompile(`<iq id="([^"]+)" to="example.net" type="get"><ping xmlns="urn:xmpp:ping">`)

// server is a transport that plays a scripted server and answers pings sent
// by the client using reply.
type server struct {
	r     *io.PipeReader
	w     *io.PipeWriter
	reply func(id string) string

	mu  sync.Mutex
	out bytes.Buffer
}

func newServer(script string, reply func(id string) string) *server {
	r, w := io.Pipe()
	s := &server{r: r, w: w, reply: reply}
	go io.WriteString(w, script)
	return s
}

func (s *server) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *server) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(s.r, b[:])
	return b[0], err
}

func (s *server) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.out.Write(p)
	s.mu.Unlock()
	if m := pingReq.FindSubmatch(p); m != nil && s.reply != nil {
		go io.WriteString(s.w, s.reply(string(m[1])))
	}
	return len(p), nil
}

func (s *server) written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

func (s *server) Connect(context.Context) error { return nil }
func (s *server) IsSecure() bool                { return false }
func (s *server) CanCompress(string) bool       { return false }
func (s *server) Close() error                  { return s.r.Close() }

func (s *server) StartTLS(context.Context, *tls.Config) (jabber.CertInfo, error) {
	return jabber.CertInfo{}, errors.New("not supported")
}

func (s *server) StartCompression(string) error {
	return errors.New("not supported")
}

func newClient(s *server) *jabber.Client {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return jabber.New(s, jabber.Config{
		JID:      jid.MustParse("juliet@example.net"),
		Password: "secret",
		Logger:   l,
	})
}

func TestHandle(t *testing.T) {
	s := newServer(login+
		`<iq type='get' id='p1' from='example.net'><ping xmlns='urn:xmpp:ping'/></iq>`+
		`<iq type='result' id='p2' from='example.net'><ping xmlns='urn:xmpp:ping'/></iq>`+end, nil)
	c := newClient(s)
	ping.Handle(c)

	require.Error(t, c.Run(context.Background()))
	out := s.written()
	require.Contains(t, out, `<iq id="p1" to="example.net" type="result"></iq>`)
	require.NotContains(t, out, `id="p2"`)
}

func TestSend(t *testing.T) {
	var got []error
	for _, reply := range []string{
		`<iq type='result' id='%s' from='example.net'/>`,
		`<iq type='error' id='%s' from='example.net'><ping xmlns='urn:xmpp:ping'/><error type='cancel'><service-unavailable xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error></iq>`,
	} {
		reply := reply
		s := newServer(login, func(id string) string {
			return fmt.Sprintf(reply, id) + end
		})
		c := newClient(s)
		c.RegisterConnectionListener(jabber.ListenerFuncs{Connect: func() {
			_, err := ping.Send(context.Background(), c, jid.MustParse("example.net"), func(err error) {
				got = append(got, err)
			})
			require.NoError(t, err)
		}})
		require.Error(t, c.Run(context.Background()))
	}

	require.Len(t, got, 2)
	require.NoError(t, got[0])
	var se stanza.Error
	require.True(t, errors.As(got[1], &se))
	require.Equal(t, stanza.ServiceUnavailable, se.Condition)
}

func TestSendMalformedError(t *testing.T) {
	s := newServer(login, func(id string) string {
		return fmt.Sprintf(`<iq type='error' id='%s' from='example.net'><error type='cancel' by='@example.net'><service-unavailable xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error></iq>`, id) + end
	})
	logger, hook := logtest.NewNullLogger()
	c := jabber.New(s, jabber.Config{
		JID:      jid.MustParse("juliet@example.net"),
		Password: "secret",
		Logger:   logger,
	})
	var got []error
	c.RegisterConnectionListener(jabber.ListenerFuncs{Connect: func() {
		_, err := ping.Send(context.Background(), c, jid.MustParse("example.net"), func(err error) {
			got = append(got, err)
		})
		require.NoError(t, err)
	}})
	require.Error(t, c.Run(context.Background()))

	require.Len(t, got, 1)
	require.Error(t, got[0])
	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "ping: malformed error reply" {
			warned = true
			require.Equal(t, logrus.WarnLevel, entry.Level)
			require.Equal(t, "jabber", entry.Data["component"])
		}
	}
	require.True(t, warned)
}
