// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"mellium.im/jabber/jid"
)

func TestStartTLSBeforeAuth(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>` +
		`<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>` +
		`<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>` +
		testServerHeader + featuresPlain + saslSuccess +
		testServerHeader + featuresBind + bindResult + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	err := c.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, ConnStreamClosed, disconnectReason(t, c))

	out := tr.written()
	starttls := strings.Index(out, `<starttls xmlns="urn:ietf:params:xml:ns:xmpp-tls"></starttls>`)
	auth := strings.Index(out, `<auth xmlns="urn:ietf:params:xml:ns:xmpp-sasl" mechanism="PLAIN">AGp1bGlldABzZWNyZXQ=</auth>`)
	require.True(t, starttls > 0, "starttls was not requested: %s", out)
	require.True(t, auth > starttls, "auth was not sent after starttls: %s", out)
	require.Equal(t, 3, strings.Count(out, "<stream:stream "), "expected two stream restarts")

	require.True(t, tr.IsSecure())
	require.Equal(t, "example.net", tr.tlsConfig.ServerName)
	require.Len(t, ev.certs, 1)
	require.Equal(t, 1, ev.connects)
	require.Equal(t, "juliet@example.net/r", c.JID().String())
}

func TestNoTLS(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>` +
		`<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret", NoTLS: true})

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	require.NotContains(t, out, "<starttls")
	require.Contains(t, out, `mechanism="PLAIN"`)
}

var tlsGateTests = []struct {
	name    string
	status  CertStatus
	accept  []bool
	success bool
}{
	{name: "no listeners ok", status: CertOK, success: true},
	{name: "no listeners bad cert", status: CertSignerUnknown},
	{name: "listener accepts bad cert", status: CertSignerUnknown, accept: []bool{true}, success: true},
	{name: "listener rejects good cert", status: CertOK, accept: []bool{false}},
	{name: "one of two rejects", status: CertOK, accept: []bool{true, false}},
}

func TestTLSGate(t *testing.T) {
	for _, tc := range tlsGateTests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newFakeTransport(testServerHeader +
				`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/></stream:features>` +
				`<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>` +
				testServerHeader + testStreamEnd)
			tr.certInfo = CertInfo{Status: tc.status}
			c := newTestClient(tr, Config{Password: "secret"})
			evs := make([]*events, len(tc.accept))
			for i, accept := range tc.accept {
				evs[i] = &events{}
				c.RegisterConnectionListener(evs[i].listener(accept))
			}

			require.Error(t, c.Run(context.Background()))
			for _, ev := range evs {
				require.Len(t, ev.certs, 1)
				require.Equal(t, tc.status, ev.certs[0].Status)
			}
			if tc.success {
				require.Equal(t, ConnStreamClosed, disconnectReason(t, c))
				require.Equal(t, 2, strings.Count(tr.written(), "<stream:stream "))
				return
			}
			require.Equal(t, ConnTLSFailed, disconnectReason(t, c))
			require.Equal(t, 1, strings.Count(tr.written(), "<stream:stream "))
		})
	}
}

func TestTLSHandshakeError(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/></stream:features>` +
		`<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)
	tr.tlsErr = errors.New("handshake failed")
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnTLSFailed, disconnectReason(t, c))
	require.True(t, errors.Is(c.Err(), tr.tlsErr))
}

func TestTLSFailure(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/></stream:features>` +
		`<failure xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnTLSFailed, disconnectReason(t, c))
	require.False(t, tr.IsSecure())
}

func TestCompression(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><compression xmlns='http://jabber.org/features/compress'><method>lzw</method><method>zlib</method></compression>` +
		`<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>` +
		`<compressed xmlns='http://jabber.org/protocol/compress'/>` +
		testServerHeader + featuresPlain + testStreamEnd)
	tr.methods = map[string]bool{"zlib": true, "lzw": true}
	c := newTestClient(tr, Config{Password: "secret", Compression: true})

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	compress := strings.Index(out, `<compress xmlns="http://jabber.org/protocol/compress"><method>zlib</method></compress>`)
	auth := strings.Index(out, `<auth `)
	require.True(t, compress > 0, "compression was not requested: %s", out)
	require.True(t, auth > compress, "auth was not sent after compression: %s", out)
	require.Equal(t, "zlib", tr.compression)
	require.Equal(t, 1, strings.Count(out, "<compress "), "compression must only be negotiated once")
}

func TestCompressionDisabled(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><compression xmlns='http://jabber.org/features/compress'><method>zlib</method></compression>` +
		`<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms></stream:features>` +
		testStreamEnd)
	tr.methods = map[string]bool{"zlib": true}
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.NotContains(t, tr.written(), "<compress ")
	require.Contains(t, tr.written(), "<auth ")
}

func TestCompressionFailure(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><compression xmlns='http://jabber.org/features/compress'><method>zlib</method></compression></stream:features>` +
		`<failure xmlns='http://jabber.org/protocol/compress'><setup-failed/></failure>` + testStreamEnd)
	tr.methods = map[string]bool{"zlib": true}
	c := newTestClient(tr, Config{Password: "secret", Compression: true})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnTLSFailed, disconnectReason(t, c))
	require.Empty(t, tr.compression)
}

func TestLegacyAuthWhenSASLDisabled(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism><mechanism>DIGEST-MD5</mechanism></mechanisms>` +
		`<auth xmlns='http://jabber.org/features/iq-auth'/></stream:features>` +
		`<iq type='result' id='id1'><query xmlns='jabber:iq:auth'><username/><password/><digest/><resource/></query></iq>` +
		`<iq type='result' id='id2'/>` + testStreamEnd)
	c := newTestClient(tr, Config{
		JID:      jid.MustParse("juliet@example.net/balcony"),
		Password: "secret",
		NoSASL:   true,
	})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	require.NotContains(t, out, "<auth ")
	require.Contains(t, out, `<iq id="id1" to="example.net" type="get"><query xmlns="jabber:iq:auth"><username>juliet</username></query></iq>`)
	require.Contains(t, out, `<iq id="id2" to="example.net" type="set"><query xmlns="jabber:iq:auth"><username>juliet</username><digest>51f9d0019b56cf7820d807e960b8d9e93e476d00</digest><resource>balcony</resource></query></iq>`)
	require.NotContains(t, out, `id="bind"`)
	require.Equal(t, 1, ev.connects)
	require.Equal(t, "juliet@example.net/balcony", c.JID().String())
}

func TestLegacyAuthPassword(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><auth xmlns='http://jabber.org/features/iq-auth'/></stream:features>` +
		`<iq type='result' id='id1'><query xmlns='jabber:iq:auth'><username/><password/><resource/></query></iq>` +
		`<iq type='result' id='id2'/>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Contains(t, tr.written(), `<password>secret</password><resource>jabber</resource>`)
	require.Equal(t, "juliet@example.net/jabber", c.JID().String())
}

func TestLegacyAuthError(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><auth xmlns='http://jabber.org/features/iq-auth'/></stream:features>` +
		`<iq type='result' id='id1'><query xmlns='jabber:iq:auth'><username/><password/><resource/></query></iq>` +
		`<iq type='error' id='id2'><error code='409' type='cancel'><conflict xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error></iq>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnAuthenticationFailed, disconnectReason(t, c))
	require.Equal(t, NonSaslConflict, c.AuthError())
	require.Zero(t, ev.connects)
	require.Equal(t, []ConnectionError{ConnAuthenticationFailed}, ev.disconnects)
}

func TestLegacyAuthRequestWithSameID(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><auth xmlns='http://jabber.org/features/iq-auth'/></stream:features>` +
		`<iq type='get' id='id1' from='example.net'><query xmlns='urn:xmpp:ping'/></iq>` +
		`<iq type='result' id='id1'><query xmlns='jabber:iq:auth'><username/><password/><resource/></query></iq>` +
		`<iq type='result' id='id2'/>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	require.Contains(t, out, `<iq id="id1" to="example.net" type="error"><error type="cancel"><service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"></service-unavailable></error></iq>`)
	require.Contains(t, out, `<password>secret</password>`)
	require.Equal(t, "juliet@example.net/jabber", c.JID().String())
}

func TestForceLegacyAuth(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret", ForceLegacyAuth: true})

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	require.NotContains(t, out, "<auth ")
	require.Contains(t, out, `<query xmlns="jabber:iq:auth">`)
}

func TestPreXMPP1Server(t *testing.T) {
	tr := newFakeTransport(`<?xml version='1.0'?><stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' id='c2s123' from='example.net'>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, IQAuth, c.Features())
	require.Contains(t, tr.written(), `<query xmlns="jabber:iq:auth"><username>juliet</username></query>`)
}

func TestUnsupportedMechanisms(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>SCRAM-SHA-1</mechanism><mechanism>X-OAUTH2</mechanism></mechanisms></stream:features>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnNoSupportedAuth, disconnectReason(t, c))
	require.Equal(t, []ConnectionError{ConnNoSupportedAuth}, ev.disconnects)
	out := tr.written()
	require.NotContains(t, out, "<auth")
	require.NotContains(t, out, "<iq")
	require.NotContains(t, out, "<message")
	require.NotContains(t, out, "<presence")
}

func TestNoCredentialsSkipsAuth(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresBind + testStreamEnd)
	c := newTestClient(tr, Config{JID: jid.MustParse("example.net")})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnStreamClosed, disconnectReason(t, c))
	require.Equal(t, 1, ev.connects)
	require.Equal(t, "example.net", c.JID().String())
	out := tr.written()
	require.NotContains(t, out, "<auth")
	require.NotContains(t, out, "<iq")
}

func TestCertWithoutExternal(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresBind + testStreamEnd)
	c := newTestClient(tr, Config{
		JID:       jid.MustParse("example.net"),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{{}}},
	})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnNoSupportedAuth, disconnectReason(t, c))
}

var mechanismSelectionTests = []struct {
	name     string
	features string
	cfg      Config
	want     string
}{
	{
		name:     "digest preferred",
		features: `<mechanism>PLAIN</mechanism><mechanism>DIGEST-MD5</mechanism><mechanism>ANONYMOUS</mechanism>`,
		cfg:      Config{Password: "secret"},
		want:     `<auth xmlns="urn:ietf:params:xml:ns:xmpp-sasl" mechanism="DIGEST-MD5"></auth>`,
	},
	{
		name:     "anonymous without credentials",
		features: `<mechanism>PLAIN</mechanism><mechanism>ANONYMOUS</mechanism>`,
		cfg:      Config{JID: jid.MustParse("example.net")},
		want:     `<auth xmlns="urn:ietf:params:xml:ns:xmpp-sasl" mechanism="ANONYMOUS"></auth>`,
	},
	{
		name:     "plain over anonymous",
		features: `<mechanism>ANONYMOUS</mechanism><mechanism>PLAIN</mechanism>`,
		cfg:      Config{Password: "secret"},
		want:     `mechanism="PLAIN"`,
	},
}

func TestMechanismSelection(t *testing.T) {
	for _, tc := range mechanismSelectionTests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newFakeTransport(testServerHeader +
				`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'>` + tc.features + `</mechanisms></stream:features>` +
				testStreamEnd)
			c := newTestClient(tr, tc.cfg)
			require.Error(t, c.Run(context.Background()))
			require.Contains(t, tr.written(), tc.want)
		})
	}
}

func TestDigestMD5Exchange(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>DIGEST-MD5</mechanism></mechanisms></stream:features>` +
		`<challenge xmlns='urn:ietf:params:xml:ns:xmpp-sasl'>cmVhbG09ImV4YW1wbGUubmV0Iixub25jZT0iYWJjIixxb3A9ImF1dGgiLGNoYXJzZXQ9dXRmLTgsYWxnb3JpdGhtPW1kNS1zZXNz</challenge>` +
		saslSuccess + testServerHeader + featuresBind + bindResult + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	require.Contains(t, out, `<response xmlns="urn:ietf:params:xml:ns:xmpp-sasl">`)
	require.Equal(t, 1, ev.connects)
}

func TestSASLFailure(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain +
		`<failure xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><not-authorized/><text xml:lang='en'>Wrong password</text></failure>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "wrong"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnAuthenticationFailed, disconnectReason(t, c))
	require.Equal(t, SaslNotAuthorized, c.AuthError())
	require.Zero(t, ev.connects)
}

func TestSASLBadChallenge(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:features><mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>DIGEST-MD5</mechanism></mechanisms></stream:features>` +
		`<challenge xmlns='urn:ietf:params:xml:ns:xmpp-sasl'>not base64!</challenge>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnAuthenticationFailed, disconnectReason(t, c))
	require.Equal(t, SaslAborted, c.AuthError())
	require.Contains(t, tr.written(), `<abort xmlns="urn:ietf:params:xml:ns:xmpp-sasl"></abort>`)
}

func TestBindAndSession(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		`<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/><session xmlns='urn:ietf:params:xml:ns:xmpp-session'/></stream:features>` +
		bindResult + `<iq type='result' id='session'/>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	out := tr.written()
	bind := strings.Index(out, `<iq id="bind" type="set"><bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"></bind></iq>`)
	session := strings.Index(out, `<iq id="session" type="set"><session xmlns="urn:ietf:params:xml:ns:xmpp-session"></session></iq>`)
	require.True(t, bind > 0, "bind was not requested: %s", out)
	require.True(t, session > bind, "session was not requested after bind: %s", out)
	require.Equal(t, 1, ev.connects)
	require.Equal(t, "r", c.JID().Resourcepart())
	require.Equal(t, []ConnectionError{ConnStreamClosed}, ev.disconnects)
}

func TestBindRequestedResource(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		featuresBind + bindResult + testStreamEnd)
	c := newTestClient(tr, Config{JID: jid.MustParse("juliet@example.net/balcony"), Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Contains(t, tr.written(), `<bind xmlns="urn:ietf:params:xml:ns:xmpp-bind"><resource>balcony</resource></bind>`)
	require.Equal(t, "juliet@example.net/r", c.JID().String())
}

func TestBindOnly(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		featuresBind + bindResult + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.NotContains(t, tr.written(), `id="session"`)
	require.Equal(t, 1, ev.connects)
}

func TestOptionalSession(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		`<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/><session xmlns='urn:ietf:params:xml:ns:xmpp-session'><optional/></session></stream:features>` +
		bindResult + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.NotContains(t, tr.written(), `id="session"`)
	require.Equal(t, 1, ev.connects)
}

func TestAuthenticatedWithoutBind(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		`<stream:features/>` + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.NotContains(t, tr.written(), `jabber:iq:auth`)
	require.Equal(t, 1, ev.connects)
}

var bindErrorTests = []struct {
	errXML string
	want   ResourceBindError
}{
	{`<error type='cancel'><conflict xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, RbErrorConflict},
	{`<error type='modify'><bad-request xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, RbErrorBadRequest},
	{`<error type='cancel'><not-allowed xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, RbErrorNotAllowed},
	{`<error type='wait'><resource-constraint xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, RbErrorUnknownError},
}

func TestBindError(t *testing.T) {
	for _, tc := range bindErrorTests {
		t.Run(tc.want.String(), func(t *testing.T) {
			tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
				`<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/><session xmlns='urn:ietf:params:xml:ns:xmpp-session'/></stream:features>` +
				`<iq type='error' id='bind'>` + tc.errXML + `</iq>` + testStreamEnd)
			c := newTestClient(tr, Config{Password: "secret"})
			var ev events
			c.RegisterConnectionListener(ev.listener(true))

			require.Error(t, c.Run(context.Background()))
			require.Equal(t, []ResourceBindError{tc.want}, ev.bindErrs)
			require.Zero(t, ev.connects)
			require.Equal(t, ConnResourceBindFailed, disconnectReason(t, c))
			require.NotContains(t, tr.written(), `id="session"`)
		})
	}
}

func TestBindMalformedError(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader + featuresBind +
		`<iq type='error' id='bind'><error type='cancel' by='@example.net'><conflict xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error></iq>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	logger, hook := logtest.NewNullLogger()
	c.log = logger
	var ev events
	c.RegisterConnectionListener(ev.listener(true))

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, []ResourceBindError{RbErrorUnknownError}, ev.bindErrs)
	require.Equal(t, ConnResourceBindFailed, disconnectReason(t, c))

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "jabber: malformed stanza error" {
			logged = true
			require.Equal(t, logrus.WarnLevel, entry.Level)
			require.Equal(t, "bind", entry.Data["id"])
		}
	}
	require.True(t, logged)
}

var sessionErrorTests = []struct {
	errXML string
	want   SessionCreateError
}{
	{`<error type='wait'><internal-server-error xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, ScErrorInternalServerError},
	{`<error type='auth'><forbidden xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, ScErrorForbidden},
	{`<error type='cancel'><conflict xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, ScErrorConflict},
	{`<error type='cancel'><forbidden xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/></error>`, ScErrorUnknownError},
}

func TestSessionError(t *testing.T) {
	for _, tc := range sessionErrorTests {
		t.Run(tc.want.String(), func(t *testing.T) {
			tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
				`<stream:features><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/><session xmlns='urn:ietf:params:xml:ns:xmpp-session'/></stream:features>` +
				bindResult + `<iq type='error' id='session'>` + tc.errXML + `</iq>` + testStreamEnd)
			c := newTestClient(tr, Config{Password: "secret"})
			var ev events
			c.RegisterConnectionListener(ev.listener(true))

			require.Error(t, c.Run(context.Background()))
			require.Equal(t, []SessionCreateError{tc.want}, ev.sessionErrs)
			require.Zero(t, ev.connects)
			require.Equal(t, ConnSessionCreateFailed, disconnectReason(t, c))
		})
	}
}

func TestStreamError(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:error><conflict xmlns='urn:ietf:params:xml:ns:xmpp-streams'/><text xmlns='urn:ietf:params:xml:ns:xmpp-streams'>Replaced by new connection</text></stream:error>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnStreamError, disconnectReason(t, c))
	se := c.StreamError()
	require.NotNil(t, se)
	require.Equal(t, "conflict", se.Err)
	require.Equal(t, "Replaced by new connection", se.Text)
}

func TestStreamErrorWithoutCondition(t *testing.T) {
	tr := newFakeTransport(testServerHeader +
		`<stream:error><text xmlns='urn:ietf:params:xml:ns:xmpp-streams'>Going away</text></stream:error>` +
		testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnStreamError, disconnectReason(t, c))
	se := c.StreamError()
	require.NotNil(t, se)
	require.Equal(t, "undefined-condition", se.Err)
	require.Equal(t, "Going away", se.Text)
}

func TestInvalidStreamHeader(t *testing.T) {
	tr := newFakeTransport(`<stream:stream xmlns='jabber:server' xmlns:stream='http://etherx.jabber.org/streams' version='1.0'>`)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnStreamError, disconnectReason(t, c))
}

func TestUnexpectedEOF(t *testing.T) {
	tr := newFakeTransport(testServerHeader)
	c := newTestClient(tr, Config{Password: "secret"})

	require.Error(t, c.Run(context.Background()))
	require.Equal(t, ConnIOError, disconnectReason(t, c))
	require.NotContains(t, tr.written(), "</stream:stream>")
}

func TestConnectError(t *testing.T) {
	tr := newFakeTransport("")
	tr.connectErr = errors.New("connection refused")
	c := newTestClient(tr, Config{Password: "secret"})

	err := c.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, tr.connectErr))
	require.Equal(t, Disconnected, c.State())
	require.Empty(t, tr.written())
}

func TestStreamHeader(t *testing.T) {
	tr := newFakeTransport(testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret"})
	c.cfg.Lang = language.English

	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, Connecting, c.State())
	require.Equal(t,
		`<?xml version='1.0' ?><stream:stream to='example.net' xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' xml:lang='en' version='1.0'>`,
		tr.written())
	require.Equal(t, ErrAlreadyConnected, c.Connect(context.Background()))
}

func TestAutoPresence(t *testing.T) {
	tr := newFakeTransport(testServerHeader + featuresPlain + saslSuccess + testServerHeader +
		featuresBind + bindResult + testStreamEnd)
	c := newTestClient(tr, Config{Password: "secret", AutoPresence: true, Priority: 500})
	connected := false
	c.RegisterConnectionListener(ListenerFuncs{Connect: func() {
		connected = true
		require.Contains(t, tr.written(), `<presence><priority>127</priority></presence>`)
	}})

	require.Error(t, c.Run(context.Background()))
	require.True(t, connected)
}
