// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package saslmech

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"mellium.im/sasl"
)

const (
	digestNonceCount = "00000001"
	digestCharset    = "utf-8"
)

var (
	errDigestNoNonce   = errors.New("saslmech: DIGEST-MD5 challenge did not contain a nonce")
	errDigestQOP       = errors.New("saslmech: DIGEST-MD5 challenge does not offer qop=auth")
	errDigestAlgorithm = errors.New("saslmech: DIGEST-MD5 challenge has an unsupported algorithm")
	errDigestRspAuth   = errors.New("saslmech: DIGEST-MD5 server sent an invalid rspauth")
	errDigestSyntax    = errors.New("saslmech: malformed DIGEST-MD5 challenge")
)

// digestState is carried between steps so that the final rspauth sent by the
// server can be checked against the one we expect.
type digestState struct {
	rspauth string
}

// DigestMD5 returns the SASL DIGEST-MD5 mechanism (RFC 2831) for use against
// the given host.
// The digest-uri is "xmpp/" followed by host, and host doubles as the realm if
// the server does not offer one.
//
// DIGEST-MD5 is obsolete (RFC 6331) and is only provided for servers that offer
// nothing better.
func DigestMD5(host string) sasl.Mechanism {
	return sasl.Mechanism{
		Name: "DIGEST-MD5",
		Start: func(*sasl.Negotiator) (bool, []byte, interface{}, error) {
			return true, nil, nil, nil
		},
		Next: func(m *sasl.Negotiator, challenge []byte, data interface{}) (bool, []byte, interface{}, error) {
			switch m.State() & sasl.StepMask {
			case sasl.AuthTextSent:
				return digestRespond(m, host, challenge)
			case sasl.ResponseSent:
				st, _ := data.(digestState)
				d, err := parseDirectives(string(challenge))
				if err != nil {
					return false, nil, nil, err
				}
				got := d["rspauth"]
				if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(st.rspauth)) != 1 {
					return false, nil, nil, errDigestRspAuth
				}
				return false, nil, nil, nil
			}
			return false, nil, nil, sasl.ErrTooManySteps
		},
	}
}

func digestRespond(m *sasl.Negotiator, host string, challenge []byte) (bool, []byte, interface{}, error) {
	d, err := parseDirectives(string(challenge))
	if err != nil {
		return false, nil, nil, err
	}
	nonce := d["nonce"]
	if nonce == "" {
		return false, nil, nil, errDigestNoNonce
	}
	if alg, ok := d["algorithm"]; ok && alg != "md5-sess" {
		return false, nil, nil, errDigestAlgorithm
	}
	if qop, ok := d["qop"]; ok && !hasToken(qop, "auth") {
		return false, nil, nil, errDigestQOP
	}
	realm := d["realm"]
	if realm == "" {
		realm = host
	}

	username, password, identity := m.Credentials()
	cnonce := hex.EncodeToString(m.Nonce())
	digestURI := "xmpp/" + host

	a1 := digestA1(string(username), realm, string(password), nonce, cnonce, string(identity))
	resp := digestResponse(a1, "AUTHENTICATE:"+digestURI, nonce, cnonce)
	rspauth := digestResponse(a1, ":"+digestURI, nonce, cnonce)

	var b strings.Builder
	b.WriteString(`username="` + quote(string(username)) + `"`)
	b.WriteString(`,realm="` + quote(realm) + `"`)
	b.WriteString(`,nonce="` + quote(nonce) + `"`)
	b.WriteString(`,cnonce="` + cnonce + `"`)
	b.WriteString(`,nc=` + digestNonceCount)
	b.WriteString(`,qop=auth`)
	b.WriteString(`,digest-uri="` + quote(digestURI) + `"`)
	b.WriteString(`,response=` + resp)
	b.WriteString(`,charset=` + digestCharset)
	if len(identity) > 0 {
		b.WriteString(`,authzid="` + quote(string(identity)) + `"`)
	}
	return true, []byte(b.String()), digestState{rspauth: rspauth}, nil
}

func md5sum(s string) []byte {
	h := md5.Sum([]byte(s))
	return h[:]
}

func digestA1(username, realm, password, nonce, cnonce, authzid string) string {
	a1 := string(md5sum(username+":"+realm+":"+password)) + ":" + nonce + ":" + cnonce
	if authzid != "" {
		a1 += ":" + authzid
	}
	return a1
}

func digestResponse(a1, a2, nonce, cnonce string) string {
	ha1 := hex.EncodeToString(md5sum(a1))
	ha2 := hex.EncodeToString(md5sum(a2))
	return hex.EncodeToString(md5sum(ha1 + ":" + nonce + ":" + digestNonceCount + ":" + cnonce + ":auth:" + ha2))
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func hasToken(list, token string) bool {
	for _, t := range strings.Split(list, ",") {
		if strings.TrimSpace(t) == token {
			return true
		}
	}
	return false
}

// parseDirectives splits a digest-challenge into its key=value pairs.
// Values may be quoted, and quoted values may contain commas and escaped
// characters.
func parseDirectives(s string) (map[string]string, error) {
	d := make(map[string]string)
	for {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			return d, nil
		}
		eq := strings.IndexByte(s, '=')
		if eq < 1 {
			return nil, errDigestSyntax
		}
		key := strings.ToLower(strings.TrimSpace(s[:eq]))
		s = strings.TrimLeft(s[eq+1:], " \t")

		var val strings.Builder
		if strings.HasPrefix(s, `"`) {
			i := 1
			for ; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				val.WriteByte(s[i])
			}
			if i >= len(s) {
				return nil, errDigestSyntax
			}
			s = s[i+1:]
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				end = len(s)
			}
			val.WriteString(strings.TrimSpace(s[:end]))
			s = s[end:]
		}
		if _, ok := d[key]; ok && key != "realm" {
			return nil, errDigestSyntax
		}
		if _, ok := d[key]; !ok {
			d[key] = val.String()
		}
	}
}
