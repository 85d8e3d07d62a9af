// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package discover is used to look up the addresses of XMPP services.
package discover // import "mellium.im/jabber/internal/discover"

import (
	"context"
	"errors"
	"net"
)

// Services that may be looked up.
const (
	Client          = "xmpp-client"
	ClientDirectTLS = "xmpps-client"
)

// ErrInvalidService is returned when an unknown service name is looked up.
var ErrInvalidService = errors.New("discover: service must be one of xmpp-client or xmpps-client")

// Resolver is the subset of *net.Resolver used for lookups.
type Resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// FallbackRecords returns fake SRV records pointing at the well known port for
// service on domain.
// They are used when a domain publishes no SRV records at all.
func FallbackRecords(service, domain string) []*net.SRV {
	switch service {
	case Client:
		return []*net.SRV{{Target: domain, Port: 5222}}
	case ClientDirectTLS:
		return []*net.SRV{{Target: domain, Port: 5223}}
	}
	return nil
}

// LookupService returns the SRV records for service on domain in the order
// they should be tried.
// If no records exist the fallback records are returned. If the only record
// has a target of "." the service is decidedly not available and an empty list
// is returned (RFC 6120 §3.2.1).
func LookupService(ctx context.Context, resolver Resolver, service, domain string) ([]*net.SRV, error) {
	switch service {
	case Client, ClientDirectTLS:
	default:
		return nil, ErrInvalidService
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	_, addrs, err := resolver.LookupSRV(ctx, service, "tcp", domain)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		return FallbackRecords(service, domain), nil
	}
	if len(addrs) == 1 && addrs[0].Target == "." {
		return nil, nil
	}
	return addrs, nil
}
