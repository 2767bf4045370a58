package transport

import (
	"context"
	"net"
	"net/http"

	"github.com/rs/dnscache"
)

// dnsResolver is shared by every transport that enables DNS caching.
var dnsResolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// useDNSCacheDialer makes trans resolve hosts through the shared cache and
// try each address in turn.
func useDNSCacheDialer(trans *http.Transport, dialer *net.Dialer) {
	trans.DialContext = func(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		ips, err := dnsResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				break
			}
		}

		return conn, err //nolint:wrapcheck
	}
}

// RefreshDNS drops stale cache entries. Call it periodically from a
// long-running process.
func RefreshDNS() {
	dnsResolver.Refresh(true)
}
