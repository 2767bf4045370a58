// Package transport builds the HTTP transport used to talk to the scraping
// gateway. Every session holds one transport and reuses its pooled
// connections for the whole run.
//
// SCRAPER_HTTP_* variables tune the pool:
//
//   - SCRAPER_HTTP_MAX_IDLE_CONNS (default 16)
//   - SCRAPER_HTTP_MAX_CONNS_PER_HOST (default 32, 0 means unbounded)
//   - SCRAPER_HTTP_IDLE_CONN_TIMEOUT (default 90s)
//   - SCRAPER_HTTP_TLS_HANDSHAKE_TIMEOUT (default 10s)
//   - SCRAPER_HTTP_DIAL_TIMEOUT (default 30s)
//   - SCRAPER_HTTP_KEEPALIVE (default 30s)
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
)

// Settings size the connection pool to the gateway.
type Settings struct {
	MaxIdleConns        int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	DialTimeout         time.Duration
	KeepAlive           time.Duration
}

// SettingsFromEnv overlays the SCRAPER_HTTP_* variables on DefaultSettings.
// Every malformed variable is reported.
func SettingsFromEnv(ctx context.Context) (Settings, error) {
	s := DefaultSettings

	var errs []error

	readInt := func(key string, into *int) {
		value, err := envutil.Int(ctx, key, envutil.Default(*into)).Value()
		if err != nil {
			errs = append(errs, err)

			return
		}

		*into = value
	}

	readDuration := func(key string, into *time.Duration) {
		value, err := envutil.Duration(ctx, key, envutil.Default(*into)).Value()
		if err != nil {
			errs = append(errs, err)

			return
		}

		*into = value
	}

	readInt("SCRAPER_HTTP_MAX_IDLE_CONNS", &s.MaxIdleConns)
	readInt("SCRAPER_HTTP_MAX_CONNS_PER_HOST", &s.MaxConnsPerHost)
	readDuration("SCRAPER_HTTP_IDLE_CONN_TIMEOUT", &s.IdleConnTimeout)
	readDuration("SCRAPER_HTTP_TLS_HANDSHAKE_TIMEOUT", &s.TLSHandshakeTimeout)
	readDuration("SCRAPER_HTTP_DIAL_TIMEOUT", &s.DialTimeout)
	readDuration("SCRAPER_HTTP_KEEPALIVE", &s.KeepAlive)

	return s, errors.Join(errs...)
}

type Option func(*options)

type options struct {
	dnsCache    bool
	noPooling   bool
	insecureTLS bool
}

// WithDNSCache resolves gateway hosts through a shared in-process cache.
func WithDNSCache(o *options) {
	o.dnsCache = true
}

// WithoutPooling closes every connection after one request.
func WithoutPooling(o *options) {
	o.noPooling = true
}

// WithInsecureTLS skips certificate verification. Only for local gateways.
func WithInsecureTLS(o *options) {
	o.insecureTLS = true
}

// New returns a transport sized by s. All of the gateway's requests go to
// one host, so the per-host limits are the ones that matter.
func New(s Settings, opts ...Option) *http.Transport {
	var o options

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	dialer := &net.Dialer{
		Timeout:   s.DialTimeout,
		KeepAlive: s.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        s.MaxIdleConns,
		MaxIdleConnsPerHost: s.MaxIdleConns,
		MaxConnsPerHost:     s.MaxConnsPerHost,
		IdleConnTimeout:     s.IdleConnTimeout,
		TLSHandshakeTimeout: s.TLSHandshakeTimeout,
		DisableKeepAlives:   o.noPooling,
	}

	if o.dnsCache {
		useDNSCacheDialer(tr, dialer)
	}

	if o.insecureTLS {
		tr.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		}
	}

	return tr
}
