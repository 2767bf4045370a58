package transport

import "time"

// DefaultSettings are used for every variable that is not set.
var DefaultSettings = Settings{ //nolint:gochecknoglobals
	MaxIdleConns:        16,
	MaxConnsPerHost:     32,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	DialTimeout:         30 * time.Second,
	KeepAlive:           30 * time.Second,
}
