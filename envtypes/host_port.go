// Package envtypes holds the structured values envutil can parse
// environment variables into.
package envtypes

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrBadHostPort = errors.New("invalid host:port")

// HostPort is a network address to listen on or dial.
// An empty Host means every interface.
type HostPort struct {
	Host string
	Port uint16
}

// ParseHostPort parses "host:port", "[v6]:port" or ":port".
func ParseHostPort(value string) (HostPort, error) {
	host, port, err := net.SplitHostPort(value)
	if err != nil {
		return HostPort{}, fmt.Errorf("%w: %w", ErrBadHostPort, err)
	}

	parsed, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return HostPort{}, fmt.Errorf("%w: port %q", ErrBadHostPort, port)
	}

	return HostPort{Host: host, Port: uint16(parsed)}, nil
}

// String returns the address in the form net.Listen accepts.
func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, strconv.FormatUint(uint64(hp.Port), 10))
}
