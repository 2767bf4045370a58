package transport

import (
	"net/http"

	"github.com/SatoshiAndKin/chandelier-or-not/closer"
	"github.com/fereidani/httpdecompressor"
)

// NewDecompressor wraps roundTripper so that response bodies compressed
// with gzip, deflate, br or zstd are decoded transparently.
func NewDecompressor(roundTripper http.RoundTripper) http.RoundTripper {
	if roundTripper == nil {
		roundTripper = http.DefaultTransport
	}

	return &decompressor{
		roundTripper: roundTripper,
	}
}

type decompressor struct {
	roundTripper http.RoundTripper
}

var _ http.RoundTripper = (*decompressor)(nil)

func (d *decompressor) RoundTrip(request *http.Request) (*http.Response, error) {
	rsp, err := d.roundTripper.RoundTrip(request)
	if err != nil {
		return rsp, err //nolint:wrapcheck
	}

	origBody := rsp.Body

	bodyReader, err := httpdecompressor.Reader(rsp)
	if err != nil {
		_ = origBody.Close()

		return nil, err //nolint:wrapcheck
	}

	if bodyReader == origBody {
		return rsp, nil
	}

	// The decoder is closed before the body that feeds it.
	rsp.Body = closer.ForReader(bodyReader, closer.NewCloser(bodyReader, origBody))
	rsp.Header.Del("Content-Encoding")
	rsp.Header.Del("Content-Length")
	rsp.ContentLength = -1

	return rsp, nil
}
