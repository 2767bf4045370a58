// Package closer combines io.Closer values.
package closer

import (
	"errors"
	"io"
	"sync"
)

type customCloser struct {
	closeFn func() error
}

// CustomCloser turns a cleanup function into an io.Closer.
// Returns nil if closeFn is nil.
func CustomCloser(closeFn func() error) io.Closer {
	if closeFn == nil {
		return nil
	}

	return &customCloser{closeFn: closeFn}
}

func (c *customCloser) Close() error {
	return c.closeFn()
}

// Closer collects closers and closes them together, in the order they
// were added. Every closer is attempted even when an earlier one fails.
type Closer struct {
	mut     sync.Mutex
	closers []io.Closer
}

func NewCloser(closers ...io.Closer) *Closer {
	return &Closer{closers: closers}
}

// Add registers closer. Nil closers are skipped on Close.
func (c *Closer) Add(closer io.Closer) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.closers = append(c.closers, closer)
}

// Close closes everything registered and joins the errors.
// Closers are forgotten afterwards, so a second Close does nothing.
func (c *Closer) Close() error {
	c.mut.Lock()
	closers := c.closers
	c.closers = nil
	c.mut.Unlock()

	var errs []error

	for _, closer := range closers {
		if closer == nil {
			continue
		}

		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// ForReader pairs a reader with the closer that releases it.
func ForReader(r io.Reader, c io.Closer) io.ReadCloser {
	return &readCloser{Reader: r, Closer: c}
}
