package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/http/transport"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/retry"
	"github.com/SatoshiAndKin/chandelier-or-not/should"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	maxErrorBody   = 512
)

// HTTPSession speaks JSON to a scraping gateway:
//
//	POST {base}/login                      {"username": ..., "password": ...}
//	GET  {base}/profiles/{name}            ProfileInfo
//	GET  {base}/profiles/{id}/posts?limit= {"posts": [Post...]}
//	POST {base}/logout
//
// The gateway keeps the login in cookies, which the session's jar holds.
// Reads are retried after transport failures and 5xx or 429 responses.
type HTTPSession struct {
	base     *url.URL
	client   *http.Client
	retry    []retry.Option
	creds    *Credentials
	loggedIn bool
}

var _ Session = (*HTTPSession)(nil)

type HTTPOption func(*httpOptions)

type httpOptions struct {
	roundTripper http.RoundTripper
	timeout      time.Duration
	retry        []retry.Option
}

// WithRoundTripper replaces the default transport.
func WithRoundTripper(rt http.RoundTripper) HTTPOption {
	return func(o *httpOptions) {
		o.roundTripper = rt
	}
}

// WithTimeout bounds each call to the gateway.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(o *httpOptions) {
		o.timeout = timeout
	}
}

// WithRetries bounds how many times a read is attempted and how long
// to wait between attempts.
func WithRetries(attempts retry.Attempts, backoff retry.ExpBackoff) HTTPOption {
	return func(o *httpOptions) {
		o.retry = append(o.retry, retry.WithAttempts(attempts), retry.WithBackoff(backoff))
	}
}

// NewHTTPSession creates a session against the gateway at baseURL.
func NewHTTPSession(ctx context.Context, baseURL string, opts ...HTTPOption) (*HTTPSession, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing scraper url: %w", err)
	}

	options := httpOptions{
		timeout: defaultTimeout,
		retry:   []retry.Option{retry.WithAttempts(defaultRetries)},
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.roundTripper == nil {
		settings, err := transport.SettingsFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("configuring scraper transport: %w", err)
		}

		options.roundTripper = transport.New(settings, transport.WithDNSCache)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	rt := transport.NewLoggingTransport(
		transport.NewDecompressor(options.roundTripper),
		logger.Get(logger.WithSubsystem(ctx, "scraper")))

	return &HTTPSession{
		base: base,
		client: &http.Client{
			Transport: rt,
			Jar:       jar,
			Timeout:   options.timeout,
		},
		retry: options.retry,
	}, nil
}

func (s *HTTPSession) Authenticate(creds Credentials) {
	s.creds = &creds
}

func (s *HTTPSession) Login(ctx context.Context) error {
	if s.creds == nil {
		return ErrNotAuthenticated
	}

	body := map[string]string{
		"username": s.creds.Username,
		"password": s.creds.Password,
	}

	if err := s.call(ctx, http.MethodPost, "login", nil, body, nil); err != nil {
		return fmt.Errorf("logging in as %s: %w", s.creds.Username, err)
	}

	s.loggedIn = true

	return nil
}

func (s *HTTPSession) FetchProfileInfo(ctx context.Context, name string) (ProfileInfo, error) {
	var info ProfileInfo

	if !s.loggedIn {
		return info, ErrNotLoggedIn
	}

	if err := s.get(ctx, "profiles/"+url.PathEscape(name), nil, &info); err != nil {
		return info, fmt.Errorf("fetching profile %s: %w", name, err)
	}

	return info, nil
}

func (s *HTTPSession) FetchItems(ctx context.Context, profileID string, limit int) ([]Post, error) {
	if !s.loggedIn {
		return nil, ErrNotLoggedIn
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}}

	var page struct {
		Posts []Post `json:"posts"`
	}

	err := s.get(ctx, "profiles/"+url.PathEscape(profileID)+"/posts", query, &page)
	if err != nil {
		return nil, fmt.Errorf("fetching posts of %s: %w", profileID, err)
	}

	if len(page.Posts) > limit {
		page.Posts = page.Posts[:limit]
	}

	return page.Posts, nil
}

func (s *HTTPSession) Logout(ctx context.Context) error {
	if !s.loggedIn {
		return ErrNotLoggedIn
	}

	if err := s.call(ctx, http.MethodPost, "logout", nil, nil, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	s.loggedIn = false

	return nil
}

func (s *HTTPSession) get(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		if n := retry.Attempt(ctx); n > 0 {
			logger.Get(ctx).Debug("retrying scraper request", "path", path, "attempt", n)
		}

		err := s.call(ctx, http.MethodGet, path, query, nil, out)
		if err == nil || transient(err) {
			return err
		}

		return retry.Abort(err)
	}, s.retry...)
}

// transient reports whether a failed read is worth another attempt.
// A read cut short by a context, the caller's or the client timeout, is final.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}

	var urlErr *url.Error

	return errors.As(err, &urlErr)
}

// call sends in as JSON when non-nil and decodes the response into out when non-nil.
func (s *HTTPSession) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := s.base.JoinPath(path)
	target.RawQuery = query.Encode()

	var body io.Reader

	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err := s.client.Do(req)
	if err != nil {
		return err //nolint:wrapcheck
	}

	defer should.Close(ctx, rsp.Body, "closing response body")

	switch {
	case rsp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case rsp.StatusCode == http.StatusUnauthorized || rsp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrNotLoggedIn, rsp.StatusCode)
	case rsp.StatusCode >= http.StatusBadRequest:
		snippet, _ := io.ReadAll(io.LimitReader(rsp.Body, maxErrorBody))

		return &StatusError{StatusCode: rsp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, rsp.Body)

		return nil
	}

	if err := json.NewDecoder(rsp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// StatusError is an unexpected response from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scraper gateway returned %d: %s", e.StatusCode, e.Body)
}
