package transport

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sensitiveWords mark query parameters and headers whose values are never logged.
var sensitiveWords = []string{"password", "token", "session", "cookie", "authorization", "secret"} //nolint:gochecknoglobals

// NewLoggingTransport logs every request and its response or error at
// debug level. Each pair shares a correlation id.
func NewLoggingTransport(roundTripper http.RoundTripper, log *slog.Logger) http.RoundTripper {
	if roundTripper == nil {
		roundTripper = http.DefaultTransport
	}

	if log == nil {
		log = slog.Default()
	}

	return &loggingTransport{transport: roundTripper, log: log}
}

type loggingTransport struct {
	transport http.RoundTripper
	log       *slog.Logger
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	correlationID := uuid.NewString()
	if id, err := uuid.NewV7(); err == nil {
		correlationID = id.String()
	}

	log := l.log.With(
		"correlation-id", correlationID,
		"method", request.Method,
		"url", RedactURL(request.URL))

	log.Debug("http request", "headers", redactHeaders(request.Header))

	start := time.Now()

	response, err := l.transport.RoundTrip(request)
	if err != nil {
		log.Warn("http request failed", "error", err, "duration", time.Since(start))

		return response, err //nolint:wrapcheck
	}

	log.Debug("http response",
		"status", response.StatusCode,
		"duration", time.Since(start),
		"headers", redactHeaders(response.Header))

	return response, nil
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)

	for _, word := range sensitiveWords {
		if strings.Contains(key, word) {
			return true
		}
	}

	return false
}

// RedactURL renders u with sensitive query values and any password removed.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	clean := *u
	if clean.User != nil {
		clean.User = url.User(clean.User.Username())
	}

	query := clean.Query()
	for key := range query {
		if isSensitive(key) {
			query.Set(key, "[redacted]")
		}
	}

	clean.RawQuery = query.Encode()

	return clean.String()
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))

	for key, values := range headers {
		if isSensitive(key) {
			out[key] = "[redacted]"

			continue
		}

		out[key] = strings.Join(values, ", ")
	}

	return out
}
