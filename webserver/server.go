// Package webserver serves the Farcaster frame pages, the metrics endpoint
// and a health check.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultFrameTimeout    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultImageBase       = "https://ipfs.io/ipfs/"

	maxErrorMessage   = 90
	readHeaderTimeout = 5 * time.Second
)

var (
	ErrBadHash = errors.New("not an ipfs hash")

	hashPattern = regexp.MustCompile(`^[A-Za-z0-9]{16,128}$`) //nolint:gochecknoglobals

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "webserver_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"code", "method"})
)

// Options configures the server.
type Options struct {
	RequestTimeout  time.Duration
	FrameTimeout    time.Duration
	ShutdownTimeout time.Duration
	// PublicURL is where clients reach the server. Frame post URLs are built from it.
	PublicURL *url.URL
	// ImageBase is prefixed to an ipfs hash to get its image URL.
	ImageBase *url.URL
	// InitialImage is shown by the first frame.
	InitialImage *url.URL
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}

	if o.FrameTimeout <= 0 {
		o.FrameTimeout = DefaultFrameTimeout
	}

	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}

	if o.PublicURL == nil {
		o.PublicURL = &url.URL{Scheme: "http", Host: "127.0.0.1:3000", Path: "/"}
	}

	if o.ImageBase == nil {
		o.ImageBase, _ = url.Parse(DefaultImageBase)
	}

	if o.InitialImage == nil {
		o.InitialImage = &url.URL{Scheme: "https", Host: "example.com"}
	}

	if o.Logger == nil {
		o.Logger = logger.Get(logger.WithSubsystem(context.Background(), "webserver"))
	}

	return o
}

// Server is the frame server.
type Server struct {
	opts    Options
	handler http.Handler
}

func New(opts Options) *Server {
	s := &Server{opts: opts.withDefaults()}
	s.handler = s.routes()

	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.initialFrame)
	mux.HandleFunc("POST /{$}", s.initialFrame)
	mux.Handle("POST /frame/{hash}",
		http.TimeoutHandler(http.HandlerFunc(s.framePost), s.opts.FrameTimeout, "frame timed out"))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	var handler http.Handler = http.TimeoutHandler(mux, s.opts.RequestTimeout, "request timed out")
	handler = promhttp.InstrumentHandlerDuration(requestDuration, handler)

	return s.logRequests(handler)
}

// Serve accepts connections on listener until token is cancelled, then
// shuts down gracefully within ShutdownTimeout. A server that fails
// cancels token.
func (s *Server) Serve(token shutdown.Token, listener net.Listener) error {
	guard := token.DropGuard()
	defer guard.Drop()

	log := s.opts.Logger

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(token.Context())
		},
	}

	served := make(chan error, 1)

	go func() {
		log.Info("listening", "addr", listener.Addr().String())

		served <- srv.Serve(listener)
	}()

	select {
	case err := <-served:
		return fmt.Errorf("web server: %w", err)
	case <-token.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	log.Info("web server shutting down")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}

	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(token shutdown.Token, addr string) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(token.Context(), "tcp", addr)
	if err != nil {
		token.Cancel()

		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	return s.Serve(token, listener)
}

func (s *Server) initialFrame(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, Frame{
		Version:     FrameVersion,
		Image:       s.opts.InitialImage,
		AspectRatio: AspectRatioWide,
		Buttons: []Button{
			{Label: "post", Action: ActionPost},
			{Label: "post_redirect", Action: ActionPostRedirect},
		},
	})
}

func (s *Server) framePost(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if !hashPattern.MatchString(hash) {
		writeFrameError(w, http.StatusBadRequest, fmt.Sprintf("%s: %q", ErrBadHash, hash))

		return
	}

	s.render(w, r, Frame{
		Version:     FrameVersion,
		Image:       s.opts.ImageBase.JoinPath(hash),
		AspectRatio: AspectRatioWide,
		Buttons: []Button{
			{Label: "chandelier", Action: ActionPost},
			{Label: "not", Action: ActionPost},
		},
		PostURL: s.opts.PublicURL.JoinPath("frame", hash),
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, frame Frame) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := frameTemplate.Execute(w, frame); err != nil {
		logger.Get(r.Context()).Error("rendering frame failed", "error", err)
	}
}

// writeFrameError answers with the JSON error body frame clients display.
func writeFrameError(w http.ResponseWriter, status int, message string) {
	if len(message) > maxErrorMessage {
		message = message[:maxErrorMessage]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestId(r.Context(), uuid.NewString())
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		s.opts.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
