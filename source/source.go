// Package source is the stage that reads posts from the photo service
// and hands each one to the sink.
//
// The source owns one logged-in scraper session. Requests that use it are
// serialized; the session is never touched outside the actor.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/scraper"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/SatoshiAndKin/chandelier-or-not/spans"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	Name                      = "instagram"
	DefaultConcurrency        = 10
	DefaultFetchLimit         = 10
	DefaultForwardConcurrency = 1
	DefaultProfileCacheTTL    = 10 * time.Minute

	logoutTimeout = 10 * time.Second
)

// ErrNoSession is returned once the session has been ended.
var ErrNoSession = errors.New("scraper session already ended")

// Request is a message the source accepts.
type Request interface {
	isSourceRequest()
}

// FetchItems asks the source to fetch the newest posts of a profile and
// forward them to the sink.
type FetchItems struct {
	CollectionID string
}

// EndSession asks the source to log out.
type EndSession struct{}

func (FetchItems) isSourceRequest() {}
func (EndSession) isSourceRequest() {}

// Result is the source's answer.
type Result struct {
	// Forwarded counts the posts the sink accepted.
	Forwarded int
}

// Sink receives the fetched posts. *sink.Handle implements it.
type Sink interface {
	Process(ctx context.Context, post scraper.Post) error
}

// Options configures the source.
type Options struct {
	Concurrency  int
	MailboxDepth int
	// FetchLimit caps the posts fetched per request.
	FetchLimit int
	// ForwardConcurrency above one forwards posts in parallel, giving up
	// their order.
	ForwardConcurrency int
	ProfileCacheTTL    time.Duration
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}

	if o.FetchLimit <= 0 {
		o.FetchLimit = DefaultFetchLimit
	}

	if o.ForwardConcurrency <= 0 {
		o.ForwardConcurrency = DefaultForwardConcurrency
	}

	if o.ProfileCacheTTL <= 0 {
		o.ProfileCacheTTL = DefaultProfileCacheTTL
	}

	return o
}

// Handle is how the supervisor reaches the source.
type Handle struct {
	ref *actor.Ref[Request, Result]
}

// New starts the source. It logs in before taking requests; a failed login
// stops it. It stops when token is cancelled or the session fails.
func New(
	token shutdown.Token,
	creds scraper.Credentials,
	session scraper.Session,
	sink Sink,
	opts Options,
) (*Handle, *actor.Task) {
	opts = opts.withDefaults()

	proc := &processor{
		creds:    creds,
		session:  session,
		sink:     sink,
		opts:     opts,
		profiles: cache.New(opts.ProfileCacheTTL, 2*opts.ProfileCacheTTL), //nolint:mnd
	}

	ref, task := actor.New[Request, Result](proc, actor.Options{
		Name:         Name,
		MailboxDepth: opts.MailboxDepth,
		Concurrency:  opts.Concurrency,
		Logger:       opts.Logger,
	}).Run(token)

	return &Handle{ref: ref}, task
}

// Fetch fetches the newest posts of collectionID and returns once the sink
// has dealt with every one of them.
func (h *Handle) Fetch(ctx context.Context, collectionID string) error {
	_, err := h.FetchItems(ctx, collectionID)

	return err
}

// FetchItems is Fetch, also reporting how many posts were forwarded.
func (h *Handle) FetchItems(ctx context.Context, collectionID string) (int, error) {
	result, err := h.ref.Request(ctx, FetchItems{CollectionID: collectionID})
	if err != nil {
		return result.Forwarded, fmt.Errorf("fetching %s: %w", collectionID, err)
	}

	return result.Forwarded, nil
}

// EndSession logs the source out. Later fetches fail with ErrNoSession.
func (h *Handle) EndSession(ctx context.Context) error {
	if _, err := h.ref.Request(ctx, EndSession{}); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}

	return nil
}

// State reports the source's lifecycle stage.
func (h *Handle) State() actor.State {
	return h.ref.State()
}

type processor struct {
	creds    scraper.Credentials
	session  scraper.Session
	sink     Sink
	opts     Options
	profiles *cache.Cache

	mut      sync.Mutex
	loggedIn bool
	ended    bool
}

func (p *processor) Init(ctx context.Context) error {
	p.mut.Lock()
	defer p.mut.Unlock()

	logger.Get(ctx).Info("logging in", "credentials", p.creds)

	p.session.Authenticate(p.creds)

	if err := p.session.Login(ctx); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	p.loggedIn = true

	return nil
}

func (p *processor) Process(ctx context.Context, req Request) (Result, error) {
	switch req := req.(type) {
	case FetchItems:
		return p.fetch(ctx, req.CollectionID)
	case EndSession:
		return Result{}, p.endSession(ctx)
	default:
		return Result{}, fmt.Errorf("source: unexpected request %T", req)
	}
}

func (p *processor) fetch(ctx context.Context, collectionID string) (Result, error) {
	p.mut.Lock()
	defer p.mut.Unlock()

	if p.ended {
		return Result{}, ErrNoSession
	}

	ctx = logger.With(ctx, "collection", collectionID)

	return spans.RunValue(ctx, "source.fetch", func(ctx context.Context, span trace.Span) (Result, error) {
		profile, err := p.profile(ctx, collectionID)
		if err != nil {
			return Result{}, actor.Fatal(err)
		}

		posts, err := p.session.FetchItems(ctx, profile.ID, p.opts.FetchLimit)
		if err != nil {
			return Result{}, actor.Fatal(fmt.Errorf("fetching posts: %w", err))
		}

		itemsFetched.Add(float64(len(posts)))
		span.SetAttributes(attribute.Int("posts", len(posts)))
		logger.Get(ctx).Info("fetched posts", "count", len(posts))

		forwarded, err := p.forward(ctx, posts)

		return Result{Forwarded: forwarded}, err
	}, spans.WithAttributes(attribute.String("collection", collectionID)))
}

func (p *processor) profile(ctx context.Context, collectionID string) (scraper.ProfileInfo, error) {
	if cached, ok := p.profiles.Get(collectionID); ok {
		profileCacheLookups.WithLabelValues("hit").Inc()

		return cached.(scraper.ProfileInfo), nil //nolint:forcetypeassert
	}

	profileCacheLookups.WithLabelValues("miss").Inc()

	profile, err := p.session.FetchProfileInfo(ctx, collectionID)
	if err != nil {
		return profile, fmt.Errorf("fetching profile: %w", err)
	}

	logger.Get(ctx).Info("fetched profile",
		"id", profile.ID,
		"full_name", profile.FullName,
		"followers", profile.Followers,
		"following", profile.Following)

	p.profiles.SetDefault(collectionID, profile)

	return profile, nil
}

// forward hands posts to the sink, one at a time unless ForwardConcurrency
// allows more. Errors for single posts are collected; an error that means
// the sink is gone stops forwarding and is fatal.
func (p *processor) forward(ctx context.Context, posts []scraper.Post) (int, error) {
	var (
		mut       sync.Mutex
		forwarded int
		failures  []error
	)

	send := func(ctx context.Context, post scraper.Post) error {
		err := p.sink.Process(ctx, post)

		mut.Lock()
		defer mut.Unlock()

		switch {
		case err == nil:
			forwarded++
			itemsForwarded.Inc()

			return nil
		case errors.Is(err, actor.ErrMailboxClosed) || actor.IsFatal(err):
			return actor.Fatal(err)
		default:
			logger.Get(ctx).Warn("sink rejected post", "post", post, "error", err)
			failures = append(failures, err)

			return nil
		}
	}

	if p.opts.ForwardConcurrency == 1 {
		for _, post := range posts {
			if err := send(ctx, post); err != nil {
				return forwarded, err
			}
		}
	} else {
		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(p.opts.ForwardConcurrency)

		for _, post := range posts {
			group.Go(func() error {
				return send(gctx, post)
			})
		}

		if err := group.Wait(); err != nil {
			return forwarded, err
		}
	}

	return forwarded, errors.Join(failures...)
}

func (p *processor) endSession(ctx context.Context) error {
	p.mut.Lock()
	defer p.mut.Unlock()

	if p.ended {
		return ErrNoSession
	}

	p.ended = true

	if err := p.logout(ctx); err != nil {
		return actor.Fatal(err)
	}

	logger.Get(ctx).Info("logged out")

	return nil
}

func (p *processor) logout(ctx context.Context) error {
	if !p.loggedIn {
		return nil
	}

	if err := p.session.Logout(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	p.loggedIn = false

	return nil
}

// Close logs out if the session was never ended explicitly.
func (p *processor) Close() error {
	p.mut.Lock()
	defer p.mut.Unlock()

	p.profiles.Flush()

	if !p.loggedIn {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()

	return p.logout(ctx)
}
