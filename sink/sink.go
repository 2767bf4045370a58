// Package sink is the stage that publishes posts. It owns the dedup store
// and runs the publishing effect at most once per shortcode.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/dedup"
	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/scraper"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/SatoshiAndKin/chandelier-or-not/spans"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	Name               = "farcaster"
	DefaultConcurrency = 10
)

// Request is a message the sink accepts.
type Request interface {
	isSinkRequest()
}

// ProcessItem asks the sink to publish Post unless it already has.
type ProcessItem struct {
	Post scraper.Post
}

func (ProcessItem) isSinkRequest() {}

// Result is the sink's answer to a ProcessItem.
type Result struct {
	Outcome dedup.Outcome
}

// Effect publishes a post. It runs at most once per shortcode.
type Effect func(ctx context.Context, post scraper.Post) error

// Options configures the sink.
type Options struct {
	// Store keeps the dedup records. The sink closes it when it stops.
	Store        kv.Store
	Effect       Effect
	Concurrency  int
	MailboxDepth int
	Logger       *slog.Logger
}

// Handle is how other actors reach the sink.
type Handle struct {
	ref *actor.Ref[Request, Result]
}

// New starts the sink. It stops when token is cancelled or the store fails.
func New(token shutdown.Token, opts Options) (*Handle, *actor.Task) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.Effect == nil {
		opts.Effect = LogEffect
	}

	proc := &processor{
		store:  opts.Store,
		ledger: dedup.NewLedger(opts.Store),
		effect: opts.Effect,
	}

	ref, task := actor.New[Request, Result](proc, actor.Options{
		Name:         Name,
		MailboxDepth: opts.MailboxDepth,
		Concurrency:  opts.Concurrency,
		Logger:       opts.Logger,
	}).Run(token)

	return &Handle{ref: ref}, task
}

// Process hands post to the sink and waits until it has been dealt with.
func (h *Handle) Process(ctx context.Context, post scraper.Post) error {
	_, err := h.ProcessItem(ctx, post)

	return err
}

// ProcessItem is Process, also reporting what the sink did.
func (h *Handle) ProcessItem(ctx context.Context, post scraper.Post) (dedup.Outcome, error) {
	result, err := h.ref.Request(ctx, ProcessItem{Post: post})
	if err != nil {
		return result.Outcome, fmt.Errorf("sink %s: %w", post.Shortcode, err)
	}

	return result.Outcome, nil
}

// State reports the sink's lifecycle stage.
func (h *Handle) State() actor.State {
	return h.ref.State()
}

// LogEffect is the default effect. It only logs the post.
func LogEffect(ctx context.Context, post scraper.Post) error {
	logger.Get(ctx).Info("publishing post", "post", post)

	return nil
}

type processor struct {
	store  kv.Store
	ledger *dedup.Ledger
	effect Effect
}

func (p *processor) Process(ctx context.Context, req Request) (Result, error) {
	switch req := req.(type) {
	case ProcessItem:
		return p.processItem(ctx, req.Post)
	default:
		return Result{}, fmt.Errorf("sink: unexpected request %T", req)
	}
}

func (p *processor) processItem(ctx context.Context, post scraper.Post) (Result, error) {
	ctx = logger.With(ctx, "shortcode", post.Shortcode)
	log := logger.Get(ctx)

	outcome, err := spans.RunValue(ctx, "sink.process",
		func(ctx context.Context, span trace.Span) (dedup.Outcome, error) {
			outcome, err := p.ledger.Run(ctx, post.Shortcode, func(ctx context.Context) error {
				return p.effect(ctx, post)
			})
			span.SetAttributes(attribute.String("outcome", outcome.String()))

			return outcome, err
		},
		spans.WithAttributes(attribute.String("shortcode", post.Shortcode)))

	switch {
	case errors.Is(err, dedup.ErrStore):
		itemsProcessed.WithLabelValues(outcomeFailed).Inc()

		return Result{}, actor.Fatal(err)
	case err != nil:
		itemsProcessed.WithLabelValues(outcomeFailed).Inc()
		log.Error("processing post failed", "error", err)

		return Result{}, err
	}

	itemsProcessed.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case dedup.OutcomeInterrupted:
		log.Warn("processing was previously interrupted")
	case dedup.OutcomeAlreadyDone:
		log.Debug("post already processed")
	case dedup.OutcomeExecuted:
		log.Info("processed post")
	}

	return Result{Outcome: outcome}, nil
}

// Close closes the store once the last request has been handled.
func (p *processor) Close() error {
	if err := p.store.Close(); err != nil && !errors.Is(err, kv.ErrClosed) {
		return fmt.Errorf("closing sink store: %w", err)
	}

	return nil
}
