// Package actor implements mailbox actors: goroutines that own their
// state privately and are reached only through typed requests on a
// bounded channel.
//
// An actor admits requests in FIFO order, up to its concurrency limit, and
// answers each one exactly once. When its cancellation token fires it stops
// admitting, lets the handlers already running finish, answers everything
// still queued with ErrMailboxClosed and then cancels the token itself, so
// one actor stopping brings its siblings down with it.
package actor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMailboxDepth is used when Options.MailboxDepth is not positive.
	DefaultMailboxDepth = 100
	// DefaultConcurrency is used when Options.Concurrency is not positive.
	DefaultConcurrency = 1
)

// State is the lifecycle stage of an actor.
type State int32

const (
	// Running actors admit requests from the mailbox.
	Running State = iota
	// Draining actors admit nothing and wait for handlers in flight.
	Draining
	// Stopped actors are done; requests fail with ErrMailboxClosed.
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures an actor.
type Options struct {
	// Name labels logs and metrics.
	Name string
	// MailboxDepth is the number of requests that may wait for admission.
	// Senders block once it is reached.
	MailboxDepth int
	// Concurrency is the number of requests handled at the same time.
	Concurrency int
	// Logger overrides the logger derived from the token's context.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "actor"
	}

	if o.MailboxDepth <= 0 {
		o.MailboxDepth = DefaultMailboxDepth
	}

	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}

	return o
}

// Actor pairs a processor with its options. Start it with Run.
type Actor[Request, Response any] struct {
	proc Processor[Request, Response]
	opts Options
}

// New creates an actor around proc.
func New[Request, Response any](proc Processor[Request, Response], opts Options) *Actor[Request, Response] {
	return &Actor[Request, Response]{
		proc: proc,
		opts: opts.withDefaults(),
	}
}

// Run starts the actor's loop. The loop lives until token is cancelled or
// a handler returns a Fatal error; either way it cancels token on its way out.
func (a *Actor[Request, Response]) Run(token shutdown.Token) (*Ref[Request, Response], *Task) {
	ref := &Ref[Request, Response]{
		name:      a.opts.Name,
		subsystem: logger.GetSubsystem(token.Context()),
		inbox:     make(chan Message[Request, Response], a.opts.MailboxDepth),
		closing:   make(chan struct{}),
		stopped:   make(chan struct{}),
		state:     atomic.NewInt32(int32(Running)),
	}

	task := newTask(a.opts.Name)

	go a.loop(token, ref, task)

	return ref, task
}

func (a *Actor[Request, Response]) log(ctx context.Context) *slog.Logger {
	if a.opts.Logger != nil {
		return a.opts.Logger.With("actor", a.opts.Name)
	}

	return logger.Get(ctx).With("actor", a.opts.Name)
}

// loop owns the receive side of the mailbox.
func (a *Actor[Request, Response]) loop(token shutdown.Token, ref *Ref[Request, Response], task *Task) {
	guard := token.DropGuard()
	defer guard.Drop()

	name, subsystem := a.opts.Name, ref.subsystem
	log := a.log(token.Context())

	actorStarted.Inc()
	aliveActors.WithLabelValues(subsystem, name).Inc()

	intake, stopIntake := context.WithCancel(token.Context())
	defer stopIntake()

	var (
		fatalMut sync.Mutex
		fatalErr error
	)

	onFatal := func(err error) {
		fatalMut.Lock()
		defer fatalMut.Unlock()

		if fatalErr == nil {
			fatalErr = err
		}

		stopIntake()
	}

	var initErr error

	if init, ok := a.proc.(Initializer); ok && intake.Err() == nil {
		if err := init.Init(token.Context()); err != nil && !token.IsCancelled() {
			log.Error("actor failed to initialize", "error", err)

			initErr = err
		}
	}

	pool := pond.NewPool(a.opts.Concurrency)

	if initErr == nil {
		a.admit(intake, ref, pool, onFatal)
	}

	log.Debug("actor draining")

	ref.state.Store(int32(Draining))
	close(ref.closing)

	pool.StopAndWait()

	rejected := ref.rejectQueued()
	if rejected > 0 {
		log.Warn("rejected queued requests on shutdown", "count", rejected)
	}

	errs := []error{initErr}

	fatalMut.Lock()
	errs = append(errs, fatalErr)
	fatalMut.Unlock()

	if closer, ok := a.proc.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error("error closing actor", "error", err)

			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Error("actor stopped with error", "error", err)
	} else {
		log.Debug("actor stopped")
	}

	ref.state.Store(int32(Stopped))
	close(ref.stopped)

	aliveActors.WithLabelValues(subsystem, name).Dec()
	actorStopped.Inc()

	guard.Drop()
	task.finish(err)
}

// admit moves requests from the mailbox onto the pool until intake is cancelled.
func (a *Actor[Request, Response]) admit(
	intake context.Context,
	ref *Ref[Request, Response],
	pool pond.Pool,
	onFatal func(error),
) {
	slots := semaphore.NewWeighted(int64(a.opts.Concurrency))

	for {
		if err := slots.Acquire(intake, 1); err != nil {
			return
		}

		var msg Message[Request, Response]

		select {
		case <-intake.Done():
			slots.Release(1)

			return
		case msg = <-ref.inbox:
		}

		if intake.Err() != nil {
			slots.Release(1)
			msg.reject(ErrMailboxClosed)
			rejectedMessages.WithLabelValues(ref.subsystem, ref.name).Inc()

			return
		}

		admittedMessages.WithLabelValues(ref.subsystem, ref.name).Inc()
		enqueuedMessages.WithLabelValues(ref.subsystem, ref.name).Set(float64(len(ref.inbox)))

		err := pool.Go(func() {
			defer slots.Release(1)

			a.handle(msg, ref, onFatal)
		})
		if err != nil {
			slots.Release(1)
			msg.reject(ErrMailboxClosed)

			return
		}
	}
}

func (a *Actor[Request, Response]) handle(msg Message[Request, Response], ref *Ref[Request, Response], onFatal func(error)) {
	parent := msg.ctx
	if parent == nil {
		parent = context.Background()
	}

	ctx := logger.WithRequestId(context.WithoutCancel(parent), uuid.NewString())

	inFlight.WithLabelValues(ref.subsystem, ref.name).Inc()
	defer inFlight.WithLabelValues(ref.subsystem, ref.name).Dec()

	start := time.Now()

	resp, err := a.process(ctx, ref, msg.Request)

	processedMessages.WithLabelValues(ref.subsystem, ref.name).Inc()
	processingTime.WithLabelValues(ref.subsystem, ref.name).Observe(time.Since(start).Seconds())

	msg.reply(resp, err)

	if IsFatal(err) {
		a.log(ctx).Error("fatal error, stopping actor", "error", err)

		onFatal(err)
	}
}

func (a *Actor[Request, Response]) process(
	ctx context.Context,
	ref *Ref[Request, Response],
	req Request,
) (resp Response, err error) { //nolint:ireturn
	defer func() {
		if rec := recover(); rec != nil {
			actorPanic.WithLabelValues(ref.subsystem, ref.name).Inc()

			a.log(ctx).Error("actor recovered from panic",
				"request", req,
				"error", rec,
				"stack", string(debug.Stack()))

			var zero Response

			resp, err = zero, getPanicErr(a.opts.Name, rec)
		}
	}()

	return a.proc.Process(ctx, req)
}

// Ref is the handle to a running actor. It is safe to share between
// goroutines; all copies reach the same mailbox.
type Ref[Request, Response any] struct {
	name      string
	subsystem string
	inbox     chan Message[Request, Response]
	closing   chan struct{}
	stopped   chan struct{}
	state     *atomic.Int32
}

// Name returns the actor's name.
func (r *Ref[Request, Response]) Name() string {
	return r.name
}

// State returns the actor's current lifecycle stage.
func (r *Ref[Request, Response]) State() State {
	return State(r.state.Load())
}

// Request sends req and waits for the reply. It blocks while the mailbox
// is full. If the actor is draining or stopped it returns ErrMailboxClosed.
// Cancelling ctx abandons the wait, but a request that was already
// enqueued is still handled.
func (r *Ref[Request, Response]) Request(ctx context.Context, req Request) (Response, error) { //nolint:ireturn
	var zero Response

	msg := newMessage[Request, Response](ctx, req)

	if err := r.submit(ctx, msg); err != nil {
		return zero, err
	}

	start := time.Now()

	defer func() {
		receiveTime.WithLabelValues(r.subsystem, r.name).Observe(time.Since(start).Seconds())
	}()

	select {
	case rsp := <-msg.ResponseChan:
		return rsp.Get()
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.stopped:
		// The reply may have landed just before the loop finished.
		select {
		case rsp := <-msg.ResponseChan:
			return rsp.Get()
		default:
			return zero, ErrMailboxClosed
		}
	}
}

func (r *Ref[Request, Response]) submit(ctx context.Context, msg Message[Request, Response]) error {
	select {
	case <-r.closing:
		return ErrMailboxClosed
	default:
	}

	submitCount.WithLabelValues(r.subsystem, r.name).Inc()

	begin := time.Now()

	select {
	case <-r.closing:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.inbox <- msg:
	}

	submitTime.WithLabelValues(r.subsystem, r.name).Observe(time.Since(begin).Seconds())

	return nil
}

// rejectQueued answers every request left in the mailbox.
func (r *Ref[Request, Response]) rejectQueued() int {
	count := 0

	for {
		select {
		case msg := <-r.inbox:
			msg.reject(ErrMailboxClosed)
			rejectedMessages.WithLabelValues(r.subsystem, r.name).Inc()

			count++
		default:
			enqueuedMessages.WithLabelValues(r.subsystem, r.name).Set(0)

			return count
		}
	}
}
