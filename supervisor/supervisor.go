// Package supervisor wires the pipeline together and owns its lifetime.
//
// It starts the sink before the source, since the source needs somewhere
// to send posts from its first request on. Every actor shares one
// cancellation token; whichever stops first takes the others down, and
// Run returns only after all of them have stopped.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/config"
	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/scraper"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/SatoshiAndKin/chandelier-or-not/sink"
	"github.com/SatoshiAndKin/chandelier-or-not/source"
	"github.com/SatoshiAndKin/chandelier-or-not/webserver"
)

// Options adjusts a run beyond what Config covers.
type Options struct {
	// KeepServing keeps the web server and actors up after the fetch,
	// until the token is cancelled.
	KeepServing bool
	// Effect overrides the sink's publishing effect.
	Effect sink.Effect
	// Session overrides the session built from Config.
	Session scraper.Session
	// PublicURL is handed to the web server for frame post URLs.
	PublicURL *url.URL
	Logger    *slog.Logger
}

// Run fetches cfg.Profile once, ends the session and shuts everything down.
// The returned error joins the run's own error with every task's error.
func Run(token shutdown.Token, cfg *config.Config, opts Options) error {
	guard := token.DropGuard()
	defer guard.Drop()

	ctx := token.Context()

	log := opts.Logger
	if log == nil {
		log = logger.Get(ctx)
	}

	session := opts.Session
	if session == nil {
		var err error

		session, err = OpenSession(ctx, cfg)
		if err != nil {
			return err
		}
	}

	store, err := kv.Open(ctx, cfg.StoreURL)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", cfg.StoreURL, err)
	}

	sinkOpts := cfg.SinkOptions()
	sinkOpts.Store = store
	sinkOpts.Effect = opts.Effect
	sinkOpts.Logger = opts.Logger

	sinkHandle, sinkTask := sink.New(token, sinkOpts)

	sourceOpts := cfg.SourceOptions()
	sourceOpts.Logger = opts.Logger

	sourceHandle, sourceTask := source.New(token, cfg.Credentials, session, sinkHandle, sourceOpts)

	tasks := []*actor.Task{sinkTask, sourceTask}

	if cfg.ListenAddr != "" {
		server := webserver.New(webserver.Options{
			ShutdownTimeout: cfg.ShutdownTimeout,
			PublicURL:       opts.PublicURL,
			Logger:          opts.Logger,
		})

		tasks = append(tasks, actor.Spawn("webserver", func() error {
			return server.ListenAndServe(token, cfg.ListenAddr)
		}))
	}

	// Requests outlive a cancelled token; the actors answer them while draining.
	runErr := run(context.WithoutCancel(ctx), sourceHandle, cfg.Profile)
	if runErr != nil {
		log.Error("run failed", "error", runErr)
	} else if opts.KeepServing {
		log.Info("fetch finished, serving until shutdown")
		<-token.Done()
	}

	guard.Drop()

	return errors.Join(runErr, actor.Join(tasks...))
}

func run(ctx context.Context, handle *source.Handle, profile string) error {
	forwarded, err := handle.FetchItems(ctx, profile)
	if err != nil {
		return err
	}

	logger.Get(ctx).Info("fetch finished", "profile", profile, "forwarded", forwarded)

	return handle.EndSession(ctx)
}

// OpenSession builds the scraper session cfg asks for.
func OpenSession(ctx context.Context, cfg *config.Config) (scraper.Session, error) { //nolint:ireturn
	if cfg.ScraperFixture != "" {
		fixture, err := scraper.LoadFixture(cfg.ScraperFixture)
		if err != nil {
			return nil, err
		}

		return fixture, nil
	}

	session, err := scraper.NewHTTPSession(ctx, cfg.ScraperURL)
	if err != nil {
		return nil, err
	}

	return session, nil
}
