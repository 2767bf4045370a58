// Package config reads the pipeline's settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/envtypes"
	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/SatoshiAndKin/chandelier-or-not/scraper"
	"github.com/SatoshiAndKin/chandelier-or-not/sink"
	"github.com/SatoshiAndKin/chandelier-or-not/source"
)

const (
	DefaultStoreURL        = "farcaster.db"
	DefaultListenAddr      = "127.0.0.1:3000"
	DefaultShutdownTimeout = 10 * time.Second

	defaultListenPort = 3000
)

var defaultListen = envtypes.HostPort{Host: "127.0.0.1", Port: defaultListenPort} //nolint:gochecknoglobals

var (
	ErrMissingScraper  = errors.New("one of SCRAPER_URL or SCRAPER_FIXTURE is required")
	ErrTooManyScrapers = errors.New("SCRAPER_URL and SCRAPER_FIXTURE are mutually exclusive")
	ErrMissingUsername = errors.New("INSTAGRAM_USERNAME is required")
	ErrMissingPassword = errors.New("INSTAGRAM_PASSWORD is required")
)

// Config is everything the pipeline needs to start.
type Config struct {
	Credentials scraper.Credentials
	// Profile is the collection fetched by a run.
	Profile string

	SinkConcurrency    int
	SourceConcurrency  int
	MailboxDepth       int
	FetchLimit         int
	ForwardConcurrency int
	ProfileCacheTTL    time.Duration

	// StoreURL picks the dedup store, see kv.Open.
	StoreURL string
	// ScraperURL is the base URL of the scraping gateway.
	ScraperURL string
	// ScraperFixture is a YAML file served instead of a gateway.
	ScraperFixture string

	ListenAddr      string
	ShutdownTimeout time.Duration
}

// Load reads the configuration. Every problem found is reported, not
// only the first one.
func Load(ctx context.Context) (*Config, error) {
	var errs []error

	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	intVar := func(key string, dfl int) int {
		value, err := envutil.Int(ctx, key, envutil.Default(dfl), envutil.Positive[int]()).Value()
		collect(err)

		return value
	}

	durationVar := func(key string, dfl time.Duration) time.Duration {
		value, err := envutil.Duration(ctx, key, envutil.Default(dfl)).Value()
		collect(err)

		return value
	}

	stringVar := func(key string, opts ...envutil.Option[string]) string {
		value, err := envutil.String(ctx, key, opts...).Value()
		collect(err)

		return value
	}

	username := stringVar("INSTAGRAM_USERNAME", envutil.IfMissing[string](ErrMissingUsername))

	cfg := &Config{
		Credentials: scraper.Credentials{
			Username: username,
			Password: stringVar("INSTAGRAM_PASSWORD", envutil.IfMissing[string](ErrMissingPassword)),
		},
		Profile:            stringVar("INSTAGRAM_PROFILE", envutil.Default(username)),
		SinkConcurrency:    intVar("SINK_CONCURRENCY", sink.DefaultConcurrency),
		SourceConcurrency:  intVar("SOURCE_CONCURRENCY", source.DefaultConcurrency),
		MailboxDepth:       intVar("MAILBOX_DEPTH", actor.DefaultMailboxDepth),
		FetchLimit:         intVar("FETCH_LIMIT", source.DefaultFetchLimit),
		ForwardConcurrency: intVar("FORWARD_CONCURRENCY", source.DefaultForwardConcurrency),
		ProfileCacheTTL:    durationVar("PROFILE_CACHE_TTL", source.DefaultProfileCacheTTL),
		StoreURL:           stringVar("STORE_URL", envutil.Default(DefaultStoreURL)),
		ScraperURL:         stringVar("SCRAPER_URL", envutil.Default("")),
		ShutdownTimeout:    durationVar("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
	}

	listen, err := envutil.HostPort(ctx, "LISTEN_ADDR", envutil.Default(defaultListen)).Value()
	collect(err)

	cfg.ListenAddr = listen.String()

	cfg.ScraperFixture = stringVar("SCRAPER_FIXTURE", envutil.Default(""))
	if cfg.ScraperFixture != "" {
		_, err := envutil.File(ctx, "SCRAPER_FIXTURE").Value()
		collect(err)
	}

	switch {
	case cfg.ScraperURL == "" && cfg.ScraperFixture == "":
		collect(ErrMissingScraper)
	case cfg.ScraperURL != "" && cfg.ScraperFixture != "":
		collect(ErrTooManyScrapers)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// SinkOptions returns the sink settings of cfg.
func (c *Config) SinkOptions() sink.Options {
	return sink.Options{
		Concurrency:  c.SinkConcurrency,
		MailboxDepth: c.MailboxDepth,
	}
}

// SourceOptions returns the source settings of cfg.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Concurrency:        c.SourceConcurrency,
		MailboxDepth:       c.MailboxDepth,
		FetchLimit:         c.FetchLimit,
		ForwardConcurrency: c.ForwardConcurrency,
		ProfileCacheTTL:    c.ProfileCacheTTL,
	}
}
