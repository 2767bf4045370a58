package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/SatoshiAndKin/chandelier-or-not/config"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/SatoshiAndKin/chandelier-or-not/stage"
	"github.com/SatoshiAndKin/chandelier-or-not/supervisor"
	"github.com/SatoshiAndKin/chandelier-or-not/telemetry"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		keepServing bool
		publicURL   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the configured profile once and publish its new posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), keepServing, publicURL)
		},
	}

	cmd.Flags().BoolVar(&keepServing, "keep-serving", false,
		"keep the frame server up after the fetch until interrupted")
	cmd.Flags().StringVar(&publicURL, "public-url", "",
		"URL clients reach the frame server at")

	return cmd
}

func runPipeline(ctx context.Context, keepServing bool, publicURL string) error {
	runningEnv, err := stage.Current(ctx)
	if err != nil {
		return err
	}

	otelConfig, err := telemetry.LoadConfigFromEnv(ctx, string(runningEnv))
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, otelConfig); err != nil {
		return err
	}

	if provider := telemetry.LoggerProvider(); provider != nil {
		logger.ConfigureLogging(ctx, app, logger.WithLoggerProvider(provider))
	}

	log := logger.Get(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error("bad configuration", "error", err)

		return err
	}

	opts := supervisor.Options{KeepServing: keepServing}

	if publicURL != "" {
		opts.PublicURL, err = url.Parse(publicURL)
		if err != nil {
			return fmt.Errorf("parsing --public-url: %w", err)
		}
	}

	token := shutdown.NewTokenFrom(ctx)
	stop := shutdown.SetupHandler(token)

	defer stop()

	shutdown.BeforeShutdown(func() {
		log.Info("shutdown started, draining actors")
	})

	runErr := supervisor.Run(token, cfg, opts)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if err := telemetry.Shutdown(flushCtx); err != nil {
		log.Warn("flushing telemetry failed", "error", err)
	}

	if runErr != nil {
		log.Error("pipeline failed", "error", runErr)

		return runErr
	}

	log.Info("pipeline finished")

	return nil
}
