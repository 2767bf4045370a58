package main

import (
	"context"

	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           app,
		Short:         "Ingest posts and publish each one exactly once",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := envutil.LoadDotEnv(envFile); err != nil {
				return err
			}

			logger.ConfigureLogging(cmd.Context(), app)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file",
		envutil.String(context.Background(), "ENV_FILE", envutil.Default(".env")).ValueOrElse(".env"),
		"file of KEY=value lines loaded into the environment")

	root.AddCommand(newRunCmd(), newInspectCmd(), newVersionCmd())

	return root
}
