package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/SatoshiAndKin/chandelier-or-not/config"
	"github.com/SatoshiAndKin/chandelier-or-not/dedup"
	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/should"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var storeURL string

	cmd := &cobra.Command{
		Use:   "inspect <shortcode>...",
		Short: "Print the recorded processing state of posts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if storeURL == "" {
				storeURL = envutil.String(ctx, "STORE_URL",
					envutil.Default(config.DefaultStoreURL)).ValueOrElse(config.DefaultStoreURL)
			}

			store, err := kv.Open(ctx, storeURL)
			if err != nil {
				return fmt.Errorf("opening store %s: %w", storeURL, err)
			}

			defer should.Close(ctx, store, "closing store")

			ledger := dedup.NewLedger(store)
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0) //nolint:mnd

			for _, shortcode := range args {
				state, err := ledger.State(ctx, shortcode)
				if err != nil {
					_, _ = fmt.Fprintf(out, "%s\terror: %v\n", shortcode, err)

					continue
				}

				_, _ = fmt.Fprintf(out, "%s\t%s\n", shortcode, state)
			}

			return out.Flush()
		},
	}

	cmd.Flags().StringVar(&storeURL, "store", "", "store URL, defaults to STORE_URL")

	return cmd
}
