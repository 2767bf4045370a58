package main

import (
	"encoding/json"
	"fmt"

	"github.com/SatoshiAndKin/chandelier-or-not/build"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := build.Read()

			if !verbose {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)

				return err //nolint:wrapcheck
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(info) //nolint:wrapcheck
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every build detail as JSON")

	return cmd
}
