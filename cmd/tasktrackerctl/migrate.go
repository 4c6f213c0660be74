package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  `Create the users and tasks tables and their indexes. Safe to run repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			_, _, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")

			return nil
		},
	}
}
