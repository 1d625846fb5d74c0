package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lelo88/nova-catalog-golang/internal/staff"
)

// newRootCommand arma la CLI. Sin subcomando, levanta el servidor.
func newRootCommand(deps appDeps) *cobra.Command {
	serve := func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), deps)
	}

	root := &cobra.Command{
		Use:           "nova-catalog",
		Short:         "Catalog API for biological supplies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}
			version, err := deps.migrate(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to use as STAFF_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := staff.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	return root
}
