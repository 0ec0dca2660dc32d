package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mld-platform/mld-sdk/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the plugin's store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(_ context.Context, s *sqlite.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "store initialized at %s\n", s.Path())
				return nil
			})
		},
	}
}
