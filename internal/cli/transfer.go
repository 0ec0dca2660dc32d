package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mld-platform/mld-sdk/internal/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	var namespaces []string
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write entries as JSON lines",
		Long: `Write entries as JSON lines, one entry per line ordered by namespace and
key. Without a file the lines go to stdout. The file is replaced atomically.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				if len(args) == 0 {
					n, err := s.Export(ctx, cmd.OutOrStdout(), namespaces...)
					a.logger.Info("exported entries", "count", n)
					return err
				}
				n, err := s.ExportFile(ctx, args[0], namespaces...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", n, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&namespaces, "namespace", nil, "namespaces to export (default: all)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert entries from a JSON lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				n, err := s.ImportFile(ctx, args[0])
				if errors.Is(err, types.ErrRepository) {
					return err
				}
				if err != nil {
					return userError("import %s: %s", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", n)
				return nil
			})
		},
	}
}
