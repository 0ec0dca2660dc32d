package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mld-platform/mld-sdk/internal/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace> <key>",
		Short: "Print a stored value",
		Long:  "Print the value stored under key. With --json the full entry is printed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key := args[0], args[1]
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				e, err := s.Entry(ctx, ns, key)
				if err != nil {
					return err
				}
				if e == nil {
					return userError("key %q not found in namespace %q", key, types.NamespaceOrDefault(ns))
				}
				if a.jsonMode {
					return printJSON(cmd, e)
				}
				var v any
				if err := json.Unmarshal(e.Value, &v); err != nil {
					return fmt.Errorf("decode %s/%s: %w", e.Namespace, key, err)
				}
				return printJSON(cmd, v)
			})
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <namespace> <key> <value>",
		Short: "Store a value",
		Long: `Store a value under key. The value is parsed as JSON; anything that is
not valid JSON is stored as a string.

Example:
  mldstore set settings threshold 0.5
  mldstore set settings wells '["A1","A2"]'
  mldstore set notes latest "plate reader recalibrated"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key, raw := args[0], args[1], args[2]
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				if err := s.Set(ctx, ns, key, parseValue(raw)); err != nil {
					return err
				}
				if !a.jsonMode {
					return nil
				}
				e, err := s.Entry(ctx, ns, key)
				if err != nil {
					return err
				}
				return printJSON(cmd, e)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace> <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, key := args[0], args[1]
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				ok, err := s.Delete(ctx, ns, key)
				if err != nil {
					return err
				}
				if !ok {
					return userError("key %q not found in namespace %q", key, types.NamespaceOrDefault(ns))
				}
				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list [namespace]",
		Short: "List the keys of a namespace",
		Long:  "List the keys of a namespace, the default namespace when none is given. With --all, list every namespace.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return userError("--all does not take a namespace")
			}
			ns := ""
			if len(args) == 1 {
				ns = args[0]
			}
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				if !all {
					keys, err := s.ListKeys(ctx, ns)
					if err != nil {
						return err
					}
					return a.printList(cmd, keys)
				}

				namespaces, err := s.Namespaces(ctx)
				if err != nil {
					return err
				}
				byNamespace := make(map[string][]string, len(namespaces))
				for _, n := range namespaces {
					keys, err := s.ListKeys(ctx, n)
					if err != nil {
						return err
					}
					byNamespace[n] = keys
				}
				if a.jsonMode {
					return printJSON(cmd, byNamespace)
				}
				for _, n := range namespaces {
					for _, k := range byNamespace[n] {
						fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", n, k)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every namespace")
	return cmd
}

func newNamespacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List namespaces holding at least one key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				namespaces, err := s.Namespaces(ctx)
				if err != nil {
					return err
				}
				return a.printList(cmd, namespaces)
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [namespace]",
		Short: "Remove every key of a namespace, or of the whole store with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && len(args) > 0:
				return userError("--all does not take a namespace")
			case !all && len(args) == 0:
				return userError("clear needs a namespace or --all")
			}
			return a.withStore(cmd, func(ctx context.Context, s *sqlite.Store) error {
				var (
					n   int64
					err error
				)
				if all {
					n, err = s.ClearAll(ctx)
				} else {
					n, err = s.Clear(ctx, args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "clear every namespace")
	return cmd
}

func (a *app) printList(cmd *cobra.Command, items []string) error {
	if a.jsonMode {
		if items == nil {
			items = []string{}
		}
		return printJSON(cmd, items)
	}
	for _, it := range items {
		fmt.Fprintln(cmd.OutOrStdout(), it)
	}
	return nil
}
