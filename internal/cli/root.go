// Package cli implements mldstore, the command-line tool for inspecting and
// editing a plugin's local store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mld-platform/mld-sdk/internal/logging"
	"github.com/mld-platform/mld-sdk/internal/paths"
	"github.com/mld-platform/mld-sdk/pkg/sdk"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitUserError = 1
	ExitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: ExitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(err error) error {
	return &exitError{code: ExitSysError, err: err}
}

// ExitCode maps an error returned by the root command to a process exit
// code. Errors without a code are usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUserError
}

// app holds the global flag values and the state built by the root
// command's pre-run.
type app struct {
	configDir  string
	pluginName string
	storageDir string
	jsonMode   bool

	config *viper.Viper
	logger *slog.Logger
}

// NewRootCmd returns the mldstore command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:           "mldstore",
		Short:         "Inspect and edit an MLD plugin's local store",
		Long:          "mldstore reads and writes the namespaced key-value store a plugin keeps\nwhen it runs without the platform.",
		Version:       sdk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.GetBaseLogger(cmd)
			if err != nil {
				return userError("%s", err)
			}
			a.logger = logger

			if cmd.Name() == "version" {
				return nil
			}
			configDir, err := paths.ResolveConfigDir(a.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return sysError(err)
			}
			a.config = cfg
			logger.Debug("config loaded", "config_dir", configDir, "file", cfg.ConfigFileUsed())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $MLD_CONFIG_DIR or the user config dir)")
	pf.StringVar(&a.pluginName, "plugin", "", "plugin whose store to open (default: config plugin)")
	pf.StringVar(&a.storageDir, "storage-dir", "", "store directory (default: config storage_dir or ~/.mld/plugins/<plugin>)")
	pf.BoolVar(&a.jsonMode, "json", false, "output as JSON")
	logging.RegisterLoggingFlags(pf)

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newNamespacesCmd(a),
		newClearCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs mldstore with the process arguments and returns the exit
// code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "mldstore:", err)
	}
	return ExitCode(err)
}

// Main is the entry point of cmd/mldstore.
func Main() {
	os.Exit(Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the SDK version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mldstore %s\nmodule: %s\n", sdk.Version, sdk.ModulePath)
		},
	}
}
