// Package logging builds the slog logger of the SDK tooling from command
// line flags. It supports text and JSON output, four levels and a choice of
// stdout or stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Log format flag.
const (
	FormatFlagName = "logformat"

	FormatText = "text"
	FormatJSON = "json"
)

// Log level flag.
const (
	LevelFlagName = "loglevel"

	LevelWarn  = "warn"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelError = "error"
)

// Log output flag.
const (
	OutputFlagName = "logoutput"

	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

// enumValue is a string flag restricted to a fixed set of options. The
// first option is the default.
type enumValue struct {
	value   string
	options []string
}

func newEnum(options ...string) *enumValue {
	if len(options) == 0 {
		panic("enum flag needs at least one option")
	}
	return &enumValue{value: options[0], options: options}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(v string) error {
	if !slices.Contains(e.options, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.options, ", "))
	}
	e.value = v
	return nil
}

func (e *enumValue) Type() string { return "enum" }

// RegisterLoggingFlags adds the logging flags to flagset. Register them on
// the persistent flag set of the root command so every subcommand sees
// them.
//
//	--logformat json --loglevel debug --logoutput stdout
func RegisterLoggingFlags(flagset *pflag.FlagSet) {
	flagset.Var(newEnum(FormatText, FormatJSON), FormatFlagName,
		"log format (text, json)")
	flagset.Var(newEnum(LevelWarn, LevelDebug, LevelInfo, LevelError), LevelFlagName,
		"log level (warn, debug, info, error)")
	flagset.Var(newEnum(OutputStderr, OutputStdout), OutputFlagName,
		"log destination (stderr, stdout)")
}

// GetBaseLogger builds a logger from the logging flags of cmd.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := levelFromFlags(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to get log level: %w", err)
	}
	format, err := enumFlag(cmd.Flags(), FormatFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to get log format: %w", err)
	}
	output, err := enumFlag(cmd.Flags(), OutputFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to get log output: %w", err)
	}

	var w io.Writer
	switch output {
	case OutputStdout:
		w = cmd.OutOrStdout()
	default:
		w = cmd.ErrOrStderr()
	}
	return New(w, format, level)
}

// New returns a logger writing format to w at level.
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

// ParseLevel maps a level flag value to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", s)
	}
}

func levelFromFlags(fs *pflag.FlagSet) (slog.Level, error) {
	s, err := enumFlag(fs, LevelFlagName)
	if err != nil {
		return slog.LevelWarn, err
	}
	return ParseLevel(s)
}

func enumFlag(fs *pflag.FlagSet, name string) (string, error) {
	f := fs.Lookup(name)
	if f == nil {
		return "", fmt.Errorf("flag %q is not registered", name)
	}
	return f.Value.String(), nil
}
