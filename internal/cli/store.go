package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mld-platform/mld-sdk/internal/paths"
	"github.com/mld-platform/mld-sdk/internal/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// storeConfig resolves which store to open. Precedence for the directory:
// --storage-dir > config storage_dir > the plugin's default directory.
func (a *app) storeConfig() (types.StoreConfig, error) {
	name := a.pluginName
	if name == "" {
		name = a.config.GetString(cfgKeyPlugin)
	}
	configured := a.config.GetString(cfgKeyStorageDir)
	if name == "" && a.storageDir == "" && configured == "" {
		return types.StoreConfig{}, userError("no plugin selected; pass --plugin or set plugin in config.yaml")
	}

	dir, err := paths.ResolveStorageDir(a.storageDir, configured, name)
	if err != nil {
		return types.StoreConfig{}, sysError(fmt.Errorf("resolve storage dir: %w", err))
	}
	return types.StoreConfig{
		PluginName: name,
		StorageDir: dir,
		DBFilename: a.config.GetString(cfgKeyDBFilename),
	}, nil
}

// withStore opens the selected store, runs fn and closes it.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *sqlite.Store) error) error {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return userError("%s", err)
	}

	store := sqlite.NewStore(cfg, sqlite.WithLogger(a.logger))
	ctx := cmd.Context()
	if err := store.Initialize(ctx); err != nil {
		return sysError(fmt.Errorf("open store: %w", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}()

	a.logger.Debug("store opened", "path", store.Path())
	if err := fn(ctx, store); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return err
		}
		return sysError(err)
	}
	return nil
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// parseValue decodes arg as JSON, falling back to the raw string.
func parseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}
