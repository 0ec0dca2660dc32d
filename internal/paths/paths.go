// Package paths resolves the configuration directory of the SDK tooling and
// the per-plugin storage directory of the local store.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory names under the user's home and config directories.
const (
	HomeDirName    = ".mld"
	PluginsDirName = "plugins"
	ConfigDirName  = "mld"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir  = "MLD_CONFIG_DIR"
	EnvPluginsDir = "MLD_PLUGINS_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/mld (fallback ~/.config/mld)
// macOS:   ~/Library/Application Support/mld
// Windows: %APPDATA%/mld
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, ConfigDirName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", ConfigDirName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, ConfigDirName), nil
	}
}

// DefaultPluginsDir returns the directory holding every plugin's local data:
// $MLD_PLUGINS_DIR when set, otherwise ~/.mld/plugins.
func DefaultPluginsDir() (string, error) {
	if env := os.Getenv(EnvPluginsDir); env != "" {
		return filepath.Abs(env)
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, HomeDirName, PluginsDirName), nil
}

// PluginStorageDir returns the default storage directory for one plugin.
func PluginStorageDir(pluginName string) (string, error) {
	base, err := DefaultPluginsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, pluginName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > MLD_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveStorageDir returns a plugin's storage directory following the
// precedence chain: flag > configValue > PluginStorageDir(pluginName).
func ResolveStorageDir(flag, configValue, pluginName string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	return PluginStorageDir(pluginName)
}
