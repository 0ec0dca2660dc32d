package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/mld", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "mld"), got)
	})
}

func TestPluginStorageDir(t *testing.T) {
	t.Run("home default", func(t *testing.T) {
		t.Setenv(EnvPluginsDir, "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := PluginStorageDir("my-plugin")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".mld", "plugins", "my-plugin"), got)
	})

	t.Run("env override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvPluginsDir, dir)

		got, err := PluginStorageDir("my-plugin")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "my-plugin"), got)
	})
}

func TestPluginStorageDir_HomeError(t *testing.T) {
	t.Setenv(EnvPluginsDir, "")
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	defer func() { platformDir.homeDir = orig }()

	_, err := PluginStorageDir("x")
	assert.EqualError(t, err, "no home")
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string // substring the result must contain
	}{
		{
			name:    "flag wins over env",
			flag:    "/explicit/config",
			envVal:  "/env/config",
			wantSub: "/explicit/config",
		},
		{
			name:    "env wins when flag empty",
			envVal:  "/env/config",
			wantSub: "/env/config",
		},
		{
			name:    "platform default when both empty",
			wantSub: "mld",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveStorageDir(t *testing.T) {
	t.Setenv(EnvPluginsDir, "/env/plugins")

	got, err := ResolveStorageDir("/flag/dir", "/config/dir", "rfa")
	require.NoError(t, err)
	assert.Equal(t, "/flag/dir", got)

	got, err = ResolveStorageDir("", "/config/dir", "rfa")
	require.NoError(t, err)
	assert.Equal(t, "/config/dir", got)

	got, err = ResolveStorageDir("", "", "rfa")
	require.NoError(t, err)
	assert.Equal(t, "/env/plugins/rfa", got)
}
