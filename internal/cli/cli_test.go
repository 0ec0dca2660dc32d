package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/internal/paths"
	"github.com/mld-platform/mld-sdk/pkg/sdk"
)

// harness runs mldstore against a private config dir and storage dir.
type harness struct {
	t          *testing.T
	configDir  string
	storageDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("MLD_PLUGIN", "")
	t.Setenv("MLD_STORAGE_DIR", "")
	t.Setenv("MLD_DB_FILENAME", "")
	t.Setenv(paths.EnvConfigDir, "")
	return &harness{t: t, configDir: t.TempDir(), storageDir: t.TempDir()}
}

func (h *harness) run(args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errb bytes.Buffer
	full := append([]string{"--config-dir", h.configDir, "--storage-dir", h.storageDir}, args...)
	code = Execute(context.Background(), full, &out, &errb)
	return code, out.String(), errb.String()
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.run(args...)
	require.Equal(h.t, ExitSuccess, code, "stderr: %s", errOut)
	return out
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := Execute(context.Background(), []string{"version"}, &out, &bytes.Buffer{})
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "mldstore "+sdk.Version)
	assert.Contains(t, out.String(), sdk.ModulePath)
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("init")
	assert.Contains(t, out, filepath.Join(h.storageDir, "data.db"))

	cfg, err := os.ReadFile(filepath.Join(h.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "db_filename: data.db")
	_, err = os.Stat(filepath.Join(h.storageDir, "data.db"))
	assert.NoError(t, err)
}

func TestSetGetDelete(t *testing.T) {
	h := newHarness(t)

	h.mustRun("set", "settings", "threshold", "0.5")
	h.mustRun("set", "settings", "wells", `["A1","A2"]`)
	h.mustRun("set", "notes", "latest", "plate reader recalibrated")

	assert.Equal(t, "0.5\n", h.mustRun("get", "settings", "threshold"))
	assert.JSONEq(t, `["A1","A2"]`, h.mustRun("get", "settings", "wells"))
	assert.Equal(t, "\"plate reader recalibrated\"\n", h.mustRun("get", "notes", "latest"))

	entry := h.mustRun("--json", "get", "settings", "threshold")
	assert.Contains(t, entry, `"namespace": "settings"`)
	assert.Contains(t, entry, `"created_at"`)

	h.mustRun("delete", "settings", "threshold")
	code, _, errOut := h.run("get", "settings", "threshold")
	assert.Equal(t, ExitUserError, code)
	assert.Contains(t, errOut, "not found")

	code, _, _ = h.run("delete", "settings", "threshold")
	assert.Equal(t, ExitUserError, code)
}

func TestListAndNamespaces(t *testing.T) {
	h := newHarness(t)
	h.mustRun("set", "b", "y", "1")
	h.mustRun("set", "b", "x", "2")
	h.mustRun("set", "a", "z", "3")
	h.mustRun("set", "", "k", "4")

	assert.Equal(t, "x\ny\n", h.mustRun("list", "b"))
	assert.Equal(t, "k\n", h.mustRun("list"))
	assert.Equal(t, "a\nb\ndefault\n", h.mustRun("namespaces"))
	assert.Equal(t, "a/z\nb/x\nb/y\ndefault/k\n", h.mustRun("list", "--all"))
	assert.JSONEq(t, `{"a":["z"],"b":["x","y"],"default":["k"]}`, h.mustRun("--json", "list", "--all"))
	assert.JSONEq(t, `[]`, h.mustRun("--json", "list", "empty"))

	code, _, _ := h.run("list", "--all", "b")
	assert.Equal(t, ExitUserError, code)
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	h.mustRun("set", "a", "1", "1")
	h.mustRun("set", "a", "2", "2")
	h.mustRun("set", "b", "1", "1")

	code, _, _ := h.run("clear")
	assert.Equal(t, ExitUserError, code)

	assert.Equal(t, "removed 2 entries\n", h.mustRun("clear", "a"))
	assert.Equal(t, "removed 1 entries\n", h.mustRun("clear", "--all"))
	assert.Empty(t, h.mustRun("namespaces"))
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	h.mustRun("set", "settings", "threshold", "0.5")
	h.mustRun("set", "notes", "latest", `{"by":"ana"}`)

	lines := strings.Split(strings.TrimSpace(h.mustRun("export")), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"namespace":"notes"`)

	file := filepath.Join(t.TempDir(), "backup.jsonl")
	assert.Contains(t, h.mustRun("export", file, "--namespace", "settings"), "exported 1 entries")

	h.mustRun("clear", "--all")
	assert.Equal(t, "imported 1 entries\n", h.mustRun("import", file))
	assert.Equal(t, "0.5\n", h.mustRun("get", "settings", "threshold"))

	code, _, _ := h.run("import", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Equal(t, ExitUserError, code)
}

func TestStoreSelection(t *testing.T) {
	t.Run("no plugin selected", func(t *testing.T) {
		newHarness(t)
		var errb bytes.Buffer
		code := Execute(context.Background(), []string{"--config-dir", t.TempDir(), "namespaces"}, &bytes.Buffer{}, &errb)
		assert.Equal(t, ExitUserError, code)
		assert.Contains(t, errb.String(), "no plugin selected")
	})

	t.Run("plugin flag uses the plugins dir", func(t *testing.T) {
		newHarness(t)
		plugins := t.TempDir()
		t.Setenv(paths.EnvPluginsDir, plugins)
		var out bytes.Buffer
		code := Execute(context.Background(), []string{"--config-dir", t.TempDir(), "--plugin", "rfa", "init"}, &out, &bytes.Buffer{})
		require.Equal(t, ExitSuccess, code)
		assert.Contains(t, out.String(), filepath.Join(plugins, "rfa", "data.db"))
	})

	t.Run("config file", func(t *testing.T) {
		newHarness(t)
		configDir, storageDir := t.TempDir(), t.TempDir()
		cfg := "plugin: elisa\nstorage_dir: " + storageDir + "\ndb_filename: elisa.db\n"
		require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(cfg), 0o644))

		var out bytes.Buffer
		code := Execute(context.Background(), []string{"--config-dir", configDir, "init"}, &out, &bytes.Buffer{})
		require.Equal(t, ExitSuccess, code)
		assert.Contains(t, out.String(), filepath.Join(storageDir, "elisa.db"))
	})

	t.Run("environment", func(t *testing.T) {
		newHarness(t)
		storageDir := t.TempDir()
		t.Setenv("MLD_STORAGE_DIR", storageDir)
		var out bytes.Buffer
		code := Execute(context.Background(), []string{"--config-dir", t.TempDir(), "init"}, &out, &bytes.Buffer{})
		require.Equal(t, ExitSuccess, code)
		assert.Contains(t, out.String(), filepath.Join(storageDir, "data.db"))
	})
}

func TestInvalidLogFlag(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run("--logformat", "xml", "namespaces")
	assert.Equal(t, ExitUserError, code)
}
