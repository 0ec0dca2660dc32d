package sqlite

import "github.com/mld-platform/mld-sdk/pkg/types"

// Key-value table DDL. Timestamps are RFC 3339 text in UTC.
const (
	createKeyValue = `CREATE TABLE IF NOT EXISTS kv_store (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxKeyValueUnique    = `CREATE UNIQUE INDEX IF NOT EXISTS idx_kv_store_namespace_key ON kv_store(namespace, key);`
	idxKeyValueNamespace = `CREATE INDEX IF NOT EXISTS idx_kv_store_namespace ON kv_store(namespace);`
)

// schemaDDL lists the statements that create the built-in tables.
var schemaDDL = []string{
	createKeyValue,
	idxKeyValueUnique,
	idxKeyValueNamespace,
}

// Key-value statements.
const (
	upsertEntry = `INSERT INTO kv_store (id, namespace, key, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	selectValue     = `SELECT value FROM kv_store WHERE namespace = ? AND key = ?`
	selectEntry     = `SELECT id, namespace, key, value, created_at, updated_at FROM kv_store WHERE namespace = ? AND key = ?`
	selectKeys      = `SELECT key FROM kv_store WHERE namespace = ? ORDER BY key`
	selectPairs     = `SELECT key, value FROM kv_store WHERE namespace = ? ORDER BY key`
	selectNamespace = `SELECT DISTINCT namespace FROM kv_store ORDER BY namespace`
	selectAllRows   = `SELECT id, namespace, key, value, created_at, updated_at FROM kv_store ORDER BY namespace, key`
	deleteEntry     = `DELETE FROM kv_store WHERE namespace = ? AND key = ?`
	deleteNamespace = `DELETE FROM kv_store WHERE namespace = ?`
	deleteAll       = `DELETE FROM kv_store`
)

// Plugin data tables used by PluginDataRepository.
var (
	designDataTable = types.TableDefinition{
		Name: "design_data",
		Columns: `id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id INTEGER NOT NULL UNIQUE,
    plugin_id TEXT NOT NULL,
    data TEXT NOT NULL,
    schema_version TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL`,
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_design_data_plugin ON design_data(plugin_id)`,
		},
	}

	analysisResultsTable = types.TableDefinition{
		Name: "analysis_results",
		Columns: `id INTEGER PRIMARY KEY AUTOINCREMENT,
    experiment_id INTEGER NOT NULL,
    plugin_id TEXT NOT NULL,
    result TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (experiment_id, plugin_id)`,
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_analysis_results_experiment ON analysis_results(experiment_id)`,
		},
	}
)
