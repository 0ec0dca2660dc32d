// Local store contract for plugins running without a platform.
package types

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Local store defaults.
const (
	DefaultNamespace  = "default"
	DefaultDBFilename = "data.db"
	KeyValueTable     = "kv_store"
)

// StoreConfig locates a plugin's local database file. When StorageDir is
// empty the store resolves a per-user directory from PluginName.
type StoreConfig struct {
	PluginName string `json:"plugin_name" yaml:"plugin_name"`
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`
	DBFilename string `json:"db_filename" yaml:"db_filename"`
}

// Filename returns DBFilename or the default.
func (c StoreConfig) Filename() string {
	if c.DBFilename == "" {
		return DefaultDBFilename
	}
	return c.DBFilename
}

// Validate returns a ConfigurationError when the location cannot be resolved.
func (c StoreConfig) Validate() error {
	if c.PluginName == "" && c.StorageDir == "" {
		return NewConfigurationError("plugin name or storage dir is required", "plugin_name", nil)
	}
	if strings.ContainsAny(c.PluginName, `/\`) {
		return NewConfigurationError(fmt.Sprintf("invalid plugin name %q", c.PluginName), "plugin_name", nil)
	}
	if strings.ContainsAny(c.Filename(), `/\`) {
		return NewConfigurationError(fmt.Sprintf("invalid database filename %q", c.DBFilename), "db_filename", nil)
	}
	return nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableDefinition declares a plugin-owned table created alongside the
// built-in key-value table. Columns is the column list of a CREATE TABLE
// statement, without the surrounding parentheses.
type TableDefinition struct {
	Name    string
	Columns string
	Indexes []string
}

// Validate checks the table name and rejects the reserved key-value table.
func (d TableDefinition) Validate() error {
	if !identifierRe.MatchString(d.Name) {
		return NewValidationError("invalid table name", "name", d.Name, nil)
	}
	if strings.EqualFold(d.Name, KeyValueTable) {
		return NewValidationError("table name is reserved", "name", d.Name, nil)
	}
	if strings.TrimSpace(d.Columns) == "" {
		return NewValidationError("table columns are required", "columns", nil, nil)
	}
	return nil
}

// DDL returns the idempotent CREATE statements for the table and its indexes.
func (d TableDefinition) DDL() []string {
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Name, d.Columns)}
	return append(stmts, d.Indexes...)
}

// Entry is a raw row of the key-value table.
type Entry struct {
	ID        string          `json:"id"`
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// KeyValueStore is a namespaced, JSON-valued store backed by one embedded
// database file. An empty namespace means DefaultNamespace. Absent keys are
// reported through return values, never errors. Every operation on a store
// that is not initialized returns a ConfigurationError.
type KeyValueStore interface {
	// Initialize opens or creates the database file and ensures the
	// key-value table and any extra tables exist. Existing rows are kept.
	Initialize(ctx context.Context, tables ...TableDefinition) error

	// Set stores value as JSON, inserting or overwriting (namespace, key).
	Set(ctx context.Context, namespace, key string, value any) error

	// Get returns the decoded value, or def when the key is absent.
	// Integral numbers decode as int64, other numbers as float64.
	Get(ctx context.Context, namespace, key string, def any) (any, error)

	// Lookup decodes the value into dest and reports whether it existed.
	Lookup(ctx context.Context, namespace, key string, dest any) (bool, error)

	// Delete removes the key and reports whether it existed.
	Delete(ctx context.Context, namespace, key string) (bool, error)

	// ListKeys returns every key in the namespace.
	ListKeys(ctx context.Context, namespace string) ([]string, error)

	// GetAll returns every entry in the namespace, decoded.
	GetAll(ctx context.Context, namespace string) (map[string]any, error)

	// Clear removes every entry in the namespace and returns the count.
	Clear(ctx context.Context, namespace string) (int64, error)

	// ClearAll removes every entry in every namespace and returns the count.
	ClearAll(ctx context.Context) (int64, error)

	// Session runs fn in a transaction, committing when fn returns nil.
	Session(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Close releases the database handle. Safe to call more than once.
	Close() error
}

// NamespaceOrDefault maps the empty namespace to DefaultNamespace.
func NamespaceOrDefault(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}
