// Package sqlite implements the embedded local store that plugins use when
// they run without a platform: a namespaced JSON key-value table plus any
// plugin-declared tables, all in one SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mld-platform/mld-sdk/internal/paths"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

const (
	driverName = "sqlite"
	dsnPragmas = "?_pragma=busy_timeout(5000)"

	// configKey names the store in not-initialized errors.
	configKey = "local_store"
)

// Store implements types.KeyValueStore on a SQLite file.
type Store struct {
	mu     sync.RWMutex
	config types.StoreConfig
	path   string
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ types.KeyValueStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the time source used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store for config. The store is not open; call
// Initialize before any other operation.
func NewStore(config types.StoreConfig, opts ...Option) *Store {
	s := &Store{
		config: config,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize opens or creates the database file and ensures the built-in
// and extra tables exist. Calling it again on an open store only ensures
// the extra tables; rows are never dropped.
func (s *Store) Initialize(ctx context.Context, tables ...types.TableDefinition) error {
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	opened := false
	if s.db == nil {
		if err := s.openLocked(ctx); err != nil {
			return err
		}
		opened = true
	}

	if err := s.ensureTablesLocked(ctx, tables); err != nil {
		if opened {
			s.db.Close()
			s.db = nil
		}
		return err
	}
	return nil
}

func (s *Store) openLocked(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	path, err := s.resolvePath()
	if err != nil {
		return types.NewConfigurationError("cannot resolve local store directory", "storage_dir", nil).WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.NewConfigurationError("cannot create local store directory", "storage_dir",
			map[string]any{"path": filepath.Dir(path)}).WithCause(err)
	}

	db, err := sql.Open(driverName, path+dsnPragmas)
	if err != nil {
		return repositoryError("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return repositoryError("open", err)
	}
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return repositoryError("initialize", err)
		}
	}

	s.db = db
	s.path = path
	s.logger.Debug("local store opened", "path", path, "plugin", s.config.PluginName)
	return nil
}

func (s *Store) ensureTablesLocked(ctx context.Context, tables []types.TableDefinition) error {
	for _, t := range tables {
		for _, stmt := range t.DDL() {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return types.NewRepositoryError(fmt.Sprintf("create table %s failed", t.Name),
					"initialize", t.Name, nil).WithCause(err)
			}
		}
	}
	return nil
}

func (s *Store) resolvePath() (string, error) {
	dir := s.config.StorageDir
	if dir == "" {
		var err error
		if dir, err = paths.PluginStorageDir(s.config.PluginName); err != nil {
			return "", err
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.config.Filename()), nil
}

// Set stores value as JSON under (namespace, key). A new row gets equal
// created_at and updated_at; an overwrite keeps created_at.
func (s *Store) Set(ctx context.Context, namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errNotInitialized()
	}

	ts := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, upsertEntry,
		newID(), types.NamespaceOrDefault(namespace), key, string(raw), ts, ts)
	if err != nil {
		return repositoryError("set", err)
	}
	return nil
}

// Get returns the decoded value stored under (namespace, key), or def.
func (s *Store) Get(ctx context.Context, namespace, key string, def any) (any, error) {
	raw, ok, err := s.rawValue(ctx, namespace, key)
	if err != nil || !ok {
		return def, err
	}
	v, err := decodeValue(raw)
	if err != nil {
		return def, repositoryError("get", err)
	}
	return v, nil
}

// Lookup decodes the value stored under (namespace, key) into dest.
func (s *Store) Lookup(ctx context.Context, namespace, key string, dest any) (bool, error) {
	raw, ok, err := s.rawValue(ctx, namespace, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, repositoryError("get", err)
	}
	return true, nil
}

func (s *Store) rawValue(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, false, errNotInitialized()
	}

	var raw string
	err := s.db.QueryRowContext(ctx, selectValue, types.NamespaceOrDefault(namespace), key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, repositoryError("get", err)
	}
	return []byte(raw), true, nil
}

// Entry returns the raw row for (namespace, key), or nil.
func (s *Store) Entry(ctx context.Context, namespace, key string) (*types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errNotInitialized()
	}

	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry, types.NamespaceOrDefault(namespace), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repositoryError("get", err)
	}
	return e, nil
}

// Delete removes (namespace, key) and reports whether it existed.
func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	n, err := s.exec(ctx, "delete", deleteEntry, types.NamespaceOrDefault(namespace), key)
	return n > 0, err
}

// ListKeys returns the keys of a namespace in ascending order.
func (s *Store) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	return s.queryStrings(ctx, "list_keys", selectKeys, types.NamespaceOrDefault(namespace))
}

// Namespaces returns every namespace holding at least one entry.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "list_namespaces", selectNamespace)
}

// GetAll returns every entry of a namespace, decoded.
func (s *Store) GetAll(ctx context.Context, namespace string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errNotInitialized()
	}

	rows, err := s.db.QueryContext(ctx, selectPairs, types.NamespaceOrDefault(namespace))
	if err != nil {
		return nil, repositoryError("get_all", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, repositoryError("get_all", err)
		}
		v, err := decodeValue([]byte(raw))
		if err != nil {
			return nil, repositoryError("get_all", err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, repositoryError("get_all", err)
	}
	return out, nil
}

// Clear removes every entry of a namespace and returns how many were removed.
func (s *Store) Clear(ctx context.Context, namespace string) (int64, error) {
	return s.exec(ctx, "clear", deleteNamespace, types.NamespaceOrDefault(namespace))
}

// ClearAll removes every entry of every namespace.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	return s.exec(ctx, "clear", deleteAll)
}

// Session runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back otherwise; fn's error is returned as is. fn must use tx
// and not call back into the store.
func (s *Store) Session(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errNotInitialized()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repositoryError("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("local store rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return repositoryError("commit", err)
	}
	return nil
}

// DB returns the underlying handle for plugin-owned tables.
func (s *Store) DB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errNotInitialized()
	}
	return s.db, nil
}

// IsInitialized reports whether the store is open.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Path returns the database file path, or "" when it cannot be resolved.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path != "" {
		return s.path
	}
	if s.config.Validate() != nil {
		return ""
	}
	p, err := s.resolvePath()
	if err != nil {
		return ""
	}
	return p
}

// Close releases the database handle. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return repositoryError("close", err)
	}
	s.logger.Debug("local store closed", "path", s.path)
	return nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, errNotInitialized()
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, repositoryError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, repositoryError(op, err)
	}
	return n, nil
}

func (s *Store) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errNotInitialized()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositoryError(op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, repositoryError(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, repositoryError(op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*types.Entry, error) {
	var (
		e                    types.Entry
		value                string
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.Namespace, &e.Key, &value, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Value = json.RawMessage(value)
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func errNotInitialized() error {
	return types.NewConfigurationError("local store not initialized; call Initialize first", configKey, nil)
}

func repositoryError(op string, err error) error {
	return types.NewRepositoryError(fmt.Sprintf("local store %s failed", op), op, types.KeyValueTable, nil).WithCause(err)
}

// newID generates a UUID v7 row id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
