package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Export writes entries as JSON lines, one types.Entry per line, ordered by
// namespace and key. With no namespaces every entry is written. It returns
// the number of entries written.
func (s *Store) Export(ctx context.Context, w io.Writer, namespaces ...string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, errNotInitialized()
	}

	want := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		want = append(want, types.NamespaceOrDefault(ns))
	}

	rows, err := s.db.QueryContext(ctx, selectAllRows)
	if err != nil {
		return 0, repositoryError("export", err)
	}
	defer rows.Close()

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return n, repositoryError("export", err)
		}
		if len(want) > 0 && !slices.Contains(want, e.Namespace) {
			continue
		}
		if err := enc.Encode(e); err != nil {
			return n, fmt.Errorf("writing entry: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, repositoryError("export", err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flushing buffer: %w", err)
	}
	return n, nil
}

// ExportFile writes Export's output to path atomically using the temp-file,
// fsync, rename pattern.
func (s *Store) ExportFile(ctx context.Context, path string, namespaces ...string) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.jsonl.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := s.Export(ctx, tmp, namespaces...)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// Import upserts entries read as JSON lines in a single transaction.
// Blank and malformed lines are skipped, as are lines without a key. A new
// key keeps the imported id and created_at; an existing key keeps its own.
// It returns the number of entries applied.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	entries, err := readEntries(r)
	if err != nil {
		return 0, err
	}

	now := formatTime(s.now())
	n := 0
	err = s.Session(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			id := e.ID
			if id == "" {
				id = newID()
			}
			created, updated := now, now
			if !e.CreatedAt.IsZero() {
				created = formatTime(e.CreatedAt)
			}
			if !e.UpdatedAt.IsZero() {
				updated = formatTime(e.UpdatedAt)
			}
			if _, err := tx.ExecContext(ctx, upsertEntry,
				id, types.NamespaceOrDefault(e.Namespace), e.Key, string(e.Value), created, updated); err != nil {
				return repositoryError("import", err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("local store import applied", "entries", n)
	return n, nil
}

// ImportFile opens path and passes it to Import.
func (s *Store) ImportFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// readEntries parses JSON lines into entries, skipping lines that are
// blank, malformed, keyless or carry an invalid value.
func readEntries(r io.Reader) ([]types.Entry, error) {
	var entries []types.Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		var e types.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Key == "" || len(e.Value) == 0 || !json.Valid(e.Value) {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning entries: %w", err)
	}
	return entries, nil
}
