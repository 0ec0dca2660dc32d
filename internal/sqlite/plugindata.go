package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

const (
	upsertDesignData = `INSERT INTO design_data (experiment_id, plugin_id, data, schema_version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(experiment_id) DO UPDATE SET
    plugin_id = excluded.plugin_id,
    data = excluded.data,
    schema_version = excluded.schema_version,
    updated_at = excluded.updated_at`

	selectDesignData = `SELECT id, experiment_id, plugin_id, data, schema_version, created_at, updated_at
FROM design_data WHERE experiment_id = ?`
	deleteDesignData = `DELETE FROM design_data WHERE experiment_id = ?`

	upsertAnalysisResult = `INSERT INTO analysis_results (experiment_id, plugin_id, result, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(experiment_id, plugin_id) DO UPDATE SET
    result = excluded.result,
    updated_at = excluded.updated_at`

	selectAnalysisResult = `SELECT id, experiment_id, plugin_id, result, created_at, updated_at
FROM analysis_results WHERE experiment_id = ? AND plugin_id = ?`
	selectAnalysisResults = `SELECT id, experiment_id, plugin_id, result, created_at, updated_at
FROM analysis_results WHERE experiment_id = ? ORDER BY plugin_id`
	deleteAnalysisResult = `DELETE FROM analysis_results WHERE experiment_id = ? AND plugin_id = ?`
)

// PluginDataRepository implements repository.PluginDataRepository on the
// local store, for plugins that persist design data or results without a
// platform.
type PluginDataRepository struct {
	store *Store
}

var _ repository.PluginDataRepository = (*PluginDataRepository)(nil)

// NewPluginDataRepository ensures the plugin data tables exist in store,
// initializing it if needed.
func NewPluginDataRepository(ctx context.Context, store *Store) (*PluginDataRepository, error) {
	if err := store.Initialize(ctx, designDataTable, analysisResultsTable); err != nil {
		return nil, err
	}
	return &PluginDataRepository{store: store}, nil
}

// SaveExperimentData upserts by experiment id.
func (r *PluginDataRepository) SaveExperimentData(ctx context.Context, experimentID int64, pluginID string, data map[string]any, schemaVersion string) (*types.DesignData, error) {
	if schemaVersion == "" {
		schemaVersion = repository.DefaultSchemaVersion
	}
	raw, err := marshalObject(data)
	if err != nil {
		return nil, err
	}

	var out *types.DesignData
	ts := formatTime(r.store.now())
	err = r.store.Session(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertDesignData, experimentID, pluginID, raw, schemaVersion, ts, ts); err != nil {
			return dataError("save", "design_data", err)
		}
		d, err := scanDesignData(tx.QueryRowContext(ctx, selectDesignData, experimentID))
		if err != nil {
			return dataError("save", "design_data", err)
		}
		out = d
		return nil
	})
	return out, err
}

// GetExperimentData returns the design data of an experiment, or nil.
func (r *PluginDataRepository) GetExperimentData(ctx context.Context, experimentID int64) (*types.DesignData, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}
	d, err := scanDesignData(db.QueryRowContext(ctx, selectDesignData, experimentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dataError("get", "design_data", err)
	}
	return d, nil
}

// DeleteExperimentData removes the design data of an experiment.
func (r *PluginDataRepository) DeleteExperimentData(ctx context.Context, experimentID int64) (bool, error) {
	return r.delete(ctx, "design_data", deleteDesignData, experimentID)
}

// SaveAnalysisResult upserts by (experiment id, plugin id).
func (r *PluginDataRepository) SaveAnalysisResult(ctx context.Context, experimentID int64, pluginID string, result map[string]any) (*types.AnalysisResult, error) {
	raw, err := marshalObject(result)
	if err != nil {
		return nil, err
	}

	var out *types.AnalysisResult
	ts := formatTime(r.store.now())
	err = r.store.Session(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertAnalysisResult, experimentID, pluginID, raw, ts, ts); err != nil {
			return dataError("save", "analysis_result", err)
		}
		res, err := scanAnalysisResult(tx.QueryRowContext(ctx, selectAnalysisResult, experimentID, pluginID))
		if err != nil {
			return dataError("save", "analysis_result", err)
		}
		out = res
		return nil
	})
	return out, err
}

// GetAnalysisResult returns one plugin's result for an experiment, or nil.
func (r *PluginDataRepository) GetAnalysisResult(ctx context.Context, experimentID int64, pluginID string) (*types.AnalysisResult, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}
	res, err := scanAnalysisResult(db.QueryRowContext(ctx, selectAnalysisResult, experimentID, pluginID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dataError("get", "analysis_result", err)
	}
	return res, nil
}

// GetAnalysisResults returns every result for an experiment ordered by
// plugin id.
func (r *PluginDataRepository) GetAnalysisResults(ctx context.Context, experimentID int64) ([]types.AnalysisResult, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectAnalysisResults, experimentID)
	if err != nil {
		return nil, dataError("list", "analysis_result", err)
	}
	defer rows.Close()

	out := []types.AnalysisResult{}
	for rows.Next() {
		res, err := scanAnalysisResult(rows)
		if err != nil {
			return nil, dataError("list", "analysis_result", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, dataError("list", "analysis_result", err)
	}
	return out, nil
}

// DeleteAnalysisResult removes one plugin's result for an experiment.
func (r *PluginDataRepository) DeleteAnalysisResult(ctx context.Context, experimentID int64, pluginID string) (bool, error) {
	return r.delete(ctx, "analysis_result", deleteAnalysisResult, experimentID, pluginID)
}

func (r *PluginDataRepository) delete(ctx context.Context, entity, query string, args ...any) (bool, error) {
	db, err := r.store.DB()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, dataError("delete", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dataError("delete", entity, err)
	}
	return n > 0, nil
}

func scanDesignData(row rowScanner) (*types.DesignData, error) {
	var (
		d                    types.DesignData
		raw                  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.ExperimentID, &d.PluginID, &raw, &d.SchemaVersion, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if d.Data, err = decodeObject([]byte(raw)); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanAnalysisResult(row rowScanner) (*types.AnalysisResult, error) {
	var (
		res                  types.AnalysisResult
		raw                  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&res.ID, &res.ExperimentID, &res.PluginID, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if res.Result, err = decodeObject([]byte(raw)); err != nil {
		return nil, err
	}
	if res.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if res.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// marshalObject encodes a payload map; nil encodes as an empty object.
func marshalObject(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func dataError(op, entity string, err error) error {
	return types.NewRepositoryError(fmt.Sprintf("%s %s failed", op, entity), op, entity, nil).WithCause(err)
}
