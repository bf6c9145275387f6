// Package runs persists fetched simulation results so the last run survives
// a restart. Results are stored as msgpack blobs with an expiration time.
package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/lossdash/internal/domain"
)

// Schema creates the run history table.
const Schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	data BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_fetched ON simulation_runs(fetched_at);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_expires ON simulation_runs(expires_at);
`

// DefaultTTL keeps runs for a week.
const DefaultTTL = 7 * 24 * time.Hour

// Record is one stored simulation run.
type Record struct {
	ID        string                   `json:"run_id"`
	FetchedAt time.Time                `json:"fetched_at"`
	Result    *domain.SimulationResult `json:"result,omitempty"`
}

// Entry is a run listing without its loss sequence.
type Entry struct {
	ID             string    `json:"run_id"`
	FetchedAt      time.Time `json:"fetched_at"`
	NumSimulations int       `json:"num_simulations"`
	MeanLoss       float64   `json:"mean_loss"`
	VaR95          float64   `json:"var_95"`
	VaR99          float64   `json:"var_99"`
}

// Repository stores simulation runs in SQLite.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewRepository creates a run repository. A non-positive ttl uses DefaultTTL.
func NewRepository(db *sql.DB, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{db: db, ttl: ttl, now: time.Now}
}

// EnsureSchema creates the table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create simulation_runs: %w", err)
	}
	return nil
}

// Save stores a run with expiration = now + ttl, replacing any run with the
// same id.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("run id is required")
	}
	if rec.Result == nil {
		return fmt.Errorf("run %s has no result", rec.ID)
	}

	data, err := msgpack.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", rec.ID, err)
	}

	expiresAt := r.now().Add(r.ttl).Unix()
	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO simulation_runs (run_id, fetched_at, data, expires_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.FetchedAt.UnixMilli(), data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns a run regardless of expiration.
// Returns nil, nil if the run doesn't exist.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT run_id, fetched_at, data FROM simulation_runs WHERE run_id = ?", id)
	return scanRecord(row)
}

// Latest returns the most recently fetched run that has not expired.
// Returns nil, nil when there is none.
func (r *Repository) Latest(ctx context.Context) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT run_id, fetched_at, data FROM simulation_runs
		 WHERE expires_at > ?
		 ORDER BY fetched_at DESC, rowid DESC LIMIT 1`, r.now().Unix())
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		id        string
		fetchedAt int64
		data      []byte
	)
	err := row.Scan(&id, &fetchedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	var result domain.SimulationResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}

	return &Record{
		ID:        id,
		FetchedAt: time.UnixMilli(fetchedAt).UTC(),
		Result:    &result,
	}, nil
}

// List returns up to limit unexpired runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, fetched_at, data FROM simulation_runs
		 WHERE expires_at > ?
		 ORDER BY fetched_at DESC, rowid DESC LIMIT ?`, r.now().Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			id        string
			fetchedAt int64
			data      []byte
		)
		if err := rows.Scan(&id, &fetchedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var result domain.SimulationResult
		if err := msgpack.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		entries = append(entries, Entry{
			ID:             id,
			FetchedAt:      time.UnixMilli(fetchedAt).UTC(),
			NumSimulations: result.NumSimulations,
			MeanLoss:       result.MeanLoss,
			VaR95:          result.VaR95,
			VaR99:          result.VaR99,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return entries, nil
}

// DeleteExpired removes all runs where expires_at <= now and returns the
// number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM simulation_runs WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
