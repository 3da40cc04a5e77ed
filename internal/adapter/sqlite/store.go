// Package sqlite persists the wide incident table so the HTTP layer can list
// provinces and aggregate history without re-reading CSV files.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS incidents (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL,
	province         TEXT NOT NULL,
	province_key     TEXT NOT NULL,
	start_date       TEXT,
	registered_cases INTEGER NOT NULL,
	types            TEXT NOT NULL,
	indicators       TEXT NOT NULL,
	loaded_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_incidents_province_key ON incidents(province_key);
`

// Store is a SQLite-backed incident store.
// It implements pipeline.Loader and forecast.HistoryStore.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadDataset replaces the stored incidents with the dataset's wide rows.
func (s *Store) LoadDataset(ctx context.Context, run domain.Run, ds *domain.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM incidents`); err != nil {
		return fmt.Errorf("clear incidents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO incidents
		(id, run_id, province, province_key, start_date, registered_cases, types, indicators, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	loadedAt := run.StartedAt.UTC().Format(time.RFC3339)
	summaries := ds.Summaries()
	for _, inc := range summaries {
		types, err := json.Marshal(inc.Types)
		if err != nil {
			return fmt.Errorf("encode types: %w", err)
		}
		indicators, err := json.Marshal(inc.Indicators)
		if err != nil {
			return fmt.Errorf("encode indicators: %w", err)
		}
		var startDate sql.NullString
		if !inc.StartDate.IsZero() {
			startDate = sql.NullString{String: inc.StartDate.Format(time.DateOnly), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			inc.ID, run.ID, inc.Province, domain.NormalizeName(inc.Province),
			startDate, inc.RegisteredCases, string(types), string(indicators), loadedAt,
		); err != nil {
			return fmt.Errorf("insert incident %s: %w", inc.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("incidents stored", "run_id", run.ID, "rows", len(summaries))
	return nil
}

// Provinces returns the distinct known province labels, sorted.
func (s *Store) Provinces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT province FROM incidents WHERE province <> '' ORDER BY province`)
	if err != nil {
		return nil, fmt.Errorf("query provinces: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// History returns every stored incident whose province matches ignoring case
// and accents, ordered by start date (undated last) then ID.
func (s *Store) History(ctx context.Context, province string) ([]domain.IncidentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, province, start_date, registered_cases, types, indicators
		FROM incidents WHERE province_key = ?
		ORDER BY start_date IS NULL, start_date, id`, domain.NormalizeName(province))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.IncidentSummary
	for rows.Next() {
		var (
			inc        domain.IncidentSummary
			startDate  sql.NullString
			types      string
			indicators string
		)
		if err := rows.Scan(&inc.ID, &inc.Province, &startDate, &inc.RegisteredCases, &types, &indicators); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		if startDate.Valid {
			d, err := time.Parse(time.DateOnly, startDate.String)
			if err != nil {
				return nil, fmt.Errorf("decode start_date of %s: %w", inc.ID, err)
			}
			inc.StartDate = d
		}
		if err := json.Unmarshal([]byte(types), &inc.Types); err != nil {
			return nil, fmt.Errorf("decode types of %s: %w", inc.ID, err)
		}
		if err := json.Unmarshal([]byte(indicators), &inc.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators of %s: %w", inc.ID, err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}
