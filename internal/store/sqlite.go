// Package store keeps raw price series in a local SQLite database so that
// analyses can run without re-reading CSV exports or hitting the network.
// Only inputs are stored; metric results are never written.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"CurrencyLens/internal/model"
)

// SQLiteStore persists observations per instrument. It implements
// collector.Fetcher.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.logger.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instruments (
			name        TEXT PRIMARY KEY,
			seq         INTEGER NOT NULL,
			imported_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			instrument TEXT NOT NULL REFERENCES instruments(name),
			day        TEXT NOT NULL,
			price      REAL NOT NULL CHECK (price > 0),
			PRIMARY KEY (instrument, day)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Import replaces the stored observations of series.Name with those of
// series. Instruments keep the position of their first import.
func (s *SQLiteStore) Import(ctx context.Context, series model.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO instruments (name, seq, imported_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM instruments), ?)
		ON CONFLICT(name) DO UPDATE SET imported_at = excluded.imported_at`,
		series.Name, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert instrument %s: %w", series.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE instrument = ?`, series.Name); err != nil {
		return fmt.Errorf("clear %s: %w", series.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (instrument, day, price) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, o := range series.Observations {
		if _, err := stmt.ExecContext(ctx, series.Name, o.Date.Format(model.DateFormat), o.Price); err != nil {
			return fmt.Errorf("insert %s %s: %w", series.Name, o.Date.Format(model.DateFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", series.Name, err)
	}
	s.logger.Debug().Str("instrument", series.Name).Int("observations", series.Len()).Msg("series imported")
	return nil
}

// Instruments lists stored instruments in import order.
func (s *SQLiteStore) Instruments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM instruments ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FetchSeries returns the stored observations of one instrument in ascending date order.
func (s *SQLiteStore) FetchSeries(ctx context.Context, instrument string) (model.Series, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instruments WHERE name = ?`, instrument).Scan(&exists)
	if err != nil {
		return model.Series{}, fmt.Errorf("lookup %s: %w", instrument, err)
	}
	if exists == 0 {
		return model.Series{}, fmt.Errorf("instrument %q not in store", instrument)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, price FROM observations WHERE instrument = ? ORDER BY day`, instrument)
	if err != nil {
		return model.Series{}, fmt.Errorf("query %s: %w", instrument, err)
	}
	defer rows.Close()

	series := model.Series{Name: instrument}
	for rows.Next() {
		var (
			day   string
			price float64
		)
		if err := rows.Scan(&day, &price); err != nil {
			return model.Series{}, err
		}
		on, err := time.Parse(model.DateFormat, day)
		if err != nil {
			return model.Series{}, fmt.Errorf("%s: stored day %q: %w", instrument, day, err)
		}
		series.Observations = append(series.Observations, model.Observation{Date: on, Price: price})
	}
	return series, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.logger.Info().Msg("closing sqlite store")
	return s.db.Close()
}
