package export

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store keeps numbering runs in a SQLite database so repeated passes over
// the same field stay comparable.
type Store struct {
	*sql.DB
}

// Run is one saved numbering pass.
type Run struct {
	ID        string
	SessionID string
	CRS       string
	Points    int
	CreatedAt time.Time
}

// OpenStore opens (and if needed initializes) a run database at path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			session_id   TEXT,
			crs          TEXT,
			point_count  BIGINT,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS run_points (
			run_id       TEXT,
			original_id  BIGINT,
			new_id       TEXT,
			ridge_id     BIGINT,
			ridge_rank   BIGINT,
			plant_rank   BIGINT,
			is_inlier    BOOLEAN,
			in_boundary  BOOLEAN,
			x            DOUBLE,
			y            DOUBLE,
			PRIMARY KEY(run_id, original_id),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init run store schema: %w", err)
	}
	return &Store{db}, nil
}

// SaveRun persists one pass atomically and returns its run ID.
func (s *Store) SaveRun(sessionID uuid.UUID, crs string, recs []Record) (string, error) {
	runID := uuid.NewString()
	tx, err := s.Begin()
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, session_id, crs, point_count) VALUES (?, ?, ?, ?)`,
		runID, sessionID.String(), crs, len(recs),
	)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO run_points (run_id, original_id, new_id, ridge_id, ridge_rank, plant_rank, is_inlier, in_boundary, x, y)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	defer stmt.Close()
	for _, r := range recs {
		_, err = stmt.Exec(runID, r.OriginalID, r.NewID, r.RidgeID, r.RidgeRank, r.PlantRank, r.IsInlier, r.InBoundary, r.Pos.X, r.Pos.Y)
		if err != nil {
			return "", fmt.Errorf("save run point %d: %w", r.OriginalID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return runID, nil
}

// LoadRun reads back one saved pass in original-ID order.
func (s *Store) LoadRun(runID string) ([]Record, error) {
	rows, err := s.Query(
		`SELECT original_id, new_id, ridge_id, ridge_rank, plant_rank, is_inlier, in_boundary, x, y
		 FROM run_points WHERE run_id = ? ORDER BY original_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.OriginalID, &r.NewID, &r.RidgeID, &r.RidgeRank, &r.PlantRank, &r.IsInlier, &r.InBoundary, &r.Pos.X, &r.Pos.Y); err != nil {
			return nil, fmt.Errorf("load run %s: %w", runID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRuns returns saved runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.Query(
		`SELECT run_id, session_id, crs, point_count, created_at FROM runs ORDER BY created_at DESC, run_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CRS, &r.Points, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
