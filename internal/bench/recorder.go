package bench

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const resultsDBFilename = "bench_results.db"

// ResultsDBPath returns the path of the results database inside resultsDir.
func ResultsDBPath(resultsDir string) string {
	return filepath.Join(resultsDir, resultsDBFilename)
}

// OpenResultsDB opens or creates the bench results database.
func OpenResultsDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := initResultsSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initResultsSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			pages INTEGER NOT NULL,
			readers INTEGER NOT NULL,
			writers INTEGER NOT NULL,
			duration_sec REAL NOT NULL
		);
		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			workload TEXT NOT NULL,
			ops INTEGER NOT NULL,
			retries INTEGER NOT NULL,
			validation_failures INTEGER NOT NULL,
			throughput REAL NOT NULL
		);
	`)
	return err
}

// NewRunID returns a fresh unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// InsertRun records the start of a bench run.
func InsertRun(db *sql.DB, runID string, pages, readers, writers int, duration time.Duration) error {
	startedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT INTO runs (id, started_at, pages, readers, writers, duration_sec)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, startedAt, pages, readers, writers, duration.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's finish time.
func FinishRun(db *sql.DB, runID string) error {
	finishedAt := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// InsertResult records one workload's outcome for a run.
func InsertResult(db *sql.DB, runID string, r WorkloadResult) error {
	_, err := db.Exec(
		`INSERT INTO results (run_id, workload, ops, retries, validation_failures, throughput)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, r.Workload, r.Ops, r.Retries, r.ValidationFailures, r.Throughput,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
