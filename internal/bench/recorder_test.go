package bench

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecorder_RoundTrip(t *testing.T) {
	dbPath := ResultsDBPath(t.TempDir())
	db, err := OpenResultsDB(dbPath)
	if err != nil {
		t.Fatalf("OpenResultsDB: %v", err)
	}
	defer db.Close()

	runID := NewRunID()
	if err := InsertRun(db, runID, 64, 4, 2, 5*time.Second); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	result := WorkloadResult{
		Workload:           "optimistic-read",
		Ops:                1000,
		Retries:            12,
		ValidationFailures: 0,
		Throughput:         200.0,
	}
	if err := InsertResult(db, runID, result); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if err := FinishRun(db, runID); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	var pages, readers, writers int
	var finishedAt *string
	err = db.QueryRow(
		`SELECT pages, readers, writers, finished_at FROM runs WHERE id = ?`, runID,
	).Scan(&pages, &readers, &writers, &finishedAt)
	if err != nil {
		t.Fatalf("query run: %v", err)
	}
	if pages != 64 || readers != 4 || writers != 2 {
		t.Errorf("run row: got %d/%d/%d, want 64/4/2", pages, readers, writers)
	}
	if finishedAt == nil {
		t.Errorf("finished_at not stamped")
	}

	var workload string
	var ops, retries, failures uint64
	var throughput float64
	err = db.QueryRow(
		`SELECT workload, ops, retries, validation_failures, throughput
		 FROM results WHERE run_id = ?`, runID,
	).Scan(&workload, &ops, &retries, &failures, &throughput)
	if err != nil {
		t.Fatalf("query result: %v", err)
	}
	if workload != "optimistic-read" || ops != 1000 || retries != 12 || failures != 0 {
		t.Errorf("result row: got %s/%d/%d/%d, want optimistic-read/1000/12/0", workload, ops, retries, failures)
	}
	if throughput != 200.0 {
		t.Errorf("throughput: got %v, want 200", throughput)
	}
}

func TestRecorder_ReopenKeepsRows(t *testing.T) {
	dbPath := ResultsDBPath(t.TempDir())

	db, err := OpenResultsDB(dbPath)
	if err != nil {
		t.Fatalf("OpenResultsDB: %v", err)
	}
	runID := NewRunID()
	if err := InsertRun(db, runID, 8, 1, 1, time.Second); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	db.Close()

	db, err = OpenResultsDB(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if count != 1 {
		t.Errorf("runs after reopen: got %d, want 1", count)
	}
}

func TestNewRunID_Unique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || a == b {
		t.Fatalf("run IDs not unique: %q vs %q", a, b)
	}
}

func TestResultsDBPath(t *testing.T) {
	got := ResultsDBPath("/tmp/results")
	want := filepath.Join("/tmp/results", resultsDBFilename)
	if got != want {
		t.Errorf("ResultsDBPath: got %q, want %q", got, want)
	}
}
