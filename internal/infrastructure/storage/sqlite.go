package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for snapshots and run history.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// SNAPSHOTS
// ================================================================

// SaveSnapshot stores a snapshot under its epoch
func (s *Storage) SaveSnapshot(snapshot *Snapshot) error {
	txnsJSON, err := json.Marshal(snapshot.Transactions)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot transactions: %w", err)
	}
	catsJSON, err := json.Marshal(snapshot.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot categories: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO snapshots (epoch, transaction_count, transactions_json, categories_json)
	VALUES (?, ?, ?, ?)
	`
	_, err = s.db.Exec(query, snapshot.Epoch, len(snapshot.Transactions), string(txnsJSON), string(catsJSON))
	return err
}

// GetSnapshot retrieves the snapshot taken at epoch
func (s *Storage) GetSnapshot(epoch int64) (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT epoch, transactions_json, categories_json FROM snapshots WHERE epoch = ?`, epoch)
	return scanSnapshot(row)
}

// LatestSnapshot retrieves the most recent snapshot
func (s *Storage) LatestSnapshot() (*Snapshot, error) {
	row := s.db.QueryRow(`SELECT epoch, transactions_json, categories_json FROM snapshots ORDER BY epoch DESC LIMIT 1`)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snapshot Snapshot
	var txnsJSON, catsJSON string
	if err := row.Scan(&snapshot.Epoch, &txnsJSON, &catsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(txnsJSON), &snapshot.Transactions); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %d transactions: %w", snapshot.Epoch, err)
	}
	if err := json.Unmarshal([]byte(catsJSON), &snapshot.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %d categories: %w", snapshot.Epoch, err)
	}
	return &snapshot, nil
}

// ListSnapshots returns snapshot summaries, newest first
func (s *Storage) ListSnapshots(limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT epoch, transaction_count, created_at
		FROM snapshots ORDER BY epoch DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Epoch, &info.TransactionCount, &info.CreatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// ================================================================
// RUNS
// ================================================================

// StartRun records the start of a run
func (s *Storage) StartRun(dryRun bool, mode string) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO runs (id, started_at, dry_run, retag_mode, status)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, id, time.Now().UTC(), dryRun, mode, RunStatusRunning); err != nil {
		return "", err
	}
	return id, nil
}

// CompleteRun records the outcome of a run
func (s *Storage) CompleteRun(runID, status string, stats map[string]int) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE runs SET completed_at = ?, status = ?, stats_json = ?
		WHERE id = ?
	`, time.Now().UTC(), status, string(statsJSON), runID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// SaveUpdate records one ledger update
func (s *Storage) SaveUpdate(record *UpdateRecord) error {
	originalJSON, err := json.Marshal(record.Original)
	if err != nil {
		return fmt.Errorf("failed to encode original transaction: %w", err)
	}
	proposedJSON, err := json.Marshal(record.Proposed)
	if err != nil {
		return fmt.Errorf("failed to encode proposed transactions: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO updates
	(run_id, transaction_id, outcome, kind, original_json, proposed_json, applied)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query, record.RunID, record.TransactionID, record.Outcome,
		record.Kind, string(originalJSON), string(proposedJSON), record.Applied)
	if err != nil {
		return err
	}
	record.ID, _ = result.LastInsertId()
	return nil
}

// MarkApplied flags an update as sent to the ledger
func (s *Storage) MarkApplied(runID, transactionID string) error {
	result, err := s.db.Exec(`UPDATE updates SET applied = 1 WHERE run_id = ? AND transaction_id = ?`,
		runID, transactionID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s in run %s: %w", transactionID, runID, ErrNotFound)
	}
	return nil
}

const runColumns = `
	r.id, r.started_at, r.completed_at, r.dry_run, r.retag_mode, r.status, r.stats_json,
	(SELECT COUNT(*) FROM updates u WHERE u.run_id = r.id)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	var statsJSON sql.NullString
	err := row.Scan(&run.ID, &run.StartedAt, &completedAt, &run.DryRun, &run.RetagMode,
		&run.Status, &statsJSON, &run.UpdateCount)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if statsJSON.Valid && statsJSON.String != "" {
		_ = json.Unmarshal([]byte(statsJSON.String), &run.Stats)
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(runID string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// GetUpdates retrieves every update recorded for a run, in insertion order
func (s *Storage) GetUpdates(runID string) ([]UpdateRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, transaction_id, outcome, kind, original_json, proposed_json, applied, created_at
		FROM updates WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]UpdateRecord, 0)
	for rows.Next() {
		var rec UpdateRecord
		var originalJSON, proposedJSON string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.TransactionID, &rec.Outcome, &rec.Kind,
			&originalJSON, &proposedJSON, &rec.Applied, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(originalJSON), &rec.Original); err != nil {
			return nil, fmt.Errorf("failed to decode update %d: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(proposedJSON), &rec.Proposed); err != nil {
			return nil, fmt.Errorf("failed to decode update %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
