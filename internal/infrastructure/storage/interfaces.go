package storage

import "errors"

// ErrNotFound is returned when a requested snapshot or run does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations and makes testing with
// mocks straightforward.
type Repository interface {
	SnapshotRepository
	RunRepository
	Close() error
}

// SnapshotRepository caches fetched ledger state so a later run can replay it.
type SnapshotRepository interface {
	// SaveSnapshot stores a snapshot under its epoch, replacing any existing one
	SaveSnapshot(snapshot *Snapshot) error

	// GetSnapshot retrieves the snapshot taken at epoch
	GetSnapshot(epoch int64) (*Snapshot, error)

	// LatestSnapshot retrieves the most recent snapshot
	LatestSnapshot() (*Snapshot, error)

	// ListSnapshots returns snapshot summaries, newest first
	ListSnapshots(limit int) ([]SnapshotInfo, error)
}

// RunRepository handles run history
type RunRepository interface {
	// StartRun records the start of a run and returns the run ID
	StartRun(dryRun bool, mode string) (string, error)

	// CompleteRun records the outcome of a run with its stats
	CompleteRun(runID, status string, stats map[string]int) error

	// SaveUpdate records one proposed or applied ledger update
	SaveUpdate(record *UpdateRecord) error

	// MarkApplied flags an update as sent to the ledger
	MarkApplied(runID, transactionID string) error

	// ListRuns returns recent runs, newest first
	ListRuns(limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(runID string) (*Run, error)

	// GetUpdates retrieves every update recorded for a run
	GetUpdates(runID string) ([]UpdateRecord, error)
}
