package storage

import (
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
)

// Snapshot is the ledger state captured by one fetch
type Snapshot struct {
	Epoch        int64                 `json:"epoch"`
	Transactions []*ledger.Transaction `json:"transactions"`
	Categories   map[string]string     `json:"categories"`
}

// SnapshotInfo summarizes a stored snapshot
type SnapshotInfo struct {
	Epoch            int64     `json:"epoch"`
	TransactionCount int       `json:"transaction_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "completed_with_errors"
	RunStatusFailed    = "failed"
	RunStatusAborted   = "aborted"
)

// Run represents one pass of the tagging pipeline
type Run struct {
	ID          string         `json:"id"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DryRun      bool           `json:"dry_run"`
	RetagMode   string         `json:"retag_mode"`
	Status      string         `json:"status"`
	Stats       map[string]int `json:"stats,omitempty"`
	UpdateCount int            `json:"update_count"`
}

// Update shapes
const (
	KindEdit  = "edit"
	KindSplit = "split"
)

// UpdateRecord is one ledger update proposed during a run
type UpdateRecord struct {
	ID            int64                 `json:"id"`
	RunID         string                `json:"run_id"`
	TransactionID string                `json:"transaction_id"`
	Outcome       string                `json:"outcome"`
	Kind          string                `json:"kind"`
	Original      *ledger.Transaction   `json:"original"`
	Proposed      []*ledger.Transaction `json:"proposed"`
	Applied       bool                  `json:"applied"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NewUpdateRecord builds the record for an update decided with outcome
func NewUpdateRecord(runID string, u ledger.Update, outcome string) *UpdateRecord {
	kind := KindEdit
	if u.IsSplit() {
		kind = KindSplit
	}
	return &UpdateRecord{
		RunID:         runID,
		TransactionID: u.Original.ID,
		Outcome:       outcome,
		Kind:          kind,
		Original:      u.Original,
		Proposed:      u.Proposed,
	}
}
