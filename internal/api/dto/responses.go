package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RunResponse represents a tagging run in API responses.
type RunResponse struct {
	ID          string         `json:"id"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	DryRun      bool           `json:"dry_run"`
	RetagMode   string         `json:"retag_mode"`
	Status      string         `json:"status"`
	Stats       map[string]int `json:"stats,omitempty"`
	UpdateCount int            `json:"update_count"`
}

// RunListResponse is the response for listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// EntryResponse is one ledger entry, either the original or a proposed replacement.
type EntryResponse struct {
	ID       string `json:"id,omitempty"`
	Date     string `json:"date"`
	Merchant string `json:"merchant"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

// UpdateResponse represents one recorded ledger update.
type UpdateResponse struct {
	ID            int64           `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Outcome       string          `json:"outcome"`
	Kind          string          `json:"kind"`
	Applied       bool            `json:"applied"`
	Original      *EntryResponse  `json:"original,omitempty"`
	Proposed      []EntryResponse `json:"proposed"`
	CreatedAt     string          `json:"created_at"`
}

// UpdateListResponse is the response for listing a run's updates.
type UpdateListResponse struct {
	RunID   string           `json:"run_id"`
	Updates []UpdateResponse `json:"updates"`
	Count   int              `json:"count"`
}

// SnapshotResponse summarizes a stored ledger snapshot.
type SnapshotResponse struct {
	Epoch            int64  `json:"epoch"`
	TransactionCount int    `json:"transaction_count"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// SnapshotListResponse is the response for listing snapshots.
type SnapshotListResponse struct {
	Snapshots []SnapshotResponse `json:"snapshots"`
	Count     int                `json:"count"`
}
