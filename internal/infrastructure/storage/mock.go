package storage

import (
	"fmt"
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	snapshots map[int64]*Snapshot
	runs      map[string]*Run
	runOrder  []string
	updates   map[string][]UpdateRecord
	nextRunID int
	nextUpdID int64

	// Hooks for test assertions
	SaveSnapshotCalled bool
	StartRunCalled     bool
	CompleteRunCalled  bool
	SaveUpdateCalled   bool
	LastRunStatus      string
	LastRunStats       map[string]int

	// Error injection for testing error paths
	SaveSnapshotErr error
	GetSnapshotErr  error
	StartRunErr     error
	CompleteRunErr  error
	SaveUpdateErr   error
	ListRunsErr     error
	GetRunErr       error
	GetUpdatesErr   error
	ListSnapsErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		snapshots: make(map[int64]*Snapshot),
		runs:      make(map[string]*Run),
		updates:   make(map[string][]UpdateRecord),
		nextRunID: 1,
		nextUpdID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveSnapshot stores a snapshot in memory
func (m *MockRepository) SaveSnapshot(snapshot *Snapshot) error {
	m.SaveSnapshotCalled = true
	if m.SaveSnapshotErr != nil {
		return m.SaveSnapshotErr
	}
	copied := *snapshot
	m.snapshots[snapshot.Epoch] = &copied
	return nil
}

// GetSnapshot retrieves a snapshot by epoch
func (m *MockRepository) GetSnapshot(epoch int64) (*Snapshot, error) {
	if m.GetSnapshotErr != nil {
		return nil, m.GetSnapshotErr
	}
	snapshot, ok := m.snapshots[epoch]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot, nil
}

// LatestSnapshot retrieves the snapshot with the highest epoch
func (m *MockRepository) LatestSnapshot() (*Snapshot, error) {
	if m.GetSnapshotErr != nil {
		return nil, m.GetSnapshotErr
	}
	var latest *Snapshot
	for _, s := range m.snapshots {
		if latest == nil || s.Epoch > latest.Epoch {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// ListSnapshots returns snapshot summaries, newest first
func (m *MockRepository) ListSnapshots(limit int) ([]SnapshotInfo, error) {
	if m.ListSnapsErr != nil {
		return nil, m.ListSnapsErr
	}
	infos := make([]SnapshotInfo, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		infos = append(infos, SnapshotInfo{Epoch: s.Epoch, TransactionCount: len(s.Transactions)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Epoch > infos[j].Epoch })
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

// StartRun creates a new run and returns its ID
func (m *MockRepository) StartRun(dryRun bool, mode string) (string, error) {
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return "", m.StartRunErr
	}

	id := fmt.Sprintf("run-%d", m.nextRunID)
	m.nextRunID++

	m.runs[id] = &Run{
		ID:        id,
		StartedAt: time.Now(),
		DryRun:    dryRun,
		RetagMode: mode,
		Status:    RunStatusRunning,
	}
	m.runOrder = append(m.runOrder, id)
	return id, nil
}

// CompleteRun marks a run as complete
func (m *MockRepository) CompleteRun(runID, status string, stats map[string]int) error {
	m.CompleteRunCalled = true
	m.LastRunStatus = status
	m.LastRunStats = stats
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	now := time.Now()
	run.CompletedAt = &now
	run.Status = status
	run.Stats = stats
	return nil
}

// SaveUpdate records an update in memory
func (m *MockRepository) SaveUpdate(record *UpdateRecord) error {
	m.SaveUpdateCalled = true
	if m.SaveUpdateErr != nil {
		return m.SaveUpdateErr
	}
	record.ID = m.nextUpdID
	m.nextUpdID++
	m.updates[record.RunID] = append(m.updates[record.RunID], *record)
	return nil
}

// MarkApplied flags a recorded update as applied
func (m *MockRepository) MarkApplied(runID, transactionID string) error {
	records := m.updates[runID]
	for i := range records {
		if records[i].TransactionID == transactionID {
			records[i].Applied = true
			return nil
		}
	}
	return fmt.Errorf("update %s in run %s: %w", transactionID, runID, ErrNotFound)
}

// ListRuns returns runs, newest first
func (m *MockRepository) ListRuns(limit int) ([]Run, error) {
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	runs := make([]Run, 0, len(m.runOrder))
	for i := len(m.runOrder) - 1; i >= 0; i-- {
		run := *m.runs[m.runOrder[i]]
		run.UpdateCount = len(m.updates[run.ID])
		runs = append(runs, run)
		if limit > 0 && len(runs) == limit {
			break
		}
	}
	return runs, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(runID string) (*Run, error) {
	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	copied.UpdateCount = len(m.updates[runID])
	return &copied, nil
}

// GetUpdates returns the updates recorded for a run
func (m *MockRepository) GetUpdates(runID string) ([]UpdateRecord, error) {
	if m.GetUpdatesErr != nil {
		return nil, m.GetUpdatesErr
	}
	records := make([]UpdateRecord, len(m.updates[runID]))
	copy(records, m.updates[runID])
	return records, nil
}

// Helper methods for test setup

// AddRun adds a run directly (for test setup)
func (m *MockRepository) AddRun(run *Run) {
	m.runs[run.ID] = run
	m.runOrder = append(m.runOrder, run.ID)
}

// Reset clears all data and flags (for reuse between tests)
func (m *MockRepository) Reset() {
	*m = *NewMockRepository()
}
