package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/api"
	"github.com/eshaffer321/ledger-tagger/internal/api/dto"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// API Integration Tests
// =============================================================================
// These tests use real SQLite databases to test the full stack:
// HTTP request → Router → Handlers → Storage → SQLite
//
// This catches issues that mock-based tests miss, like NULL completion
// times on running runs and JSON decoding of stored updates.

func createTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "api_integration.db"))
	require.NoError(t, err)

	server := api.NewServer(api.DefaultConfig(), store, nil) // nil logger = use default
	ts := httptest.NewServer(server.Router())

	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts, store
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _ := createTestServer(t)

	var health dto.HealthResponse
	status := getJSON(t, ts.URL+"/health", &health)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health.Status)
}

func TestAPI_Integration_ListRuns_Empty(t *testing.T) {
	ts, _ := createTestServer(t)

	var result dto.RunListResponse
	status := getJSON(t, ts.URL+"/api/runs", &result)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Runs)
}

func TestAPI_Integration_RunLifecycle(t *testing.T) {
	ts, store := createTestServer(t)

	runID, err := store.StartRun(false, "force")
	require.NoError(t, err)

	original := &ledger.Transaction{
		ID:       "txn-1",
		Date:     time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Merchant: "AMAZON MKTPLACE PMTS",
		Amount:   money.MustParse("$15.00"),
		Category: "Shopping",
		Debit:    true,
	}
	update := ledger.Update{
		Original: original,
		Proposed: []*ledger.Transaction{original.Split(original.Amount, "Home", "Amazon.com: Lamp", "Order id: O2")},
	}
	require.NoError(t, store.SaveUpdate(storage.NewUpdateRecord(runID, update, "new_tag")))

	t.Run("running run has no completion time", func(t *testing.T) {
		var run dto.RunResponse
		status := getJSON(t, ts.URL+"/api/runs/"+runID, &run)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, storage.RunStatusRunning, run.Status)
		assert.Empty(t, run.CompletedAt)
		assert.Equal(t, 1, run.UpdateCount)
	})

	require.NoError(t, store.MarkApplied(runID, "txn-1"))
	require.NoError(t, store.CompleteRun(runID, storage.RunStatusCompleted, map[string]int{"new_tag": 1}))

	t.Run("completed run carries stats", func(t *testing.T) {
		var result dto.RunListResponse
		status := getJSON(t, ts.URL+"/api/runs", &result)

		assert.Equal(t, http.StatusOK, status)
		require.Equal(t, 1, result.Count)
		assert.Equal(t, storage.RunStatusCompleted, result.Runs[0].Status)
		assert.NotEmpty(t, result.Runs[0].CompletedAt)
		assert.Equal(t, 1, result.Runs[0].Stats["new_tag"])
	})

	t.Run("updates decode from storage", func(t *testing.T) {
		var result dto.UpdateListResponse
		status := getJSON(t, ts.URL+"/api/runs/"+runID+"/updates?applied=true", &result)

		assert.Equal(t, http.StatusOK, status)
		require.Equal(t, 1, result.Count)
		u := result.Updates[0]
		assert.Equal(t, storage.KindEdit, u.Kind)
		assert.True(t, u.Applied)
		assert.Equal(t, "15.00", u.Original.Amount)
		require.Len(t, u.Proposed, 1)
		assert.Equal(t, "Amazon.com: Lamp", u.Proposed[0].Merchant)
		assert.Equal(t, "Home", u.Proposed[0].Category)
	})
}

func TestAPI_Integration_GetRun_NotFound(t *testing.T) {
	ts, _ := createTestServer(t)

	var apiErr dto.APIError
	status := getJSON(t, ts.URL+"/api/runs/does-not-exist", &apiErr)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.ErrCodeRunNotFound, apiErr.Code)
}

func TestAPI_Integration_Snapshots(t *testing.T) {
	ts, store := createTestServer(t)

	require.NoError(t, store.SaveSnapshot(&storage.Snapshot{
		Epoch:        1710000000,
		Transactions: []*ledger.Transaction{{ID: "a"}, {ID: "b"}},
		Categories:   map[string]string{"Shopping": "cat-1"},
	}))

	var result dto.SnapshotListResponse
	status := getJSON(t, ts.URL+"/api/snapshots", &result)

	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, int64(1710000000), result.Snapshots[0].Epoch)
	assert.Equal(t, 2, result.Snapshots[0].TransactionCount)
}
