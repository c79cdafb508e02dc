package api_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eshaffer321/ledger-tagger/internal/api"
	"github.com/eshaffer321/ledger-tagger/internal/api/dto"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := api.NewServer(api.DefaultConfig(), repo, logger)
	return server, repo
}

func get(server *api.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(server, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_RunsEndpoints(t *testing.T) {
	t.Run("GET /api/runs returns runs", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, _ := repo.StartRun(true, "off")
		_ = repo.CompleteRun(runID, storage.RunStatusCompleted, map[string]int{"up_to_date": 4})

		rec := get(server, "/api/runs")

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Runs, 1)
		assert.Equal(t, 4, response.Runs[0].Stats["up_to_date"])
	})

	t.Run("GET /api/runs/:id returns run", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, _ := repo.StartRun(false, "force")

		rec := get(server, "/api/runs/"+runID)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "force", response.RetagMode)
	})

	t.Run("GET /api/runs/:id/updates returns updates", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, _ := repo.StartRun(false, "off")

		rec := get(server, "/api/runs/"+runID+"/updates")

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.UpdateListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 0, response.Count)
	})

	t.Run("GET /api/runs/:id returns 404 for unknown run", func(t *testing.T) {
		server, _ := newTestServer(t)

		rec := get(server, "/api/runs/missing")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_SnapshotsEndpoint(t *testing.T) {
	server, repo := newTestServer(t)
	require.NoError(t, repo.SaveSnapshot(&storage.Snapshot{Epoch: 1700000000}))

	rec := get(server, "/api/snapshots")

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.SnapshotListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 1, response.Count)
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(server, "/api/orders")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
