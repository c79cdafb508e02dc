package storage

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *Storage {
	tmpDB := createTempDB(t)
	t.Cleanup(func() { os.Remove(tmpDB) })

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Helper to create test transaction
func testTransaction(id, merchant, amount string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:               id,
		Date:             time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Merchant:         merchant,
		OriginalMerchant: "AMAZON MKTPLACE PMTS",
		Amount:           money.MustParse(amount),
		Category:         "Shopping",
		Debit:            true,
	}
}

func TestStorage_SnapshotRoundTrip(t *testing.T) {
	store := openTestStorage(t)

	snapshot := &Snapshot{
		Epoch:        1710028800,
		Transactions: []*ledger.Transaction{testTransaction("t1", "Amazon", "$42.00")},
		Categories:   map[string]string{"Shopping": "cat-1", "Toys": "cat-2"},
	}
	require.NoError(t, store.SaveSnapshot(snapshot))

	got, err := store.GetSnapshot(snapshot.Epoch)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, money.MustParse("$42.00"), got.Transactions[0].Amount)
	assert.True(t, got.Transactions[0].Date.Equal(snapshot.Transactions[0].Date))
	assert.Equal(t, snapshot.Categories, got.Categories)
}

func TestStorage_LatestSnapshot(t *testing.T) {
	store := openTestStorage(t)

	_, err := store.LatestSnapshot()
	assert.ErrorIs(t, err, ErrNotFound)

	for _, epoch := range []int64{100, 300, 200} {
		require.NoError(t, store.SaveSnapshot(&Snapshot{Epoch: epoch, Categories: map[string]string{}}))
	}

	latest, err := store.LatestSnapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(300), latest.Epoch)

	infos, err := store.ListSnapshots(2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, int64(300), infos[0].Epoch)
	assert.Equal(t, int64(200), infos[1].Epoch)
}

func TestStorage_GetSnapshot_NotFound(t *testing.T) {
	store := openTestStorage(t)

	_, err := store.GetSnapshot(42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStorage_RunLifecycle(t *testing.T) {
	store := openTestStorage(t)

	runID, err := store.StartRun(true, "force")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.True(t, run.DryRun)
	assert.Equal(t, "force", run.RetagMode)
	assert.Nil(t, run.CompletedAt)

	stats := map[string]int{"trans": 3, "new_tag": 1}
	require.NoError(t, store.CompleteRun(runID, RunStatusCompleted, stats))

	run, err = store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, stats, run.Stats)
	require.NotNil(t, run.CompletedAt)
}

func TestStorage_CompleteRun_Unknown(t *testing.T) {
	store := openTestStorage(t)

	err := store.CompleteRun("nope", RunStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Updates(t *testing.T) {
	store := openTestStorage(t)

	runID, err := store.StartRun(false, "off")
	require.NoError(t, err)

	original := testTransaction("t1", "AMAZON", "$42.00")
	split := ledger.Update{
		Original: original,
		Proposed: []*ledger.Transaction{
			original.Split(money.MustParse("$21.00"), "Toys", "Amazon.com: Robot", ""),
			original.Split(money.MustParse("$21.00"), "Books", "Amazon.com: Novel", ""),
		},
	}
	edit := ledger.Update{
		Original: testTransaction("t2", "AMAZON", "$9.99"),
		Proposed: []*ledger.Transaction{testTransaction("t2", "Amazon.com: Cable", "$9.99")},
	}

	require.NoError(t, store.SaveUpdate(NewUpdateRecord(runID, split, "new_tag")))
	require.NoError(t, store.SaveUpdate(NewUpdateRecord(runID, edit, "retag")))
	require.NoError(t, store.MarkApplied(runID, "t2"))

	records, err := store.GetUpdates(runID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, KindSplit, records[0].Kind)
	assert.Equal(t, "t1", records[0].TransactionID)
	require.Len(t, records[0].Proposed, 2)
	assert.Equal(t, "Amazon.com: Novel", records[0].Proposed[1].Merchant)
	assert.False(t, records[0].Applied)

	assert.Equal(t, KindEdit, records[1].Kind)
	assert.Equal(t, "retag", records[1].Outcome)
	assert.True(t, records[1].Applied)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.UpdateCount)
}

func TestStorage_MarkApplied_Unknown(t *testing.T) {
	store := openTestStorage(t)

	runID, err := store.StartRun(false, "off")
	require.NoError(t, err)

	assert.ErrorIs(t, store.MarkApplied(runID, "missing"), ErrNotFound)
}

func TestStorage_ListRuns_NewestFirst(t *testing.T) {
	store := openTestStorage(t)

	first, err := store.StartRun(false, "off")
	require.NoError(t, err)
	second, err := store.StartRun(true, "off")
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStorage_GetRun_NotFound(t *testing.T) {
	store := openTestStorage(t)

	_, err := store.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockRepository_Runs(t *testing.T) {
	repo := NewMockRepository()

	runID, err := repo.StartRun(false, "interactive")
	require.NoError(t, err)
	assert.True(t, repo.StartRunCalled)

	u := ledger.Update{
		Original: testTransaction("t1", "AMAZON", "$5.00"),
		Proposed: []*ledger.Transaction{testTransaction("t1", "Amazon.com: Pen", "$5.00")},
	}
	require.NoError(t, repo.SaveUpdate(NewUpdateRecord(runID, u, "new_tag")))
	require.NoError(t, repo.MarkApplied(runID, "t1"))
	require.NoError(t, repo.CompleteRun(runID, RunStatusCompleted, map[string]int{"new_tag": 1}))

	run, err := repo.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.UpdateCount)

	records, err := repo.GetUpdates(runID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Applied)

	repo.StartRunErr = errors.New("disk full")
	_, err = repo.StartRun(false, "off")
	assert.Error(t, err)

	repo.Reset()
	runs, err := repo.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
