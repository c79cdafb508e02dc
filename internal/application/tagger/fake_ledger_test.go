package tagger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
)

// fakeLedger is an in-memory ledger.Client. A split removes the parent and
// appends children pointing back at it, the way the real service does.
type fakeLedger struct {
	txns       []*ledger.Transaction
	categories map[string]string

	edits  []ledger.EditRequest
	splits []ledger.SplitRequest
	nextID int

	fetchErr error
	editErr  error
	splitErr error
	// splitIDs overrides the number of IDs returned by Split when >= 0.
	splitIDs int
}

var _ ledger.Client = (*fakeLedger)(nil)

func newFakeLedger(txns []*ledger.Transaction) *fakeLedger {
	f := &fakeLedger{categories: map[string]string{}, splitIDs: -1}
	for _, t := range txns {
		c := *t
		f.txns = append(f.txns, &c)
	}
	return f
}

func (f *fakeLedger) FetchTransactions(_ context.Context, _ time.Time) ([]*ledger.Transaction, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.txns, nil
}

func (f *fakeLedger) FetchCategories(_ context.Context) (map[string]string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.categories, nil
}

func (f *fakeLedger) Edit(_ context.Context, req ledger.EditRequest) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, req)
	t := f.find(req.ID)
	if t == nil {
		return fmt.Errorf("transaction %s not found", req.ID)
	}
	if req.Merchant != "" {
		t.Merchant = req.Merchant
	}
	if req.Category != "" {
		t.Category = req.Category
	}
	if req.CategoryID != "" {
		t.CategoryID = req.CategoryID
	}
	if req.Note != "" {
		t.Note = req.Note
	}
	return nil
}

func (f *fakeLedger) Split(_ context.Context, req ledger.SplitRequest) ([]string, error) {
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	f.splits = append(f.splits, req)
	parent := f.find(req.ParentID)
	if parent == nil {
		return nil, errors.New("parent not found")
	}

	var ids []string
	var kept []*ledger.Transaction
	for _, t := range f.txns {
		if t.ID != parent.ID {
			kept = append(kept, t)
		}
	}
	for _, line := range req.Lines {
		f.nextID++
		amount := line.Amount
		if !parent.Debit {
			amount = -amount
		}
		child := &ledger.Transaction{
			ID:               fmt.Sprintf("child-%d", f.nextID),
			Date:             parent.Date,
			Merchant:         line.Merchant,
			OriginalMerchant: parent.OriginalMerchant,
			Amount:           amount,
			Category:         line.Category,
			CategoryID:       line.CategoryID,
			Debit:            amount > 0,
			ParentID:         parent.ID,
		}
		if child.Category == "" {
			child.Category = parent.Category
		}
		kept = append(kept, child)
		ids = append(ids, child.ID)
	}
	f.txns = kept

	if f.splitIDs >= 0 {
		return ids[:f.splitIDs], nil
	}
	return ids, nil
}

func (f *fakeLedger) find(id string) *ledger.Transaction {
	for _, t := range f.txns {
		if t.ID == id {
			return t
		}
	}
	return nil
}
