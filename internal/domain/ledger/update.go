package ledger

import (
	"context"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Update pairs a matched ledger entry with the entries proposed to replace it.
type Update struct {
	Original *Transaction
	Proposed []*Transaction
}

// IsSplit reports whether applying the update splits the original entry.
func (u Update) IsSplit() bool { return len(u.Proposed) > 1 }

// EditRequest rewrites one ledger entry in place. Empty fields are left as
// they are on the ledger.
type EditRequest struct {
	ID         string `json:"-"`
	Merchant   string `json:"merchant,omitempty"`
	Category   string `json:"category,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Note       string `json:"note,omitempty"`
}

// SplitLine is one child of a split request.
type SplitLine struct {
	Amount     money.Money `json:"amount"`
	Merchant   string      `json:"merchant"`
	Category   string      `json:"category,omitempty"`
	CategoryID string      `json:"category_id,omitempty"`
	Note       string      `json:"-"`
}

// SplitRequest replaces a ledger entry with child entries.
type SplitRequest struct {
	ParentID string      `json:"-"`
	Lines    []SplitLine `json:"lines"`
}

// EditRequest builds the in-place edit for a single proposed entry.
func (u Update) EditRequest(ignoreCategory bool) EditRequest {
	p := u.Proposed[0]
	req := EditRequest{
		ID:       u.Original.ID,
		Merchant: p.Merchant,
		Note:     p.Note,
	}
	if !ignoreCategory {
		req.Category = p.Category
		req.CategoryID = p.CategoryID
	}
	return req
}

// SplitRequest builds the split for an itemized set. The ledger expresses
// split amounts relative to the parent's direction, so line signs are
// flipped when the original entry is a credit.
func (u Update) SplitRequest(ignoreCategory bool) SplitRequest {
	req := SplitRequest{ParentID: u.Original.ID}
	for _, p := range u.Proposed {
		amount := p.Amount
		if !u.Original.Debit {
			amount = -amount
		}
		line := SplitLine{
			Amount:   amount,
			Merchant: p.Merchant,
			Note:     p.Note,
		}
		if !ignoreCategory {
			line.Category = p.Category
			line.CategoryID = p.CategoryID
		}
		req.Lines = append(req.Lines, line)
	}
	return req
}

// Source reads ledger state.
type Source interface {
	FetchTransactions(ctx context.Context, since time.Time) ([]*Transaction, error)
	FetchCategories(ctx context.Context) (map[string]string, error)
}

// Sink applies updates to the ledger. Split returns the IDs of the new
// children in line order.
type Sink interface {
	Edit(ctx context.Context, req EditRequest) error
	Split(ctx context.Context, req SplitRequest) ([]string, error)
}

// Client is the full ledger boundary.
type Client interface {
	Source
	Sink
}
