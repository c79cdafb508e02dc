package ledgerclient

import (
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// transactionDTO is the wire shape of a ledger transaction. Amounts are
// decimal major units; the service accepts both JSON numbers and strings.
//
// Fetched amounts are signed with debits positive, matching the domain. The
// sign decides direction; is_debit is only consulted for zero amounts. Split
// lines go the other way: each line is relative to the parent's direction,
// so a credit parent is split with positive lines (see ledger.SplitRequest).
type transactionDTO struct {
	ID               string          `json:"id"`
	Date             string          `json:"date"`
	Merchant         string          `json:"merchant"`
	OriginalMerchant string          `json:"original_merchant"`
	Amount           decimal.Decimal `json:"amount"`
	Category         string          `json:"category"`
	CategoryID       string          `json:"category_id"`
	Pending          bool            `json:"pending"`
	Debit            *bool           `json:"is_debit"`
	Note             string          `json:"note"`
	ParentID         string          `json:"parent_id"`
}

type transactionsResponse struct {
	Transactions []transactionDTO `json:"transactions"`
	NextCursor   string           `json:"next_cursor"`
}

type categoryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type categoriesResponse struct {
	Categories []categoryDTO `json:"categories"`
}

type splitLineDTO struct {
	Amount     decimal.Decimal `json:"amount"`
	Merchant   string          `json:"merchant"`
	Category   string          `json:"category,omitempty"`
	CategoryID string          `json:"category_id,omitempty"`
}

type splitRequestDTO struct {
	Lines []splitLineDTO `json:"lines"`
}

type splitResponse struct {
	ChildIDs []string `json:"child_ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const dateLayout = "2006-01-02"

func (d transactionDTO) toDomain() (*ledger.Transaction, error) {
	date, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return nil, err
	}
	return &ledger.Transaction{
		ID:               d.ID,
		Date:             date,
		Merchant:         d.Merchant,
		OriginalMerchant: d.OriginalMerchant,
		Amount:           money.FromDecimal(d.Amount),
		Category:         d.Category,
		CategoryID:       d.CategoryID,
		Pending:          d.Pending,
		Debit:            d.isDebit(),
		Note:             d.Note,
		ParentID:         d.ParentID,
	}, nil
}

func (d transactionDTO) isDebit() bool {
	switch {
	case d.Amount.IsPositive():
		return true
	case d.Amount.IsNegative():
		return false
	}
	return d.Debit != nil && *d.Debit
}

// newSplitRequestDTO writes each line with two decimals. Lines are expected
// to be cent-aligned already; rounding here only trims import noise.
func newSplitRequestDTO(req ledger.SplitRequest) splitRequestDTO {
	out := splitRequestDTO{Lines: make([]splitLineDTO, len(req.Lines))}
	for i, l := range req.Lines {
		out.Lines[i] = splitLineDTO{
			Amount:     l.Amount.RoundToCent().Decimal().Round(2),
			Merchant:   l.Merchant,
			Category:   l.Category,
			CategoryID: l.CategoryID,
		}
	}
	return out
}
