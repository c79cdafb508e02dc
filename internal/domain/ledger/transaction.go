// Package ledger models the personal-finance ledger side of reconciliation:
// posted transactions, their split children, and the update requests sent
// back to the ledger service.
//
// Amounts are signed from the account holder's point of view: positive for a
// debit (a charge), negative for a credit (a refund).
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Transaction is one posted ledger entry, or a proposed replacement for one.
type Transaction struct {
	ID               string         `json:"id"`
	Date             time.Time      `json:"date"`
	Merchant         string         `json:"merchant"`
	OriginalMerchant string         `json:"original_merchant"`
	Amount           money.Money    `json:"amount"`
	Category         string         `json:"category"`
	CategoryID       string         `json:"category_id,omitempty"`
	Pending          bool           `json:"pending"`
	Debit            bool           `json:"debit"`
	Note             string         `json:"note,omitempty"`
	ParentID         string         `json:"parent_id,omitempty"`
	Children         []*Transaction `json:"children,omitempty"`
}

// IsChild reports whether the transaction is a fragment of a split entry.
func (t *Transaction) IsChild() bool { return t.ParentID != "" }

// Split derives a proposed entry from t carrying a new amount, category,
// description and note. The proposed entry keeps t's ID, date and original
// merchant so it can replace t in place.
func (t *Transaction) Split(amount money.Money, category, merchant, note string) *Transaction {
	return &Transaction{
		ID:               t.ID,
		Date:             t.Date,
		Merchant:         merchant,
		OriginalMerchant: t.OriginalMerchant,
		Amount:           amount,
		Category:         category,
		Pending:          t.Pending,
		Debit:            t.Debit,
		Note:             note,
	}
}

// SetCategoryID looks up the category's ID. Unknown names leave it empty.
func (t *Transaction) SetCategoryID(nameToID map[string]string) {
	t.CategoryID = nameToID[t.Category]
}

// DryRunString renders the entry for the dry-run report.
func (t *Transaction) DryRunString(ignoreCategory bool) string {
	if ignoreCategory {
		return fmt.Sprintf("%s \t %s \t %s", t.Date.Format("2006-01-02"), t.Amount, t.Merchant)
	}
	return fmt.Sprintf("%s \t %s \t %s \t %s", t.Date.Format("2006-01-02"), t.Amount, t.Category, t.Merchant)
}

// SumAmounts adds up the signed amounts of txns.
func SumAmounts(txns []*Transaction) money.Money {
	var total money.Money
	for _, t := range txns {
		total += t.Amount
	}
	return total
}

// Unsplit folds split children back under a synthetic parent so a
// previously itemized entry can be matched by its full amount again.
//
// The parent copies its first child, takes the parent ID as its own ID and
// the children's summed amount rounded to the cent. Top-level transactions
// keep their input order; reconstructed parents follow in the order their
// first child was seen.
func Unsplit(txns []*Transaction) []*Transaction {
	var out []*Transaction
	var parentIDs []string
	children := make(map[string][]*Transaction)
	for _, t := range txns {
		if !t.IsChild() {
			out = append(out, t)
			continue
		}
		if _, ok := children[t.ParentID]; !ok {
			parentIDs = append(parentIDs, t.ParentID)
		}
		children[t.ParentID] = append(children[t.ParentID], t)
	}

	for _, pid := range parentIDs {
		kids := children[pid]
		parent := *kids[0]
		parent.ID = pid
		parent.ParentID = ""
		parent.Amount = SumAmounts(kids).RoundToCent()
		parent.Debit = parent.Amount > 0
		parent.Children = kids
		out = append(out, &parent)
	}
	return out
}

// Identical reports whether the proposed entries would leave the ledger
// unchanged. Amounts and descriptions compare exactly; categories compare
// unless ignoreCategory is set.
func Identical(old *Transaction, proposed []*Transaction, ignoreCategory bool) bool {
	if len(proposed) == 1 {
		if len(old.Children) > 0 {
			return false
		}
		return sameEntry(old, proposed[0], ignoreCategory)
	}

	if len(old.Children) != len(proposed) {
		return false
	}
	current := sortedForComparison(old.Children)
	next := sortedForComparison(proposed)
	for i := range current {
		if !sameEntry(current[i], next[i], ignoreCategory) {
			return false
		}
	}
	return true
}

func sameEntry(a, b *Transaction, ignoreCategory bool) bool {
	if a.Merchant != b.Merchant || a.Amount != b.Amount {
		return false
	}
	return ignoreCategory || a.Category == b.Category
}

// sortedForComparison orders a copy by amount, largest first, then merchant.
func sortedForComparison(txns []*Transaction) []*Transaction {
	out := make([]*Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return strings.Compare(out[i].Merchant, out[j].Merchant) < 0
	})
	return out
}
