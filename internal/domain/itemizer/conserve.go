package itemizer

import (
	"fmt"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// ConservationFault reports synthesized entries that do not add up to the
// ledger amount they replace.
type ConservationFault struct {
	TransactionID string
	Expected      money.Money
	Actual        money.Money
}

func (f *ConservationFault) Error() string {
	return fmt.Sprintf("synthesized entries for transaction %s sum to %s, expected %s",
		f.TransactionID, f.Actual, f.Expected)
}

// conserve absorbs sub-epsilon noise into the largest entry, then requires
// the entries to sum exactly to t.Amount. When t.Amount is a whole number of
// cents every entry is snapped to the cent as well, since the ledger stores
// split lines with two decimals.
func conserve(t *ledger.Transaction, entries []*ledger.Transaction) error {
	if len(entries) == 0 {
		return &ConservationFault{TransactionID: t.ID, Expected: t.Amount}
	}

	largest := 0
	for i, e := range entries {
		if e.Amount.Abs() > entries[largest].Amount.Abs() {
			largest = i
		}
	}

	sum := ledger.SumAmounts(entries)
	if residue := t.Amount - sum; residue != 0 && money.NearlyEqual(t.Amount, sum) {
		entries[largest].Amount += residue
		sum = ledger.SumAmounts(entries)
	}

	if sum != t.Amount {
		return &ConservationFault{TransactionID: t.ID, Expected: t.Amount, Actual: sum}
	}

	if t.Amount%money.Cent == 0 {
		var rounded money.Money
		for _, e := range entries {
			e.Amount = e.Amount.RoundToCent()
			rounded += e.Amount
		}
		entries[largest].Amount += t.Amount - rounded
	}
	return nil
}
