package reconciler

import (
	"fmt"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Check names one of the reconciliation checks.
type Check string

const (
	CheckTransactionAmount Check = "charged_equals_transaction"
	CheckSubtotals         Check = "charged_equals_subtotals"
	CheckItems             Check = "charged_equals_items"
)

// ReconciliationFault reports a merged order whose totals do not agree.
// Sending updates built from such an order would corrupt the ledger.
type ReconciliationFault struct {
	TransactionID string
	OrderID       string
	Check         Check

	// Charged is the merchant's total charged.
	Charged money.Money
	// BySubtotals is subtotal + tax + non-item charges.
	BySubtotals money.Money
	// ByItems is item totals + non-item charges.
	ByItems money.Money
	// TransactionAmount is the ledger amount.
	TransactionAmount money.Money
}

func (f *ReconciliationFault) Error() string {
	return fmt.Sprintf("reconciliation failed (%s) for order %s and transaction %s: charged %s, by subtotals %s, by items %s, transaction %s",
		f.Check, f.OrderID, f.TransactionID, f.Charged, f.BySubtotals, f.ByItems, f.TransactionAmount)
}

// Verify runs the three checks against a merged order.
func Verify(t *ledger.Transaction, o *merchant.Order) error {
	fault := &ReconciliationFault{
		TransactionID:     t.ID,
		OrderID:           o.OrderID,
		Charged:           o.TotalCharged,
		BySubtotals:       o.TotalBySubtotals(),
		ByItems:           o.TotalByItems(),
		TransactionAmount: t.Amount,
	}

	switch {
	case !money.NearlyEqual(t.Amount, fault.Charged):
		fault.Check = CheckTransactionAmount
	case !money.NearlyEqual(fault.Charged, fault.BySubtotals):
		fault.Check = CheckSubtotals
	case !money.NearlyEqual(fault.Charged, fault.ByItems):
		fault.Check = CheckItems
	default:
		return nil
	}
	return fault
}
