package reconciler

import (
	"errors"
	"testing"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(title, subtotal, tax string) *merchant.Item {
	sub := money.MustParse(subtotal)
	tx := money.MustParse(tax)
	return &merchant.Item{Title: title, Quantity: 1, Subtotal: sub, Tax: tx, Total: sub + tx}
}

func charge(amount string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:     "tx1",
		Date:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		Amount: money.MustParse(amount),
		Debit:  true,
	}
}

func TestReconcile_CleanOrder(t *testing.T) {
	// Two $20 items with $1 tax each, charged $42
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$40.00"),
		Tax:          money.MustParse("$2.00"),
		TotalCharged: money.MustParse("$42.00"),
		Site:         "Amazon.com",
		Items:        []*merchant.Item{item("A", "$20.00", "$1.00"), item("B", "$20.00", "$1.00")},
	}

	result, err := Reconcile(charge("$42.00"), []*merchant.Order{o})

	require.NoError(t, err)
	assert.False(t, result.MiscCharge)
	assert.False(t, result.AdjustedTax)
	assert.Equal(t, money.MustParse("$42.00"), result.Order.ItemsTotal())
}

func TestMerge_SumsShipments(t *testing.T) {
	s1 := &merchant.Order{
		OrderID:      "111",
		ShipDate:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Subtotal:     money.MustParse("$15.00"),
		TotalCharged: money.MustParse("$15.00"),
		Tracking:     "UPS(1)",
		Items:        []*merchant.Item{item("A", "$15.00", "$0")},
	}
	s2 := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$25.00"),
		Tax:          money.MustParse("$2.00"),
		Shipping:     money.MustParse("$4.99"),
		Promotion:    money.MustParse("$4.99"),
		TotalCharged: money.MustParse("$27.00"),
		Site:         "Amazon.com",
		Items:        []*merchant.Item{item("B", "$25.00", "$2.00")},
	}

	merged, err := Merge([]*merchant.Order{s1, s2})

	require.NoError(t, err)
	assert.Equal(t, money.MustParse("$40.00"), merged.Subtotal)
	assert.Equal(t, money.MustParse("$2.00"), merged.Tax)
	assert.Equal(t, money.MustParse("$4.99"), merged.Shipping)
	assert.Equal(t, money.MustParse("$4.99"), merged.Promotion)
	assert.Equal(t, money.MustParse("$42.00"), merged.TotalCharged)
	assert.Equal(t, "Amazon.com", merged.Site)
	assert.Equal(t, "UPS(1)", merged.Tracking)
	assert.Equal(t, s1.ShipDate, merged.ShipDate)
	require.Len(t, merged.Items, 2)

	// The merged view owns copies
	merged.Items[0].Tax = money.MustParse("$9.00")
	assert.Equal(t, money.Money(0), s1.Items[0].Tax)
}

func TestMerge_NoOrders(t *testing.T) {
	_, err := Merge(nil)
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestReconcile_MiscCharge(t *testing.T) {
	// Gift wrap charged but not reported as a field
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$20.00"),
		TotalCharged: money.MustParse("$23.99"),
		Items:        []*merchant.Item{item("A", "$20.00", "$0")},
	}

	result, err := Reconcile(charge("$23.99"), []*merchant.Order{o})

	require.NoError(t, err)
	assert.True(t, result.MiscCharge)
	require.Len(t, result.Order.Items, 2)
	misc := result.Order.Items[1]
	assert.Equal(t, merchant.MiscChargeTitle, misc.Title)
	assert.Equal(t, MiscChargeCategory, misc.Category)
	assert.Equal(t, money.MustParse("$3.99"), misc.Total)
	assert.Equal(t, money.MustParse("$23.99"), result.Order.Subtotal)

	// The caller's order is untouched
	assert.Len(t, o.Items, 1)
	assert.Equal(t, money.MustParse("$20.00"), o.Subtotal)
}

func TestReconcile_PerItemTaxAdjustment(t *testing.T) {
	// Item tax rounds to $0.66 while the order tax is $0.67
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$20.00"),
		Tax:          money.MustParse("$0.67"),
		TotalCharged: money.MustParse("$20.67"),
		Items:        []*merchant.Item{item("A", "$10.00", "$0.33"), item("B", "$10.00", "$0.33")},
	}

	result, err := Reconcile(charge("$20.67"), []*merchant.Order{o})

	require.NoError(t, err)
	assert.True(t, result.AdjustedTax)
	assert.Equal(t, money.MustParse("$20.67"), result.Order.ItemsTotal())
	assert.Equal(t, money.MustParse("$0.67"), result.Order.ItemsTax())
	// The leftover cent lands on one item instead of half a cent on each
	assert.Equal(t, money.MustParse("$10.34"), result.Order.Items[0].Total)
	assert.Equal(t, money.MustParse("$10.33"), result.Order.Items[1].Total)
	for _, i := range result.Order.Items {
		assert.Zero(t, i.Tax%money.Cent, "item %s tax = %d", i.Title, i.Tax)
	}
}

func TestReconcile_FaultOnTransactionAmount(t *testing.T) {
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$41.00"),
		TotalCharged: money.MustParse("$41.00"),
		Items:        []*merchant.Item{item("A", "$41.00", "$0")},
	}

	_, err := Reconcile(charge("$42.00"), []*merchant.Order{o})

	var fault *ReconciliationFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, CheckTransactionAmount, fault.Check)
	assert.Equal(t, "tx1", fault.TransactionID)
	assert.Equal(t, "111", fault.OrderID)
	assert.Equal(t, money.MustParse("$41.00"), fault.Charged)
	assert.Equal(t, money.MustParse("$42.00"), fault.TransactionAmount)
	assert.Contains(t, err.Error(), "charged $41.00")
}

func TestReconcile_FaultOnSubtotals(t *testing.T) {
	// Charged less than the declared fields and nothing explains it
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$45.00"),
		TotalCharged: money.MustParse("$42.00"),
		Items:        []*merchant.Item{item("A", "$42.00", "$0")},
	}

	_, err := Reconcile(charge("$42.00"), []*merchant.Order{o})

	var fault *ReconciliationFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, CheckSubtotals, fault.Check)
	assert.Equal(t, money.MustParse("$45.00"), fault.BySubtotals)
}

func TestReconcile_FaultOnItems(t *testing.T) {
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$40.00"),
		TotalCharged: money.MustParse("$40.00"),
		Items:        []*merchant.Item{item("A", "$30.00", "$0")},
	}

	_, err := Reconcile(charge("$40.00"), []*merchant.Order{o})

	var fault *ReconciliationFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, CheckItems, fault.Check)
	assert.Equal(t, money.MustParse("$30.00"), fault.ByItems)
}

func TestVerify_WithinEpsilon(t *testing.T) {
	o := &merchant.Order{
		OrderID:      "111",
		Subtotal:     money.MustParse("$10.00"),
		TotalCharged: money.MustParse("$10.00"),
		Items:        []*merchant.Item{item("A", "$10.00", "$0")},
	}
	t1 := charge("$10.00")
	t1.Amount += 5

	assert.NoError(t, Verify(t1, o))
}
