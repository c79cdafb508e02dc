// Package reconciler merges the shipments paid by one ledger charge and
// proves that the merchant's numbers add up to it.
//
// Three totals must agree with the charge before any entry is synthesized:
//
//	charged == subtotal + tax + shipping - promotion + gift wrap
//	charged == sum(item totals) + shipping - promotion + gift wrap
//	charged == ledger transaction amount
//
// Merchant reports do not always satisfy these on their own. Two fix-ups
// run first: an unexplained charge above the declared subtotals becomes a
// misc-charge item, and item tax that was rounded differently from the
// order tax is respread across the items.
package reconciler

import (
	"errors"

	"github.com/eshaffer321/ledger-tagger/internal/domain/allocator"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// ErrNoOrders is returned when asked to merge nothing.
var ErrNoOrders = errors.New("no orders to merge")

// MiscChargeCategory is the category given to synthesized misc-charge items.
const MiscChargeCategory = "Shopping"

// Result is a reconciled view of the orders paid by one transaction.
type Result struct {
	Order *merchant.Order

	// MiscCharge is set when a misc-charge item was added.
	MiscCharge bool
	// AdjustedTax is set when item tax was respread.
	AdjustedTax bool
}

// Merge combines shipments into one logical order. Amounts are summed and
// items concatenated; identifying fields come from the first shipment and
// the site from the first one that has it. Inputs are not modified and the
// merged order owns copies of the items.
func Merge(orders []*merchant.Order) (*merchant.Order, error) {
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	first := orders[0]
	merged := &merchant.Order{
		OrderID:               first.OrderID,
		OrderDate:             first.OrderDate,
		ShipDate:              first.ShipDate,
		PaymentInstrumentType: first.PaymentInstrumentType,
		Tracking:              first.Tracking,
		ItemsMatched:          true,
	}
	for _, o := range orders {
		merged.Subtotal += o.Subtotal
		merged.Tax += o.Tax
		merged.Shipping += o.Shipping
		merged.Promotion += o.Promotion
		merged.GiftWrap += o.GiftWrap
		merged.TotalCharged += o.TotalCharged
		if merged.Site == "" {
			merged.Site = o.Site
		}
		for _, i := range o.Items {
			item := *i
			merged.Items = append(merged.Items, &item)
		}
	}
	return merged, nil
}

// Reconcile merges the orders matched to t, applies fix-ups and runs the
// three checks. A failed check returns a *ReconciliationFault.
func Reconcile(t *ledger.Transaction, orders []*merchant.Order) (*Result, error) {
	order, err := Merge(orders)
	if err != nil {
		return nil, err
	}

	result := &Result{Order: order}
	result.MiscCharge = attributeMiscCharge(order)
	adjusted, err := attributeItemTax(order)
	if err != nil {
		return nil, err
	}
	result.AdjustedTax = adjusted

	if err := Verify(t, order); err != nil {
		return nil, err
	}
	return result, nil
}

// attributeMiscCharge turns a positive gap between the charge and the
// declared subtotals into an item, so that both the subtotal and itemized
// totals account for it.
func attributeMiscCharge(o *merchant.Order) bool {
	gap := o.TotalCharged - o.TotalBySubtotals()
	if gap <= money.Epsilon {
		return false
	}

	o.Items = append(o.Items, &merchant.Item{
		OrderID:   o.OrderID,
		OrderDate: o.OrderDate,
		Title:     merchant.MiscChargeTitle,
		Category:  MiscChargeCategory,
		Quantity:  1,
		UnitPrice: gap,
		Subtotal:  gap,
		Total:     gap,
		Status:    merchant.StatusShipped,
		ShipDate:  o.ShipDate,
		Site:      o.Site,
		Matched:   true,
	})
	o.Subtotal += gap
	return true
}

// attributeItemTax spreads the itemized residual across item tax when it is
// explained by the difference between the order tax and the summed item
// tax. Shares follow item subtotals.
func attributeItemTax(o *merchant.Order) (bool, error) {
	residual := o.TotalCharged - o.TotalByItems()
	if residual == 0 || len(o.Items) == 0 {
		return false, nil
	}
	if !money.NearlyEqual(residual, o.Tax-o.ItemsTax()) {
		return false, nil
	}

	weights := make([]money.Money, len(o.Items))
	anyNegative := false
	for i, item := range o.Items {
		weights[i] = item.Subtotal
		if item.Subtotal < 0 {
			anyNegative = true
		}
	}
	if anyNegative {
		return false, nil
	}

	alloc, err := allocator.AllocateCents(weights, residual)
	if err != nil {
		return false, err
	}
	for i, item := range o.Items {
		item.Tax += alloc.Shares[i]
		item.Total += alloc.Shares[i]
	}
	return true, nil
}
