package merchant

import (
	"github.com/eshaffer321/ledger-tagger/internal/domain/combin"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// maxComboItems bounds the subset search used to divide the items of a
// multi-shipment purchase between its shipments.
const maxComboItems = 16

// Associate attaches unit-quantity items to the shipments they belong to and
// returns only the orders that ended up with items, in input order.
//
// Items are grouped by order ID. A purchase whose item subtotals do not add
// up to its shipment subtotals is left alone; that usually means the reports
// were pulled before every shipment went out. A single-shipment purchase gets
// all of its items. Multi-shipment purchases are divided first by tracking
// number, then by searching for the smallest item subset whose subtotal
// equals each remaining shipment's subtotal.
func Associate(orders []*Order, items []*Item) []*Order {
	var oids []string
	byOID := make(map[string][]*Order)
	for _, o := range orders {
		if _, ok := byOID[o.OrderID]; !ok {
			oids = append(oids, o.OrderID)
		}
		byOID[o.OrderID] = append(byOID[o.OrderID], o)
	}

	itemsByOID := make(map[string][]*Item)
	for _, i := range items {
		itemsByOID[i.OrderID] = append(itemsByOID[i.OrderID], i)
	}

	for _, oid := range oids {
		associateGroup(byOID[oid], itemsByOID[oid])
	}

	var withItems []*Order
	for _, o := range orders {
		if len(o.Items) > 0 {
			withItems = append(withItems, o)
		}
	}
	return withItems
}

func associateGroup(orders []*Order, items []*Item) {
	if len(items) == 0 {
		return
	}

	var orderSubtotals money.Money
	for _, o := range orders {
		orderSubtotals += o.Subtotal
	}
	if !money.NearlyEqual(orderSubtotals, sumSubtotals(items)) {
		return
	}

	if len(orders) == 1 {
		attach(orders[0], items)
		return
	}

	// Tracking numbers are never shared between shipments of one purchase.
	byTracking := make(map[string][]*Item)
	for _, i := range items {
		if i.Tracking != "" {
			byTracking[i.Tracking] = append(byTracking[i.Tracking], i)
		}
	}
	remaining := items
	for _, o := range orders {
		if o.Tracking == "" {
			continue
		}
		candidates := byTracking[o.Tracking]
		if len(candidates) > 0 && money.NearlyEqual(sumSubtotals(candidates), o.Subtotal) {
			attach(o, candidates)
			remaining = without(remaining, candidates)
		}
	}

	for _, o := range orders {
		if o.ItemsMatched || len(remaining) == 0 {
			continue
		}
		if subset := findSubset(remaining, o.Subtotal); subset != nil {
			attach(o, subset)
			remaining = without(remaining, subset)
		}
	}
}

// findSubset returns the smallest subset of items (first found in input
// order) whose subtotals equal target.
func findSubset(items []*Item, target money.Money) []*Item {
	n := len(items)
	if n > maxComboItems {
		n = maxComboItems
	}
	for size := 1; size <= n; size++ {
		var found []*Item
		combin.Each(n, size, func(idx []int) bool {
			var total money.Money
			for _, k := range idx {
				total += items[k].Subtotal
			}
			if !money.NearlyEqual(total, target) {
				return true
			}
			found = make([]*Item, len(idx))
			for j, k := range idx {
				found[j] = items[k]
			}
			return false
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func attach(o *Order, items []*Item) {
	for _, i := range items {
		i.Matched = true
	}
	o.Items = append(o.Items, items...)
	o.ItemsMatched = true
}

func without(items, remove []*Item) []*Item {
	drop := make(map[*Item]bool, len(remove))
	for _, i := range remove {
		drop[i] = true
	}
	var kept []*Item
	for _, i := range items {
		if !drop[i] {
			kept = append(kept, i)
		}
	}
	return kept
}

func sumSubtotals(items []*Item) money.Money {
	var total money.Money
	for _, i := range items {
		total += i.Subtotal
	}
	return total
}
