package merchant

import "fmt"

// SplitByQuantity turns an item of quantity N into N items of quantity 1.
// Subtotal, tax and total are divided in whole cents, with leftover cents
// handed one each to the leading units, so the split items always sum to
// the original line.
func (i *Item) SplitByQuantity() ([]*Item, error) {
	if i.Quantity <= 0 {
		return nil, fmt.Errorf("%w: order %s %q has quantity %d", ErrInvalidQuantity, i.OrderID, i.Title, i.Quantity)
	}
	if i.Quantity == 1 {
		unit := *i
		return []*Item{&unit}, nil
	}

	n := i.Quantity
	subtotals := i.Subtotal.SplitCents(n)
	taxes := i.Tax.SplitCents(n)
	totals := i.Total.SplitCents(n)
	consistent := i.Total == i.Subtotal+i.Tax

	units := make([]*Item, n)
	for k := 0; k < n; k++ {
		unit := *i
		unit.Quantity = 1
		unit.Subtotal = subtotals[k]
		unit.Tax = taxes[k]
		unit.Total = totals[k]
		if consistent {
			unit.Total = subtotals[k] + taxes[k]
		}
		units[k] = &unit
	}
	return units, nil
}

// NormalizeItems splits every item to unit quantity, preserving input order.
func NormalizeItems(items []*Item) ([]*Item, error) {
	var out []*Item
	for _, item := range items {
		units, err := item.SplitByQuantity()
		if err != nil {
			return nil, err
		}
		out = append(out, units...)
	}
	return out, nil
}
