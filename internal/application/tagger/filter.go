package tagger

import (
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
)

// filterItems drops lines that were never charged or cannot be split.
func filterItems(items []*merchant.Item, stats *Stats) []*merchant.Item {
	var kept []*merchant.Item
	for _, i := range items {
		switch {
		case i.IsCancelled():
			stats.ItemsCancelled++
		case !i.IsShipped():
			stats.ItemsUnshipped++
		case i.Quantity <= 0:
			stats.ItemsNoQuantity++
		default:
			kept = append(kept, i)
		}
	}
	return kept
}

// cloneOrders copies orders without their items so association never
// touches the caller's records.
func cloneOrders(orders []*merchant.Order) []*merchant.Order {
	out := make([]*merchant.Order, len(orders))
	for i, o := range orders {
		c := *o
		c.Items = nil
		c.ItemsMatched = false
		out[i] = &c
	}
	return out
}

// matchableOrders separates orders that can be charged from unshipped and
// gift-card-paid ones, which never post to the ledger.
func matchableOrders(orders []*merchant.Order, stats *Stats) []*merchant.Order {
	var out []*merchant.Order
	for _, o := range orders {
		switch {
		case !o.IsShipped():
			stats.SkippedOrdersUnshipped++
		case o.IsGiftCardOnly():
			stats.SkippedOrdersGiftCard++
		default:
			out = append(out, o)
		}
	}
	return out
}

// filterTransactions applies the merchant, pending and category filters.
func (e *Engine) filterTransactions(txns []*ledger.Transaction, stats *Stats) []*ledger.Transaction {
	merchants := lowerAll(e.opts.MerchantFilter)
	categories := make(map[string]bool)
	for _, c := range lowerAll(e.opts.CategoryFilter) {
		categories[c] = true
	}

	var out []*ledger.Transaction
	for _, t := range txns {
		if !containsAny(originalDescription(t), merchants) {
			continue
		}
		stats.MerchantInDesc++
		if t.Pending {
			stats.Pending++
			continue
		}
		if len(categories) > 0 && !categories[strings.ToLower(t.Category)] {
			stats.CategoryFiltered++
			continue
		}
		out = append(out, t)
	}
	return out
}

func originalDescription(t *ledger.Transaction) string {
	if t.OriginalMerchant != "" {
		return strings.ToLower(t.OriginalMerchant)
	}
	return strings.ToLower(t.Merchant)
}

func containsAny(s string, substrings []string) bool {
	if len(substrings) == 0 {
		return true
	}
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
