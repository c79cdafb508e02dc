package categorizer

import (
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
)

// History maps normalized item names to the category the user most often
// gave them.
type History struct {
	store map[string]string
}

// Get retrieves the learned category for a normalized item name.
func (h *History) Get(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	value, found := h.store[key]
	return value, found
}

// Size returns the number of learned items
func (h *History) Size() int {
	if h == nil {
		return 0
	}
	return len(h.store)
}

// Learn scans previously tagged entries and builds the item history.
//
// Only settled debits whose description starts with one of prefixes count
// (prefixes are matched case-insensitively, e.g. "amazon.com: "). Entries
// in the default category carry no signal and charge entries such as
// shipping are not items, so both are skipped. Ties between categories go
// to the one seen first.
func Learn(txns []*ledger.Transaction, prefixes []string) *History {
	lowered := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}

	type tally struct {
		order  []string
		counts map[string]int
	}
	var names []string
	tallies := make(map[string]*tally)

	for _, t := range txns {
		if t.Pending || !t.Debit || t.Category == DefaultCategory {
			continue
		}
		name, ok := stripPrefix(strings.ToLower(t.Merchant), lowered)
		if !ok || merchant.IsNonItemTitle(name) {
			continue
		}
		name = NormalizeItemName(name)

		tl, seen := tallies[name]
		if !seen {
			tl = &tally{counts: make(map[string]int)}
			tallies[name] = tl
			names = append(names, name)
		}
		if _, counted := tl.counts[t.Category]; !counted {
			tl.order = append(tl.order, t.Category)
		}
		tl.counts[t.Category]++
	}

	h := &History{store: make(map[string]string, len(names))}
	for _, name := range names {
		tl := tallies[name]
		best := tl.order[0]
		for _, cat := range tl.order[1:] {
			if tl.counts[cat] > tl.counts[best] {
				best = cat
			}
		}
		h.store[name] = best
	}
	return h
}

func stripPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return s[len(p):], true
		}
	}
	return "", false
}
