// Package categorizer predicts ledger categories for synthesized entries.
//
// Prediction is a lookup chain: the user's own history of categorizing an
// item wins, then the merchant's native category mapped onto a ledger
// category, then a fallback.
package categorizer

import (
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
)

// DefaultCategory is the ledger's catch-all category for merchant charges.
const DefaultCategory = "Shopping"

// Cache interface for learned item categories
type Cache interface {
	Get(key string) (string, bool)
}

// Resolver resolves categories for item titles.
type Resolver struct {
	history Cache
	native  map[string]string
}

// NewResolver creates a resolver. history may be nil when prediction is
// disabled; native maps lower-cased merchant categories to ledger categories.
func NewResolver(history Cache, native map[string]string) *Resolver {
	lowered := make(map[string]string, len(native))
	for k, v := range native {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Resolver{history: history, native: lowered}
}

// Resolve returns the category for an entry titled title whose merchant
// category is native. learned is set when the user's history overrode the
// category the mapping would have chosen.
func (r *Resolver) Resolve(title, native, fallback string) (category string, learned bool) {
	category = fallback
	if mapped, ok := r.native[strings.ToLower(strings.TrimSpace(native))]; ok && native != "" {
		category = mapped
	}

	if r.history != nil {
		if personal, ok := r.history.Get(NormalizeItemName(title)); ok && personal != category {
			return personal, true
		}
	}
	return category, false
}

// NormalizeItemName builds the history key for an item title.
func NormalizeItemName(title string) string {
	return merchant.RemoveLeadingQuantity(strings.ToLower(strings.TrimSpace(title)))
}
