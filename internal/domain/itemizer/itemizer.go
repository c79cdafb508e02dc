// Package itemizer synthesizes the ledger entries that replace a matched
// charge or credit.
//
// A charge becomes one entry per item, each described by its title and
// carrying the item's total. Shipping, promotions and gift wrap are folded
// into the item entries in proportion to item totals, or listed as their
// own entries in verbose mode. Single-item orders, and every order when
// itemization is off, collapse into one summarized entry instead.
//
// A credit becomes one entry per refund record.
//
// Whatever the shape, the entries always sum exactly to the ledger amount.
package itemizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/allocator"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

const (
	// DefaultCategory is used for charges nothing else can categorize.
	DefaultCategory = "Shopping"
	// RefundCategory is the fallback category for refund entries.
	RefundCategory = "Returned Purchase"
	// ShippingCategory is used for shipping charges and free-shipping promotions.
	ShippingCategory = "Shipping"

	maxTitleLen       = 88
	maxDescriptionLen = 100
)

// Resolver predicts a category for an entry title.
type Resolver interface {
	Resolve(title, native, fallback string) (category string, learned bool)
}

// Options controls how entries are synthesized.
type Options struct {
	// Verbose lists shipping, promotions and gift wrap as their own entries
	// and never summarizes single-item orders.
	Verbose bool
	// NoItemize always produces a single summarized entry.
	NoItemize bool
	// OrderPrefix replaces the "<site>: " description prefix.
	OrderPrefix string
	// RefundPrefix replaces the "<site> refund: " description prefix.
	RefundPrefix string
}

// Itemizer builds replacement entries.
type Itemizer struct {
	opts        Options
	resolver    Resolver
	categoryIDs map[string]string
}

// New creates an itemizer. categoryIDs maps ledger category names to IDs.
func New(opts Options, resolver Resolver, categoryIDs map[string]string) *Itemizer {
	return &Itemizer{opts: opts, resolver: resolver, categoryIDs: categoryIDs}
}

// Result is the synthesized replacement for one ledger entry.
type Result struct {
	Entries []*ledger.Transaction
	// Prefix is the description prefix applied to the entries.
	Prefix string
	// Summarized is set when the entries were collapsed into one.
	Summarized bool
	// LearnedCategories counts entries whose category came from history.
	LearnedCategories int
}

// OrderPrefix is the description prefix for entries of an order.
func (z *Itemizer) OrderPrefix(o *merchant.Order) string {
	if z.opts.OrderPrefix != "" {
		return z.opts.OrderPrefix
	}
	return o.Site + ": "
}

// RefundPrefix is the description prefix for refund entries.
func (z *Itemizer) RefundPrefix(r *merchant.Refund) string {
	if z.opts.RefundPrefix != "" {
		return z.opts.RefundPrefix
	}
	return r.Site + " refund: "
}

// Order synthesizes the entries replacing charge t for reconciled order o.
func (z *Itemizer) Order(t *ledger.Transaction, o *merchant.Order) (*Result, error) {
	entries, learned, err := z.orderEntries(t, o)
	if err != nil {
		return nil, err
	}

	result := &Result{Prefix: z.OrderPrefix(o), LearnedCategories: learned}
	singleItem := len(o.Items) == 1 && !z.opts.Verbose
	if z.opts.NoItemize || singleItem {
		result.Entries = []*ledger.Transaction{z.summarize(t, entries, result.Prefix)}
		result.Summarized = true
	} else {
		result.Entries = itemize(entries, result.Prefix)
	}
	if err := conserve(t, result.Entries); err != nil {
		return nil, err
	}
	return result, nil
}

// Refunds synthesizes the entries replacing credit t for the refunds it paid out.
func (z *Itemizer) Refunds(t *ledger.Transaction, refunds []*merchant.Refund) (*Result, error) {
	if len(refunds) == 0 {
		return nil, fmt.Errorf("no refunds for transaction %s", t.ID)
	}

	result := &Result{Prefix: z.RefundPrefix(refunds[0])}
	var entries []*ledger.Transaction
	for _, r := range refunds {
		title := r.DisplayTitle(maxTitleLen)
		category, learned := z.resolve(title, r.Category, RefundCategory)
		if learned {
			result.LearnedCategories++
		}
		entries = append(entries, z.entry(t, -r.Total(), category, title, r.Note()))
	}

	if z.opts.NoItemize {
		result.Entries = []*ledger.Transaction{z.summarize(t, entries, result.Prefix)}
		result.Summarized = true
	} else {
		result.Entries = itemize(entries, result.Prefix)
	}
	if err := conserve(t, result.Entries); err != nil {
		return nil, err
	}
	return result, nil
}

// orderEntries builds unprefixed entries for items, largest first, followed
// by any non-item charges in verbose mode.
func (z *Itemizer) orderEntries(t *ledger.Transaction, o *merchant.Order) ([]*ledger.Transaction, int, error) {
	items := make([]*merchant.Item, len(o.Items))
	copy(items, o.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Total > items[j].Total })

	amounts := make([]money.Money, len(items))
	for i, item := range items {
		amounts[i] = item.Total
	}

	var extras []*ledger.Transaction
	note := o.Note()
	if z.opts.Verbose {
		extras = z.nonItemEntries(t, o, note)
	} else if charges := o.NonItemCharges(); charges != 0 && len(items) > 0 {
		folded, err := allocator.AllocateCents(amounts, charges)
		switch {
		case err == nil:
			for i := range amounts {
				amounts[i] += folded.Shares[i]
			}
		case errors.Is(err, allocator.ErrNegativeWeight):
			extras = z.nonItemEntries(t, o, note)
		default:
			return nil, 0, fmt.Errorf("fold non-item charges for order %s: %w", o.OrderID, err)
		}
	}

	var entries []*ledger.Transaction
	learned := 0
	for i, item := range items {
		title := item.DisplayTitle(maxTitleLen)
		category, fromHistory := z.resolve(title, item.Category, DefaultCategory)
		if fromHistory {
			learned++
		}
		entries = append(entries, z.entry(t, amounts[i], category, title, note))
	}
	return append(entries, extras...), learned, nil
}

func (z *Itemizer) nonItemEntries(t *ledger.Transaction, o *merchant.Order, note string) []*ledger.Transaction {
	var out []*ledger.Transaction
	if o.Shipping != 0 {
		out = append(out, z.entry(t, o.Shipping, ShippingCategory, merchant.ShippingTitle, note))
	}
	if o.Promotion != 0 {
		category := DefaultCategory
		if o.IsFreeShipping() {
			category = ShippingCategory
		}
		out = append(out, z.entry(t, -o.Promotion, category, merchant.PromotionTitle, note))
	}
	if o.GiftWrap != 0 {
		out = append(out, z.entry(t, o.GiftWrap, DefaultCategory, merchant.GiftWrapTitle, note))
	}
	return out
}

func (z *Itemizer) resolve(title, native, fallback string) (string, bool) {
	if z.resolver == nil {
		return fallback, false
	}
	return z.resolver.Resolve(title, native, fallback)
}

func (z *Itemizer) entry(t *ledger.Transaction, amount money.Money, category, title, note string) *ledger.Transaction {
	e := t.Split(amount, category, title, note)
	e.SetCategoryID(z.categoryIDs)
	return e
}

// summarize collapses entries into one carrying the full amount. The
// description lists item titles; the note lists every entry.
func (z *Itemizer) summarize(t *ledger.Transaction, entries []*ledger.Transaction, prefix string) *ledger.Transaction {
	var titles []string
	var itemEntries []*ledger.Transaction
	for _, e := range entries {
		if merchant.IsNonItemTitle(e.Merchant) {
			continue
		}
		titles = append(titles, e.Merchant)
		itemEntries = append(itemEntries, e)
	}

	category := DefaultCategory
	if len(itemEntries) == 1 {
		category = itemEntries[0].Category
	}

	var note strings.Builder
	if len(entries) > 0 {
		note.WriteString(entries[0].Note)
	}
	note.WriteString("\nItem(s):")
	for _, e := range entries {
		note.WriteString("\n - ")
		note.WriteString(e.Merchant)
	}

	return z.entry(t, t.Amount, category, SummarizeTitle(titles, prefix), note.String())
}

func itemize(entries []*ledger.Transaction, prefix string) []*ledger.Transaction {
	for _, e := range entries {
		e.Merchant = prefix + e.Merchant
	}
	return entries
}

// SummarizeTitle joins titles behind prefix, shortening each so the whole
// description stays readable.
func SummarizeTitle(titles []string, prefix string) string {
	if len(titles) == 0 {
		return merchant.Truncate(prefix, maxDescriptionLen)
	}
	n := len(titles)
	each := (maxDescriptionLen - len(prefix) - 2*n) / n
	if each < 4 {
		each = 4
	}
	short := make([]string, n)
	for i, title := range titles {
		short[i] = merchant.Truncate(title, each)
	}
	return merchant.Truncate(prefix+strings.Join(short, ", "), maxDescriptionLen)
}
