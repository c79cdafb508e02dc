// Package tagger runs the reconciliation pipeline: it pairs ledger entries
// with the merchant orders and refunds they paid for, proves the numbers
// agree, synthesizes itemized replacements and decides which of them to
// send.
package tagger

import (
	"context"
	"fmt"

	"github.com/eshaffer321/ledger-tagger/internal/domain/categorizer"
	"github.com/eshaffer321/ledger-tagger/internal/domain/itemizer"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/matcher"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/reconciler"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
)

// Run executes the pipeline. The input is not modified.
//
// Reconciliation and conservation faults abort the run: no updates are
// returned so nothing partial reaches the ledger. An interactive abort
// returns an error wrapping retag.ErrAborted.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	result := &Result{Origins: make(map[string]Origin)}
	stats := &result.Stats

	e.logDebug("Starting run",
		"items", len(in.Items),
		"orders", len(in.Orders),
		"refunds", len(in.Refunds),
		"transactions", len(in.Transactions),
		"retag_mode", e.opts.RetagMode,
		"verbose", e.opts.Verbose,
		"no_itemize", e.opts.NoItemize,
	)

	// 1. Prepare merchant records
	units, err := merchant.NormalizeItems(filterItems(in.Items, stats))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize items: %w", err)
	}
	withItems := merchant.Associate(cloneOrders(in.Orders), units)
	stats.OrdersWithItems = len(withItems)
	for _, o := range withItems {
		stats.ItemsAssociated += len(o.Items)
	}
	orders := matchableOrders(withItems, stats)

	e.logDebug("Associated items with orders",
		"unit_items", len(units),
		"orders_with_items", stats.OrdersWithItems,
		"matchable_orders", len(orders),
	)

	// 2. Learn categories from the raw ledger, children included
	var history categorizer.Cache
	if e.opts.PredictCategories {
		learned := categorizer.Learn(in.Transactions, e.historyPrefixes())
		stats.HistoryItems = learned.Size()
		history = learned
		e.logDebug("Learned category history", "items", learned.Size())
	}
	native := e.opts.NativeCategories
	if native == nil {
		native = categorizer.DefaultNativeCategories
	}
	items := itemizer.New(itemizer.Options{
		Verbose:      e.opts.Verbose,
		NoItemize:    e.opts.NoItemize,
		OrderPrefix:  e.opts.OrderPrefix,
		RefundPrefix: e.opts.RefundPrefix,
	}, categorizer.NewResolver(history, native), in.Categories)

	// 3. Select ledger entries
	txns := ledger.Unsplit(in.Transactions)
	stats.Trans = len(txns)
	txns = e.filterTransactions(txns, stats)

	// 4. Match orders, then refunds against what is left. The date window
	// is fixed; see matcher.DefaultConfig
	config := matcher.DefaultConfig()
	orderAssignment := matcher.NewMatcher[*merchant.Order](config).Match(txns, orders)
	refundAssignment := matcher.NewMatcher[*merchant.Refund](config).Match(orderAssignment.UnmatchedTransactions, in.Refunds)

	result.Unmatched = Unmatched{
		Orders:       orderAssignment.UnmatchedTargets,
		Refunds:      refundAssignment.UnmatchedTargets,
		Transactions: refundAssignment.UnmatchedTransactions,
	}
	stats.TransMatch = len(orderAssignment.Matches) + len(refundAssignment.Matches)
	stats.TransUnmatch = len(result.Unmatched.Transactions)
	stats.OrderMatch = len(orderAssignment.MatchedTargets())
	stats.OrderUnmatch = len(result.Unmatched.Orders)
	stats.RefundMatch = len(refundAssignment.MatchedTargets())
	stats.RefundUnmatch = len(result.Unmatched.Refunds)

	e.logInfo("Matched transactions",
		"transactions", len(txns),
		"matched", stats.TransMatch,
		"unmatched", stats.TransUnmatch,
		"orders_matched", stats.OrderMatch,
		"refunds_matched", stats.RefundMatch,
	)

	// 5. Synthesize replacements in ledger order
	ordersFor := make(map[string][]*merchant.Order, len(orderAssignment.Matches))
	for _, m := range orderAssignment.Matches {
		ordersFor[m.Transaction.ID] = m.Targets
	}
	refundsFor := make(map[string][]*merchant.Refund, len(refundAssignment.Matches))
	for _, m := range refundAssignment.Matches {
		refundsFor[m.Transaction.ID] = m.Targets
	}

	var candidates []ledger.Update
	for _, t := range txns {
		var synthesized *itemizer.Result
		switch {
		case ordersFor[t.ID] != nil:
			matched := ordersFor[t.ID]
			reconciled, err := reconciler.Reconcile(t, matched)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile transaction %s: %w", t.ID, err)
			}
			if reconciled.MiscCharge {
				stats.MiscCharge++
			}
			if reconciled.AdjustedTax {
				stats.AdjustItemizedTax++
			}
			synthesized, err = items.Order(t, reconciled.Order)
			if err != nil {
				return nil, fmt.Errorf("failed to itemize transaction %s: %w", t.ID, err)
			}
			result.Origins[t.ID] = Origin{OrderID: matched[0].OrderID, InvoiceURL: matched[0].InvoiceURL()}
		case refundsFor[t.ID] != nil:
			matched := refundsFor[t.ID]
			synthesized, err = items.Refunds(t, matched)
			if err != nil {
				return nil, fmt.Errorf("failed to itemize refund %s: %w", t.ID, err)
			}
			result.Origins[t.ID] = Origin{OrderID: matched[0].OrderID, InvoiceURL: matched[0].InvoiceURL(), Refund: true}
		default:
			continue
		}
		stats.PersonalCat += synthesized.LearnedCategories
		candidates = append(candidates, ledger.Update{Original: t, Proposed: synthesized.Entries})
	}

	// 6. Decide what to send
	policy := retag.NewPolicy(retag.Config{
		Mode:           e.opts.RetagMode,
		IgnoreCategory: e.opts.IgnoreCategory,
		Prefixes:       e.retagPrefixes(),
		MaxUpdates:     e.opts.MaxUpdates,
	}, e.prompter)

	decisions, updates, err := policy.Resolve(ctx, candidates)
	result.Decisions = decisions
	tallyOutcomes(stats, decisions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve updates: %w", err)
	}
	result.Updates = updates

	e.logInfo("Resolved updates",
		"candidates", len(candidates),
		"updates", len(updates),
		"up_to_date", stats.AlreadyUpToDate,
		"new_tag", stats.NewTag,
		"retag", stats.Retag,
	)
	if len(result.Unmatched.Orders) > 0 || len(result.Unmatched.Refunds) > 0 {
		e.logWarn("Unmatched merchant records",
			"orders", len(result.Unmatched.Orders),
			"refunds", len(result.Unmatched.Refunds),
		)
	}

	return result, nil
}

func tallyOutcomes(stats *Stats, decisions []retag.Decision) {
	counts := retag.Tally(decisions)
	stats.AlreadyUpToDate = counts[retag.OutcomeUpToDate]
	stats.NewTag = counts[retag.OutcomeNewTag]
	stats.Retag = counts[retag.OutcomeRetag]
	stats.NoRetag = counts[retag.OutcomeNoRetag]
	stats.UserSkippedRetag = counts[retag.OutcomeUserSkipped]
}

// historyPrefixes are the full description prefixes of entries synthesized
// for orders, which is where learned categories come from.
func (e *Engine) historyPrefixes() []string {
	var prefixes []string
	for _, d := range e.opts.SiteDomains {
		prefixes = append(prefixes, d+": ")
	}
	if e.opts.OrderPrefix != "" {
		prefixes = append(prefixes, e.opts.OrderPrefix)
	}
	return prefixes
}

// retagPrefixes recognize any entry tagged by a previous run.
func (e *Engine) retagPrefixes() []string {
	prefixes := append([]string(nil), e.opts.SiteDomains...)
	for _, p := range []string{e.opts.OrderPrefix, e.opts.RefundPrefix} {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}
