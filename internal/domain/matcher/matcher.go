// Package matcher assigns ledger transactions to the merchant targets
// (shipments or refunds) they pay for.
//
// The matcher uses strict matching criteria:
//   - Amount must match exactly
//   - Posting date must be within tolerance of the target date (default 3 days)
//   - Neither side may be used twice
//
// Matching runs in two passes. The first pass pairs transactions with single
// targets of the same amount. The second pass handles purchases charged in
// one go across several shipments: the remaining targets are grouped by
// group key and every combination of two or more is tried by its summed
// amount.
//
// Selection is greedy in transaction input order. For each transaction the
// candidate group with the nearest date wins; ties go to the group seen
// first.
//
// Example usage:
//
//	m := matcher.NewMatcher[*merchant.Order](matcher.DefaultConfig())
//	assignment := m.Match(transactions, orders)
//	for _, match := range assignment.Matches {
//		// match.Transaction pays for match.Targets
//	}
package matcher

import (
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/combin"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Matcher matches ledger transactions with targets
type Matcher[T Target] struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher[T Target](config Config) *Matcher[T] {
	if config.MaxGroupSize <= 0 {
		config.MaxGroupSize = DefaultConfig().MaxGroupSize
	}
	return &Matcher[T]{
		config: config,
	}
}

// candidate is a group of target indexes that could pay one transaction.
type candidate struct {
	targets []int
	date    time.Time
}

// run holds the per-call bookkeeping so the inputs are never mutated.
type run[T Target] struct {
	config     Config
	targets    []T
	usedTarget []bool
	chosen     []*pick
}

type pick struct {
	targets  []int
	dateDiff int
	pass     Pass
}

// Match assigns transactions to targets.
func (m *Matcher[T]) Match(transactions []*ledger.Transaction, targets []T) *Assignment[T] {
	r := &run[T]{
		config:     m.config,
		targets:    targets,
		usedTarget: make([]bool, len(targets)),
		chosen:     make([]*pick, len(transactions)),
	}

	// Pass 1: single targets by exact amount
	singles := make(map[money.Money][]candidate)
	for i, t := range targets {
		amt := t.TransactAmount()
		singles[amt] = append(singles[amt], r.candidate([]int{i}))
	}
	for ti, txn := range transactions {
		r.assign(ti, txn, singles[txn.Amount], PassSingle)
	}

	// Pass 2: combinations of targets sharing a group key
	combos := r.combinations()
	for ti, txn := range transactions {
		if r.chosen[ti] != nil {
			continue
		}
		r.assign(ti, txn, combos[txn.Amount], PassCombined)
	}

	return r.assignment(transactions)
}

func (r *run[T]) candidate(idx []int) candidate {
	c := candidate{targets: idx}
	for _, i := range idx {
		if d := r.targets[i].TransactDate(); !d.IsZero() {
			c.date = d
			break
		}
	}
	return c
}

// combinations buckets every combination of two or more unused targets
// within one group key by summed amount. Keys are visited in first-seen
// order and combinations by size, then lexicographically.
func (r *run[T]) combinations() map[money.Money][]candidate {
	var keys []string
	byKey := make(map[string][]int)
	for i, t := range r.targets {
		if r.usedTarget[i] {
			continue
		}
		k := t.GroupKey()
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], i)
	}

	buckets := make(map[money.Money][]candidate)
	for _, k := range keys {
		members := byKey[k]
		if len(members) > r.config.MaxGroupSize {
			members = members[:r.config.MaxGroupSize]
		}
		n := len(members)
		for size := 2; size <= n; size++ {
			combin.Each(n, size, func(idx []int) bool {
				group := make([]int, size)
				var total money.Money
				for j, p := range idx {
					group[j] = members[p]
					total += r.targets[members[p]].TransactAmount()
				}
				buckets[total] = append(buckets[total], r.candidate(group))
				return true
			})
		}
	}
	return buckets
}

// assign picks the nearest-dated candidate within tolerance whose targets
// are all unused. Strict comparison keeps the first seen on ties.
func (r *run[T]) assign(ti int, txn *ledger.Transaction, candidates []candidate, pass Pass) {
	best := -1
	bestDiff := 0
	for ci, c := range candidates {
		if c.date.IsZero() || r.anyUsed(c.targets) {
			continue
		}
		diff := absDays(txn.Date, c.date)
		if diff > r.config.DateTolerance {
			continue
		}
		if best < 0 || diff < bestDiff {
			best = ci
			bestDiff = diff
		}
	}
	if best < 0 {
		return
	}

	c := candidates[best]
	for _, i := range c.targets {
		r.usedTarget[i] = true
	}
	r.chosen[ti] = &pick{targets: c.targets, dateDiff: bestDiff, pass: pass}
}

func (r *run[T]) anyUsed(idx []int) bool {
	for _, i := range idx {
		if r.usedTarget[i] {
			return true
		}
	}
	return false
}

func (r *run[T]) assignment(transactions []*ledger.Transaction) *Assignment[T] {
	a := &Assignment[T]{}
	for ti, txn := range transactions {
		c := r.chosen[ti]
		if c == nil {
			a.UnmatchedTransactions = append(a.UnmatchedTransactions, txn)
			continue
		}
		targets := make([]T, len(c.targets))
		for j, i := range c.targets {
			targets[j] = r.targets[i]
		}
		a.Matches = append(a.Matches, Match[T]{
			Transaction: txn,
			Targets:     targets,
			DateDiff:    c.dateDiff,
			Pass:        c.pass,
		})
	}
	for i, t := range r.targets {
		if !r.usedTarget[i] {
			a.UnmatchedTargets = append(a.UnmatchedTargets, t)
		}
	}
	return a
}

// absDays is the whole number of calendar days between a and b.
func absDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
