package matcher

import (
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Target is anything that expects to be paid by a ledger transaction:
// shipments (orders) and refunds.
type Target interface {
	// GroupKey identifies targets that can be charged together.
	GroupKey() string
	// TransactDate is when the ledger entry should post. Zero if unknown.
	TransactDate() time.Time
	// TransactAmount is the signed amount the ledger entry should carry.
	TransactAmount() money.Money
}

// Config holds matcher configuration
type Config struct {
	DateTolerance int // Days either side of the target date (default: 3)
	MaxGroupSize  int // Targets per group considered for combinations (default: 16)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DateTolerance: 3,
		MaxGroupSize:  16,
	}
}

// Pass identifies which matching pass produced a match.
type Pass int

const (
	// PassSingle matches one target by its exact amount.
	PassSingle Pass = iota + 1
	// PassCombined matches several targets sharing a group key by their summed amount.
	PassCombined
)

// Match is one transaction and the targets it pays for.
type Match[T Target] struct {
	Transaction *ledger.Transaction
	Targets     []T
	DateDiff    int // Whole days between posting and the target date
	Pass        Pass
}

// Assignment is the outcome of a matching run. Every transaction and every
// target appears in exactly one of matched or unmatched.
type Assignment[T Target] struct {
	// Matches in transaction input order.
	Matches               []Match[T]
	UnmatchedTransactions []*ledger.Transaction
	UnmatchedTargets      []T
}

// Targets returns the targets matched to the transaction with the given ID.
func (a *Assignment[T]) Targets(txnID string) []T {
	for _, m := range a.Matches {
		if m.Transaction.ID == txnID {
			return m.Targets
		}
	}
	return nil
}

// MatchedTargets returns every matched target in match order.
func (a *Assignment[T]) MatchedTargets() []T {
	var out []T
	for _, m := range a.Matches {
		out = append(out, m.Targets...)
	}
	return out
}
