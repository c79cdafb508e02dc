// Package allocator spreads an amount across weighted shares.
//
// The pro-rata allocator distributes an amount across items proportionally
// to their weights (usually item totals or subtotals):
//
//	share_i = amount * weight_i / sum(weights)
//
// Allocate computes shares to the micro-unit; AllocateCents truncates each
// share to a whole cent so the result survives a two-decimal wire format.
// Either way the shares sum exactly to the amount and whatever rounding
// residue remains is placed on the largest share.
package allocator

import (
	"errors"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// ErrNoWeights is returned when there is nothing to allocate against.
var ErrNoWeights = errors.New("no weights to allocate")

// ErrNegativeWeight is returned for weights below zero.
var ErrNegativeWeight = errors.New("weight cannot be negative")

// Result contains the allocation results.
type Result struct {
	Shares []money.Money
	// LargestIndex is where the rounding residue was placed.
	LargestIndex int
	Residue      money.Money
}

// Allocate distributes amount across weights proportionally. When all
// weights are zero the amount is split evenly, remainder first.
func Allocate(weights []money.Money, amount money.Money) (*Result, error) {
	return allocate(weights, amount, 1)
}

// AllocateCents is Allocate at cent granularity. Every share except the
// largest is a whole number of cents; the largest is too when amount is.
func AllocateCents(weights []money.Money, amount money.Money) (*Result, error) {
	return allocate(weights, amount, money.Cent)
}

func allocate(weights []money.Money, amount, unit money.Money) (*Result, error) {
	if len(weights) == 0 {
		return nil, ErrNoWeights
	}

	// Step 1: Sum weights and find the largest
	var total money.Money
	largest := 0
	for i, w := range weights {
		if w < 0 {
			return nil, ErrNegativeWeight
		}
		total += w
		if w > weights[largest] {
			largest = i
		}
	}

	if total == 0 {
		if unit == money.Cent {
			return &Result{Shares: amount.SplitCents(len(weights))}, nil
		}
		return &Result{Shares: amount.Split(len(weights))}, nil
	}

	// Step 2: Allocate each share, truncated toward zero to the unit
	shares := make([]money.Money, len(weights))
	var allocated money.Money
	amt := amount.Decimal()
	denom := total.Decimal()
	for i, w := range weights {
		s := money.FromDecimal(amt.Mul(w.Decimal()).Div(denom))
		shares[i] = s - s%unit
		allocated += shares[i]
	}

	// Step 3: Fix rounding on the largest share
	residue := amount - allocated
	shares[largest] += residue

	return &Result{
		Shares:       shares,
		LargestIndex: largest,
		Residue:      residue,
	}, nil
}
