package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
)

// Applier sends updates to the ledger.
type Applier struct {
	sink           ledger.Sink
	ignoreCategory bool
	logger         *slog.Logger
}

// NewApplier creates an applier. With ignoreCategory set no category is sent.
func NewApplier(sink ledger.Sink, ignoreCategory bool, logger *slog.Logger) *Applier {
	return &Applier{sink: sink, ignoreCategory: ignoreCategory, logger: logger}
}

// Apply sends one update. A single proposed entry edits the original in
// place. Several entries split it; the ledger does not accept notes on a
// split, so each new child is edited with its note afterwards.
func (a *Applier) Apply(ctx context.Context, u ledger.Update) error {
	if !u.IsSplit() {
		req := u.EditRequest(a.ignoreCategory)
		a.logDebug("Sending edit", "transaction_id", req.ID, "merchant", req.Merchant)
		if err := a.sink.Edit(ctx, req); err != nil {
			return fmt.Errorf("failed to edit transaction %s: %w", req.ID, err)
		}
		return nil
	}

	req := u.SplitRequest(a.ignoreCategory)
	a.logDebug("Sending split", "transaction_id", req.ParentID, "lines", len(req.Lines))
	ids, err := a.sink.Split(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to split transaction %s: %w", req.ParentID, err)
	}
	if len(ids) != len(u.Proposed) {
		return fmt.Errorf("split of transaction %s returned %d ids for %d lines", req.ParentID, len(ids), len(u.Proposed))
	}

	for i, id := range ids {
		note := u.Proposed[i].Note
		if note == "" {
			continue
		}
		if err := a.sink.Edit(ctx, ledger.EditRequest{ID: id, Note: note}); err != nil {
			return fmt.Errorf("failed to set note on split child %s of %s: %w", id, req.ParentID, err)
		}
	}
	return nil
}

func (a *Applier) logDebug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
