package tagger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
)

// Publisher announces updates sent to the ledger.
type Publisher interface {
	PublishUpdate(ctx context.Context, runID string, outcome retag.Outcome, update ledger.Update) error
}

// Reports are the parsed merchant exports for one run.
type Reports struct {
	Items   []*merchant.Item
	Orders  []*merchant.Order
	Refunds []*merchant.Refund
}

// RunOptions controls where ledger state comes from and whether updates are sent.
type RunOptions struct {
	DryRun bool
	// Since bounds the ledger fetch.
	Since time.Time
	// SnapshotEpoch replays a stored snapshot instead of fetching. Zero fetches.
	SnapshotEpoch int64
	// LatestSnapshot replays the newest stored snapshot.
	LatestSnapshot bool
	// SaveSnapshot stores freshly fetched state for later replay.
	SaveSnapshot bool
}

// Report is the outcome of one service run.
type Report struct {
	*Result
	RunID         string
	SnapshotEpoch int64
	Applied       int
	Failed        int
	Errors        []error
}

// Service wires the engine to the ledger, storage and event stream.
type Service struct {
	engine    *Engine
	source    ledger.Source
	applier   *Applier
	repo      storage.Repository
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a service. repo and publisher may be nil.
func NewService(engine *Engine, client ledger.Client, ignoreCategory bool, repo storage.Repository, publisher Publisher, logger *slog.Logger) *Service {
	s := &Service{
		engine:    engine,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
	if client != nil {
		s.source = client
		s.applier = NewApplier(client, ignoreCategory, logger)
	}
	return s
}

// Run loads ledger state, runs the engine and, unless dry-running, applies the
// resulting updates.
func (s *Service) Run(ctx context.Context, reports Reports, opts RunOptions) (*Report, error) {
	snapshot, err := s.loadState(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{SnapshotEpoch: snapshot.Epoch}

	// Start run tracking
	if s.repo != nil {
		report.RunID, err = s.repo.StartRun(opts.DryRun, string(s.engine.opts.RetagMode))
		if err != nil {
			s.logWarn("Failed to start run tracking", "error", err)
		}
	}

	result, err := s.engine.Run(ctx, Input{
		Items:        reports.Items,
		Orders:       reports.Orders,
		Refunds:      reports.Refunds,
		Transactions: snapshot.Transactions,
		Categories:   snapshot.Categories,
	})
	if err != nil {
		status := storage.RunStatusFailed
		if errors.Is(err, retag.ErrAborted) {
			status = storage.RunStatusAborted
		}
		s.completeRun(report.RunID, status, nil)
		return nil, err
	}
	report.Result = result

	outcomes := make(map[string]retag.Outcome, len(result.Decisions))
	for _, d := range result.Decisions {
		outcomes[d.Update.Original.ID] = d.Outcome
	}
	s.recordUpdates(report.RunID, result.Updates, outcomes)

	if !opts.DryRun && len(result.Updates) > 0 {
		if s.applier == nil {
			s.completeRun(report.RunID, storage.RunStatusFailed, result.Stats.Map())
			return nil, fmt.Errorf("no ledger client configured to apply %d updates", len(result.Updates))
		}
		s.apply(ctx, report, outcomes)
	}

	stats := result.Stats.Map()
	stats["applied"] = report.Applied
	stats["apply_failed"] = report.Failed
	status := storage.RunStatusCompleted
	if report.Failed > 0 {
		status = storage.RunStatusPartial
	}
	s.completeRun(report.RunID, status, stats)

	s.logInfo("Run complete",
		"run_id", report.RunID,
		"dry_run", opts.DryRun,
		"updates", len(result.Updates),
		"applied", report.Applied,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Service) apply(ctx context.Context, report *Report, outcomes map[string]retag.Outcome) {
	for _, u := range report.Updates {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			report.Failed += len(report.Updates) - report.Applied - report.Failed
			return
		}
		if err := s.applier.Apply(ctx, u); err != nil {
			s.logError("Failed to apply update", "transaction_id", u.Original.ID, "error", err)
			report.Errors = append(report.Errors, err)
			report.Failed++
			continue
		}
		report.Applied++

		if s.repo != nil && report.RunID != "" {
			if err := s.repo.MarkApplied(report.RunID, u.Original.ID); err != nil {
				s.logWarn("Failed to mark update applied", "transaction_id", u.Original.ID, "error", err)
			}
		}
		if s.publisher != nil {
			if err := s.publisher.PublishUpdate(ctx, report.RunID, outcomes[u.Original.ID], u); err != nil {
				s.logWarn("Failed to publish update event", "transaction_id", u.Original.ID, "error", err)
			}
		}
	}
}

// loadState replays a snapshot or fetches fresh ledger state.
func (s *Service) loadState(ctx context.Context, opts RunOptions) (*storage.Snapshot, error) {
	if opts.SnapshotEpoch != 0 || opts.LatestSnapshot {
		if s.repo == nil {
			return nil, fmt.Errorf("snapshot replay requires storage")
		}
		var snapshot *storage.Snapshot
		var err error
		if opts.SnapshotEpoch != 0 {
			snapshot, err = s.repo.GetSnapshot(opts.SnapshotEpoch)
		} else {
			snapshot, err = s.repo.LatestSnapshot()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		s.logInfo("Loaded ledger snapshot", "epoch", snapshot.Epoch, "transactions", len(snapshot.Transactions))
		return snapshot, nil
	}

	if s.source == nil {
		return nil, fmt.Errorf("no ledger client configured")
	}

	s.logDebug("Fetching ledger categories")
	categories, err := s.source.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	s.logDebug("Fetching ledger transactions", "since", opts.Since.Format("2006-01-02"))
	txns, err := s.source.FetchTransactions(ctx, opts.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	s.logDebug("Fetched ledger state", "transactions", len(txns), "categories", len(categories))

	snapshot := &storage.Snapshot{Epoch: time.Now().Unix(), Transactions: txns, Categories: categories}
	if opts.SaveSnapshot && s.repo != nil {
		if err := s.repo.SaveSnapshot(snapshot); err != nil {
			s.logWarn("Failed to save ledger snapshot", "error", err)
		}
	}
	return snapshot, nil
}

func (s *Service) recordUpdates(runID string, updates []ledger.Update, outcomes map[string]retag.Outcome) {
	if s.repo == nil || runID == "" {
		return
	}
	for _, u := range updates {
		record := storage.NewUpdateRecord(runID, u, string(outcomes[u.Original.ID]))
		if err := s.repo.SaveUpdate(record); err != nil {
			s.logWarn("Failed to record update", "transaction_id", u.Original.ID, "error", err)
		}
	}
}

func (s *Service) completeRun(runID, status string, stats map[string]int) {
	if s.repo == nil || runID == "" {
		return
	}
	if err := s.repo.CompleteRun(runID, status, stats); err != nil {
		s.logWarn("Failed to complete run tracking", "run_id", runID, "error", err)
	}
}

func (s *Service) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
