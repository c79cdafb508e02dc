package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/adapters/ledgerclient"
	"github.com/eshaffer321/ledger-tagger/internal/adapters/reports"
	"github.com/eshaffer321/ledger-tagger/internal/application/tagger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/itemizer"
	"github.com/eshaffer321/ledger-tagger/internal/domain/reconciler"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/events"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/logging"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
)

// ErrDataIntegrity marks runs aborted because merchant and ledger numbers
// could not be reconciled. Nothing was sent to the ledger.
var ErrDataIntegrity = errors.New("data integrity check failed")

// Console is where the tagger reads answers and writes its report.
type Console struct {
	In  io.Reader
	Out io.Writer
}

// RunTagger runs the tagger command end to end.
func RunTagger(ctx context.Context, cfg *config.Config, flags *TaggerFlags, console Console) error {
	logger := Logger(cfg, flags.Verbose)

	opts, err := flags.ToEngineOptions(cfg.Tagger)
	if err != nil {
		return err
	}

	in, err := loadReports(flags)
	if err != nil {
		return err
	}
	logger.Info("Loaded merchant reports",
		"items", len(in.Items),
		"orders", len(in.Orders),
		"refunds", len(in.Refunds),
	)

	var repo storage.Repository
	if !flags.NoStorage {
		store, err := storage.NewStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer func() { _ = store.Close() }()
		repo = store
	}

	var publisher tagger.Publisher
	if cfg.Events.Enabled() && !flags.DryRun {
		p := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		defer func() { _ = p.Close() }()
		publisher = p
	}

	client := ledgerclient.New(ledgerclient.Config{
		BaseURL:    cfg.Ledger.BaseURL,
		Token:      cfg.GetAPIKey(cfg.Ledger.Token, "LEDGER_TOKEN"),
		MaxRetries: cfg.Ledger.MaxRetries,
		Timeout:    30 * time.Second,
		Logger:     logger.With("system", "ledger"),
	})

	var prompter retag.Prompter
	if opts.RetagMode == retag.ModeInteractive {
		prompter = NewTerminalPrompter(console.In, console.Out, opts.IgnoreCategory)
	}

	engine := tagger.NewEngine(opts, prompter, logger)
	service := tagger.NewService(engine, client, opts.IgnoreCategory, repo, publisher, logger)

	PrintHeader(console.Out, flags.DryRun)
	report, err := service.Run(ctx, in, flags.ToRunOptions(cfg.Tagger, time.Now()))
	if err != nil {
		return classify(err)
	}

	if flags.DryRun && !flags.SkipDryPrint {
		PrintDryRun(console.Out, report.Updates, report.Origins, opts.IgnoreCategory)
	}
	if flags.PrintUnmatched {
		PrintUnmatched(console.Out, report.Unmatched)
		PrintUnmatchedTransactions(console.Out, report.Unmatched.Transactions)
	}
	PrintStats(console.Out, report.Stats)
	PrintRunSummary(console.Out, report, flags.DryRun)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d updates failed", report.Failed, len(report.Updates))
	}
	return nil
}

func loadReports(flags *TaggerFlags) (tagger.Reports, error) {
	var out tagger.Reports
	var err error

	if out.Items, err = readFile(flags.ItemsCSV, reports.ReadItems); err != nil {
		return out, err
	}
	if out.Orders, err = readFile(flags.OrdersCSV, reports.ReadOrders); err != nil {
		return out, err
	}
	if flags.RefundsCSV != "" {
		if out.Refunds, err = readFile(flags.RefundsCSV, reports.ReadRefunds); err != nil {
			return out, err
		}
	}
	return out, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	records, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// classify tags reconciliation and conservation faults so callers can tell
// bad data from operational failures.
func classify(err error) error {
	var recon *reconciler.ReconciliationFault
	var conservation *itemizer.ConservationFault
	if errors.As(err, &recon) || errors.As(err, &conservation) {
		return fmt.Errorf("%w: %w", ErrDataIntegrity, err)
	}
	return err
}

// Logger returns the tagger's logger for callers that need one before RunTagger.
func Logger(cfg *config.Config, verbose bool) *slog.Logger {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerWithSystem(loggingCfg, "tagger")
}
