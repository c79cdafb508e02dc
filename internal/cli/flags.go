package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/application/tagger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/config"
)

// TaggerFlags are the flags of the tagger command
type TaggerFlags struct {
	ConfigFile string

	ItemsCSV   string
	OrdersCSV  string
	RefundsCSV string

	DryRun         bool
	SkipDryPrint   bool
	PrintUnmatched bool
	Verbose        bool

	VerboseItemize  bool
	NoItemize       bool
	NoTagCategories bool
	NoPredict       bool
	RetagChanged    bool
	PromptRetag     bool
	NumUpdates      int

	SiteDomains    string
	OrderPrefix    string
	RefundPrefix   string
	MerchantFilter string
	CategoryFilter string

	LookbackDays   int
	SnapshotEpoch  int64
	LatestSnapshot bool
	SaveSnapshot   bool
	NoStorage      bool
}

// ParseTaggerFlags parses tagger flags from args (without the program name)
func ParseTaggerFlags(args []string) (*TaggerFlags, error) {
	var f TaggerFlags
	fs := flag.NewFlagSet("tagger", flag.ContinueOnError)
	fs.StringVar(&f.ConfigFile, "config", "config.yaml", "Configuration file path")

	fs.StringVar(&f.ItemsCSV, "items-csv", "", "Items report CSV (required)")
	fs.StringVar(&f.OrdersCSV, "orders-csv", "", "Orders and shipments report CSV (required)")
	fs.StringVar(&f.RefundsCSV, "refunds-csv", "", "Refunds report CSV")

	fs.BoolVar(&f.DryRun, "dry-run", false, "Print proposed changes without sending them")
	fs.BoolVar(&f.SkipDryPrint, "skip-dry-print", false, "Do not print the proposed changes")
	fs.BoolVar(&f.PrintUnmatched, "print-unmatched", false, "List orders and refunds that matched no transaction")
	fs.BoolVar(&f.Verbose, "verbose", false, "Verbose logging")

	fs.BoolVar(&f.VerboseItemize, "verbose-itemize", false, "Itemize shipping, promotions and gift wrap separately")
	fs.BoolVar(&f.NoItemize, "no-itemize", false, "Never split; summarize every order in one entry")
	fs.BoolVar(&f.NoTagCategories, "no-tag-categories", false, "Neither compare nor send categories")
	fs.BoolVar(&f.NoPredict, "do-not-predict-categories", false, "Do not learn categories from previously tagged entries")
	fs.BoolVar(&f.RetagChanged, "retag-changed", false, "Retag previously tagged entries whose itemization changed")
	fs.BoolVar(&f.PromptRetag, "prompt-retag", false, "Ask before retagging each changed entry")
	fs.IntVar(&f.NumUpdates, "num-updates", 0, "Maximum updates to send (0 = all)")

	fs.StringVar(&f.SiteDomains, "site-domains", "", "Comma-separated merchant site domains")
	fs.StringVar(&f.OrderPrefix, "description-prefix-override", "", "Description prefix for order entries")
	fs.StringVar(&f.RefundPrefix, "description-return-prefix-override", "", "Description prefix for refund entries")
	fs.StringVar(&f.MerchantFilter, "merchant-filter", "", "Comma-separated original-description substrings to consider")
	fs.StringVar(&f.CategoryFilter, "category-filter", "", "Comma-separated ledger categories to consider")

	fs.IntVar(&f.LookbackDays, "days", 0, "Fetch ledger transactions from this many days back (0 = config)")
	fs.Int64Var(&f.SnapshotEpoch, "snapshot-epoch", 0, "Replay the stored ledger snapshot with this epoch")
	fs.BoolVar(&f.LatestSnapshot, "latest-snapshot", false, "Replay the newest stored ledger snapshot")
	fs.BoolVar(&f.SaveSnapshot, "save-snapshot", true, "Store fetched ledger state for later replay")
	fs.BoolVar(&f.NoStorage, "no-storage", false, "Do not record runs or snapshots")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks flag combinations.
func (f *TaggerFlags) Validate() error {
	if f.ItemsCSV == "" || f.OrdersCSV == "" {
		return errors.New("both -items-csv and -orders-csv are required")
	}
	if f.NumUpdates < 0 {
		return fmt.Errorf("-num-updates must not be negative, got %d", f.NumUpdates)
	}
	if f.SnapshotEpoch != 0 && f.LatestSnapshot {
		return errors.New("-snapshot-epoch and -latest-snapshot are mutually exclusive")
	}
	if (f.SnapshotEpoch != 0 || f.LatestSnapshot) && f.NoStorage {
		return errors.New("snapshot replay requires storage")
	}
	return nil
}

// RetagMode resolves the retag flags against the configured mode. Prompting
// wins over forcing.
func (f *TaggerFlags) RetagMode(configured string) (retag.Mode, error) {
	switch {
	case f.PromptRetag:
		return retag.ModeInteractive, nil
	case f.RetagChanged:
		return retag.ModeForce, nil
	default:
		return retag.ParseMode(configured)
	}
}

// ToEngineOptions merges flags over the tagger config section
func (f *TaggerFlags) ToEngineOptions(cfg config.TaggerConfig) (tagger.Options, error) {
	mode, err := f.RetagMode(cfg.RetagMode)
	if err != nil {
		return tagger.Options{}, err
	}

	opts := tagger.DefaultOptions()
	opts.RetagMode = mode
	opts.Verbose = f.VerboseItemize || cfg.Verbose
	opts.NoItemize = f.NoItemize || cfg.NoItemize
	opts.IgnoreCategory = f.NoTagCategories || cfg.IgnoreCategory
	opts.PredictCategories = !(f.NoPredict || cfg.NoPredict)
	opts.MaxUpdates = firstPositive(f.NumUpdates, cfg.MaxUpdates)

	opts.OrderPrefix = firstNonEmpty(f.OrderPrefix, cfg.OrderPrefix)
	opts.RefundPrefix = firstNonEmpty(f.RefundPrefix, cfg.RefundPrefix)
	if domains := splitList(f.SiteDomains); len(domains) > 0 {
		opts.SiteDomains = domains
	}
	if merchants := splitList(f.MerchantFilter); len(merchants) > 0 {
		opts.MerchantFilter = merchants
	} else if cfg.MerchantFilter != nil {
		opts.MerchantFilter = cfg.MerchantFilter
	}
	if categories := splitList(f.CategoryFilter); len(categories) > 0 {
		opts.CategoryFilter = categories
	} else {
		opts.CategoryFilter = cfg.CategoryFilter
	}
	return opts, nil
}

// ToRunOptions converts flags to service run options. now anchors the
// lookback window.
func (f *TaggerFlags) ToRunOptions(cfg config.TaggerConfig, now time.Time) tagger.RunOptions {
	days := firstPositive(f.LookbackDays, cfg.LookbackDays)
	var since time.Time
	if days > 0 {
		since = now.AddDate(0, 0, -days)
	}
	return tagger.RunOptions{
		DryRun:         f.DryRun,
		Since:          since,
		SnapshotEpoch:  f.SnapshotEpoch,
		LatestSnapshot: f.LatestSnapshot,
		SaveSnapshot:   f.SaveSnapshot && !f.NoStorage,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
