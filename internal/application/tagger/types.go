package tagger

import (
	"log/slog"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
)

// DefaultSiteDomains are the merchant sites whose description prefixes mark
// an entry as tagged by a previous run.
var DefaultSiteDomains = []string{
	"amazon.com", "amazon.cn", "amazon.in", "amazon.co.jp", "amazon.com.sg",
	"amazon.com.tr", "amazon.fr", "amazon.de", "amazon.it", "amazon.nl",
	"amazon.es", "amazon.co.uk", "amazon.ca", "amazon.com.mx",
	"amazon.com.au", "amazon.com.br",
}

// DefaultMerchantFilter selects ledger entries by original description.
var DefaultMerchantFilter = []string{"amazon", "amzn"}

// Options holds engine configuration
type Options struct {
	Verbose        bool // Itemize shipping, promotions and gift wrap separately
	NoItemize      bool // Always collapse into one summarized entry
	IgnoreCategory bool // Neither compare nor send categories
	RetagMode      retag.Mode
	MaxUpdates     int // 0 = no cap

	SiteDomains  []string
	OrderPrefix  string // Overrides "<site>: "
	RefundPrefix string // Overrides "<site> refund: "

	MerchantFilter []string // Substrings of the original description, case-insensitive
	CategoryFilter []string // Ledger categories to consider; empty = all

	PredictCategories bool              // Learn categories from previously tagged entries
	NativeCategories  map[string]string // Merchant category -> ledger category
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		RetagMode:         retag.ModeOff,
		SiteDomains:       DefaultSiteDomains,
		MerchantFilter:    DefaultMerchantFilter,
		PredictCategories: true,
	}
}

// Input is everything one run reconciles.
type Input struct {
	Items        []*merchant.Item
	Orders       []*merchant.Order
	Refunds      []*merchant.Refund
	Transactions []*ledger.Transaction
	Categories   map[string]string // Ledger category name -> ID
}

// Stats are the run's summary counters.
type Stats struct {
	ItemsCancelled   int `json:"items_cancelled"`
	ItemsUnshipped   int `json:"items_unshipped"`
	ItemsNoQuantity  int `json:"items_no_quantity"`
	OrdersWithItems  int `json:"orders_with_items"`
	ItemsAssociated  int `json:"items_associated"`
	HistoryItems     int `json:"history_items"`
	Trans            int `json:"trans"`
	MerchantInDesc   int `json:"merchant_in_desc"`
	Pending          int `json:"pending"`
	CategoryFiltered int `json:"category_filtered"`

	TransMatch    int `json:"trans_match"`
	TransUnmatch  int `json:"trans_unmatch"`
	OrderMatch    int `json:"order_match"`
	OrderUnmatch  int `json:"order_unmatch"`
	RefundMatch   int `json:"refund_match"`
	RefundUnmatch int `json:"refund_unmatch"`

	SkippedOrdersGiftCard  int `json:"skipped_orders_gift_card"`
	SkippedOrdersUnshipped int `json:"skipped_orders_unshipped"`

	MiscCharge        int `json:"misc_charge"`
	AdjustItemizedTax int `json:"adjust_itemized_tax"`
	PersonalCat       int `json:"personal_cat"`

	AlreadyUpToDate  int `json:"already_up_to_date"`
	NewTag           int `json:"new_tag"`
	Retag            int `json:"retag"`
	NoRetag          int `json:"no_retag"`
	UserSkippedRetag int `json:"user_skipped_retag"`
}

// Map flattens the counters for storage.
func (s Stats) Map() map[string]int {
	return map[string]int{
		"items_cancelled":          s.ItemsCancelled,
		"items_unshipped":          s.ItemsUnshipped,
		"items_no_quantity":        s.ItemsNoQuantity,
		"orders_with_items":        s.OrdersWithItems,
		"items_associated":         s.ItemsAssociated,
		"history_items":            s.HistoryItems,
		"trans":                    s.Trans,
		"merchant_in_desc":         s.MerchantInDesc,
		"pending":                  s.Pending,
		"category_filtered":        s.CategoryFiltered,
		"trans_match":              s.TransMatch,
		"trans_unmatch":            s.TransUnmatch,
		"order_match":              s.OrderMatch,
		"order_unmatch":            s.OrderUnmatch,
		"refund_match":             s.RefundMatch,
		"refund_unmatch":           s.RefundUnmatch,
		"skipped_orders_gift_card": s.SkippedOrdersGiftCard,
		"skipped_orders_unshipped": s.SkippedOrdersUnshipped,
		"misc_charge":              s.MiscCharge,
		"adjust_itemized_tax":      s.AdjustItemizedTax,
		"personal_cat":             s.PersonalCat,
		"already_up_to_date":       s.AlreadyUpToDate,
		"new_tag":                  s.NewTag,
		"retag":                    s.Retag,
		"no_retag":                 s.NoRetag,
		"user_skipped_retag":       s.UserSkippedRetag,
	}
}

// Origin identifies what a matched ledger entry paid for.
type Origin struct {
	OrderID    string
	InvoiceURL string
	Refund     bool
}

// Unmatched lists everything matching could not pair.
type Unmatched struct {
	Orders       []*merchant.Order
	Refunds      []*merchant.Refund
	Transactions []*ledger.Transaction
}

// Result holds run results
type Result struct {
	// Updates to send, in encounter order and within the cap.
	Updates   []ledger.Update
	Decisions []retag.Decision
	// Origins is keyed by ledger transaction ID.
	Origins   map[string]Origin
	Unmatched Unmatched
	Stats     Stats
}

// Engine runs the reconciliation pipeline over one Input.
type Engine struct {
	opts     Options
	prompter retag.Prompter
	logger   *slog.Logger
}

// NewEngine creates an engine. prompter is only used for interactive retags.
func NewEngine(opts Options, prompter retag.Prompter, logger *slog.Logger) *Engine {
	if len(opts.SiteDomains) == 0 {
		opts.SiteDomains = DefaultSiteDomains
	}
	return &Engine{opts: opts, prompter: prompter, logger: logger}
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logInfo(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) logWarn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
