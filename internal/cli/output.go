package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/application/tagger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/itemizer"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "ledger-tagger (%s mode)\n", mode)
}

// PrintDryRun prints each update as current entries followed by proposed ones
func PrintDryRun(w io.Writer, updates []ledger.Update, origins map[string]tagger.Origin, ignoreCategory bool) {
	for _, u := range updates {
		writeUpdate(w, u, origins[u.Original.ID], ignoreCategory)
	}
}

func writeUpdate(w io.Writer, u ledger.Update, origin tagger.Origin, ignoreCategory bool) {
	kind := "Order"
	if origin.Refund {
		kind = "Refund"
	}
	fmt.Fprintf(w, "\nFor %s %s\nInvoice URL: %s\n", kind, origin.OrderID, origin.InvoiceURL)

	if len(u.Original.Children) > 0 {
		fmt.Fprintln(w)
		for i, c := range u.Original.Children {
			fmt.Fprintf(w, "%d) Current: \t%s\n", i+1, c.DryRunString(false))
		}
	} else {
		fmt.Fprintf(w, "\nCurrent: \t%s\n", u.Original.DryRunString(false))
	}

	if len(u.Proposed) == 1 {
		fmt.Fprintf(w, "\nProposed: \t%s\n", u.Proposed[0].DryRunString(ignoreCategory))
		return
	}
	fmt.Fprintln(w)
	for i, p := range u.Proposed {
		fmt.Fprintf(w, "%d) Proposed: \t%s\n", i+1, p.DryRunString(ignoreCategory))
	}
}

// PrintStats prints the run's counters
func PrintStats(w io.Writer, s tagger.Stats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Items: cancelled=%d unshipped=%d no quantity=%d\n", s.ItemsCancelled, s.ItemsUnshipped, s.ItemsNoQuantity)
	fmt.Fprintf(w, "Orders with items: %d (%d items associated)\n", s.OrdersWithItems, s.ItemsAssociated)
	fmt.Fprintf(w, "Learned item categories: %d\n\n", s.HistoryItems)

	fmt.Fprintf(w, "Transactions: %d\n", s.Trans)
	fmt.Fprintf(w, "Transactions w/ merchant in description: %d\n", s.MerchantInDesc)
	fmt.Fprintf(w, "Transactions ignored: is pending: %d\n", s.Pending)
	fmt.Fprintf(w, "Transactions ignored: category filtered: %d\n\n", s.CategoryFiltered)

	fmt.Fprintf(w, "Orders matched w/ transactions: %d (unmatched orders: %d)\n", s.OrderMatch, s.OrderUnmatch)
	fmt.Fprintf(w, "Refunds matched w/ transactions: %d (unmatched refunds: %d)\n", s.RefundMatch, s.RefundUnmatch)
	fmt.Fprintf(w, "Transactions matched w/ orders/refunds: %d (unmatched: %d)\n\n", s.TransMatch, s.TransUnmatch)

	fmt.Fprintf(w, "Orders skipped: not shipped: %d\n", s.SkippedOrdersUnshipped)
	fmt.Fprintf(w, "Orders skipped: gift card used: %d\n\n", s.SkippedOrdersGiftCard)

	fmt.Fprintf(w, "Order fix-up: incorrect tax itemization: %d\n", s.AdjustItemizedTax)
	fmt.Fprintf(w, "Order fix-up: has a misc charge (e.g. gift wrap): %d\n\n", s.MiscCharge)

	fmt.Fprintf(w, "Transactions ignored; already tagged & up to date: %d\n", s.AlreadyUpToDate)
	fmt.Fprintf(w, "Transactions ignored; ignore retags: %d\n", s.NoRetag)
	fmt.Fprintf(w, "Transactions ignored; user skipped retag: %d\n\n", s.UserSkippedRetag)

	fmt.Fprintf(w, "Transactions with personalized categories: %d\n\n", s.PersonalCat)

	fmt.Fprintf(w, "Transactions to be retagged: %d\n", s.Retag)
	fmt.Fprintf(w, "Transactions to be newly tagged: %d\n", s.NewTag)
}

// PrintUnmatched lists merchant records no transaction paid for, with a
// proposed description, the expected date and amount, and the invoice link
func PrintUnmatched(w io.Writer, u tagger.Unmatched) {
	if len(u.Orders) == 0 && len(u.Refunds) == 0 {
		return
	}
	fmt.Fprintf(w, "\nUnmatched orders (%d) and refunds (%d):\n", len(u.Orders), len(u.Refunds))
	for _, o := range u.Orders {
		titles := make([]string, 0, len(o.Items))
		for _, i := range o.Items {
			titles = append(titles, i.DisplayTitle(0))
		}
		writeUnmatched(w, itemizer.SummarizeTitle(titles, o.Site+": "), o.TransactDate().Format("2006-01-02"), o.TransactAmount().String(), o.InvoiceURL())
	}
	for _, r := range u.Refunds {
		date := "Never refunded!"
		if !r.RefundDate.IsZero() {
			date = r.RefundDate.Format("2006-01-02")
		}
		writeUnmatched(w, itemizer.SummarizeTitle([]string{r.DisplayTitle(0)}, r.Site+" refund: "), date, r.TransactAmount().String(), r.InvoiceURL())
	}
}

func writeUnmatched(w io.Writer, description, date, amount, url string) {
	fmt.Fprintf(w, "%s\n\t%s\t%s\t%s\n\n", description, date, amount, url)
}

// PrintUnmatchedTransactions lists candidate ledger entries nothing matched
func PrintUnmatchedTransactions(w io.Writer, txns []*ledger.Transaction) {
	if len(txns) == 0 {
		return
	}
	fmt.Fprintf(w, "\nUnmatched transactions (%d):\n", len(txns))
	for _, t := range txns {
		fmt.Fprintf(w, "\t%s\n", t.DryRunString(false))
	}
}

// PrintRunSummary prints what the run sent to the ledger
func PrintRunSummary(w io.Writer, report *tagger.Report, dryRun bool) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
	fmt.Fprintf(w, "Summary: Updates=%d Applied=%d Failed=%d\n", len(report.Updates), report.Applied, report.Failed)

	if len(report.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, err := range report.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}

	switch {
	case dryRun && len(report.Updates) > 0:
		fmt.Fprintln(w, "\nDry run: nothing was sent to the ledger.")
	case !dryRun && report.Applied > 0 && report.Failed == 0:
		fmt.Fprintln(w, "\nAll updates applied.")
	}
}
