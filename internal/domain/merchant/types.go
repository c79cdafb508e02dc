// Package merchant models the merchant side of reconciliation: the items,
// shipments (orders) and refunds from a merchant's order history reports.
//
// Orders arrive one row per shipment. A purchase split into several
// shipments shares one order ID across rows, and each row is charged
// separately. Items arrive one row per product line and must be normalized
// to unit quantity before they can be attached to the shipment that carried
// them.
package merchant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
)

// Status values reported by the merchant for an item line.
const (
	StatusShipped   = "Shipped"
	StatusCancelled = "Cancelled"
)

// Titles of entries that describe charges rather than products.
const (
	MiscChargeTitle = "Misc Charge (Gift wrap, etc)"
	ShippingTitle   = "Shipping"
	PromotionTitle  = "Promotion(s)"
	GiftWrapTitle   = "Gift Wrap"
)

// IsNonItemTitle reports whether title names a charge rather than a product.
// The comparison ignores case.
func IsNonItemTitle(title string) bool {
	for _, t := range []string{MiscChargeTitle, ShippingTitle, PromotionTitle, GiftWrapTitle} {
		if strings.EqualFold(title, t) {
			return true
		}
	}
	return false
}

// ErrInvalidQuantity is returned when splitting an item whose quantity is not positive.
var ErrInvalidQuantity = errors.New("item quantity must be positive")

// Item is one product line from a shipment.
type Item struct {
	OrderID   string
	OrderDate time.Time
	Title     string
	Category  string // Merchant's native category, if reported
	ASIN      string
	Quantity  int
	UnitPrice money.Money
	Subtotal  money.Money
	Tax       money.Money
	Total     money.Money
	Status    string
	ShipDate  time.Time
	Tracking  string
	Site      string

	// Matched is set once the item has been attached to an order.
	Matched bool
}

// IsCancelled reports whether the merchant cancelled this line.
func (i *Item) IsCancelled() bool {
	return strings.EqualFold(i.Status, StatusCancelled)
}

// IsShipped reports whether the line has shipped (and so has been charged).
func (i *Item) IsShipped() bool {
	return strings.EqualFold(i.Status, StatusShipped)
}

// DisplayTitle returns the title with a quantity marker when quantity > 1,
// truncated to maxLen characters (no limit when maxLen <= 0).
func (i *Item) DisplayTitle(maxLen int) string {
	return titleWithQuantity(i.Title, i.Quantity, maxLen)
}

// Order is one shipment / charge unit.
type Order struct {
	OrderID               string
	OrderDate             time.Time
	ShipDate              time.Time // Zero when not yet shipped
	Subtotal              money.Money
	Tax                   money.Money
	Shipping              money.Money
	Promotion             money.Money
	GiftWrap              money.Money
	TotalCharged          money.Money
	PaymentInstrumentType string
	Site                  string
	Tracking              string
	Items                 []*Item

	// ItemsMatched is set once items were associated with this order.
	ItemsMatched bool
}

// GroupKey implements the matcher target capability. Shipments of one
// purchase share the order ID.
func (o *Order) GroupKey() string { return o.OrderID }

// TransactDate is the date the ledger is expected to post the charge.
func (o *Order) TransactDate() time.Time { return o.ShipDate }

// TransactAmount is the signed amount expected on the ledger (debit > 0).
func (o *Order) TransactAmount() money.Money { return o.TotalCharged }

// IsShipped reports whether the order carries a ship date.
func (o *Order) IsShipped() bool { return !o.ShipDate.IsZero() }

// IsGiftCardOnly reports whether every payment instrument on the order is a
// gift card or certificate, meaning no bank charge will ever post.
func (o *Order) IsGiftCardOnly() bool {
	if o.PaymentInstrumentType == "" {
		return false
	}
	for _, instrument := range strings.Split(o.PaymentInstrumentType, " and ") {
		if !strings.Contains(strings.ToLower(instrument), "gift") {
			return false
		}
	}
	return true
}

// TotalBySubtotals is the charge implied by the declared order-level fields.
func (o *Order) TotalBySubtotals() money.Money {
	return o.Subtotal + o.Tax + o.NonItemCharges()
}

// TotalByItems is the charge implied by the item lines plus non-item charges.
func (o *Order) TotalByItems() money.Money {
	return o.ItemsTotal() + o.NonItemCharges()
}

// ItemsTotal sums item totals.
func (o *Order) ItemsTotal() money.Money {
	var total money.Money
	for _, i := range o.Items {
		total += i.Total
	}
	return total
}

// ItemsTax sums item tax.
func (o *Order) ItemsTax() money.Money {
	var total money.Money
	for _, i := range o.Items {
		total += i.Tax
	}
	return total
}

// NonItemCharges is shipping net of promotions, plus gift wrap.
func (o *Order) NonItemCharges() money.Money {
	return o.Shipping - o.Promotion + o.GiftWrap
}

// IsFreeShipping reports whether a promotion exactly cancels the shipping charge.
func (o *Order) IsFreeShipping() bool {
	return o.Shipping != 0 && o.Promotion != 0 && money.NearlyEqual(o.Shipping, o.Promotion)
}

// InvoiceURL links to the merchant's printable invoice for the order.
func (o *Order) InvoiceURL() string {
	return InvoiceURL(o.Site, o.OrderID)
}

// Note is the ledger note attached to every entry synthesized for this order.
func (o *Order) Note() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order id: %s\n", o.OrderID)
	fmt.Fprintf(&b, "Order date: %s\n", formatDate(o.OrderDate))
	fmt.Fprintf(&b, "Ship date: %s\n", formatDate(o.ShipDate))
	if o.Tracking != "" {
		fmt.Fprintf(&b, "Tracking: %s\n", o.Tracking)
	}
	fmt.Fprintf(&b, "Invoice url: %s", o.InvoiceURL())
	return b.String()
}

// Refund is one returned line.
type Refund struct {
	OrderID    string
	OrderDate  time.Time
	Title      string
	Category   string
	ASIN       string
	Quantity   int
	RefundDate time.Time
	Amount     money.Money // Refund amount before tax
	Tax        money.Money
	Site       string
}

// GroupKey implements the matcher target capability.
func (r *Refund) GroupKey() string { return r.OrderID }

// TransactDate is the date the credit is expected to post.
func (r *Refund) TransactDate() time.Time { return r.RefundDate }

// TransactAmount is the signed ledger amount; refunds post as credits.
func (r *Refund) TransactAmount() money.Money { return -r.Total() }

// Total is the full refunded amount including tax.
func (r *Refund) Total() money.Money { return r.Amount + r.Tax }

// DisplayTitle returns the refunded title with a quantity marker.
func (r *Refund) DisplayTitle(maxLen int) string {
	return titleWithQuantity(r.Title, r.Quantity, maxLen)
}

// InvoiceURL links to the invoice of the refunded order.
func (r *Refund) InvoiceURL() string {
	return InvoiceURL(r.Site, r.OrderID)
}

// Note is the ledger note attached to the synthesized refund entry.
func (r *Refund) Note() string {
	return fmt.Sprintf("Order id: %s\nOrder date: %s\nRefund date: %s\nInvoice url: %s",
		r.OrderID, formatDate(r.OrderDate), formatDate(r.RefundDate), r.InvoiceURL())
}

// InvoiceURL builds the invoice link for a site ("Amazon.com") and order ID.
func InvoiceURL(site, orderID string) string {
	domain := strings.ToLower(strings.TrimSpace(site))
	if domain == "" {
		domain = "amazon.com"
	}
	return fmt.Sprintf("https://www.%s/gp/css/summary/print.html?ie=UTF8&orderID=%s", domain, orderID)
}

var leadingQty = regexp.MustCompile(`^\d+x `)

// RemoveLeadingQuantity strips a leading "3x " marker from a title.
func RemoveLeadingQuantity(title string) string {
	return leadingQty.ReplaceAllString(title, "")
}

// Truncate shortens s to at most n characters, ending in "..." when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func titleWithQuantity(title string, quantity, maxLen int) string {
	if quantity > 1 {
		title = fmt.Sprintf("%dx %s", quantity, title)
	}
	return Truncate(title, maxLen)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.Format("2006-01-02")
}
