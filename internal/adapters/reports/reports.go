package reports

import (
	"fmt"
	"io"

	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
)

// Column names in the merchant's report exports.
const (
	colOrderID        = "Order ID"
	colOrderDate      = "Order Date"
	colTitle          = "Title"
	colCategory       = "Category"
	colASIN           = "ASIN/ISBN"
	colWebsite        = "Website"
	colQuantity       = "Quantity"
	colUnitPrice      = "Purchase Price Per Unit"
	colItemSubtotal   = "Item Subtotal"
	colItemTax        = "Item Subtotal Tax"
	colItemTotal      = "Item Total"
	colOrderStatus    = "Order Status"
	colShipmentDate   = "Shipment Date"
	colShippingDate   = "Shipping Date"
	colTracking       = "Carrier Name & Tracking Number"
	colPayment        = "Payment Instrument Type"
	colSubtotal       = "Subtotal"
	colShipping       = "Shipping Charge"
	colTaxCharged     = "Tax Charged"
	colPromotions     = "Total Promotions"
	colGiftWrap       = "Gift Wrap"
	colTotalCharged   = "Total Charged"
	colRefundDate     = "Refund Date"
	colRefundAmount   = "Refund Amount"
	colRefundTax      = "Refund Tax Amount"
	defaultSiteDomain = "Amazon.com"
)

func site(r row) string {
	if s := r.get(colWebsite); s != "" {
		return s
	}
	return defaultSiteDomain
}

// ReadItems parses an Items report.
func ReadItems(r io.Reader) ([]*merchant.Item, error) {
	var items []*merchant.Item
	required := []string{colOrderID, colOrderDate, colTitle, colQuantity, colItemSubtotal, colItemTax, colItemTotal}
	err := readRows(r, required, func(row row) error {
		item, err := parseItem(row)
		if err != nil {
			return fmt.Errorf("items report: %w", err)
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func parseItem(r row) (*merchant.Item, error) {
	item := &merchant.Item{
		OrderID:  r.get(colOrderID),
		Title:    r.get(colTitle),
		Category: r.get(colCategory),
		ASIN:     r.get(colASIN),
		Status:   r.get(colOrderStatus),
		Tracking: r.get(colTracking),
		Site:     site(r),
	}

	var err error
	if item.OrderDate, err = r.date(colOrderDate); err != nil {
		return nil, err
	}
	if item.ShipDate, err = r.date(colShippingDate); err != nil {
		return nil, err
	}
	if item.Quantity, err = r.integer(colQuantity); err != nil {
		return nil, err
	}
	if item.UnitPrice, err = r.amount(colUnitPrice); err != nil {
		return nil, err
	}
	if item.Subtotal, err = r.amount(colItemSubtotal); err != nil {
		return nil, err
	}
	if item.Tax, err = r.amount(colItemTax); err != nil {
		return nil, err
	}
	if item.Total, err = r.amount(colItemTotal); err != nil {
		return nil, err
	}
	return item, nil
}

// ReadOrders parses an Orders and Shipments report.
func ReadOrders(r io.Reader) ([]*merchant.Order, error) {
	var orders []*merchant.Order
	required := []string{colOrderID, colOrderDate, colSubtotal, colTaxCharged, colTotalCharged}
	err := readRows(r, required, func(row row) error {
		order, err := parseOrder(row)
		if err != nil {
			return fmt.Errorf("orders report: %w", err)
		}
		orders = append(orders, order)
		return nil
	})
	return orders, err
}

func parseOrder(r row) (*merchant.Order, error) {
	order := &merchant.Order{
		OrderID:               r.get(colOrderID),
		PaymentInstrumentType: r.get(colPayment),
		Tracking:              r.get(colTracking),
		Site:                  site(r),
	}

	var err error
	if order.OrderDate, err = r.date(colOrderDate); err != nil {
		return nil, err
	}
	if order.ShipDate, err = r.date(colShipmentDate); err != nil {
		return nil, err
	}
	if order.Subtotal, err = r.amount(colSubtotal); err != nil {
		return nil, err
	}
	if order.Shipping, err = r.amount(colShipping); err != nil {
		return nil, err
	}
	if order.Tax, err = r.amount(colTaxCharged); err != nil {
		return nil, err
	}
	if order.Promotion, err = r.amount(colPromotions); err != nil {
		return nil, err
	}
	if order.GiftWrap, err = r.amount(colGiftWrap); err != nil {
		return nil, err
	}
	if order.TotalCharged, err = r.amount(colTotalCharged); err != nil {
		return nil, err
	}
	return order, nil
}

// ReadRefunds parses a Refunds report.
func ReadRefunds(r io.Reader) ([]*merchant.Refund, error) {
	var refunds []*merchant.Refund
	required := []string{colOrderID, colTitle, colRefundDate, colRefundAmount}
	err := readRows(r, required, func(row row) error {
		refund, err := parseRefund(row)
		if err != nil {
			return fmt.Errorf("refunds report: %w", err)
		}
		refunds = append(refunds, refund)
		return nil
	})
	return refunds, err
}

func parseRefund(r row) (*merchant.Refund, error) {
	refund := &merchant.Refund{
		OrderID:  r.get(colOrderID),
		Title:    r.get(colTitle),
		Category: r.get(colCategory),
		ASIN:     r.get(colASIN),
		Site:     site(r),
	}

	var err error
	if refund.OrderDate, err = r.date(colOrderDate); err != nil {
		return nil, err
	}
	if refund.RefundDate, err = r.date(colRefundDate); err != nil {
		return nil, err
	}
	if refund.Quantity, err = r.integer(colQuantity); err != nil {
		return nil, err
	}
	if refund.Quantity == 0 {
		refund.Quantity = 1
	}
	if refund.Amount, err = r.amount(colRefundAmount); err != nil {
		return nil, err
	}
	if refund.Tax, err = r.amount(colRefundTax); err != nil {
		return nil, err
	}
	return refund, nil
}
