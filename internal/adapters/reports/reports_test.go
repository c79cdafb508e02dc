package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsCSV = `Order Date,Order ID,Title,Category,ASIN/ISBN,Website,Purchase Price Per Unit,Quantity,Shipping Date,Order Status,Carrier Name & Tracking Number,Item Subtotal,Item Subtotal Tax,Item Total
03/08/24,111-2222222-3333333,"Robot, Toy",Toy,B000001,Amazon.com,$20.00,1,03/10/24,Shipped,UPS(1Z999),$20.00,$1.00,$21.00
03/08/24,111-2222222-3333333,Paperback Novel,Paperback,0000002,Amazon.com,$10.00,2,03/10/24,Shipped,UPS(1Z999),"$1,000.00",$0.00,"$1,000.00"
`

func TestReadItems(t *testing.T) {
	items, err := ReadItems(strings.NewReader(itemsCSV))

	require.NoError(t, err)
	require.Len(t, items, 2)

	robot := items[0]
	assert.Equal(t, "111-2222222-3333333", robot.OrderID)
	assert.Equal(t, "Robot, Toy", robot.Title)
	assert.Equal(t, "Toy", robot.Category)
	assert.Equal(t, 1, robot.Quantity)
	assert.Equal(t, money.MustParse("$21.00"), robot.Total)
	assert.Equal(t, "Shipped", robot.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), robot.ShipDate)
	assert.Equal(t, "UPS(1Z999)", robot.Tracking)

	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, money.MustParse("1000"), items[1].Subtotal)
}

func TestReadOrders(t *testing.T) {
	csv := "Order Date,Order ID,Payment Instrument Type,Website,Shipment Date,Subtotal,Shipping Charge,Total Promotions,Tax Charged,Total Charged,Carrier Name & Tracking Number\n" +
		"2024-03-08,111-1,Visa - 1234,Amazon.com,2024-03-10,$40.00,$5.99,$5.99,$2.00,$42.00,UPS(1Z1)\n" +
		"2024-03-08,111-2,Gift Certificate/Card,Amazon.com,N/A,$9.00,$0.00,$0.00,$0.00,$9.00,\n"

	orders, err := ReadOrders(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, money.MustParse("$42.00"), orders[0].TotalCharged)
	assert.Equal(t, money.MustParse("$5.99"), orders[0].Promotion)
	assert.True(t, orders[0].IsShipped())
	assert.True(t, orders[0].IsFreeShipping())

	assert.False(t, orders[1].IsShipped())
	assert.True(t, orders[1].IsGiftCardOnly())
	assert.Zero(t, orders[1].GiftWrap)
}

func TestReadRefunds(t *testing.T) {
	csv := "Order ID,Order Date,Title,Category,Website,Quantity,Refund Date,Refund Amount,Refund Tax Amount\n" +
		"111-1,03/08/24,Robot,Toy,Amazon.com,,03/20/24,$20.00,$1.00\n"

	refunds, err := ReadRefunds(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, 1, refunds[0].Quantity)
	assert.Equal(t, money.MustParse("$21.00"), refunds[0].Total())
	assert.Equal(t, money.MustParse("-$21.00"), refunds[0].TransactAmount())
}

func TestReadItems_MissingColumn(t *testing.T) {
	_, err := ReadItems(strings.NewReader("Order ID,Title\n1,Robot\n"))

	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadOrders_BadAmount(t *testing.T) {
	csv := "Order Date,Order ID,Subtotal,Tax Charged,Total Charged\n03/08/24,1,$1.00,$0.00,lots\n"

	_, err := ReadOrders(strings.NewReader(csv))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "Total Charged")
}

func TestReadRefunds_EmptyAndBlankLines(t *testing.T) {
	refunds, err := ReadRefunds(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, refunds)

	csv := "\ufeffOrder ID,Title,Refund Date,Refund Amount\n,,,\n1,Pen,2024-01-02,$3.00\n"
	refunds, err = ReadRefunds(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, "Amazon.com", refunds[0].Site)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"03/10/24", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"03/10/2024", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := parseDate("yesterday")
	assert.Error(t, err)
}
