package tagger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/itemizer"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/merchant"
	"github.com/eshaffer321/ledger-tagger/internal/domain/money"
	"github.com/eshaffer321/ledger-tagger/internal/domain/reconciler"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

// Helper to create test item
func testItem(oid, title, category, subtotal, tax, tracking string) *merchant.Item {
	sub, tx := money.MustParse(subtotal), money.MustParse(tax)
	return &merchant.Item{
		OrderID:   oid,
		OrderDate: day(1),
		Title:     title,
		Category:  category,
		Quantity:  1,
		UnitPrice: sub,
		Subtotal:  sub,
		Tax:       tx,
		Total:     sub + tx,
		Status:    merchant.StatusShipped,
		ShipDate:  day(10),
		Tracking:  tracking,
		Site:      "Amazon.com",
	}
}

// Helper to create test shipment
func testOrder(oid string, shipDay int, subtotal, tax, tracking string) *merchant.Order {
	sub, tx := money.MustParse(subtotal), money.MustParse(tax)
	return &merchant.Order{
		OrderID:               oid,
		OrderDate:             day(1),
		ShipDate:              day(shipDay),
		Subtotal:              sub,
		Tax:                   tx,
		TotalCharged:          sub + tx,
		PaymentInstrumentType: "Visa - 1234",
		Site:                  "Amazon.com",
		Tracking:              tracking,
	}
}

// Helper to create test transaction
func testTxn(id string, postDay int, amount string) *ledger.Transaction {
	m := money.MustParse(amount)
	return &ledger.Transaction{
		ID:               id,
		Date:             day(postDay),
		Merchant:         "Amazon",
		OriginalMerchant: "AMAZON MKTPLACE PMTS",
		Amount:           m,
		Category:         "Shopping",
		Debit:            m > 0,
	}
}

func twoItemInput() Input {
	return Input{
		Items: []*merchant.Item{
			testItem("O1", "Robot", "Toy", "$20.00", "$1.00", ""),
			testItem("O1", "Novel", "Paperback", "$20.00", "$1.00", ""),
		},
		Orders:       []*merchant.Order{testOrder("O1", 10, "$40.00", "$2.00", "")},
		Transactions: []*ledger.Transaction{testTxn("t1", 11, "$42.00")},
		Categories:   map[string]string{"Toys": "cat-toys", "Books": "cat-books", "Shopping": "cat-shop"},
	}
}

func TestEngine_TwoItemOrder(t *testing.T) {
	// Arrange
	engine := NewEngine(DefaultOptions(), nil, nil)

	// Act
	result, err := engine.Run(context.Background(), twoItemInput())

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Updates, 1)
	u := result.Updates[0]
	assert.Equal(t, "t1", u.Original.ID)
	require.Len(t, u.Proposed, 2)

	assert.Equal(t, "Amazon.com: Robot", u.Proposed[0].Merchant)
	assert.Equal(t, money.MustParse("$21.00"), u.Proposed[0].Amount)
	assert.Equal(t, "Toys", u.Proposed[0].Category)
	assert.Equal(t, "cat-toys", u.Proposed[0].CategoryID)

	assert.Equal(t, "Amazon.com: Novel", u.Proposed[1].Merchant)
	assert.Equal(t, money.MustParse("$21.00"), u.Proposed[1].Amount)
	assert.Equal(t, "Books", u.Proposed[1].Category)
	assert.Contains(t, u.Proposed[1].Note, "Order id: O1")

	assert.Equal(t, 1, result.Stats.NewTag)
	assert.Equal(t, 1, result.Stats.TransMatch)
	assert.Equal(t, 1, result.Stats.OrderMatch)
	assert.Equal(t, "O1", result.Origins["t1"].OrderID)
	assert.False(t, result.Origins["t1"].Refund)
}

func TestEngine_DateWindowIsThreeDays(t *testing.T) {
	tests := []struct {
		name    string
		postDay int
		matched bool
	}{
		{"same day", 10, true},
		{"three days after shipping", 13, true},
		{"three days before shipping", 7, true},
		{"four days after shipping", 14, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := twoItemInput()
			in.Transactions = []*ledger.Transaction{testTxn("t1", tt.postDay, "$42.00")}

			result, err := NewEngine(DefaultOptions(), nil, nil).Run(context.Background(), in)

			require.NoError(t, err)
			if tt.matched {
				assert.Len(t, result.Updates, 1)
				assert.Empty(t, result.Unmatched.Transactions)
				return
			}
			assert.Empty(t, result.Updates)
			require.Len(t, result.Unmatched.Transactions, 1)
			assert.Equal(t, "t1", result.Unmatched.Transactions[0].ID)
		})
	}
}

func TestEngine_SplitShipmentChargedTogether(t *testing.T) {
	in := Input{
		Items: []*merchant.Item{
			testItem("O2", "Lamp", "", "$15.00", "$0.00", "UPS(A)"),
			testItem("O2", "Bulb", "", "$20.00", "$0.00", "UPS(B)"),
			testItem("O2", "Cord", "", "$7.00", "$0.00", "UPS(B)"),
		},
		Orders: []*merchant.Order{
			testOrder("O2", 10, "$15.00", "$0.00", "UPS(A)"),
			testOrder("O2", 12, "$27.00", "$0.00", "UPS(B)"),
		},
		Transactions: []*ledger.Transaction{testTxn("t1", 12, "$42.00")},
	}
	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, result.Updates, 1)
	proposed := result.Updates[0].Proposed
	require.Len(t, proposed, 3)
	assert.Equal(t, "Amazon.com: Bulb", proposed[0].Merchant)
	assert.Equal(t, "Amazon.com: Lamp", proposed[1].Merchant)
	assert.Equal(t, "Amazon.com: Cord", proposed[2].Merchant)
	assert.Equal(t, money.MustParse("$42.00"), ledger.SumAmounts(proposed))
	assert.Equal(t, 2, result.Stats.OrderMatch)
	assert.Equal(t, 0, result.Stats.OrderUnmatch)
}

func TestEngine_PreviouslyTaggedUpToDate(t *testing.T) {
	txn := testTxn("t1", 11, "$10.00")
	txn.Merchant = "AMZN Mktp: Widget"
	txn.OriginalMerchant = "AMZN Mktp US*1A2B3C"
	in := Input{
		Items:        []*merchant.Item{testItem("O3", "Widget", "", "$10.00", "$0.00", "")},
		Orders:       []*merchant.Order{testOrder("O3", 10, "$10.00", "$0.00", "")},
		Transactions: []*ledger.Transaction{txn},
	}
	opts := DefaultOptions()
	opts.OrderPrefix = "AMZN Mktp: "
	engine := NewEngine(opts, nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, result.Updates)
	assert.Equal(t, 1, result.Stats.AlreadyUpToDate)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, retag.OutcomeUpToDate, result.Decisions[0].Outcome)
}

func TestEngine_SecondRunIsIdempotent(t *testing.T) {
	ledgerState := newFakeLedger(twoItemInput().Transactions)
	first := twoItemInput()
	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, result.Updates, 1)

	applier := NewApplier(ledgerState, false, nil)
	require.NoError(t, applier.Apply(context.Background(), result.Updates[0]))

	second := twoItemInput()
	second.Transactions = ledgerState.txns
	result, err = engine.Run(context.Background(), second)

	require.NoError(t, err)
	assert.Empty(t, result.Updates)
	assert.Equal(t, 1, result.Stats.AlreadyUpToDate)
	assert.Equal(t, 0, result.Stats.NewTag)
}

func TestEngine_InputNotModified(t *testing.T) {
	in := twoItemInput()
	engine := NewEngine(DefaultOptions(), nil, nil)

	_, err := engine.Run(context.Background(), in)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, in.Orders[0].Items)
	assert.False(t, in.Items[0].Matched)
	assert.Equal(t, "Amazon", in.Transactions[0].Merchant)
}

func TestEngine_Refund(t *testing.T) {
	credit := testTxn("t9", 21, "-$21.00")
	in := Input{
		Refunds: []*merchant.Refund{{
			OrderID:    "O1",
			OrderDate:  day(1),
			Title:      "Robot",
			Category:   "Toy",
			Quantity:   1,
			RefundDate: day(20),
			Amount:     money.MustParse("$20.00"),
			Tax:        money.MustParse("$1.00"),
			Site:       "Amazon.com",
		}},
		Transactions: []*ledger.Transaction{credit},
	}
	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, result.Updates, 1)
	proposed := result.Updates[0].Proposed
	require.Len(t, proposed, 1)
	assert.Equal(t, "Amazon.com refund: Robot", proposed[0].Merchant)
	assert.Equal(t, money.MustParse("-$21.00"), proposed[0].Amount)
	assert.Equal(t, 1, result.Stats.RefundMatch)
	assert.True(t, result.Origins["t9"].Refund)
}

func TestEngine_FiltersAndStats(t *testing.T) {
	in := twoItemInput()
	pending := testTxn("p1", 11, "$42.00")
	pending.Pending = true
	other := testTxn("x1", 11, "$42.00")
	other.OriginalMerchant = "COFFEE SHOP"
	other.Merchant = "Coffee"
	stray := testTxn("s1", 25, "$5.00")
	in.Transactions = append([]*ledger.Transaction{pending, other}, append(in.Transactions, stray)...)

	cancelled := testItem("O1", "Gone", "", "$3.00", "$0.00", "")
	cancelled.Status = merchant.StatusCancelled
	zero := testItem("O1", "Zero", "", "$3.00", "$0.00", "")
	zero.Quantity = 0
	in.Items = append(in.Items, cancelled, zero)

	unshippedItem := testItem("O5", "Later", "", "$8.00", "$0.00", "")
	unshippedItem.Status = "Not yet shipped"
	in.Items = append(in.Items, unshippedItem)

	giftItem := testItem("O6", "Card", "", "$9.00", "$0.00", "")
	gift := testOrder("O6", 10, "$9.00", "$0.00", "")
	gift.PaymentInstrumentType = "Gift Certificate/Card"
	in.Items = append(in.Items, giftItem)
	in.Orders = append(in.Orders, gift)

	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	s := result.Stats
	assert.Equal(t, 4, s.Trans)
	assert.Equal(t, 3, s.MerchantInDesc)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.ItemsCancelled)
	assert.Equal(t, 1, s.ItemsNoQuantity)
	assert.Equal(t, 1, s.ItemsUnshipped)
	assert.Equal(t, 1, s.SkippedOrdersGiftCard)
	assert.Equal(t, 1, s.TransMatch)
	assert.Equal(t, 1, s.TransUnmatch)
	require.Len(t, result.Unmatched.Transactions, 1)
	assert.Equal(t, "s1", result.Unmatched.Transactions[0].ID)
}

func TestEngine_CategoryFilter(t *testing.T) {
	in := twoItemInput()
	opts := DefaultOptions()
	opts.CategoryFilter = []string{"Groceries"}
	engine := NewEngine(opts, nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, result.Updates)
	assert.Equal(t, 1, result.Stats.CategoryFiltered)
	assert.Len(t, result.Unmatched.Orders, 1)
}

func TestEngine_LearnedCategoryOverrides(t *testing.T) {
	in := twoItemInput()
	// A previously itemized purchase tagged the robot as a gift
	old := testTxn("old", 2, "$5.00")
	old.Merchant = "Amazon.com: Robot"
	old.Category = "Gifts"
	in.Transactions = append(in.Transactions, old)
	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, result.Updates, 1)
	assert.Equal(t, "Gifts", result.Updates[0].Proposed[0].Category)
	assert.Equal(t, 1, result.Stats.PersonalCat)
	assert.Equal(t, 1, result.Stats.HistoryItems)
}

func TestEngine_ReconciliationFaultAborts(t *testing.T) {
	in := twoItemInput()
	// Report claims more tax than the items carry and more than was charged
	in.Orders[0].Tax = money.MustParse("$5.00")
	engine := NewEngine(DefaultOptions(), nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.Error(t, err)
	assert.Nil(t, result)
	var fault *reconciler.ReconciliationFault
	assert.True(t, errors.As(err, &fault))
}

func TestEngine_InteractiveAbort(t *testing.T) {
	in := twoItemInput()
	in.Transactions[0].Merchant = "Amazon.com: Something else"
	opts := DefaultOptions()
	opts.RetagMode = retag.ModeInteractive
	engine := NewEngine(opts, abortingPrompter{}, nil)

	result, err := engine.Run(context.Background(), in)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, retag.ErrAborted)
}

func TestEngine_NoItemizeSummarizes(t *testing.T) {
	opts := DefaultOptions()
	opts.NoItemize = true
	engine := NewEngine(opts, nil, nil)

	result, err := engine.Run(context.Background(), twoItemInput())

	require.NoError(t, err)
	require.Len(t, result.Updates, 1)
	proposed := result.Updates[0].Proposed
	require.Len(t, proposed, 1)
	assert.Equal(t, itemizer.SummarizeTitle([]string{"Robot", "Novel"}, "Amazon.com: "), proposed[0].Merchant)
	assert.Equal(t, money.MustParse("$42.00"), proposed[0].Amount)
	assert.Equal(t, itemizer.DefaultCategory, proposed[0].Category)
}

func TestEngine_MaxUpdates(t *testing.T) {
	var in Input
	for i := 1; i <= 3; i++ {
		oid := fmt.Sprintf("O%d", i)
		amount := fmt.Sprintf("$%d.00", 10+i)
		in.Items = append(in.Items, testItem(oid, "Thing "+oid, "", amount, "$0.00", ""))
		in.Orders = append(in.Orders, testOrder(oid, 10, amount, "$0.00", ""))
		in.Transactions = append(in.Transactions, testTxn("t"+oid, 11, amount))
	}
	opts := DefaultOptions()
	opts.MaxUpdates = 2
	engine := NewEngine(opts, nil, nil)

	result, err := engine.Run(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, result.Updates, 2)
	assert.Equal(t, "tO1", result.Updates[0].Original.ID)
	assert.Equal(t, "tO2", result.Updates[1].Original.ID)
	assert.Equal(t, 3, result.Stats.NewTag)
}

func TestStats_Map(t *testing.T) {
	s := Stats{Trans: 4, NewTag: 2, SkippedOrdersGiftCard: 1}

	m := s.Map()

	assert.Equal(t, 4, m["trans"])
	assert.Equal(t, 2, m["new_tag"])
	assert.Equal(t, 1, m["skipped_orders_gift_card"])
	assert.Contains(t, m, "user_skipped_retag")
}

type abortingPrompter struct{}

func (abortingPrompter) Confirm(context.Context, ledger.Update) (bool, error) {
	return false, retag.ErrAborted
}
