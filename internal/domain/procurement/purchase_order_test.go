package procurement

import (
	"errors"
	"testing"

	"github.com/erp/construction/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraft(t *testing.T) *PurchaseOrder {
	t.Helper()
	o, err := NewPurchaseOrder(uuid.New(), 1, uuid.New(), "")
	require.NoError(t, err)
	return o
}

func newSentOrder(t *testing.T, ordered int64) (*PurchaseOrder, *PurchaseOrderLine) {
	t.Helper()
	o := newDraft(t)
	line, err := o.AddLine(uuid.New(), "Cement 50kg", "bag", decimal.NewFromInt(ordered), decimal.RequireFromString("150.00"))
	require.NoError(t, err)
	require.NoError(t, o.Send())
	return o, line
}

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusDraft.CanTransitionTo(OrderStatusSent))
	assert.True(t, OrderStatusDraft.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusSent.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPartial.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusPartial.CanTransitionTo(OrderStatusComplete))
	assert.False(t, OrderStatusComplete.CanTransitionTo(OrderStatusPartial))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusSent))
}

func TestPurchaseOrder_AddLine(t *testing.T) {
	t.Run("recalculates subtotal tax and total", func(t *testing.T) {
		o := newDraft(t)
		_, err := o.AddLine(uuid.New(), "Rebar", "ton", qty(2), decimal.RequireFromString("1250.00"))
		require.NoError(t, err)
		_, err = o.AddLine(uuid.New(), "Sand", "m3", decimal.RequireFromString("1.5"), decimal.RequireFromString("300"))
		require.NoError(t, err)

		assert.Equal(t, "2950.00", o.Subtotal.StringFixed(2))
		assert.Equal(t, "472.00", o.Tax.StringFixed(2))
		assert.Equal(t, "3422.00", o.Total.StringFixed(2))
	})

	t.Run("rejects duplicate product", func(t *testing.T) {
		o := newDraft(t)
		productID := uuid.New()
		_, err := o.AddLine(productID, "Rebar", "ton", qty(1), qty(1))
		require.NoError(t, err)
		_, err = o.AddLine(productID, "Rebar", "ton", qty(1), qty(1))
		assert.True(t, errors.Is(err, shared.ErrDuplicateLine))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		o := newDraft(t)
		_, err := o.AddLine(uuid.New(), "Rebar", "ton", decimal.Zero, qty(1))
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("only drafts accept lines", func(t *testing.T) {
		o, _ := newSentOrder(t, 5)
		_, err := o.AddLine(uuid.New(), "Rebar", "ton", qty(1), qty(1))
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})
}

func TestPurchaseOrder_SendAndCancel(t *testing.T) {
	t.Run("send requires lines", func(t *testing.T) {
		o := newDraft(t)
		assert.True(t, errors.Is(o.Send(), shared.ErrValidation))
	})

	t.Run("send only from draft", func(t *testing.T) {
		o, _ := newSentOrder(t, 5)
		assert.True(t, errors.Is(o.Send(), shared.ErrInvalidTransition))
	})

	t.Run("cancel only from draft", func(t *testing.T) {
		o := newDraft(t)
		require.NoError(t, o.Cancel("wrong supplier"))
		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.True(t, errors.Is(o.Cancel("again"), shared.ErrInvalidTransition))

		sent, _ := newSentOrder(t, 5)
		assert.True(t, errors.Is(sent.Cancel("late"), shared.ErrInvalidTransition))
		assert.Equal(t, OrderStatusSent, sent.Status)
	})
}

func TestPurchaseOrder_Receive(t *testing.T) {
	t.Run("partial then complete then over receipt", func(t *testing.T) {
		o, line := newSentOrder(t, 20)

		moves, err := o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: qty(15)}})
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPartial, o.Status)
		assert.True(t, o.Lines[0].QuantityReceived.Equal(qty(15)))
		require.Len(t, moves, 1)
		assert.Equal(t, line.ProductID, moves[0].ProductID)

		_, err = o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: qty(5)}})
		require.NoError(t, err)
		assert.Equal(t, OrderStatusComplete, o.Status)
		assert.True(t, o.Lines[0].QuantityReceived.Equal(qty(20)))
		assert.NotNil(t, o.CompletedAt)

		_, err = o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: qty(1)}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrOverReceipt), "complete orders are fully received")
		assert.True(t, o.Lines[0].QuantityReceived.Equal(qty(20)))
	})

	t.Run("over receipt on partial order", func(t *testing.T) {
		o, line := newSentOrder(t, 20)
		_, err := o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: qty(20)}})
		require.NoError(t, err)

		o2, line2 := newSentOrder(t, 20)
		_, err = o2.Receive([]ReceiptItem{{LineID: line2.ID, Quantity: qty(21)}})
		assert.True(t, errors.Is(err, shared.ErrOverReceipt))
		assert.Equal(t, OrderStatusSent, o2.Status)
	})

	t.Run("all or nothing across lines", func(t *testing.T) {
		o := newDraft(t)
		a, err := o.AddLine(uuid.New(), "A", "pz", qty(10), qty(1))
		require.NoError(t, err)
		b, err := o.AddLine(uuid.New(), "B", "pz", qty(5), qty(1))
		require.NoError(t, err)
		require.NoError(t, o.Send())
		version := o.Version

		_, err = o.Receive([]ReceiptItem{
			{LineID: a.ID, Quantity: qty(10)},
			{LineID: b.ID, Quantity: qty(6)},
		})
		assert.True(t, errors.Is(err, shared.ErrOverReceipt))
		assert.True(t, o.Lines[0].QuantityReceived.IsZero(), "first line must not be applied")
		assert.True(t, o.Lines[1].QuantityReceived.IsZero())
		assert.Equal(t, OrderStatusSent, o.Status)
		assert.Equal(t, version, o.Version)
	})

	t.Run("items for the same line are summed", func(t *testing.T) {
		o, line := newSentOrder(t, 10)
		_, err := o.Receive([]ReceiptItem{
			{LineID: line.ID, Quantity: qty(6)},
			{LineID: line.ID, Quantity: qty(5)},
		})
		assert.True(t, errors.Is(err, shared.ErrOverReceipt))

		moves, err := o.Receive([]ReceiptItem{
			{LineID: line.ID, Quantity: qty(6)},
			{LineID: line.ID, Quantity: qty(4)},
		})
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.True(t, moves[0].Quantity.Equal(qty(10)))
		assert.Equal(t, OrderStatusComplete, o.Status)
	})

	t.Run("draft orders cannot receive", func(t *testing.T) {
		o := newDraft(t)
		line, err := o.AddLine(uuid.New(), "A", "pz", qty(1), qty(1))
		require.NoError(t, err)
		_, err = o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: qty(1)}})
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
	})

	t.Run("unknown line and bad quantity", func(t *testing.T) {
		o, line := newSentOrder(t, 10)
		_, err := o.Receive([]ReceiptItem{{LineID: uuid.New(), Quantity: qty(1)}})
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = o.Receive([]ReceiptItem{{LineID: line.ID, Quantity: decimal.Zero}})
		assert.True(t, errors.Is(err, shared.ErrValidation))
		_, err = o.Receive(nil)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestPurchaseOrder_ApplyPayment(t *testing.T) {
	o := newDraft(t)
	_, err := o.AddLine(uuid.New(), "Formwork rental", "month", qty(1), decimal.RequireFromString("2586.206896551724"))
	require.NoError(t, err)

	assert.True(t, errors.Is(o.ApplyPayment(qty(1)), shared.ErrInvalidTransition), "drafts cannot be paid")
	require.NoError(t, o.Send())

	half := o.Total.Div(decimal.NewFromInt(2))
	require.NoError(t, o.ApplyPayment(half))
	assert.True(t, o.OutstandingBalance().Equal(o.Total.Sub(half)))

	err = o.ApplyPayment(o.OutstandingBalance().Add(decimal.RequireFromString("0.01")))
	assert.True(t, errors.Is(err, shared.ErrOverpayment))

	require.NoError(t, o.ApplyPayment(o.OutstandingBalance()))
	assert.True(t, o.OutstandingBalance().IsZero())
	assert.True(t, errors.Is(o.ApplyPayment(decimal.NewFromInt(-5)), shared.ErrNegativeAmount))
}
