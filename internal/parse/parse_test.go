package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailorder/internal/event"
)

func msgAt(subject, plain string, at time.Time) event.Message {
	return event.Message{
		ID:        "m1",
		ThreadID:  "t1",
		Subject:   subject,
		PlainBody: plain,
		Date:      at,
		From:      "auto-confirm@shop.example",
		To:        "Buyer <buyer@example.org>",
	}
}

func TestParseOrderedScenario(t *testing.T) {
	body := "Thanks for your order 123-4567890-1234567.\n\n" +
		"[Gadget](https://shop.example/gp/product/B000000001)\n" +
		"Quantity: 2\n\n" +
		"Total\n$56.96\n"
	msg := msgAt("Ordered: Widget", body, time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC))

	p, ok := ForType(event.TypeOrdered)
	require.True(t, ok)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "123-4567890-1234567", rec.OrderID)
	assert.Equal(t, event.StatusOrdered, rec.Status())
	assert.InDelta(t, 56.96, rec.OrderTotal, 0.001)
	assert.Equal(t, "USD", rec.Currency)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "Gadget", rec.Items[0].Title)
	assert.Equal(t, 2, rec.Items[0].Qty)
	assert.Equal(t, "B000000001", rec.Items[0].ProductID)

	assert.Equal(t, "m1", rec.MessageID)
	assert.Equal(t, "buyer@example.org", rec.BuyerEmail)
	assert.Equal(t, "shop.example", rec.Channel)
	assert.Equal(t, "2025-08-10T09:00:00Z", rec.EventTime)
}

func TestParseOrderedSubtotalBeforeTotal(t *testing.T) {
	// 小计先于总计出现时，order_total 必须取 Order Total 而不是 Subtotal
	body := "Order 123-4567890-1234567 confirmed.\n\n" +
		"Item Subtotal: $50.00\nOrder Total: $56.96\n"
	msg := msgAt("Ordered: Gadget", body, time.Now())

	p, _ := ForType(event.TypeOrdered)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, 56.96, rec.OrderTotal, 0.001)
}

func TestParseOrderedStarredFallback(t *testing.T) {
	body := "Order 123-4567890-1234567 confirmed.\n\n* 2 x Gadget - $28.48\n\nOrder Total\n$56.96\n"
	msg := msgAt("Ordered: Gadget", body, time.Now())

	p, _ := ForType(event.TypeOrdered)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, 2, rec.Items[0].Qty)
	assert.InDelta(t, 28.48, rec.Items[0].UnitPrice, 0.001)
}

func TestParseMissingOrderID(t *testing.T) {
	msg := msgAt("Shipped: Widget", "your package is on the way", time.Now())
	p, _ := ForType(event.TypeShipped)
	rec, err := p(msg, time.UTC)
	assert.ErrorIs(t, err, ErrNoOrderID)
	// 记录其余字段仍然可用，调用方补救订单号后可继续
	assert.Equal(t, event.TypeShipped, rec.Type)
	assert.Equal(t, "m1", rec.MessageID)
}

func TestParseReturnRequested(t *testing.T) {
	body := "We received your return request.\n\n" +
		"[Gadget](https://shop.example/gp/product/B000000001)\n" +
		"Order #123-4567890-1234567\n" +
		"Quantity: 1\n\n" +
		"Refund subtotal: $28.48\n" +
		"Total estimated refund: $28.48\n" +
		"Refund will go to your card ending in 4242.\n" +
		"Drop off by Mon, Aug 18\n" +
		"Dropoff location: Locker Plaza\n" +
		"QR code (https://shop.example/qr/1)\n"
	msg := msgAt("Return requested for Gadget", body, time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC))

	p, _ := ForType(event.TypeReturnRequested)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "123-4567890-1234567", rec.OrderID)
	assert.InDelta(t, 28.48, rec.RefundSubtotal, 0.001)
	assert.InDelta(t, 28.48, rec.TotalEstimatedRefund, 0.001)
	assert.Equal(t, "4242", rec.CardLast4)
	assert.Equal(t, "2025-08-18", rec.DropoffBy)
	assert.Equal(t, "Locker Plaza", rec.DropoffLocation)
	assert.Equal(t, "https://shop.example/qr/1", rec.QRLink)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "B000000001", rec.Items[0].ProductID)
}

func TestParseRefundIssued(t *testing.T) {
	body := "Refund total: $28.48 issued to your card ending in 4242.\n" +
		"Order #123-4567890-1234567\n" +
		"View invoice (https://shop.example/invoice/1)\n"
	msg := msgAt("Your refund is complete", body, time.Now())

	p, _ := ForType(event.TypeRefundIssued)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, 28.48, rec.TotalEstimatedRefund, 0.001)
	assert.Equal(t, "4242", rec.CardLast4)
	assert.Equal(t, "https://shop.example/invoice/1", rec.InvoiceLink)
}

func TestParseHTMLFallback(t *testing.T) {
	msg := event.Message{
		ID:       "m2",
		Subject:  "Delivered: Widget",
		HTMLBody: "<div>Your package was delivered.</div><p>Order #123-4567890-1234567</p>",
		Date:     time.Now(),
	}
	p, _ := ForType(event.TypeDelivered)
	rec, err := p(msg, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "123-4567890-1234567", rec.OrderID)
}

func TestForTypeOther(t *testing.T) {
	_, ok := ForType(event.TypeOther)
	assert.False(t, ok)
}
