package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderID(t *testing.T) {
	assert.Equal(t, "123-4567890-1234567", OrderID("Order #123-4567890-1234567 placed"))
	assert.Equal(t, "", OrderID("no order number here"))

	// 幂等：对自身输出再提取得到同一个 id
	id := OrderID("ref 987-6543210-0000001 end")
	assert.Equal(t, id, OrderID("wrapped "+id+" again"))
}

func TestAmount(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		label string
		want  float64
		cur   string
		ok    bool
	}{
		{"label then newline", "Order Total\n$56.96", "Order Total", 56.96, "USD", true},
		{"thousands separated", "Total: $1,234.50 charged", "Total", 1234.50, "USD", true},
		{"euro symbol", "Refund total €12.30", "Refund total", 12.30, "EUR", true},
		{"pound symbol", "Total £9.99", "Total", 9.99, "GBP", true},
		{"iso suffix", "Order Total: 56.96 USD", "Order Total", 56.96, "USD", true},
		{"bare number skipped", "Total items 3 cost $4.20", "Total", 4.20, "USD", true},
		{"label missing", "$56.96", "Order Total", 0, "", false},
		// "Total" 词边界锚定：不得命中 "Subtotal" 内部
		{"subtotal not matched as total", "Item Subtotal: $50.00\nOrder Total: $56.96", "Order Total|Grand Total|Total", 56.96, "USD", true},
		{"only subtotal is no total", "Item Subtotal: $50.00", "Order Total|Grand Total|Total", 0, "", false},
		{"amount out of window", "Total" + string(make([]byte, 200)) + "$5.00", "Total", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, cur, ok := Amount(tc.text, tc.label)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, v, 0.001)
				assert.Equal(t, tc.cur, cur)
			}
		})
	}
}

func TestDate(t *testing.T) {
	assert.Equal(t, "2025-08-18", Date("Arriving: Mon, Aug 18", "Arriving", 2025))
	assert.Equal(t, "2025-01-02", Date("Drop off by Thu, Jan 2", "Drop off by", 2025))
	assert.Equal(t, "2025-12-31", Date("Wednesday, December 31", "", 2025))
	assert.Equal(t, "", Date("Arriving: someday soon", "Arriving", 2025))
	assert.Equal(t, "", Date("Mon, Xyz 18", "", 2025))
	assert.Equal(t, "", Date("no label", "Arriving", 2025))
}

func TestCardLast4(t *testing.T) {
	assert.Equal(t, "4242", CardLast4("refunded to your card ending in 4242"))
	assert.Equal(t, "1211", CardLast4("Visa ending with **1211."))
	assert.Equal(t, "", CardLast4("no card mentioned"))
}

func TestLabeledLink(t *testing.T) {
	t.Run("paren url on same line", func(t *testing.T) {
		got := LabeledLink("Track package (https://x.test/t/1) now", "track package")
		assert.Equal(t, "https://x.test/t/1", got)
	})
	t.Run("bare url on same line", func(t *testing.T) {
		got := LabeledLink("View invoice https://x.test/inv/2", "invoice")
		assert.Equal(t, "https://x.test/inv/2", got)
	})
	t.Run("url on next non-blank line", func(t *testing.T) {
		got := LabeledLink("Your QR code:\n\nhttps://x.test/qr/3", "qr code")
		assert.Equal(t, "https://x.test/qr/3", got)
	})
	t.Run("label missing", func(t *testing.T) {
		assert.Equal(t, "", LabeledLink("nothing here https://x.test", "qr code"))
	})
	t.Run("label without any url", func(t *testing.T) {
		assert.Equal(t, "", LabeledLink("QR code attached below\nno links", "qr code"))
	})
}

func TestLabeledText(t *testing.T) {
	assert.Equal(t, "Locker Plaza", LabeledText("Dropoff location: Locker Plaza", "dropoff location"))
	assert.Equal(t, "Locker Plaza", LabeledText("Dropoff location:\nLocker Plaza", "dropoff location"))
	assert.Equal(t, "", LabeledText("somewhere else", "dropoff location"))
}

func TestBracketedItems(t *testing.T) {
	t.Run("pairs title and quantity", func(t *testing.T) {
		text := "[Gadget](https://shop.test/gp/product/B000000001)\nQuantity: 2\n"
		items := BracketedItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, "Gadget", items[0].Title)
		assert.Equal(t, 2, items[0].Qty)
		assert.Equal(t, "B000000001", items[0].ProductID)
	})

	t.Run("metadata between title and quantity", func(t *testing.T) {
		text := "[Gadget](https://shop.test/gp/product/B000000001)\nOrder #123-4567890-1234567\nSold by Shop\nQuantity: 3\n"
		items := BracketedItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Qty)
	})

	t.Run("pending title without quantity dropped", func(t *testing.T) {
		text := "[Orphan]\nsome text\nmore text\nyet more\n"
		assert.Empty(t, BracketedItems(text))
	})

	t.Run("second title cancels pending first", func(t *testing.T) {
		text := "[First]\n[Second](https://shop.test/gp/product/B000000002)\nQuantity: 1\n"
		items := BracketedItems(text)
		require.Len(t, items, 1)
		assert.Equal(t, "Second", items[0].Title)
	})

	t.Run("no product link", func(t *testing.T) {
		items := BracketedItems("[Plain Item]\nQuantity: 1\n")
		require.Len(t, items, 1)
		assert.Equal(t, "", items[0].ProductID)
	})
}

func TestStarredItems(t *testing.T) {
	text := "* 2 x Gadget - $28.48\n* USB Cable\nnot an item\n"
	items := StarredItems(text)
	require.Len(t, items, 2)
	assert.Equal(t, "Gadget", items[0].Title)
	assert.Equal(t, 2, items[0].Qty)
	assert.InDelta(t, 28.48, items[0].UnitPrice, 0.001)
	assert.Equal(t, "USD", items[0].Currency)
	assert.Equal(t, "USB Cable", items[1].Title)
	assert.Equal(t, 1, items[1].Qty)
	assert.Zero(t, items[1].UnitPrice)
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"USB-C  Cable   (2m)", "usb-c cable 2m"},
		{"Salt &amp; Pepper Set", "salt pepper set"},
		{"Widget!!!", "widget"},
		{"  Gadget  ", "gadget"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTitle(tc.in), tc.in)
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<div>Order Total</div><p>$56.96</p>")
	assert.Contains(t, got, "Order Total")
	assert.Contains(t, got, "$56.96")

	assert.Contains(t, StripHTML("Salt &amp; Pepper"), "Salt & Pepper")
}
