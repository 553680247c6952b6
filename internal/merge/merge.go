// Package merge 把同一实体的乱序、重复、残缺观测折叠成单一当前态。
// 折叠必须幂等（同一事件合两次不产生重复历史），并对历史可交换
// （E1、E2 先后互换得到同一当前状态，仅稳定平局规则除外）。
package merge

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"mailorder/internal/event"
	"mailorder/internal/extract"
	"mailorder/internal/model"
)

// ItemKey 派生跨运行稳定的条目键：已知商品 ID 时用
// order_id|asin:{id}，否则退回 order_id|t:{规整标题}。
func ItemKey(orderID, productID, title string) string {
	if productID != "" {
		return orderID + "|asin:" + productID
	}
	return orderID + "|t:" + extract.NormalizeTitle(title)
}

// MergeHistory 把 {status, at} 对合入历史：完全相同的对不重复，但其
// 位置被来件取代（删旧、追加到来件位置）。
func MergeHistory(hist []model.StatusEntry, e model.StatusEntry) []model.StatusEntry {
	if e.Status == "" || e.At == "" {
		return hist
	}
	out := make([]model.StatusEntry, 0, len(hist)+1)
	for _, h := range hist {
		if h.Status == e.Status && h.At == e.At {
			continue
		}
		out = append(out, h)
	}
	return append(out, e)
}

// Current 重算当前状态：取秩最高的历史条目；同秩取 ISO 字符串最新的
// at；完全平局保留数组中更早的条目。来件的状态从不被直接采信。
func Current(hist []model.StatusEntry) (model.StatusEntry, bool) {
	if len(hist) == 0 {
		return model.StatusEntry{}, false
	}
	best := hist[0]
	for _, h := range hist[1:] {
		if h.Status.Rank() > best.Status.Rank() {
			best = h
			continue
		}
		if h.Status.Rank() == best.Status.Rank() && h.At > best.At {
			best = h
		}
	}
	return best, true
}

// SortHistory 按秩降序（同秩按 at 降序）排好序，用于持久化展示。
func SortHistory(hist []model.StatusEntry) []model.StatusEntry {
	out := make([]model.StatusEntry, len(hist))
	copy(out, hist)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Status.Rank(), out[j].Status.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].At > out[j].At
	})
	return out
}

// adoptStr 非空来值覆盖现值；空来值从不抹掉已有值。
func adoptStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func adoptStatusHistory(rawHist *string, status *event.Status, changedAt *string, in model.StatusEntry) {
	hist := MergeHistory(model.DecodeHistory(*rawHist), in)
	cur, ok := Current(hist)
	if !ok {
		return
	}
	*status = cur.Status
	*changedAt = cur.At
	*rawHist = model.EncodeHistory(SortHistory(hist))
}

// Order 把一条事件记录折叠进订单行。规则（条目行同样适用）：
//  1. 来件非空标量覆盖现值，status / event_time 除外（从不直接拷贝）；
//     OrderTotal 额外单调：仅严格变大才替换，挡住后来部分邮件报的小计。
//  2. 事件带 status+event_time 时将 {status, at} 合入历史（精确对去重）。
//  3. 当前状态从历史重算，不信任来件。
//  4. 完整历史持久化回行上。
//  5. ordered_at / shipped_at / delivered_at 首次到达时盖章，此后不覆盖。
func Order(o *model.Order, rec event.Record) {
	adoptStr(&o.OrderID, rec.OrderID)
	adoptStr(&o.BuyerEmail, rec.BuyerEmail)
	adoptStr(&o.Seller, rec.Seller)
	adoptStr(&o.PurchaseChannel, rec.Channel)
	adoptStr(&o.Currency, rec.Currency)
	adoptStr(&o.ArrivalDate, rec.ArrivalDate)
	adoptStr(&o.ManageLink, rec.ManageLink)
	if rec.OrderTotal > o.OrderTotal {
		o.OrderTotal = rec.OrderTotal
	}

	if st := rec.Status(); st != "" && rec.EventTime != "" {
		adoptStatusHistory(&o.StatusHistory, &o.Status, &o.StatusChangedAt,
			model.StatusEntry{Status: st, At: rec.EventTime})
	}

	// set-once 时间戳从历史取对应状态的条目，乱序到达也能盖对
	for _, h := range model.DecodeHistory(o.StatusHistory) {
		switch h.Status {
		case event.StatusOrdered:
			if o.OrderedAt == "" {
				o.OrderedAt = h.At
			}
		case event.StatusShipped:
			if o.ShippedAt == "" {
				o.ShippedAt = h.At
			}
		case event.StatusDelivered:
			if o.DeliveredAt == "" {
				o.DeliveredAt = h.At
			}
		}
	}

	// 新条目清单整体取代旧汇总，不做合并
	if len(rec.Items) > 0 {
		count, total, itemsJSON, summary := ItemSummary(rec.Items)
		o.ItemsCount = count
		o.ItemsTotal = total
		o.ItemsJSON = itemsJSON
		o.ItemsSummary = summary
	}
}

// Item 把一条事件中的单个商品观测折叠进统一生命周期条目行。
func Item(it *model.OrderItem, rec event.Record, in extract.Item) {
	adoptStr(&it.OrderID, rec.OrderID)
	adoptStr(&it.ProductID, in.ProductID)
	adoptStr(&it.Title, in.Title)
	if it.ItemKey == "" {
		it.ItemKey = ItemKey(rec.OrderID, in.ProductID, in.Title)
	}
	if in.Qty > 0 {
		it.Qty = in.Qty
	}
	if in.UnitPrice > 0 {
		it.UnitPrice = in.UnitPrice
	}
	cur := in.Currency
	if cur == "" {
		cur = rec.Currency
	}
	adoptStr(&it.Currency, cur)
	if it.Qty > 0 && it.UnitPrice > 0 {
		it.LineTotal = round2(float64(it.Qty) * it.UnitPrice)
	}

	if st := rec.Status(); st != "" && rec.EventTime != "" {
		adoptStatusHistory(&it.StatusHistory, &it.Status, &it.StatusChangedAt,
			model.StatusEntry{Status: st, At: rec.EventTime})
	}
}

// returnStatuses 限定退货行历史可接受的三个状态。
var returnStatuses = map[event.Status]bool{
	event.StatusReturnRequested:        true,
	event.StatusReturnDropoffConfirmed: true,
	event.StatusRefundIssued:           true,
}

// ReturnItem 把退货类事件中的单个商品观测折叠进退货/退款行。
func ReturnItem(ri *model.ReturnItem, rec event.Record, in extract.Item) {
	adoptStr(&ri.OrderID, rec.OrderID)
	adoptStr(&ri.ProductID, in.ProductID)
	adoptStr(&ri.Title, in.Title)
	if ri.ItemKey == "" {
		ri.ItemKey = ItemKey(rec.OrderID, in.ProductID, in.Title)
	}
	if rec.RefundSubtotal > 0 {
		ri.RefundSubtotal = rec.RefundSubtotal
	}
	if rec.ShippingAmount > 0 {
		ri.ShippingAmount = rec.ShippingAmount
	}
	if rec.TotalEstimatedRefund > 0 {
		ri.TotalEstimatedRefund = rec.TotalEstimatedRefund
	}
	adoptStr(&ri.CardLast4, rec.CardLast4)
	adoptStr(&ri.DropoffBy, rec.DropoffBy)
	adoptStr(&ri.DropoffLocation, rec.DropoffLocation)
	adoptStr(&ri.InvoiceLink, rec.InvoiceLink)
	adoptStr(&ri.QRLink, rec.QRLink)

	if st := rec.Status(); returnStatuses[st] && rec.EventTime != "" {
		adoptStatusHistory(&ri.StatusHistory, &ri.Status, &ri.StatusChangedAt,
			model.StatusEntry{Status: st, At: rec.EventTime})
	}
}

// ItemSummary 按解析出的条目清单计算订单级汇总：总件数、总金额
//（未知单价的条目跳过，两位小数）、紧凑 JSON 与人读摘要。
func ItemSummary(items []extract.Item) (count int, total float64, itemsJSON, summary string) {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		count += it.Qty
		if it.UnitPrice > 0 && it.Qty > 0 {
			line := float64(it.Qty) * it.UnitPrice
			total += line
			parts = append(parts, fmt.Sprintf("%d × %s — %.2f (%.2f)", it.Qty, it.Title, it.UnitPrice, line))
		} else {
			parts = append(parts, fmt.Sprintf("%d × %s", it.Qty, it.Title))
		}
	}
	total = round2(total)
	itemsJSON = encodeItems(items)
	summary = strings.Join(parts, "; ")
	return count, total, itemsJSON, summary
}

func encodeItems(items []extract.Item) string {
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
