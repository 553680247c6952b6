// Package parse 按事件类型把单封邮件组装成带类型标签的事件记录。
// 每个解析器只做字段提取器的组合，不碰合并逻辑。
package parse

import (
	"errors"
	"strings"
	"time"

	"mailorder/internal/event"
	"mailorder/internal/extract"
)

// ErrNoOrderID 表示正文提取不到订单号。对多数事件类型这是该消息的
// 硬失败；调用方可先用主题+全文重试一次提取再放弃。
var ErrNoOrderID = errors.New("parse: order id not found")

// Parser 把一封邮件解析成事件记录。返回 ErrNoOrderID 时记录中其余
// 字段仍然填好，便于调用方补救订单号后继续使用。
type Parser func(msg event.Message, loc *time.Location) (event.Record, error)

var parsers = map[event.Type]Parser{
	event.TypeOrdered:                parseOrdered,
	event.TypeShipped:                parseShipped,
	event.TypeDelivered:              parseDelivered,
	event.TypeCancelled:              parseCancelled,
	event.TypeReturnRequested:        parseReturnRequested,
	event.TypeReturnDropoffConfirmed: parseReturnDropoff,
	event.TypeRefundIssued:           parseRefundIssued,
}

// ForType 返回类型对应的解析器；Other 没有解析器。
func ForType(t event.Type) (Parser, bool) {
	p, ok := parsers[t]
	return p, ok
}

// Body 返回可提取正文：纯文本优先，空则由 HTML 降级得到。
func Body(msg event.Message) string {
	if strings.TrimSpace(msg.PlainBody) != "" {
		return msg.PlainBody
	}
	return extract.StripHTML(msg.HTMLBody)
}

// base 组装所有事件类型共有的字段。
func base(t event.Type, msg event.Message, loc *time.Location) event.Record {
	rec := event.Record{
		Type:       t,
		EventTime:  msg.Date.In(loc).Format(time.RFC3339),
		LogTime:    time.Now().In(loc).Format(time.RFC3339),
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		Subject:    msg.Subject,
		BuyerEmail: addressOf(msg.To),
		Channel:    domainOf(msg.From),
	}
	return rec
}

func finish(rec event.Record, text string) (event.Record, error) {
	rec.OrderID = extract.OrderID(text)
	if rec.OrderID == "" {
		return rec, ErrNoOrderID
	}
	return rec, nil
}

func parseOrdered(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeOrdered, msg, loc)
	text := Body(msg)

	if v, cur, ok := extract.Amount(text, `Order Total|Grand Total|Total`); ok {
		rec.OrderTotal = v
		rec.Currency = cur
	}
	rec.ArrivalDate = extract.Date(text, `Arriving|Delivery estimate|Arrives`, msg.Date.Year())
	rec.ManageLink = extract.LabeledLink(text, "manage order")
	rec.Seller = extract.LabeledText(text, "Sold by")

	// 下单确认既有方括号模板也有更宽松的星号行模板
	rec.Items = extract.BracketedItems(text)
	if len(rec.Items) == 0 {
		rec.Items = extract.StarredItems(text)
	}
	return finish(rec, text)
}

func parseShipped(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeShipped, msg, loc)
	text := Body(msg)
	rec.ArrivalDate = extract.Date(text, `Arriving|Now expected|Arrives`, msg.Date.Year())
	rec.ManageLink = extract.LabeledLink(text, "track package")
	return finish(rec, text)
}

func parseDelivered(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeDelivered, msg, loc)
	text := Body(msg)
	rec.ManageLink = extract.LabeledLink(text, "view order")
	return finish(rec, text)
}

func parseCancelled(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeCancelled, msg, loc)
	text := Body(msg)
	if v, cur, ok := extract.Amount(text, `Refund Total|Order Total|Total`); ok {
		rec.OrderTotal = v
		rec.Currency = cur
	}
	return finish(rec, text)
}

func parseReturnRequested(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeReturnRequested, msg, loc)
	text := Body(msg)

	if v, cur, ok := extract.Amount(text, `Refund [Ss]ubtotal`); ok {
		rec.RefundSubtotal = v
		rec.Currency = cur
	}
	if v, _, ok := extract.Amount(text, `Shipping`); ok {
		rec.ShippingAmount = v
	}
	if v, _, ok := extract.Amount(text, `Total estimated refund|Estimated refund`); ok {
		rec.TotalEstimatedRefund = v
	}
	rec.CardLast4 = extract.CardLast4(text)
	rec.DropoffBy = extract.Date(text, `[Dd]rop ?off by|Return by`, msg.Date.Year())
	rec.DropoffLocation = extract.LabeledText(text, "dropoff location")
	if rec.DropoffLocation == "" {
		rec.DropoffLocation = extract.LabeledText(text, "drop off at")
	}
	rec.QRLink = extract.LabeledLink(text, "qr code")
	rec.Items = extract.BracketedItems(text)
	return finish(rec, text)
}

func parseReturnDropoff(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeReturnDropoffConfirmed, msg, loc)
	text := Body(msg)
	rec.DropoffLocation = extract.LabeledText(text, "dropped off at")
	if rec.DropoffLocation == "" {
		rec.DropoffLocation = extract.LabeledText(text, "dropoff location")
	}
	rec.Items = extract.BracketedItems(text)
	return finish(rec, text)
}

func parseRefundIssued(msg event.Message, loc *time.Location) (event.Record, error) {
	rec := base(event.TypeRefundIssued, msg, loc)
	text := Body(msg)

	if v, cur, ok := extract.Amount(text, `Refund [Tt]otal|Total refund`); ok {
		rec.TotalEstimatedRefund = v
		rec.Currency = cur
	}
	if v, _, ok := extract.Amount(text, `Refund [Ss]ubtotal`); ok {
		rec.RefundSubtotal = v
	}
	rec.CardLast4 = extract.CardLast4(text)
	rec.InvoiceLink = extract.LabeledLink(text, "invoice")
	rec.Items = extract.BracketedItems(text)
	return finish(rec, text)
}

// addressOf 从 "Name <a@b>" 形式的邮箱头里取纯地址。
func addressOf(header string) string {
	if i := strings.IndexByte(header, '<'); i >= 0 {
		if j := strings.IndexByte(header[i:], '>'); j > 0 {
			return header[i+1 : i+j]
		}
	}
	return strings.TrimSpace(header)
}

// domainOf 取发件地址的域名作为购买渠道。
func domainOf(header string) string {
	addr := addressOf(header)
	if i := strings.IndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return ""
}
