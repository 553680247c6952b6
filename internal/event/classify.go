package event

import "strings"

type matchKind int

const (
	matchPrefix matchKind = iota
	matchContains
)

// classifyRules 是有序规则表：对修剪、转小写后的主题做前缀/子串匹配，
// 首个命中即返回。规则顺序有意义——具体措辞排在宽泛关键字之前
// （如 "refund"、"dropped off" 必须先于裸 "return" 判定）。
var classifyRules = []struct {
	kind    matchKind
	pattern string
	typ     Type
}{
	{matchPrefix, "ordered:", TypeOrdered},
	{matchPrefix, "shipped:", TypeShipped},
	{matchPrefix, "delivered:", TypeDelivered},
	{matchContains, "order confirmation", TypeOrdered},
	{matchContains, "your order has been placed", TypeOrdered},
	{matchContains, "has shipped", TypeShipped},
	{matchContains, "has been shipped", TypeShipped},
	{matchContains, "has been delivered", TypeDelivered},
	{matchContains, "was delivered", TypeDelivered},
	{matchContains, "cancel", TypeCancelled},
	{matchContains, "refund", TypeRefundIssued},
	{matchContains, "dropped off", TypeReturnDropoffConfirmed},
	{matchContains, "drop off confirmed", TypeReturnDropoffConfirmed},
	{matchContains, "dropoff", TypeReturnDropoffConfirmed},
	{matchContains, "return requested", TypeReturnRequested},
	{matchContains, "return started", TypeReturnRequested},
	{matchContains, "your return", TypeReturnRequested},
}

// Classify 把邮件主题映射到封闭事件类型集合，总是恰好返回一个类型。
func Classify(subject string) Type {
	s := strings.ToLower(strings.TrimSpace(subject))
	for _, r := range classifyRules {
		switch r.kind {
		case matchPrefix:
			if strings.HasPrefix(s, r.pattern) {
				return r.typ
			}
		case matchContains:
			if strings.Contains(s, r.pattern) {
				return r.typ
			}
		}
	}
	return TypeOther
}
