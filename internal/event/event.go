package event

import (
	"time"

	"mailorder/internal/extract"
)

// Type 是主题分类器给出的封闭事件类型集合。
type Type string

const (
	TypeOrdered                Type = "Ordered"
	TypeShipped                Type = "Shipped"
	TypeDelivered              Type = "Delivered"
	TypeCancelled              Type = "Cancelled"
	TypeReturnRequested        Type = "ReturnRequested"
	TypeReturnDropoffConfirmed Type = "ReturnDropoffConfirmed"
	TypeRefundIssued           Type = "RefundIssued"
	// TypeOther 是合法的终态分类（计数、记日志、不再解析），不是错误。
	TypeOther Type = "Other"
)

// Status 是实体生命周期状态，与事件类型同词汇表（Other 除外）。
type Status string

const (
	StatusOrdered                Status = "Ordered"
	StatusShipped                Status = "Shipped"
	StatusDelivered              Status = "Delivered"
	StatusCancelled              Status = "Cancelled"
	StatusReturnRequested        Status = "ReturnRequested"
	StatusReturnDropoffConfirmed Status = "ReturnDropoffConfirmed"
	StatusRefundIssued           Status = "RefundIssued"
)

// rankTable 给出状态全序。Cancelled 是秩 0 的旁支：记入历史但从不
// 压过任何有秩状态。
var rankTable = map[Status]int{
	StatusOrdered:                1,
	StatusShipped:                2,
	StatusDelivered:              3,
	StatusReturnRequested:        4,
	StatusReturnDropoffConfirmed: 5,
	StatusRefundIssued:           6,
	StatusCancelled:              0,
}

// Rank 返回状态秩；未知状态返回 -1。
func (s Status) Rank() int {
	r, ok := rankTable[s]
	if !ok {
		return -1
	}
	return r
}

// Status 把事件类型映射到实体状态；Other 没有对应状态，返回空。
func (t Type) Status() Status {
	switch t {
	case TypeOrdered:
		return StatusOrdered
	case TypeShipped:
		return StatusShipped
	case TypeDelivered:
		return StatusDelivered
	case TypeCancelled:
		return StatusCancelled
	case TypeReturnRequested:
		return StatusReturnRequested
	case TypeReturnDropoffConfirmed:
		return StatusReturnDropoffConfirmed
	case TypeRefundIssued:
		return StatusRefundIssued
	default:
		return ""
	}
}

// Message 是消息源交给核心的单封邮件句柄。
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Subject   string    `json:"subject"`
	PlainBody string    `json:"plain_body"`
	HTMLBody  string    `json:"html_body"`
	Date      time.Time `json:"date"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// Record 是解析器输出的带类型标签事件记录。除 Type/OrderID/时间戳与
// 消息标识外的字段按事件类型可选：空串 / 0 统一表示未知。
type Record struct {
	Type      Type
	OrderID   string
	EventTime string // RFC3339，运行时区
	LogTime   string
	MessageID string
	ThreadID  string
	Subject   string

	BuyerEmail string
	Seller     string
	Channel    string

	OrderTotal float64
	Currency   string

	ArrivalDate string
	ManageLink  string

	RefundSubtotal       float64
	ShippingAmount       float64
	TotalEstimatedRefund float64
	CardLast4            string
	DropoffBy            string
	DropoffLocation      string
	InvoiceLink          string
	QRLink               string

	Items []extract.Item
}

// Status 返回记录隐含的实体状态。
func (r Record) Status() Status { return r.Type.Status() }
