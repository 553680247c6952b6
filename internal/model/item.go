package model

import (
	"time"

	"gorm.io/gorm"

	"mailorder/internal/event"
)

// OrderItem 统一生命周期条目行：每个 (order_id, 商品) 一行，跨越
// Ordered → … → RefundIssued 全程。行身份由 ItemKey 决定，同一实物
// 商品在不同邮件（下单确认 vs 退货申请）中必须收敛到同一行。
type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// ItemKey = order_id|asin:{product_id} 或 order_id|t:{规整标题}，
	// 跨运行稳定。
	ItemKey   string `gorm:"size:512;uniqueIndex;not null" json:"item_key"`
	OrderID   string `gorm:"size:32;index;not null" json:"order_id"`
	ProductID string `gorm:"size:16;index" json:"product_id"`
	Title     string `gorm:"size:1024" json:"title"`

	Status          event.Status `gorm:"size:32;index" json:"status"`
	StatusChangedAt string       `gorm:"size:40" json:"status_changed_at"`
	StatusHistory   string       `gorm:"type:text" json:"status_history"`

	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Currency  string  `gorm:"size:8" json:"currency"`
	LineTotal float64 `json:"line_total"`
}

func (OrderItem) TableName() string { return "order_items" }

// ReturnItem 退货/退款行：每个 (order_id, 商品) 的退货生命周期，历史
// 只接受 ReturnRequested / ReturnDropoffConfirmed / RefundIssued 三态。
type ReturnItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ItemKey   string `gorm:"size:512;uniqueIndex;not null" json:"item_key"`
	OrderID   string `gorm:"size:32;index;not null" json:"order_id"`
	ProductID string `gorm:"size:16;index" json:"product_id"`
	Title     string `gorm:"size:1024" json:"title"`

	Status          event.Status `gorm:"size:32;index" json:"status"`
	StatusChangedAt string       `gorm:"size:40" json:"status_changed_at"`
	StatusHistory   string       `gorm:"type:text" json:"status_history"`

	RefundSubtotal       float64 `json:"refund_subtotal"`
	ShippingAmount       float64 `json:"shipping_amount"`
	TotalEstimatedRefund float64 `json:"total_estimated_refund"`
	CardLast4            string  `gorm:"size:4" json:"card_last4"`
	DropoffBy            string  `gorm:"size:16" json:"dropoff_by"`
	DropoffLocation      string  `gorm:"size:255" json:"dropoff_location"`
	InvoiceLink          string  `gorm:"size:1024" json:"invoice_link"`
	QRLink               string  `gorm:"size:1024" json:"qr_link"`
}

func (ReturnItem) TableName() string { return "return_items" }
