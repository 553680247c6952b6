package model

import (
	"time"

	"gorm.io/gorm"

	"mailorder/internal/event"
)

// Order 订单实体行：每个 order_id（\d{3}-\d{7}-\d{7}）一行。
// 不变量：Status 恒等于自身历史中秩最高的条目（同秩取最新时间戳）；
// OrderTotal 一经写入只增不减。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderID         string       `gorm:"size:32;uniqueIndex;not null" json:"order_id"`
	Status          event.Status `gorm:"size:32;index" json:"status"`
	StatusChangedAt string       `gorm:"size:40" json:"status_changed_at"`
	// StatusHistory 是 {status, at} 对的紧凑 JSON 数组，按秩降序持久化。
	StatusHistory string `gorm:"type:text" json:"status_history"`

	// 时间戳字段只写一次，此后不再覆盖。
	OrderedAt   string `gorm:"size:40" json:"ordered_at"`
	ShippedAt   string `gorm:"size:40" json:"shipped_at"`
	DeliveredAt string `gorm:"size:40" json:"delivered_at"`

	BuyerEmail      string `gorm:"size:255" json:"buyer_email"`
	Seller          string `gorm:"size:255" json:"seller"`
	PurchaseChannel string `gorm:"size:64" json:"purchase_channel"`

	OrderTotal float64 `json:"order_total"`
	Currency   string  `gorm:"size:8" json:"currency"`

	ArrivalDate string `gorm:"size:16" json:"arrival_date"`
	ManageLink  string `gorm:"size:1024" json:"manage_link"`

	ItemsCount   int     `json:"items_count"`
	ItemsTotal   float64 `json:"items_total"`
	ItemsJSON    string  `gorm:"type:text" json:"items_json"`
	ItemsSummary string  `gorm:"type:text" json:"items_summary"`
}

func (Order) TableName() string { return "orders" }
