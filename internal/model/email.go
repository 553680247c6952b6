package model

import (
	"time"

	"gorm.io/gorm"
)

// 解析结果常量。Failed 的消息会在下次运行重试；Partial / Success 不会。
const (
	ParseSuccess = "Success"
	ParsePartial = "Partial"
	ParseFailed  = "Failed"
)

// EmailLog 邮件处理审计行：每封处理过的消息追加一条，只追加不合并。
// parse_result != 'Failed' 的集合即"已处理"排除集。
type EmailLog struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GmailMessageID string `gorm:"size:128;index;not null" json:"gmail_message_id"`
	ThreadID       string `gorm:"size:128;index" json:"thread_id"`
	Subject        string `gorm:"size:500" json:"subject"`
	DetectedType   string `gorm:"size:32" json:"detected_type"`
	OrderID        string `gorm:"size:32;index" json:"order_id"`
	ParseResult    string `gorm:"size:16;index;not null" json:"parse_result"`
	Notes          string `gorm:"type:text" json:"notes"`
	LoggedAt       string `gorm:"size:40" json:"logged_at"`
}

func (EmailLog) TableName() string { return "email_logs" }

// InboundEmail 原始邮件收件箱：摄入链路落库的消息源，运行时按时间窗
// 取候选。MessageID 唯一索引保证重复投递幂等。
type InboundEmail struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	MessageID  string    `gorm:"size:128;uniqueIndex;not null" json:"message_id"`
	ThreadID   string    `gorm:"size:128;index" json:"thread_id"`
	Subject    string    `gorm:"size:500;not null" json:"subject"`
	PlainBody  string    `gorm:"type:text" json:"plain_body"`
	HTMLBody   string    `gorm:"type:text" json:"html_body"`
	FromEmail  string    `gorm:"size:255" json:"from_email"`
	ToEmail    string    `gorm:"size:255" json:"to_email"`
	ReceivedAt time.Time `gorm:"index" json:"received_at"`
}

func (InboundEmail) TableName() string { return "inbound_emails" }
