package queue

import (
	"fmt"
	"time"
)

// EmailMessage 是进入 Kafka 的原始通知邮件载荷。
type EmailMessage struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	PlainBody  string    `json:"plain_body,omitempty"`
	HTMLBody   string    `json:"html_body,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (m EmailMessage) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	if m.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if m.PlainBody == "" && m.HTMLBody == "" {
		return fmt.Errorf("plain_body or html_body is required")
	}
	if m.ReceivedAt.IsZero() {
		return fmt.Errorf("received_at is required")
	}
	return nil
}
