package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"mailorder/internal/model"
	"mailorder/internal/store"
)

// Consumer 消费 Kafka 邮件消息并落入收件箱表，等待下一次运行处理。
type Consumer struct {
	r  *kafka.Reader
	st *store.Store
}

func NewConsumer(brokers []string, topic, groupID string, st *store.Store) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		st: st,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run 循环消费直到 ctx 取消或连接断开。脏消息跳过；重复消息由收件箱
// 唯一索引吸收，按幂等成功继续。
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var msg EmailMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := msg.Validate(); err != nil {
			log.Printf("consumer invalid message key=%s: %v", string(m.Key), err)
			continue
		}

		em := &model.InboundEmail{
			MessageID:  msg.MessageID,
			ThreadID:   msg.ThreadID,
			Subject:    msg.Subject,
			PlainBody:  msg.PlainBody,
			HTMLBody:   msg.HTMLBody,
			FromEmail:  msg.From,
			ToEmail:    msg.To,
			ReceivedAt: msg.ReceivedAt,
		}
		if err := c.st.SaveInbound(em); err != nil {
			log.Printf("consumer save inbound: %v", err)
		}
	}
}
