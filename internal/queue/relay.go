package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// Relay 将 Redis Stream 收件事件异步转发到 Kafka。
// 语义：发布 Kafka 成功后才 ACK Stream，失败则保留消息等待重试。
type Relay struct {
	rdb      *rd.Client
	producer *Producer

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, producer *Producer, stream, group, consumer string) *Relay {
	return &Relay{
		rdb:      rdb,
		producer: producer,
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		log.Printf("relay ensure group: %v", err)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// 先尝试处理当前消费者历史 pending，避免遗留消息长期堆积。
		msgs, err := r.readGroup(ctx, "0", 0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("relay read pending: %v", err)
			time.Sleep(300 * time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			msgs, err = r.readGroup(ctx, ">", 2*time.Second)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("relay read new: %v", err)
				time.Sleep(300 * time.Millisecond)
				continue
			}
		}

		for _, xm := range msgs {
			if err := r.processOne(ctx, xm); err != nil {
				// 发布失败不 ACK，消息会继续保留用于重试。
				log.Printf("relay process message id=%s: %v", xm.ID, err)
				time.Sleep(200 * time.Millisecond)
				break
			}
		}
	}
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	msg, err := parseEmailEvent(xm.Values)
	if err != nil {
		// 脏消息直接 ACK 丢弃，避免阻塞队列。
		if ackErr := r.ackAndDelete(ctx, xm.ID); ackErr != nil {
			return fmt.Errorf("parse failed: %v, ack failed: %w", err, ackErr)
		}
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.producer.Publish(pubCtx, msg); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}

func parseEmailEvent(values map[string]interface{}) (EmailMessage, error) {
	messageID, err := getStreamString(values, "message_id")
	if err != nil {
		return EmailMessage{}, err
	}
	subject, err := getStreamString(values, "subject")
	if err != nil {
		return EmailMessage{}, err
	}
	receivedStr, err := getStreamString(values, "received_at")
	if err != nil {
		return EmailMessage{}, err
	}
	receivedAt, err := time.Parse(time.RFC3339, receivedStr)
	if err != nil {
		return EmailMessage{}, fmt.Errorf("invalid received_at %q", receivedStr)
	}

	msg := EmailMessage{
		MessageID:  messageID,
		ThreadID:   optStreamString(values, "thread_id"),
		Subject:    subject,
		PlainBody:  optStreamString(values, "plain_body"),
		HTMLBody:   optStreamString(values, "html_body"),
		From:       optStreamString(values, "from"),
		To:         optStreamString(values, "to"),
		ReceivedAt: receivedAt,
	}
	if err := msg.Validate(); err != nil {
		return EmailMessage{}, err
	}
	return msg, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}

func optStreamString(values map[string]interface{}, key string) string {
	s, err := getStreamString(values, key)
	if err != nil {
		return ""
	}
	return s
}
