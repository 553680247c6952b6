package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// MarkIngestOnce 用 SetNX 给 message_id 占位：首次摄入返回 true，
// 重复投递返回 false。失败时调用方应放行——收件箱唯一索引是兜底，
// 这里只是省一次下游往返。
func MarkIngestOnce(ctx context.Context, rdb *rd.Client, messageID string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, IngestSeenKey(messageID), 1, ttl).Result()
}
