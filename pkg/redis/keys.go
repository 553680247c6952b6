package redis

import "fmt"

// IngestSeenKey 标记某个 message_id 是否已经进入摄入链路。
func IngestSeenKey(messageID string) string {
	return fmt.Sprintf("mailorder:ingest:seen:%s", messageID)
}

// RateLimitSenderKey 按发件地址限流。
func RateLimitSenderKey(sender string) string {
	return fmt.Sprintf("rate_limit:ingest:sender:%s", sender)
}

// RateLimitIPKey 发件地址缺失时按来源 IP 降级限流。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate_limit:ingest:ip:%s", ip)
}
