package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"

	rediskey "mailorder/pkg/redis"
)

// luaRateLimit：Redis 滑动窗口限流 Lua 脚本（原子操作）
// KEYS[1]=限流key，ARGV[1]=当前时间戳，ARGV[2]=窗口开始时间戳，ARGV[3]=窗口秒数
// 返回：当前窗口内的请求数（如果 >= limit 则返回 -1 表示限流）
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

-- 删除窗口外的旧记录
redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

-- 统计当前窗口内的请求数
local count = redis.call('ZCARD', key)

-- 添加当前请求（如果还没超限）
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// RedisRateLimit Redis 分布式限流（Lua 原子操作 + 按发件地址）。
// 摄入接口的 body 里带 from，解析失败时降级按 IP 限流。
func RedisRateLimit(rdb *rd.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender, err := extractSender(c)
		if err != nil {
			sender = ""
		}

		var key string
		if sender != "" {
			key = rediskey.RateLimitSenderKey(sender)
		} else {
			key = rediskey.RateLimitIPKey(c.ClientIP())
		}

		now := time.Now().Unix()
		windowSec := int64(window.Seconds())
		windowStart := now - windowSec
		member := time.Now().Format("20060102150405.000000000")

		// Lua 原子操作：删除旧记录 + 统计 + 添加 + 设置过期
		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, windowSec, member, limit).Int()

		if err != nil {
			// Redis 出错时放行（降级策略）
			c.Next()
			return
		}

		if res < 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "too many requests",
			})
			return
		}
		c.Next()
	}
}

// extractSender 从请求 body 中解析 from（不消耗 body，可重复读）。
func extractSender(c *gin.Context) (string, error) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}

	// 重置 body，让后续 handler 能继续读
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var req struct {
		From string `json:"from"`
	}
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		return "", err
	}
	return req.From, nil
}
