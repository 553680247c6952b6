package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mailorder/internal/config"
	"mailorder/internal/middleware"
	"mailorder/internal/model"
	"mailorder/internal/pipeline"
	rediskey "mailorder/pkg/redis"
)

// ingestSeenTTL 控制摄入去重占位的保留时长。
const ingestSeenTTL = 7 * 24 * time.Hour

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, runner *pipeline.Runner, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	// Ingest
	r.POST("/api/emails", middleware.RedisRateLimit(rdb, cfg.IngestRateLimit, cfg.IngestRateWindow), ingestEmail(rdb, cfg.EmailEventStream))
	// Runs
	r.POST("/api/runs", triggerRun(runner, cfg.RunAdminToken))
	// Query
	r.GET("/api/orders", listOrders(db))
	r.GET("/api/orders/:order_id", getOrder(db))
	r.GET("/api/email_logs", listEmailLogs(db))
}

// ingestEmail 接收一封原始通知邮件并原子写入 Redis Stream 收件流，
// 由 Relay 异步转 Kafka、Consumer 落收件箱。重复 message_id 直接按
// 已接收返回。
func ingestEmail(rdb *rd.Client, stream string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MessageID  string `json:"message_id"`
			ThreadID   string `json:"thread_id"`
			Subject    string `json:"subject" binding:"required"`
			PlainBody  string `json:"plain_body"`
			HTMLBody   string `json:"html_body"`
			From       string `json:"from"`
			To         string `json:"to"`
			ReceivedAt string `json:"received_at"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.PlainBody == "" && req.HTMLBody == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "plain_body or html_body is required"})
			return
		}
		if req.MessageID == "" {
			req.MessageID = uuid.New().String()
		}
		receivedAt := time.Now()
		if req.ReceivedAt != "" {
			t, err := time.Parse(time.RFC3339, req.ReceivedAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "received_at must be RFC3339"})
				return
			}
			receivedAt = t
		}

		ctx := c.Request.Context()
		first, err := rediskey.MarkIngestOnce(ctx, rdb, req.MessageID, ingestSeenTTL)
		if err == nil && !first {
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
				"message_id": req.MessageID,
				"status":     "duplicate",
			}})
			return
		}

		err = rdb.XAdd(ctx, &rd.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"message_id":  req.MessageID,
				"thread_id":   req.ThreadID,
				"subject":     req.Subject,
				"plain_body":  req.PlainBody,
				"html_body":   req.HTMLBody,
				"from":        req.From,
				"to":          req.To,
				"received_at": receivedAt.Format(time.RFC3339),
			},
		}).Err()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"message_id": req.MessageID,
			"status":     "accepted",
		}})
	}
}

// triggerRun 同步执行一次流水线运行并返回汇总。
func triggerRun(runner *pipeline.Runner, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != adminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid admin token"})
			return
		}
		sum, err := runner.Run()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": sum})
	}
}

// listOrders 查询订单列表。
func listOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Order
		if err := db.Order("updated_at desc").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// getOrder 查询单个订单及其条目行与退货行。
func getOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		var order model.Order
		if err := db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		var items []model.OrderItem
		if err := db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		var returns []model.ReturnItem
		if err := db.Where("order_id = ?", orderID).Find(&returns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"order":        order,
			"items":        items,
			"return_items": returns,
		}})
	}
}

// listEmailLogs 查询处理审计日志（最近优先）。
func listEmailLogs(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.EmailLog
		if err := db.Order("id desc").Limit(200).Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}
