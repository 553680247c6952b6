package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka 集群地址（逗号分隔）、Topic、消费者组
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Redis Stream 收件箱（API 原子入流，Relay 异步转 Kafka）
	EmailEventStream   string
	EmailEventGroup    string
	EmailEventConsumer string

	// 运行参数：时区、候选时间窗与消息/线程双重封顶
	Timezone      string
	RunWindowDays int
	MaxMessages   int
	MaxThreads    int

	// 摄入接口限流
	IngestRateLimit  int
	IngestRateWindow time.Duration

	// 触发运行的简单管理员令牌（demo 级别保护）
	RunAdminToken string
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "mailorder.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "mailorder-emails"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "mailorder-email-consumer"),
		EmailEventStream:   getEnv("EMAIL_EVENT_STREAM", "mailorder:email_events"),
		EmailEventGroup:    getEnv("EMAIL_EVENT_GROUP", "mailorder-relay-group"),
		EmailEventConsumer: getEnv("EMAIL_EVENT_CONSUMER", "mailorder-relay-1"),
		Timezone:           getEnv("TIMEZONE", "UTC"),
		RunWindowDays:      30,
		MaxMessages:        500,
		MaxThreads:         200,
		IngestRateLimit:    100,
		IngestRateWindow:   time.Second,
		RunAdminToken:      getEnv("RUN_ADMIN_TOKEN", "dev-admin-token"),
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	windowDays, err := getEnvInt("RUN_WINDOW_DAYS", cfg.RunWindowDays)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid RUN_WINDOW_DAYS: %w", err)
	}
	if windowDays <= 0 {
		return AppConfig{}, fmt.Errorf("RUN_WINDOW_DAYS must be > 0")
	}
	cfg.RunWindowDays = windowDays

	maxMessages, err := getEnvInt("MAX_MESSAGES", cfg.MaxMessages)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid MAX_MESSAGES: %w", err)
	}
	if maxMessages <= 0 {
		return AppConfig{}, fmt.Errorf("MAX_MESSAGES must be > 0")
	}
	cfg.MaxMessages = maxMessages

	maxThreads, err := getEnvInt("MAX_THREADS", cfg.MaxThreads)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid MAX_THREADS: %w", err)
	}
	if maxThreads <= 0 {
		return AppConfig{}, fmt.Errorf("MAX_THREADS must be > 0")
	}
	cfg.MaxThreads = maxThreads

	rateLimit, err := getEnvInt("INGEST_RATE_LIMIT", cfg.IngestRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid INGEST_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("INGEST_RATE_LIMIT must be > 0")
	}
	cfg.IngestRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("INGEST_RATE_WINDOW_SEC", int(cfg.IngestRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid INGEST_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("INGEST_RATE_WINDOW_SEC must be > 0")
	}
	cfg.IngestRateWindow = time.Duration(rateWindowSec) * time.Second

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return AppConfig{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.EmailEventStream == "" {
		return AppConfig{}, fmt.Errorf("EMAIL_EVENT_STREAM must not be empty")
	}
	if cfg.EmailEventGroup == "" {
		return AppConfig{}, fmt.Errorf("EMAIL_EVENT_GROUP must not be empty")
	}
	if cfg.EmailEventConsumer == "" {
		return AppConfig{}, fmt.Errorf("EMAIL_EVENT_CONSUMER must not be empty")
	}

	return cfg, nil
}

// Location 返回已经校验过的运行时区。
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv 读取字符串环境变量，若为空则返回默认值。
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt 读取整数环境变量，若为空则返回默认值。
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV 将逗号分隔字符串解析为字符串切片。
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
