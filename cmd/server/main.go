package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mailorder/internal/config"
	"mailorder/internal/pipeline"
	"mailorder/internal/queue"
	"mailorder/internal/router"
	"mailorder/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	st := store.New(db)

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, st)
	defer consumer.Close()

	relay := queue.NewRelay(rdb, producer, cfg.EmailEventStream, cfg.EmailEventGroup, cfg.EmailEventConsumer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)
	go consumer.Run(ctx)

	runner := pipeline.NewRunner(st, cfg.Location(), cfg.RunWindowDays, cfg.MaxThreads, cfg.MaxMessages,
		log.New(os.Stdout, "pipeline ", log.LstdFlags))

	r := gin.Default()
	router.Setup(r, db, rdb, runner, cfg)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("http serve: %v", err)
	}
}
