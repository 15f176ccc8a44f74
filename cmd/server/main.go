package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bankdata/bankcore/internal/config"
	"github.com/bankdata/bankcore/internal/events"
	"github.com/bankdata/bankcore/internal/events/kafka"
	"github.com/bankdata/bankcore/internal/handler"
	"github.com/bankdata/bankcore/internal/ledger"
	"github.com/bankdata/bankcore/internal/middleware"
	"github.com/bankdata/bankcore/internal/readmodel"
	"github.com/bankdata/bankcore/internal/store"
	"github.com/bankdata/bankcore/internal/store/memory"
	"github.com/bankdata/bankcore/internal/store/postgres"
)

func main() {
	cfg := config.LoadConfig()

	// Write store (accounts + transaction log share one backend so the
	// per-account atomic unit is enforceable).
	var accounts store.AccountStore
	var txlog store.TransactionLog
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := memory.NewStore()
		accounts, txlog = mem, mem
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		pg := postgres.NewStore(db)
		accounts, txlog = pg, pg
	}

	// Redis (read model store + event streaming)
	redis := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redis.Close()
	{
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redis.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	}

	var publisher events.Publisher
	if cfg.EventsBackend == config.EventsKafka {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	} else {
		publisher = events.NewStreamPublisher(redis)
	}

	views := readmodel.NewAccountViews(accounts, redis)
	ledgerSvc := ledger.NewService(accounts, txlog, views, publisher)

	accountHandler := handler.NewAccountHandler(ledgerSvc, views)
	transactionHandler := handler.NewTransactionHandler(ledgerSvc, ledgerSvc)

	router := gin.Default()
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/accounts", accountHandler.CreateAccount)
		v1.GET("/accounts", accountHandler.ListAccounts)
		v1.GET("/accounts/:accountNumber", accountHandler.GetAccount)
		v1.PATCH("/accounts/:accountNumber", accountHandler.UpdateAccount)
		v1.DELETE("/accounts/:accountNumber", accountHandler.DeleteAccount)

		v1.POST("/accounts/:accountNumber/deposit", transactionHandler.Deposit)
		v1.POST("/accounts/:accountNumber/withdraw", transactionHandler.Withdraw)
		v1.GET("/accounts/:accountNumber/transactions", transactionHandler.ListTransactions)
		v1.POST("/transfers", transactionHandler.Transfer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Projector keeps the read model in step with events published by
	// other instances. Only meaningful on the Redis Streams backend.
	if cfg.EventsBackend != config.EventsKafka {
		projector := readmodel.NewProjector(views, accounts)
		go func() {
			subscriber := events.NewSubscriber(redis, events.SubscriberConfig{
				Group:    "bankcore-readmodel",
				Consumer: "bankcore-consumer-1",
				Stream:   events.LedgerEventsStream,
			}, projector.HandleEvent)
			if err := subscriber.Start(ctx); err != nil {
				log.Printf("Subscriber stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("bankcore starting on port %s (storage=%s, events=%s)", cfg.Port, cfg.StorageDriver, cfg.EventsBackend)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
