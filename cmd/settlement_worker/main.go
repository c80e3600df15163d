package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/data/mongo"
	"github.com/pawsitter-settlement/internal/data/postgres"
	"github.com/pawsitter-settlement/internal/ledger"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/lock"
	"github.com/pawsitter-settlement/internal/platform/messaging/consumers"
	"github.com/pawsitter-settlement/internal/platform/messaging/producers"
	"github.com/pawsitter-settlement/internal/platform/persistence"
	"github.com/pawsitter-settlement/internal/settlement_worker/consumer"
	"github.com/pawsitter-settlement/internal/settlement_worker/outbox_relay"
	"github.com/pawsitter-settlement/internal/settlement_worker/sweeper"
)

const shutdownTimeout = 30 * time.Second

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	transactionRepo := postgres.NewWalletTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())
	store := ledger.NewStore(walletRepo, transactionRepo, outboxRepo, cfg.Settlement.Currency, log)

	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure journal indexes", "error", err)
		os.Exit(1)
	}

	// The lock is optional; without Redis every replica sweeps and row locks keep it correct
	var locker sweeper.Locker
	if redisClient != nil {
		locker = lock.NewRedisLock(redisClient, log)
	}
	maturationSweeper, err := sweeper.NewSweeper(log, cfg.Sweeper, cfg.WorkerPool.Size, postgresDB, transactionRepo, store, locker)
	if err != nil {
		log.Error("Failed to initialize maturation sweeper", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewWalletEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize wallet event producer", "error", err)
		os.Exit(1)
	}
	relay := outbox_relay.NewRelay(&cfg.Outbox, outboxRepo, eventProducer, log)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}
	journalHandler := consumer.NewJournalEventHandler(log, journalRepo, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		maturationSweeper.Start(appCtx)
	}()
	go func() {
		defer wg.Done()
		relay.Start(appCtx)
	}()
	go func() {
		defer wg.Done()
		if err := kafkaConsumer.Run(appCtx, journalHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("journal consumer error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	maturationSweeper.Shutdown(5 * time.Second)

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing wallet event producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ producer", "error", err)
	}
	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Settlement Worker shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Settlement Worker shutdown completed")
}
