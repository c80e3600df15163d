package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pawsitter-settlement/internal/api_gateway"
	"github.com/pawsitter-settlement/internal/api_gateway/service"
	"github.com/pawsitter-settlement/internal/api_gateway/webhook"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/data/mongo"
	"github.com/pawsitter-settlement/internal/data/postgres"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/ledger"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	if cfg.Postgres.MigrationsPath != "" {
		if err := persistence.RunMigrations(log, cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

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

	// Repositories
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	transactionRepo := postgres.NewWalletTransactionRepository(log, postgresDB)
	withdrawalRepo := postgres.NewWithdrawalRepository(log, postgresDB)
	policyRepo := postgres.NewPolicyRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	paymentEvents := postgres.NewPaymentEventRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())

	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure journal indexes", "error", err)
		os.Exit(1)
	}
	if err := seedCancellationPolicy(appCtx, log, policyRepo, cfg.Policy.File); err != nil {
		log.Error("Failed to seed cancellation policy", "error", err)
		os.Exit(1)
	}

	store := ledger.NewStore(walletRepo, transactionRepo, outboxRepo, cfg.Settlement.Currency, log)

	// Webhook reconciliation
	registry := webhook.NewRegistry()
	webhook.NewHandlers(log, bookingRepo, paymentRepo, store, cfg.Settlement.Currency).RegisterAll(registry)
	reconciler := webhook.NewReconciler(log, cfg.Webhook.Secret, postgresDB, paymentEvents, registry)

	services := api_gateway.Services{
		Settlement:   service.NewSettlementService(log, postgresDB, bookingRepo, store, cfg.Settlement),
		Cancellation: service.NewCancellationService(log, postgresDB, bookingRepo, policyRepo, paymentRepo, store),
		Wallet:       service.NewWalletService(walletRepo, transactionRepo, journalRepo),
		Withdrawal:   service.NewWithdrawalService(log, postgresDB, walletRepo, withdrawalRepo, store, cfg.Settlement),
		Webhooks:     reconciler,
	}

	server := api_gateway.NewServer(log, cfg, services)
	log.Info("REST server initialized", "webhook_events", registry.Types())

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pool goes away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil || err != nil {
		log.Error("Server shutdown completed with errors", "error", errors.Join(serverErr, err))
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

// seedCancellationPolicy installs the policy file when no policy is active yet.
// An active policy in the database always wins over the file.
func seedCancellationPolicy(ctx context.Context, log *slog.Logger, repo policy.Repository, path string) error {
	active, err := repo.GetActive(ctx)
	if err == nil {
		log.Info("Using active cancellation policy", "name", active.Name, "rules", len(active.Rules))
		return nil
	}
	if !errors.As(err, &policy.ErrNoActivePolicy{}) {
		return err
	}
	if path == "" {
		log.Warn("No active cancellation policy and no policy file configured, cancellations will fail")
		return nil
	}

	p, err := policy.LoadFile(path)
	if err != nil {
		return err
	}
	if err := repo.CreateActive(ctx, p); err != nil {
		return fmt.Errorf("failed to store cancellation policy: %w", err)
	}
	log.Info("Seeded cancellation policy", "name", p.Name, "file", path, "rules", len(p.Rules))
	return nil
}
