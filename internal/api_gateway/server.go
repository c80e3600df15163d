package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawsitter-settlement/internal/api_gateway/handler"
	"github.com/pawsitter-settlement/internal/api_gateway/middleware"
	"github.com/pawsitter-settlement/internal/api_gateway/service"
	"github.com/pawsitter-settlement/internal/config"
)

// idle clients are dropped from the rate limiter after this long
const rateLimitClientTTL = 10 * time.Minute

// Services bundles what the HTTP layer calls into
type Services struct {
	Settlement   service.SettlementService
	Cancellation service.CancellationService
	Wallet       service.WalletService
	Withdrawal   service.WithdrawalService
	Webhooks     handler.WebhookReconciler
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	bookingHandler := handler.NewBookingHandler(log, services.Settlement, services.Cancellation)
	walletHandler := handler.NewWalletHandler(log, services.Wallet, services.Withdrawal)
	webhookHandler := handler.NewWebhookHandler(log, services.Webhooks, cfg.Webhook)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, rateLimitClientTTL)
	webhookLimiter := middleware.NewRateLimiter(cfg.RateLimit.WebhookRPS, cfg.RateLimit.WebhookBurst, rateLimitClientTTL)

	setupRouter(log, httpRouter, limiter, webhookLimiter, bookingHandler, walletHandler, webhookHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, bounded by the write timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
