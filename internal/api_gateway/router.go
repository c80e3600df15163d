package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawsitter-settlement/internal/api_gateway/handler"
	"github.com/pawsitter-settlement/internal/api_gateway/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	limiter *middleware.RateLimiter,
	webhookLimiter *middleware.RateLimiter,
	bookingHandler *handler.BookingHandler,
	walletHandler *handler.WalletHandler,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	{
		// Booking settlement and cancellation, owner only
		bookings := v1.Group("/bookings", middleware.CallerIdentity())
		{
			bookings.POST("/:id/complete", bookingHandler.Complete)
			bookings.GET("/:id/refund-quote", bookingHandler.RefundQuote)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
		}

		// Sitter wallet operations
		sitters := v1.Group("/sitters", middleware.CallerIdentity())
		{
			sitters.GET("/:id/wallet", walletHandler.GetWallet)
			sitters.GET("/:id/wallet/transactions", walletHandler.ListTransactions)
			sitters.GET("/:id/wallet/activity", walletHandler.ListActivity)
			sitters.POST("/:id/withdrawals", middleware.RateLimit(limiter), walletHandler.RequestWithdrawal)
		}

		// Gateway callbacks are authenticated by signature, not by caller
		v1.POST("/webhooks/payments", middleware.RateLimit(webhookLimiter), webhookHandler.Receive)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
