package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	testLogger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(testLogger))
	return router
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("LogsCallerAndRouteTemplate", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.GET("/sitters/:id/wallet", CallerIdentity(), func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		sitterID := uuid.New()
		correlationID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/sitters/"+sitterID.String()+"/wallet?page=2", nil)
		req.Header.Set("User-Agent", "sitter-app/3.1")
		req.Header.Set(CallerIDHeader, sitterID.String())
		req.Header.Set(CorrelationIDHeader, correlationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"path":"/sitters/`+sitterID.String()+`/wallet?page=2"`)
		assert.Contains(t, logOutput, `"route":"/sitters/:id/wallet"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"user_agent":"sitter-app/3.1"`)
		assert.Contains(t, logOutput, `"caller_id":"`+sitterID.String()+`"`)
		assert.Contains(t, logOutput, `"correlation_id":"`+correlationID+`"`)
	})

	t.Run("WebhookHasNoCaller", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.POST("/webhooks/payments", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req, _ := http.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{}`))
		router.ServeHTTP(httptest.NewRecorder(), req)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"method":"POST"`)
		assert.Contains(t, logOutput, `"correlation_id":`)
		assert.NotContains(t, logOutput, `"caller_id"`)
	})

	t.Run("LevelFollowsStatus", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := newLoggedRouter(&logBuffer)
		router.POST("/withdrawals", func(c *gin.Context) {
			c.String(http.StatusBadRequest, "amount below minimum")
		})
		router.POST("/complete", func(c *gin.Context) {
			_ = c.Error(errors.New("ledger unavailable"))
			c.String(http.StatusInternalServerError, "internal")
		})

		req, _ := http.NewRequest(http.MethodPost, "/withdrawals", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Contains(t, logBuffer.String(), `"level":"WARN"`)

		logBuffer.Reset()
		req, _ = http.NewRequest(http.MethodPost, "/complete", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Contains(t, logBuffer.String(), `"level":"ERROR"`)
		assert.Contains(t, logBuffer.String(), `ledger unavailable`)
	})
}
