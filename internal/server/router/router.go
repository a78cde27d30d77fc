package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/metrics"
	"github.com/mamadbah2/seedbank/internal/server/handlers"
)

// Handlers groups the route handlers. Webhook is nil when WhatsApp is disabled.
type Handlers struct {
	Lots    *handlers.LotHandler
	Reports *handlers.ReportHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// Lot codes embed the stored date, which may be written 1/15/2024, so
	// :code is matched on the escaped path and unescaped afterwards.
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".xlsx"}),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	api := r.Group("/api")
	{
		api.POST("/withdraw", h.Lots.Withdraw)
		api.GET("/withdrawals", h.Lots.Withdrawals)
		api.GET("/edits", h.Lots.Edits)

		api.GET("/lots", h.Lots.List)
		api.POST("/lots", h.Lots.Register)
		api.POST("/lots/edit", h.Lots.Edit)
		api.GET("/lots/:code", h.Lots.Get)
		api.GET("/lots/:code/qr", h.Lots.QR)

		api.GET("/dashboard", h.Reports.Dashboard)
		api.GET("/reports/inventory.xlsx", h.Reports.ExportInventory)
		api.GET("/reports/snapshots", h.Reports.Snapshots)
		api.POST("/admin/reconcile", h.Reports.Reconcile)
	}

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})

	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized", zap.Bool("whatsapp", h.Webhook != nil))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
