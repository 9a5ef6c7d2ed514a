package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the gin engine with every ledger route.
func NewRouter(h *HTTPHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.POST("/items", h.CreateItem)
	api.GET("/items", h.ListItems)
	api.GET("/items/:id", h.GetItem)
	api.PATCH("/items/:id", h.UpdateItem)
	api.DELETE("/items/:id", h.DeleteItem)
	api.POST("/items/:id/adjustments", h.ApplyAdjustment)
	api.POST("/items/:id/transfers", h.Transfer)
	api.GET("/low-stock", h.LowStock)
	api.GET("/logs", h.GetLogs)

	api.POST("/requests", h.CreateRequest)
	api.GET("/requests", h.ListRequests)
	api.GET("/requests/:id", h.GetRequest)
	api.POST("/requests/:id/approve", h.ApproveRequest)
	api.POST("/requests/:id/reject", h.RejectRequest)
	api.POST("/requests/:id/fulfill", h.FulfillRequest)

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
