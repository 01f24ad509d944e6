// internal/app/router.go
package app

import (
	notificationHandler "fanclash-service/internal/handlers/notification"
	paymentHandler "fanclash-service/internal/handlers/payment"
	wsHandler "fanclash-service/internal/handlers/websocket"
	"fanclash-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	PaymentHandler      *paymentHandler.PaymentHandler
	CallbackHandler     *paymentHandler.CallbackHandler
	NotificationHandler *notificationHandler.NotificationHandler
	WSHandler           *wsHandler.WebSocketHandler
	CallbackGuard       *middleware.CallbackGuard
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws/payments", h.WSHandler.HandleConnection)

	// ==================== Payments ====================
	payments := api.Group("/payments")
	{
		// Client-facing
		payments.POST("/stk-push", h.PaymentHandler.InitiateSTKPush)
		payments.POST("/b2c", h.PaymentHandler.SendB2CPayment)
		payments.POST("/status", h.PaymentHandler.CheckStatus)
		payments.GET("/status", h.PaymentHandler.QueryStatus)
		payments.GET("", h.PaymentHandler.ListTransactions)
		payments.GET("/stats", h.PaymentHandler.GetStats)
		payments.GET("/events", h.NotificationHandler.ListEvents)

		// Gateway callbacks (public, shared-secret path segment)
		callbacks := payments.Group("")
		callbacks.Use(h.CallbackGuard.Guard())
		{
			callbacks.POST("/callback/:secret", h.CallbackHandler.STKCallback)
			callbacks.POST("/b2c/result/:secret", h.CallbackHandler.B2CResult)
			callbacks.POST("/b2c/timeout/:secret", h.CallbackHandler.B2CTimeout)
		}
	}
}
