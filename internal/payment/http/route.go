package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	payments := g.Group("/payments")
	payments.Use(authMiddleware, adminMiddleware)
	{
		payments.POST("", h.Record)
		payments.GET("", h.List)
		payments.GET("/:id", h.Get)
	}

	// Gateway callbacks authenticate with a shared secret at the proxy,
	// not a member token.
	g.POST("/payments/webhook", h.GatewayWebhook)
}
