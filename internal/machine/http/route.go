package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	machines := g.Group("/machines")
	machines.Use(authMiddleware)
	{
		machines.GET("", h.List)
		machines.GET("/:id", h.Get)
		machines.GET("/:id/blocked-periods", h.BlockedPeriods)

		admin := machines.Group("")
		admin.Use(adminMiddleware)
		{
			admin.POST("", h.Create)
			admin.PUT("/:id", h.Update)
			admin.DELETE("/:id", h.Delete)
			admin.POST("/:id/recompute-status", h.RecomputeStatus)
		}
	}
}
