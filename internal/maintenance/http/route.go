package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	windows := g.Group("/maintenance-windows")
	windows.Use(authMiddleware)
	{
		windows.GET("", h.List)
		windows.GET("/:id", h.Get)

		admin := windows.Group("")
		admin.Use(adminMiddleware)
		{
			admin.POST("", h.Schedule)
			admin.PATCH("/:id/status", h.UpdateStatus)
			admin.DELETE("/:id", h.Delete)
		}
	}
}
