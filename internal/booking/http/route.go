package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	reservations := g.Group("/reservations")
	reservations.Use(authMiddleware)
	{
		reservations.POST("", h.Submit)
		reservations.GET("", h.List)
		reservations.GET("/:id", h.Get)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.PUT("/:id/window", h.Resubmit)

		admin := reservations.Group("")
		admin.Use(adminMiddleware)
		{
			admin.POST("/:id/approve", h.Approve)
			admin.POST("/:id/reject", h.Reject)
			admin.POST("/bulk-approve", h.BulkApprove)
			admin.GET("/conflict-report", h.ConflictReport)
		}
	}

	availability := g.Group("/availability")
	availability.Use(authMiddleware)
	{
		availability.GET("", h.CheckAvailability)
	}
}
