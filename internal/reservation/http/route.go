package http

import (
	"github.com/gin-gonic/gin"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")

	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("/:id/payment", h.InitiatePayment)
		group.POST("/:id/payment/confirm", h.ConfirmPayment)
		group.POST("/:id/payment/fail", h.FailPayment)
		group.GET("/:id/cancellation-quote", h.CancellationQuote)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/complete", auth.RequireRole(auth.RoleAdmin), h.Complete)
	}
}
