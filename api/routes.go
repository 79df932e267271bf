package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the board API under /api and metrics at /metrics.
func RegisterRoutes(router *gin.Engine, h *Handler) {
	router.Use(Metrics())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.HealthCheckHandler)

		apiGroup.GET("/columns", h.BoardHandler)
		apiGroup.POST("/columns", h.CreateColumnHandler)
		apiGroup.GET("/labels", h.ListLabelsHandler)
		apiGroup.GET("/templates", h.TemplatesHandler)
		apiGroup.GET("/activities", h.ListActivitiesHandler)

		cards := apiGroup.Group("/cards")
		cards.POST("", h.CreateCardHandler)
		cards.GET("/archived", h.ListArchivedHandler)
		cards.GET("/:id", h.GetCardHandler)
		cards.PATCH("/:id", h.UpdateCardHandler)
		cards.DELETE("/:id", h.DeleteCardHandler)
		cards.POST("/:id/move", h.MoveCardHandler)
		cards.POST("/:id/archive", h.ArchiveCardHandler)
		cards.POST("/:id/restore", h.RestoreCardHandler)
		cards.POST("/:id/checklist", h.AddChecklistItemHandler)
		cards.PATCH("/:id/checklist/:itemId", h.UpdateChecklistItemHandler)
		cards.DELETE("/:id/checklist/:itemId", h.DeleteChecklistItemHandler)
		cards.POST("/:id/comments", h.AddCommentHandler)
		cards.POST("/:id/attachments", h.AddAttachmentHandler)
	}
}
