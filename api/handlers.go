package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/chxlky/project-board/internal/board"
	"github.com/chxlky/project-board/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	DB    *gorm.DB
	Board *board.Service
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		zap.L().Debug("Could not bind JSON payload", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return false
	}
	return true
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateCardHandler handles POST /api/cards.
func (h *Handler) CreateCardHandler(c *gin.Context) {
	var req models.CreateCardRequest
	if !bindJSON(c, &req) {
		return
	}

	zap.L().Debug("Creating card", zap.String("title", req.Title), zap.String("columnID", req.ColumnID))
	card, err := h.Board.CreateCard(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	cardsCreated.Inc()
	c.JSON(http.StatusOK, card)
}

func (h *Handler) GetCardHandler(c *gin.Context) {
	card, err := h.Board.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) UpdateCardHandler(c *gin.Context) {
	var req models.UpdateCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.Board.UpdateCard(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) MoveCardHandler(c *gin.Context) {
	var req models.MoveCardRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.Board.MoveCard(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) ArchiveCardHandler(c *gin.Context) {
	card, err := h.Board.ArchiveCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) RestoreCardHandler(c *gin.Context) {
	card, err := h.Board.RestoreCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) DeleteCardHandler(c *gin.Context) {
	if err := h.Board.DeleteCard(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListArchivedHandler(c *gin.Context) {
	cards, err := h.Board.ListArchived(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

// BoardHandler handles GET /api/columns with the board's filter and sort
// query parameters.
func (h *Handler) BoardHandler(c *gin.Context) {
	sort, err := board.ParseSort(c.Query("sort"), c.Query("direction"))
	if err != nil {
		respondError(c, err)
		return
	}

	filter := board.Filter{
		Search:   c.Query("search"),
		LabelIDs: splitList(c.Query("labels")),
	}
	for _, p := range splitList(c.Query("priorities")) {
		filter.Priorities = append(filter.Priorities, models.Priority(p))
	}

	columns, err := h.Board.Board(c.Request.Context(), filter, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) CreateColumnHandler(c *gin.Context) {
	var req models.CreateColumnRequest
	if !bindJSON(c, &req) {
		return
	}

	column, err := h.Board.CreateColumn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, column)
}

func (h *Handler) ListLabelsHandler(c *gin.Context) {
	labels, err := h.Board.ListLabels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels})
}

func (h *Handler) TemplatesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": board.Templates()})
}

func (h *Handler) ListActivitiesHandler(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	activities, err := h.Board.ListActivities(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (h *Handler) AddChecklistItemHandler(c *gin.Context) {
	var req models.ChecklistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Board.AddChecklistItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateChecklistItemHandler(c *gin.Context) {
	var req models.UpdateChecklistItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Board.UpdateChecklistItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteChecklistItemHandler(c *gin.Context) {
	if err := h.Board.DeleteChecklistItem(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddCommentHandler(c *gin.Context) {
	var req models.CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.Board.AddComment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) AddAttachmentHandler(c *gin.Context) {
	var req models.AttachmentRequest
	if !bindJSON(c, &req) {
		return
	}

	attachment, err := h.Board.AddAttachment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}
