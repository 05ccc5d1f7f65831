package handlers

import (
	"net/http"
	"strconv"

	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TelegramUserHandler struct {
	tgService *services.TelegramUserService
}

func NewTelegramUserHandler(tgService *services.TelegramUserService) *TelegramUserHandler {
	return &TelegramUserHandler{tgService: tgService}
}

type TelegramUserRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	AuthorID   uint   `json:"author_id" binding:"required"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
}

// GetOrCreateUser godoc
// @Summary      Get or create telegram respondent
// @Tags         telegram
// @Accept       json
// @Produce      json
// @Param        X-Bot-API-Key header string true "Bot API Key"
// @Param        request body TelegramUserRequest true "Respondent"
// @Success      200 {object} map[string]interface{}
// @Router       /api/v1/telegram-users [post]
func (h *TelegramUserHandler) GetOrCreateUser(c *gin.Context) {
	var req TelegramUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, created, err := h.tgService.GetOrCreate(req.AuthorID, req.TelegramID, req.Username, req.FirstName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"created": created,
	})
}

// GetHistory godoc
// @Summary      Get survey history for a telegram respondent
// @Tags         telegram
// @Produce      json
// @Param        X-Bot-API-Key header string true "Bot API Key"
// @Param        telegram_id path int true "Telegram ID"
// @Param        author_id query int true "Author ID"
// @Success      200 {array} services.HistoryEntry
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/telegram-users/{telegram_id}/history [get]
func (h *TelegramUserHandler) GetHistory(c *gin.Context) {
	tgID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid telegram_id"})
		return
	}

	author, err := strconv.ParseUint(c.Query("author_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "author_id is required"})
		return
	}

	user, err := h.tgService.Get(uint(author), tgID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "telegram user not found"})
		return
	}

	entries, err := h.tgService.GetHistory(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}
