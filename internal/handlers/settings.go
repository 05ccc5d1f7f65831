package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// BotResolver returns the bot's username for a token, or an error when the
// token is rejected.
type BotResolver func(token string) (string, error)

type SettingsHandler struct {
	authService *services.AuthService
	resolveBot  BotResolver
}

func NewSettingsHandler(authService *services.AuthService, resolveBot BotResolver) *SettingsHandler {
	return &SettingsHandler{authService: authService, resolveBot: resolveBot}
}

type SettingsResponse struct {
	BotToken string `json:"bot_token"`
	BotLink  string `json:"bot_link"`
}

type UpdateSettingsRequest struct {
	BotToken string `json:"bot_token" example:"123456:ABC-DEF"`
}

// GetSettings godoc
// @Summary      Get author settings
// @Description  Get bot token and link settings
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} SettingsResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	author, err := h.authService.GetAuthor(authorID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		BotToken: author.BotToken,
		BotLink:  author.BotLink,
	})
}

// UpdateSettings godoc
// @Summary      Update author settings
// @Description  Connect a Telegram bot by token. An empty token disconnects the bot.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateSettingsRequest true "Settings data"
// @Success      200 {object} SettingsResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	botLink := ""
	token := strings.TrimSpace(req.BotToken)
	if token != "" {
		username, err := h.resolveBot(token)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid bot token. Check the token and try again."})
			return
		}
		botLink = fmt.Sprintf("https://t.me/%s", username)
	}

	author, err := h.authService.UpdateBotSettings(authorID(c), token, botLink)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		BotToken: author.BotToken,
		BotLink:  author.BotLink,
	})
}

type BotTokenEntry struct {
	AuthorID uint   `json:"author_id"`
	BotToken string `json:"bot_token"`
}

// GetBotTokens godoc
// @Summary      Get all bot tokens
// @Description  Internal endpoint for bot service to fetch all registered bot tokens
// @Tags         internal
// @Produce      json
// @Param        X-Bot-API-Key header string true "Bot API Key"
// @Success      200 {array} BotTokenEntry
// @Router       /api/v1/internal/bot-tokens [get]
func (h *SettingsHandler) GetBotTokens(c *gin.Context) {
	authors, err := h.authService.AuthorsWithBots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	entries := make([]BotTokenEntry, 0, len(authors))
	for _, a := range authors {
		entries = append(entries, BotTokenEntry{
			AuthorID: a.ID,
			BotToken: a.BotToken,
		})
	}

	c.JSON(http.StatusOK, entries)
}
