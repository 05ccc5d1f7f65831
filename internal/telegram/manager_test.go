package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"survey-bot-backend/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBotManager_HandleWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewBotManager(nil, nil, nil, nil, cache.NewMemoryStateStore(), "https://example.com", "hook-secret", time.Minute)
	secret := tokenSecret("123:abc")
	m.bots[secret] = &BotInstance{
		Secret:  secret,
		Handler: NewUpdateHandler(&fakeSender{}, NewStateManager(cache.NewMemoryStateStore(), 1), nil, nil, nil, 1),
	}

	r := gin.New()
	r.POST("/webhook/bot/:secret", m.HandleWebhook)

	tests := []struct {
		name   string
		path   string
		header string
		body   string
		status int
	}{
		{"wrong header secret", "/webhook/bot/" + secret, "nope", `{"update_id":1}`, http.StatusUnauthorized},
		{"unknown bot", "/webhook/bot/ffff", "hook-secret", `{"update_id":1}`, http.StatusNotFound},
		{"bad body", "/webhook/bot/" + secret, "hook-secret", `{`, http.StatusBadRequest},
		{"accepted", "/webhook/bot/" + secret, "hook-secret", `{"update_id":1}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Telegram-Bot-Api-Secret-Token", tt.header)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
