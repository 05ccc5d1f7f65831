package telegram

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"survey-bot-backend/internal/cache"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type BotInstance struct {
	Token    string
	Secret   string
	AuthorID uint
	Client   *Client
	State    *StateManager
	Handler  *UpdateHandler
}

// BotManager runs one bot per author who has connected a token and routes
// webhook updates to it.
type BotManager struct {
	authSvc         *services.AuthService
	surveySvc       *services.SurveyService
	responseSvc     *services.ResponseService
	tgUserSvc       *services.TelegramUserService
	store           cache.StateStore
	webhookBaseURL  string
	webhookSecret   string
	refreshInterval time.Duration

	mu   sync.RWMutex
	bots map[string]*BotInstance // secret -> bot

	stopCh chan struct{}
}

func NewBotManager(
	authSvc *services.AuthService,
	surveySvc *services.SurveyService,
	responseSvc *services.ResponseService,
	tgUserSvc *services.TelegramUserService,
	store cache.StateStore,
	webhookBaseURL string,
	webhookSecret string,
	refreshInterval time.Duration,
) *BotManager {
	return &BotManager{
		authSvc:         authSvc,
		surveySvc:       surveySvc,
		responseSvc:     responseSvc,
		tgUserSvc:       tgUserSvc,
		store:           store,
		webhookBaseURL:  webhookBaseURL,
		webhookSecret:   webhookSecret,
		refreshInterval: refreshInterval,
		bots:            make(map[string]*BotInstance),
		stopCh:          make(chan struct{}),
	}
}

func tokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h[:16])
}

func (m *BotManager) Start() {
	m.refreshTokens()
	go m.refreshLoop()
	log.Println("[BotManager] started")
}

func (m *BotManager) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bot := range m.bots {
		bot.Client.DeleteWebhook()
	}
	m.bots = make(map[string]*BotInstance)
	log.Println("[BotManager] stopped")
}

func (m *BotManager) refreshLoop() {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.refreshTokens()
		}
	}
}

func (m *BotManager) newInstance(author models.Author, secret string) *BotInstance {
	client := NewClient(author.BotToken)
	stateM := NewStateManager(m.store, author.ID)
	return &BotInstance{
		Token:    author.BotToken,
		Secret:   secret,
		AuthorID: author.ID,
		Client:   client,
		State:    stateM,
		Handler:  NewUpdateHandler(client, stateM, m.surveySvc, m.responseSvc, m.tgUserSvc, author.ID),
	}
}

func (m *BotManager) refreshTokens() {
	authors, err := m.authSvc.AuthorsWithBots()
	if err != nil {
		log.Printf("[BotManager] failed to load bot tokens: %v", err)
		return
	}

	newSecrets := make(map[string]models.Author)
	for _, a := range authors {
		newSecrets[tokenSecret(a.BotToken)] = a
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for secret, bot := range m.bots {
		if _, exists := newSecrets[secret]; !exists {
			log.Printf("[BotManager] removing bot for author %d", bot.AuthorID)
			go bot.Client.DeleteWebhook()
			delete(m.bots, secret)
		}
	}

	for secret, author := range newSecrets {
		if _, exists := m.bots[secret]; exists {
			continue
		}

		bot := m.newInstance(author, secret)
		webhookURL := fmt.Sprintf("%s/webhook/bot/%s", m.webhookBaseURL, secret)
		if err := bot.Client.SetWebhook(webhookURL, m.webhookSecret); err != nil {
			log.Printf("[BotManager] failed to set webhook for author %d: %v", author.ID, err)
			continue
		}

		m.bots[secret] = bot
		log.Printf("[BotManager] registered bot for author %d (webhook: %s)", author.ID, webhookURL)
	}

	log.Printf("[BotManager] active bots: %d", len(m.bots))
}

// HandleWebhook godoc
// @Summary      Telegram webhook
// @Description  Receives updates for the bot identified by the path secret.
// @Tags         telegram
// @Accept       json
// @Param        secret path string true "Bot secret"
// @Success      200
// @Router       /webhook/bot/{secret} [post]
func (m *BotManager) HandleWebhook(c *gin.Context) {
	secret := c.Param("secret")

	if m.webhookSecret != "" {
		headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
		if headerSecret != m.webhookSecret {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	m.mu.RLock()
	bot, ok := m.bots[secret]
	m.mu.RUnlock()

	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	go bot.Handler.Handle(upd)

	c.Status(http.StatusOK)
}
