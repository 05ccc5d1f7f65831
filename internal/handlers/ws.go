package handlers

import (
	"log"
	"net/http"

	"survey-bot-backend/internal/services"
	"survey-bot-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub           *ws.Hub
	authService   *services.AuthService
	surveyService *services.SurveyService
}

func NewWSHandler(hub *ws.Hub, authService *services.AuthService, surveyService *services.SurveyService) *WSHandler {
	return &WSHandler{hub: hub, authService: authService, surveyService: surveyService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket godoc
// @Summary      WebSocket connection for live survey events
// @Description  Streams response_started, answer_received and response_completed events. Browsers pass the JWT as ?token=.
// @Tags         websocket
// @Param        id path int true "Survey ID"
// @Param        token query string true "Author JWT"
// @Router       /ws/survey/{id} [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	author, err := h.authService.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
		return
	}
	if _, err := h.surveyService.GetSurvey(surveyID, author); err != nil {
		writeServiceError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(surveyID, conn)
	defer h.hub.RemoveConnection(surveyID, conn)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
