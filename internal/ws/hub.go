package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans live response events out to the authors watching a survey.
type Hub struct {
	mu      sync.RWMutex
	surveys map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		surveys: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(surveyID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.surveys[surveyID] == nil {
		h.surveys[surveyID] = make(map[*websocket.Conn]bool)
	}
	h.surveys[surveyID][conn] = true
	log.Printf("ws: client connected to survey %d (total: %d)", surveyID, len(h.surveys[surveyID]))
}

func (h *Hub) RemoveConnection(surveyID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.surveys[surveyID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.surveys, surveyID)
		}
		log.Printf("ws: client disconnected from survey %d", surveyID)
	}
}

func (h *Hub) Connections(surveyID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.surveys[surveyID])
}

func (h *Hub) Broadcast(surveyID uint, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	// writes and failed-connection cleanup both mutate the set
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.surveys[surveyID]
	if !ok {
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws: write error: %v", err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.surveys, surveyID)
	}
}

// Publish satisfies services.EventPublisher.
func (h *Hub) Publish(surveyID uint, eventType string, data interface{}) {
	h.Broadcast(surveyID, WSMessage{Type: eventType, Data: data})
}
