package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"

	"survey-bot-backend/internal/cache"
)

const (
	StateNone      = ""
	StateEnterCode = "enter_code"
	StateAnswering = "answering"
)

// UserState is one respondent's conversation with a bot.
type UserState struct {
	State        string `json:"state"`
	RespondentID uint   `json:"respondent_id,omitempty"`
	SurveyID     uint   `json:"survey_id,omitempty"`
	ResponseID   uint   `json:"response_id,omitempty"`
	QuestionID   uint   `json:"question_id,omitempty"`
	// Selected holds toggled option indices of a multiple choice question.
	Selected []int `json:"selected,omitempty"`
}

func (s *UserState) IsSelected(idx int) bool {
	for _, i := range s.Selected {
		if i == idx {
			return true
		}
	}
	return false
}

func (s *UserState) Toggle(idx int) {
	for i, v := range s.Selected {
		if v == idx {
			s.Selected = append(s.Selected[:i], s.Selected[i+1:]...)
			return
		}
	}
	s.Selected = append(s.Selected, idx)
}

// StateManager keeps conversation state per Telegram user of one bot. Any
// cache.StateStore works; redis keeps conversations alive across restarts.
type StateManager struct {
	store    cache.StateStore
	authorID uint
	// UpdateField holds the lock of the user's stripe for its load-modify-save.
	locks    [32]sync.Mutex
}

func NewStateManager(store cache.StateStore, authorID uint) *StateManager {
	return &StateManager{store: store, authorID: authorID}
}

func (m *StateManager) key(userID int64) string {
	return fmt.Sprintf("%d:%d", m.authorID, userID)
}

func (m *StateManager) Get(ctx context.Context, userID int64) *UserState {
	var s UserState
	if _, err := m.store.Load(ctx, m.key(userID), &s); err != nil {
		log.Printf("[StateManager] load state for user %d: %v", userID, err)
		return &UserState{}
	}
	return &s
}

func (m *StateManager) Set(ctx context.Context, userID int64, state *UserState) {
	if err := m.store.Save(ctx, m.key(userID), state); err != nil {
		log.Printf("[StateManager] save state for user %d: %v", userID, err)
	}
}

func (m *StateManager) Clear(ctx context.Context, userID int64) {
	if err := m.store.Delete(ctx, m.key(userID)); err != nil {
		log.Printf("[StateManager] clear state for user %d: %v", userID, err)
	}
}

// UpdateField applies fn to the stored state. Updates for one user are
// serialized within the process so concurrent webhook updates are not lost.
func (m *StateManager) UpdateField(ctx context.Context, userID int64, fn func(s *UserState)) *UserState {
	mu := &m.locks[uint64(userID)%uint64(len(m.locks))]
	mu.Lock()
	defer mu.Unlock()

	s := m.Get(ctx, userID)
	fn(s)
	m.Set(ctx, userID, s)
	return s
}
