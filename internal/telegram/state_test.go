package telegram

import (
	"context"
	"sync"
	"testing"

	"survey-bot-backend/internal/cache"

	"github.com/stretchr/testify/assert"
)

func TestStateManager_ConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	m := NewStateManager(cache.NewMemoryStateStore(), 1)
	m.Set(ctx, 42, &UserState{State: StateAnswering, QuestionID: 3})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			m.UpdateField(ctx, 42, func(s *UserState) { s.Toggle(idx) })
		}(i)
	}
	wg.Wait()

	st := m.Get(ctx, 42)
	assert.Len(t, st.Selected, 20)
	assert.Equal(t, uint(3), st.QuestionID)
}

func TestIsCommand(t *testing.T) {
	cmd := func(text string, length int) *Message {
		return &Message{Text: text, Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}}
	}

	assert.True(t, isCommand(cmd("/start 123456", 6), "start"))
	assert.True(t, isCommand(cmd("/start@survey_bot", 17), "start"))
	assert.False(t, isCommand(cmd("/cancel", 7), "start"))
	assert.False(t, isCommand(&Message{Text: "/start"}, "start"))

	// entity lengths past the text are ignored instead of panicking
	assert.False(t, isCommand(cmd("/st", 6), "start"))
	assert.False(t, isCommand(cmd("", 1), "start"))
	assert.False(t, isCommand(cmd("/start", -1), "start"))
}
