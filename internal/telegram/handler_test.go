package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/cache"
	"survey-bot-backend/internal/database"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatID int64 = 555

type sentMessage struct {
	chatID int64
	text   string
	markup interface{}
}

type fakeSender struct {
	sent      []sentMessage
	edits     []sentMessage
	callbacks []string
	nextID    int64
}

func (f *fakeSender) SendMessage(chatID int64, text, parseMode string, replyMarkup interface{}) (int64, error) {
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, markup: replyMarkup})
	return f.nextID, nil
}

func (f *fakeSender) EditMessageText(chatID, messageID int64, text, parseMode string, replyMarkup interface{}) error {
	f.edits = append(f.edits, sentMessage{chatID: chatID, text: text, markup: replyMarkup})
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(callbackID, text string, showAlert bool) error {
	f.callbacks = append(f.callbacks, text)
	return nil
}

func (f *fakeSender) last() sentMessage {
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

type botEnv struct {
	sender    *fakeSender
	handler   *UpdateHandler
	state     *StateManager
	surveys   *services.SurveyService
	responses *services.ResponseService
	authorID  uint
}

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	auth := services.NewAuthService(db, "test-secret")
	_, err = auth.Register("author", "secret123")
	require.NoError(t, err)
	var author models.Author
	require.NoError(t, db.Where("username = ?", "author").First(&author).Error)

	flows := services.NewFlowService(db, cache.NewMemoryGraphCache())
	env := &botEnv{
		sender:    &fakeSender{},
		surveys:   services.NewSurveyService(db, flows),
		responses: services.NewResponseService(db, flows, nil),
		authorID:  author.ID,
	}
	env.state = NewStateManager(cache.NewMemoryStateStore(), author.ID)
	env.handler = NewUpdateHandler(env.sender, env.state, env.surveys, env.responses,
		services.NewTelegramUserService(db), author.ID)
	return env
}

func (env *botEnv) question(t *testing.T, surveyID uint, input services.QuestionInput) *models.Question {
	t.Helper()
	q, _, err := env.surveys.CreateQuestion(context.Background(), surveyID, env.authorID, input)
	require.NoError(t, err)
	return q
}

func (env *botEnv) activate(t *testing.T, surveyID uint) {
	t.Helper()
	_, _, err := env.surveys.Activate(context.Background(), surveyID, env.authorID)
	require.NoError(t, err)
}

func (env *botEnv) text(text string) {
	env.handler.Handle(Update{Message: &Message{
		From: &User{ID: testChatID, FirstName: "Ann", Username: "ann"},
		Chat: Chat{ID: testChatID},
		Text: text,
	}})
}

func (env *botEnv) start(code string) {
	text := "/start " + code
	env.handler.Handle(Update{Message: &Message{
		From:     &User{ID: testChatID, FirstName: "Ann", Username: "ann"},
		Chat:     Chat{ID: testChatID},
		Text:     text,
		Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start")}},
	}})
}

func (env *botEnv) press(data string) {
	env.handler.Handle(Update{CallbackQuery: &CallbackQuery{
		ID:      "cb",
		From:    User{ID: testChatID},
		Message: &Message{MessageID: 99, Chat: Chat{ID: testChatID}},
		Data:    data,
	}})
}

func TestUpdateHandler_BranchingConversation(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	survey, err := env.surveys.CreateSurvey(env.authorID, services.SurveyInput{Title: "Lunch"})
	require.NoError(t, err)
	q1 := env.question(t, survey.ID, services.QuestionInput{
		Text:    "Hungry?",
		Kind:    answers.KindSingleChoice,
		Options: []services.OptionInput{{Text: "Yes"}, {Text: "No", Next: flow.Ptr(flow.EndSurvey())}},
	})
	q2 := env.question(t, survey.ID, services.QuestionInput{Text: "How hungry?", Kind: answers.KindRating})
	zero, ten := 0.0, 10.0
	q3 := env.question(t, survey.ID, services.QuestionInput{
		Text:      "How many slices?",
		Kind:      answers.KindNumber,
		NumberMin: &zero,
		NumberMax: &ten,
	})
	env.activate(t, survey.ID)

	env.start(survey.Code)
	require.IsType(t, &InlineKeyboardMarkup{}, env.sender.last().markup)
	assert.Contains(t, env.sender.last().text, "Hungry?")
	st := env.state.Get(ctx, testChatID)
	assert.Equal(t, StateAnswering, st.State)
	assert.Equal(t, q1.ID, st.QuestionID)

	env.press(fmt.Sprintf("ans:%d:0", q1.ID))
	assert.Contains(t, env.sender.last().text, "How hungry?")
	require.NotEmpty(t, env.sender.edits)
	assert.Contains(t, env.sender.edits[len(env.sender.edits)-1].text, "Yes")

	// the old keyboard is stale now
	env.press(fmt.Sprintf("ans:%d:1", q1.ID))
	assert.Equal(t, "This question is no longer active", env.sender.callbacks[len(env.sender.callbacks)-1])

	env.press(fmt.Sprintf("rate:%d:4", q2.ID))
	assert.Contains(t, env.sender.last().text, "How many slices?")
	assert.Contains(t, env.sender.last().text, "from 0 to 10")

	env.text("42")
	assert.True(t, strings.HasPrefix(env.sender.last().text, "⚠️"))
	assert.Equal(t, q3.ID, env.state.Get(ctx, testChatID).QuestionID)

	env.text("3")
	assert.Contains(t, env.sender.last().text, "Thank you")
	assert.Equal(t, StateNone, env.state.Get(ctx, testChatID).State)

	list, err := env.responses.ListResponses(survey.ID, env.authorID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsComplete)
	assert.Equal(t, int64(3), list[0].AnswerCount)
}

func TestUpdateHandler_MultipleChoiceToggle(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	survey, err := env.surveys.CreateSurvey(env.authorID, services.SurveyInput{Title: "Pets"})
	require.NoError(t, err)
	q := env.question(t, survey.ID, services.QuestionInput{
		Text:    "Which pets?",
		Kind:    answers.KindMultipleChoice,
		Options: []services.OptionInput{{Text: "Cat"}, {Text: "Dog"}, {Text: "Fish"}},
	})
	env.activate(t, survey.ID)

	env.start(survey.Code)
	env.press(fmt.Sprintf("tog:%d:0", q.ID))
	env.press(fmt.Sprintf("tog:%d:2", q.ID))
	env.press(fmt.Sprintf("tog:%d:0", q.ID))
	assert.Equal(t, []int{2}, env.state.Get(ctx, testChatID).Selected)

	edited := env.sender.edits[len(env.sender.edits)-1].markup.(*InlineKeyboardMarkup)
	assert.Equal(t, "✅ Fish", edited.InlineKeyboard[2][0].Text)

	env.press(fmt.Sprintf("done:%d", q.ID))
	assert.Contains(t, env.sender.last().text, "Thank you")
}

func TestUpdateHandler_CodeEntry(t *testing.T) {
	env := newBotEnv(t)

	survey, err := env.surveys.CreateSurvey(env.authorID, services.SurveyInput{Title: "Draft"})
	require.NoError(t, err)
	env.question(t, survey.ID, services.QuestionInput{Text: "Anything?", Kind: answers.KindText})

	env.start("")
	assert.Contains(t, env.sender.last().text, "Ann")
	assert.IsType(t, &ReplyKeyboardMarkup{}, env.sender.last().markup)

	env.text("12ab")
	assert.Contains(t, env.sender.last().text, "6 digits")

	env.text(survey.Code)
	assert.Contains(t, env.sender.last().text, "not accepting answers")

	env.activate(t, survey.ID)
	env.text(survey.Code)
	assert.Contains(t, env.sender.last().text, "Anything?")

	env.text("Nothing")
	assert.Contains(t, env.sender.last().text, "Thank you")

	env.start(survey.Code)
	assert.Contains(t, env.sender.last().text, "already completed")

	env.text(btnHistory)
	assert.Contains(t, env.sender.last().text, "Draft")
	assert.Contains(t, env.sender.last().text, "completed")
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want callbackData
		ok   bool
	}{
		{"ans:12:1", callbackData{action: cbChoice, questionID: 12, arg: 1}, true},
		{"rate:3:-1", callbackData{action: cbRate, questionID: 3, arg: -1}, true},
		{"done:7", callbackData{action: cbDone, questionID: 7}, true},
		{"done:7:1", callbackData{}, false},
		{"tog:x:1", callbackData{}, false},
		{"ans:5", callbackData{}, false},
		{"join:5:1", callbackData{}, false},
		{"", callbackData{}, false},
	}
	for _, tt := range tests {
		got, ok := parseCallback(tt.data)
		assert.Equal(t, tt.ok, ok, tt.data)
		assert.Equal(t, tt.want, got, tt.data)
	}
}

func TestRatingKeyboard(t *testing.T) {
	kb := RatingKeyboard(4, 0, 10)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 6)
	assert.Len(t, kb.InlineKeyboard[1], 5)
	assert.Equal(t, "rate:4:10", kb.InlineKeyboard[1][4].CallbackData)
}
