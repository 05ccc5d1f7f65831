package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/services"
)

// Sender is the part of the Bot API the update handler talks to.
type Sender interface {
	SendMessage(chatID int64, text, parseMode string, replyMarkup interface{}) (int64, error)
	EditMessageText(chatID, messageID int64, text, parseMode string, replyMarkup interface{}) error
	AnswerCallbackQuery(callbackID, text string, showAlert bool) error
}

type UpdateHandler struct {
	client      Sender
	state       *StateManager
	surveySvc   *services.SurveyService
	responseSvc *services.ResponseService
	tgUserSvc   *services.TelegramUserService
	authorID    uint
}

func NewUpdateHandler(
	client Sender,
	state *StateManager,
	surveySvc *services.SurveyService,
	responseSvc *services.ResponseService,
	tgUserSvc *services.TelegramUserService,
	authorID uint,
) *UpdateHandler {
	return &UpdateHandler{
		client:      client,
		state:       state,
		surveySvc:   surveySvc,
		responseSvc: responseSvc,
		tgUserSvc:   tgUserSvc,
		authorID:    authorID,
	}
}

func (h *UpdateHandler) Handle(upd Update) {
	ctx := context.Background()
	if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *UpdateHandler) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if isCommand(msg, "start") {
		h.cmdStart(ctx, msg, text)
		return
	}
	if isCommand(msg, "cancel") {
		h.state.Clear(ctx, userID)
		h.client.SendMessage(chatID, "Survey cancelled. Your answers so far are kept.", "", MainMenuKeyboard())
		return
	}

	switch text {
	case btnTakeSurvey:
		h.state.Set(ctx, userID, &UserState{State: StateEnterCode})
		h.client.SendMessage(chatID, "Enter the 6-digit survey code:", "", nil)
		return
	case btnHistory:
		h.cmdHistory(msg)
		return
	}

	us := h.state.Get(ctx, userID)
	switch us.State {
	case StateEnterCode:
		h.onCode(ctx, msg, text)
	case StateAnswering:
		h.onAnswerMessage(ctx, msg, us)
	default:
		h.client.SendMessage(chatID, "Use /start <code> or the menu buttons.", "", MainMenuKeyboard())
	}
}

func (h *UpdateHandler) cmdStart(ctx context.Context, msg *Message, text string) {
	h.state.Clear(ctx, msg.From.ID)

	code := strings.TrimSpace(extractStartArgs(text))
	if code != "" {
		h.onCode(ctx, msg, code)
		return
	}

	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}
	h.client.SendMessage(msg.Chat.ID,
		fmt.Sprintf("👋 Hi, <b>%s</b>!\n\nSend a survey code or use the menu below.", html.EscapeString(name)),
		"HTML", MainMenuKeyboard())
	h.state.Set(ctx, msg.From.ID, &UserState{State: StateEnterCode})
}

func (h *UpdateHandler) onCode(ctx context.Context, msg *Message, code string) {
	chatID := msg.Chat.ID
	if len(code) != 6 || !isDigits(code) {
		h.client.SendMessage(chatID, "❌ The code must be 6 digits. Try again:", "", nil)
		return
	}

	survey, err := h.surveySvc.GetActiveSurveyByCode(code)
	if err == nil && survey.AuthorID != h.authorID {
		err = services.ErrSurveyNotFound
	}
	if err != nil {
		text := "❌ No survey with this code. Check it and try again:"
		if errors.Is(err, services.ErrSurveyInactive) {
			text = "⏸ This survey is not accepting answers right now."
		}
		h.client.SendMessage(chatID, text, "", nil)
		return
	}

	user, _, err := h.tgUserSvc.GetOrCreate(h.authorID, msg.From.ID, msg.From.Username, msg.From.FirstName)
	if err != nil {
		log.Printf("[UpdateHandler] respondent for telegram user %d: %v", msg.From.ID, err)
		h.client.SendMessage(chatID, "Something went wrong, please try again later.", "", nil)
		return
	}

	result, err := h.responseSvc.StartResponse(ctx, survey.ID, user.ID)
	if err != nil {
		text := "Something went wrong, please try again later."
		if errors.Is(err, services.ErrAlreadyResponded) {
			text = "✅ You have already completed this survey. Thank you!"
		}
		h.state.Clear(ctx, msg.From.ID)
		h.client.SendMessage(chatID, text, "", MainMenuKeyboard())
		return
	}

	intro := fmt.Sprintf("📝 <b>%s</b>", html.EscapeString(survey.Title))
	if survey.Description != "" {
		intro += "\n\n" + html.EscapeString(survey.Description)
	}
	if result.Resumed {
		intro += "\n\nWelcome back! Let's continue where you left off."
	}
	intro += "\n\nSend /cancel to stop at any time."
	h.client.SendMessage(chatID, intro, "HTML", &ReplyKeyboardRemove{RemoveKeyboard: true})

	us := &UserState{
		State:        StateAnswering,
		RespondentID: user.ID,
		SurveyID:     survey.ID,
		ResponseID:   result.Response.ID,
	}
	h.askQuestion(ctx, msg.From.ID, chatID, us, result.Question)
}

// askQuestion sends the prompt for q and records it as the question awaited.
func (h *UpdateHandler) askQuestion(ctx context.Context, userID, chatID int64, us *UserState, q *models.Question) {
	us.State = StateAnswering
	us.QuestionID = q.ID
	us.Selected = nil
	h.state.Set(ctx, userID, us)

	text := fmt.Sprintf("❓ <b>%s</b>", html.EscapeString(q.Text))
	options := optionTexts(q)

	switch q.Kind {
	case answers.KindSingleChoice:
		h.client.SendMessage(chatID, text, "HTML", ChoiceKeyboard(q.ID, options))
	case answers.KindMultipleChoice:
		h.client.SendMessage(chatID, text+"\n\n<i>Select all that apply, then press Done.</i>", "HTML",
			MultiChoiceKeyboard(q.ID, options, us))
	case answers.KindRating:
		if len(options) > 0 {
			h.client.SendMessage(chatID, text, "HTML", ChoiceKeyboard(q.ID, options))
			return
		}
		scale := services.RatingScale(*q)
		h.client.SendMessage(chatID, text, "HTML", RatingKeyboard(q.ID, scale.Min, scale.Max))
	case answers.KindLocation:
		h.client.SendMessage(chatID, text+"\n\n<i>Share your location with the button below.</i>", "HTML", LocationKeyboard())
	case answers.KindDate:
		h.client.SendMessage(chatID, text+"\n\n<i>Send a date as YYYY-MM-DD.</i>", "HTML", nil)
	case answers.KindNumber:
		h.client.SendMessage(chatID, text+"\n\n<i>"+numberHint(q)+"</i>", "HTML", nil)
	default:
		h.client.SendMessage(chatID, text, "HTML", nil)
	}
}

func (h *UpdateHandler) onAnswerMessage(ctx context.Context, msg *Message, us *UserState) {
	input := answers.Input{Text: strings.TrimSpace(msg.Text)}
	if msg.Location != nil {
		lat, lon := msg.Location.Latitude, msg.Location.Longitude
		input = answers.Input{Latitude: &lat, Longitude: &lon, Accuracy: msg.Location.HorizontalAccuracy}
	}
	h.submit(ctx, msg.From.ID, msg.Chat.ID, us, input)
}

// submit records the answer. Validation failures re-prompt; any other failure
// ends the conversation.
func (h *UpdateHandler) submit(ctx context.Context, userID, chatID int64, us *UserState, input answers.Input) bool {
	result, err := h.responseSvc.SubmitAnswer(ctx, us.ResponseID, us.QuestionID, input)
	if err != nil {
		if services.IsAnswerValidationError(err) {
			h.client.SendMessage(chatID, "⚠️ "+answers.UserMessage(err), "", nil)
			return false
		}
		log.Printf("[UpdateHandler] submit answer (response %d, question %d): %v", us.ResponseID, us.QuestionID, err)
		h.state.Clear(ctx, userID)
		h.client.SendMessage(chatID, "❌ This survey cannot continue: "+err.Error(), "", MainMenuKeyboard())
		return false
	}

	if result.IsComplete {
		h.state.Clear(ctx, userID)
		h.client.SendMessage(chatID, "✅ Thank you! Your answers have been recorded.", "", MainMenuKeyboard())
		return true
	}

	h.askQuestion(ctx, userID, chatID, us, result.NextQuestion)
	return true
}

func (h *UpdateHandler) cmdHistory(msg *Message) {
	user, err := h.tgUserSvc.Get(h.authorID, msg.From.ID)
	if err != nil {
		h.client.SendMessage(msg.Chat.ID, "📊 You have not taken any surveys yet.", "", nil)
		return
	}
	entries, err := h.tgUserSvc.GetHistory(user.ID)
	if err != nil || len(entries) == 0 {
		h.client.SendMessage(msg.Chat.ID, "📊 You have not taken any surveys yet.", "", nil)
		return
	}

	lines := []string{"📊 <b>Your surveys:</b>\n"}
	limit := 20
	if len(entries) < limit {
		limit = len(entries)
	}
	for _, e := range entries[:limit] {
		status := "in progress"
		if e.IsComplete && e.CompletedAt != nil {
			status = "completed " + e.CompletedAt.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("• <b>%s</b> (%s)", html.EscapeString(e.SurveyTitle), status))
	}

	h.client.SendMessage(msg.Chat.ID, strings.Join(lines, "\n"), "HTML", nil)
}

func (h *UpdateHandler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	data, ok := parseCallback(cb.Data)
	if !ok {
		h.client.AnswerCallbackQuery(cb.ID, "Invalid data", true)
		return
	}

	userID := cb.From.ID
	us := h.state.Get(ctx, userID)
	if us.State != StateAnswering || us.QuestionID != data.questionID {
		h.client.AnswerCallbackQuery(cb.ID, "This question is no longer active", true)
		return
	}

	question, err := h.responseSvc.CurrentQuestion(us.ResponseID)
	if err != nil || question == nil || question.ID != data.questionID {
		h.client.AnswerCallbackQuery(cb.ID, "This question is no longer active", true)
		return
	}
	options := optionTexts(question)

	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	var input answers.Input
	switch data.action {
	case cbChoice:
		if data.arg < 0 || data.arg >= len(options) {
			h.client.AnswerCallbackQuery(cb.ID, "Unknown option", true)
			return
		}
		input.Options = []string{options[data.arg]}
	case cbRate:
		input.Text = strconv.Itoa(data.arg)
	case cbToggle:
		if data.arg < 0 || data.arg >= len(options) {
			h.client.AnswerCallbackQuery(cb.ID, "Unknown option", true)
			return
		}
		us = h.state.UpdateField(ctx, userID, func(s *UserState) { s.Toggle(data.arg) })
		if cb.Message != nil {
			h.client.EditMessageText(chatID, cb.Message.MessageID,
				fmt.Sprintf("❓ <b>%s</b>\n\n<i>Select all that apply, then press Done.</i>", html.EscapeString(question.Text)),
				"HTML", MultiChoiceKeyboard(question.ID, options, us))
		}
		h.client.AnswerCallbackQuery(cb.ID, "", false)
		return
	case cbDone:
		for i, text := range options {
			if us.IsSelected(i) {
				input.Options = append(input.Options, text)
			}
		}
	}

	h.client.AnswerCallbackQuery(cb.ID, "", false)
	answered := h.submit(ctx, userID, chatID, us, input)
	if answered && cb.Message != nil {
		// freeze the answered question so its buttons cannot be pressed again
		h.client.EditMessageText(chatID, cb.Message.MessageID,
			fmt.Sprintf("❓ <b>%s</b>\n\n✅ %s", html.EscapeString(question.Text), html.EscapeString(answerSummary(input))),
			"HTML", nil)
	}
}

func optionTexts(q *models.Question) []string {
	return services.QuestionConstraints(*q).Options
}

func answerSummary(in answers.Input) string {
	if len(in.Options) > 0 {
		return strings.Join(in.Options, ", ")
	}
	return in.Text
}

func numberHint(q *models.Question) string {
	switch {
	case q.NumberMin != nil && q.NumberMax != nil:
		return fmt.Sprintf("Send a number from %g to %g.", *q.NumberMin, *q.NumberMax)
	case q.NumberMin != nil:
		return fmt.Sprintf("Send a number of at least %g.", *q.NumberMin)
	case q.NumberMax != nil:
		return fmt.Sprintf("Send a number of at most %g.", *q.NumberMax)
	}
	return "Send a number."
}

func isCommand(msg *Message, cmd string) bool {
	if msg.Entities == nil {
		return false
	}
	for _, e := range msg.Entities {
		// offsets are UTF-16 units; a command is ASCII so they match bytes
		// only while they stay inside the text
		if e.Type == "bot_command" && e.Offset == 0 {
			if e.Length <= 0 || e.Length > len(msg.Text) {
				return false
			}
			cmdText := msg.Text[:e.Length]
			cmdText = strings.Split(cmdText, "@")[0]
			return cmdText == "/"+cmd
		}
	}
	return false
}

func extractStartArgs(text string) string {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
