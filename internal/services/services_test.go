package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/database"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/surveydoc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	surveyID  uint
	eventType string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(surveyID uint, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{surveyID: surveyID, eventType: eventType})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	auth      *AuthService
	flows     *FlowService
	surveys   *SurveyService
	responses *ResponseService
	events    *recordingPublisher
	authorID  uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testEnv{db: db, events: &recordingPublisher{}}
	env.auth = NewAuthService(db, "test-secret")
	env.flows = NewFlowService(db, nil)
	env.surveys = NewSurveyService(db, env.flows)
	env.responses = NewResponseService(db, env.flows, env.events)

	_, err = env.auth.Register("author", "secret123")
	require.NoError(t, err)
	var author models.Author
	require.NoError(t, db.Where("username = ?", "author").First(&author).Error)
	env.authorID = author.ID
	return env
}

func (env *testEnv) survey(t *testing.T, title string) *models.Survey {
	t.Helper()
	s, err := env.surveys.CreateSurvey(env.authorID, SurveyInput{Title: title})
	require.NoError(t, err)
	return s
}

func (env *testEnv) question(t *testing.T, surveyID uint, input QuestionInput) *models.Question {
	t.Helper()
	q, _, err := env.surveys.CreateQuestion(context.Background(), surveyID, env.authorID, input)
	require.NoError(t, err)
	return q
}

func (env *testEnv) setNext(t *testing.T, questionID uint, next *flow.Step) flow.Report {
	t.Helper()
	_, report, err := env.surveys.UpdateQuestionFlow(context.Background(), questionID, env.authorID, FlowInput{DefaultNext: next})
	require.NoError(t, err)
	return report
}

func goTo(t *testing.T, id uint) *flow.Step {
	t.Helper()
	s, err := flow.GoToQuestion(id)
	require.NoError(t, err)
	return &s
}

func text(q string) QuestionInput {
	return QuestionInput{Text: q, Kind: answers.KindText}
}

// colorSurvey builds Q1 (Red -> Q3, Blue -> Q2), Q2 -> End, Q3 last.
func colorSurvey(t *testing.T, env *testEnv) (*models.Survey, []*models.Question) {
	t.Helper()
	ctx := context.Background()
	s := env.survey(t, "Colors")

	q1 := env.question(t, s.ID, QuestionInput{
		Text:    "Favorite color?",
		Kind:    answers.KindSingleChoice,
		Options: []OptionInput{{Text: "Red"}, {Text: "Blue"}},
	})
	q2 := env.question(t, s.ID, text("Why blue?"))
	q3 := env.question(t, s.ID, text("Why red?"))

	_, report, err := env.surveys.UpdateQuestionFlow(ctx, q1.ID, env.authorID, FlowInput{
		Options: []OptionFlowInput{
			{OptionID: q1.Options[0].ID, Next: goTo(t, q3.ID)},
			{OptionID: q1.Options[1].ID, Next: goTo(t, q2.ID)},
		},
	})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	env.setNext(t, q2.ID, flow.Ptr(flow.EndSurvey()))

	return s, []*models.Question{q1, q2, q3}
}

func TestAuthService_RegisterLogin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register("author", "another1")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.auth.Login("author", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := env.auth.Login("author", "secret123")
	require.NoError(t, err)
	id, err := env.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, env.authorID, id)

	_, err = env.auth.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSurveyService_ActivateRefusesCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Loop")
	q1 := env.question(t, s.ID, text("First"))
	q2 := env.question(t, s.ID, text("Second"))

	report := env.setNext(t, q2.ID, goTo(t, q1.ID))
	assert.False(t, report.Valid, "inactive surveys accept invalid edits")

	_, report, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.Error(t, err)
	var fve *FlowValidationError
	require.True(t, errors.As(err, &fve))
	assert.ErrorIs(t, err, flow.ErrCycle)
	assert.Equal(t, []uint{q1.ID, q2.ID, q1.ID}, report.CyclePath)
	assert.Equal(t, report, fve.Report)

	got, err := env.surveys.GetSurvey(s.ID, env.authorID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	env.setNext(t, q2.ID, nil)
	active, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)
}

func TestSurveyService_ActiveEditRolledBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Live")
	q1 := env.question(t, s.ID, text("First"))
	q2 := env.question(t, s.ID, text("Second"))

	_, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	_, report, err := env.surveys.UpdateQuestionFlow(ctx, q2.ID, env.authorID, FlowInput{DefaultNext: goTo(t, q1.ID)})
	var fve *FlowValidationError
	require.True(t, errors.As(err, &fve))
	assert.False(t, report.Valid)

	var stored models.Question
	require.NoError(t, env.db.First(&stored, q2.ID).Error)
	assert.False(t, stored.DefaultNext.Present())

	// deleting the only target of a step is refused the same way
	env.setNext(t, q1.ID, goTo(t, q2.ID))
	_, err = env.surveys.DeleteQuestion(ctx, q2.ID, env.authorID)
	assert.ErrorIs(t, err, flow.ErrMissingTarget)

	var count int64
	env.db.Model(&models.Question{}).Where("survey_id = ?", s.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSurveyService_QuestionInputRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Rules")
	lo, hi := 3, 1

	tests := []struct {
		name  string
		input QuestionInput
	}{
		{"missing text", QuestionInput{Kind: answers.KindText}},
		{"unknown kind", QuestionInput{Text: "x", Kind: answers.Kind("Slider")}},
		{"one option", QuestionInput{Text: "x", Kind: answers.KindSingleChoice, Options: []OptionInput{{Text: "A"}}}},
		{"duplicate options", QuestionInput{Text: "x", Kind: answers.KindSingleChoice, Options: []OptionInput{{Text: "A"}, {Text: "a"}}}},
		{"multiple choice next", QuestionInput{Text: "x", Kind: answers.KindMultipleChoice, Options: []OptionInput{
			{Text: "A", Next: flow.Ptr(flow.EndSurvey())}, {Text: "B"},
		}}},
		{"options on text", QuestionInput{Text: "x", Kind: answers.KindText, Options: []OptionInput{{Text: "A"}, {Text: "B"}}}},
		{"inverted scale", QuestionInput{Text: "x", Kind: answers.KindRating, ScaleMin: &lo, ScaleMax: &hi}},
		{"branching default next", QuestionInput{Text: "x", Kind: answers.KindSingleChoice,
			Options: []OptionInput{{Text: "A"}, {Text: "B"}}, DefaultNext: flow.Ptr(flow.EndSurvey())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.surveys.CreateQuestion(ctx, s.ID, env.authorID, tt.input)
			assert.ErrorIs(t, err, ErrInvalidQuestion)
		})
	}
}

func TestResponseService_BranchingWalk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, qs := colorSurvey(t, env)
	_, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	start, err := env.responses.StartResponse(ctx, s.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, qs[0].ID, start.Question.ID)
	assert.NotEmpty(t, start.Response.Token)

	res, err := env.responses.SubmitAnswer(ctx, start.Response.ID, qs[0].ID, answers.Input{Options: []string{"red"}})
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestion)
	assert.Equal(t, qs[2].ID, res.NextQuestion.ID)
	assert.False(t, res.IsComplete)

	res, err = env.responses.SubmitAnswer(ctx, start.Response.ID, qs[2].ID, answers.Input{Text: "warm"})
	require.NoError(t, err)
	assert.True(t, res.IsComplete)
	assert.Nil(t, res.NextQuestion)

	resp, err := env.responses.GetResponse(start.Response.ID, env.authorID)
	require.NoError(t, err)
	assert.True(t, resp.IsComplete)
	assert.NotNil(t, resp.CompletedAt)
	assert.Equal(t, []uint{qs[0].ID, qs[2].ID}, []uint(resp.Visited))
	require.Len(t, resp.Answers, 2)

	values, err := DecodeAnswers(resp.Answers)
	require.NoError(t, err)
	assert.Equal(t, "Red", values[qs[0].ID].Display())

	assert.Equal(t, []string{
		EventResponseStarted, EventAnswerReceived, EventAnswerReceived, EventResponseCompleted,
	}, env.events.types())

	_, err = env.responses.SubmitAnswer(ctx, start.Response.ID, qs[1].ID, answers.Input{Text: "late"})
	assert.ErrorIs(t, err, ErrResponseComplete)

	_, err = env.responses.StartResponse(ctx, s.ID, 7)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
}

func TestResponseService_EndSurveyBeatsSequentialOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Short")
	q1 := env.question(t, s.ID, QuestionInput{Text: "Rate us", Kind: answers.KindRating})
	env.question(t, s.ID, text("Never asked"))
	env.setNext(t, q1.ID, flow.Ptr(flow.EndSurvey()))
	_, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	start, err := env.responses.StartResponse(ctx, s.ID, 1)
	require.NoError(t, err)

	res, err := env.responses.SubmitAnswer(ctx, start.Response.ID, q1.ID, answers.Input{Text: "4"})
	require.NoError(t, err)
	assert.True(t, res.IsComplete)
}

func TestResponseService_ValidationLeavesResponseUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Rating")
	q1 := env.question(t, s.ID, QuestionInput{Text: "Rate us", Kind: answers.KindRating})
	q2 := env.question(t, s.ID, text("Comments"))
	_, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	start, err := env.responses.StartResponse(ctx, s.ID, 3)
	require.NoError(t, err)

	_, err = env.responses.SubmitAnswer(ctx, start.Response.ID, q1.ID, answers.Input{Text: "9"})
	require.Error(t, err)
	assert.True(t, IsAnswerValidationError(err))
	assert.False(t, IsFlowRuntimeError(err))
	assert.ErrorIs(t, err, answers.ErrOutOfRange)

	var stored models.Response
	require.NoError(t, env.db.First(&stored, start.Response.ID).Error)
	assert.Empty(t, stored.Visited)
	var count int64
	env.db.Model(&models.Answer{}).Where("response_id = ?", stored.ID).Count(&count)
	assert.Zero(t, count)

	_, err = env.responses.SubmitAnswer(ctx, start.Response.ID, q2.ID, answers.Input{Text: "skip"})
	assert.ErrorIs(t, err, ErrNotCurrentQuestion)
	assert.True(t, IsFlowRuntimeError(err))

	res, err := env.responses.SubmitAnswer(ctx, start.Response.ID, q1.ID, answers.Input{Text: "5"})
	require.NoError(t, err)
	assert.Equal(t, q2.ID, res.NextQuestion.ID)

	_, err = env.responses.SubmitAnswer(ctx, start.Response.ID, q1.ID, answers.Input{Text: "5"})
	assert.ErrorIs(t, err, flow.ErrAlreadyAnswered)
}

func TestResponseService_StartRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Draft")
	q1 := env.question(t, s.ID, text("Only"))

	_, err := env.responses.StartResponse(ctx, s.ID, 5)
	assert.ErrorIs(t, err, ErrSurveyInactive)

	preview, err := env.responses.StartPreview(ctx, s.ID, env.authorID)
	require.NoError(t, err)
	assert.Equal(t, q1.ID, preview.Question.ID)
	assert.Zero(t, preview.Response.RespondentID)

	_, err = env.responses.StartPreview(ctx, s.ID, env.authorID+1)
	assert.ErrorIs(t, err, ErrSurveyNotFound)

	_, _, err = env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	first, err := env.responses.StartResponse(ctx, s.ID, 5)
	require.NoError(t, err)
	again, err := env.responses.StartResponse(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, first.Response.ID, again.Response.ID)

	summaries, err := env.responses.ListResponses(s.ID, env.authorID)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestTelegramUserService_GetOrCreate(t *testing.T) {
	env := newTestEnv(t)
	users := NewTelegramUserService(env.db)

	u, created, err := users.GetOrCreate(env.authorID, 42, "ann", "Ann")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := users.GetOrCreate(env.authorID, 42, "ann_b", "Ann")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "ann_b", again.Username)

	history, err := users.GetHistory(u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSurveyService_ExportImport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, _ := colorSurvey(t, env)

	doc, err := env.surveys.ExportSurvey(s.ID, env.authorID)
	require.NoError(t, err)
	require.Len(t, doc.Questions, 3)
	assert.Equal(t, surveydoc.QuestionRef(3), doc.Questions[0].Options[0].Next)
	assert.Equal(t, surveydoc.EndRef(), doc.Questions[1].Next)
	assert.Nil(t, doc.Questions[2].Next)

	imported, report, err := env.surveys.ImportSurvey(ctx, env.authorID, doc)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.NotEqual(t, s.ID, imported.ID)
	assert.False(t, imported.IsActive)
	require.Len(t, imported.Questions, 3)

	red := imported.Questions[0].Options[0]
	to, ok := red.Next.Target()
	require.True(t, ok)
	assert.Equal(t, imported.Questions[2].ID, to)

	again, err := env.surveys.ExportSurvey(imported.ID, env.authorID)
	require.NoError(t, err)
	assert.Equal(t, doc, again)

	doc.Questions[1].Next = surveydoc.QuestionRef(9)
	_, _, err = env.surveys.ImportSurvey(ctx, env.authorID, doc)
	assert.ErrorIs(t, err, surveydoc.ErrInvalidDocument)
}

func TestFlowService_EditDuringLoadIsNotCachedStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Stale")
	q1 := env.question(t, s.ID, text("First?"))
	env.question(t, s.ID, text("Second?"))

	// a load that read version and nodes just before the edit committed
	version, err := flowVersion(env.db, s.ID)
	require.NoError(t, err)
	nodes, err := loadNodes(env.db, s.ID)
	require.NoError(t, err)

	env.setNext(t, q1.ID, flow.Ptr(flow.EndSurvey()))
	require.NoError(t, env.flows.cache.Set(ctx, s.ID, version, nodes))

	g, err := env.flows.LoadGraph(ctx, s.ID)
	require.NoError(t, err)
	answer, err := answers.NewText("hi")
	require.NoError(t, err)
	step, err := flow.NewNavigator(g).DetermineNextStep(q1.ID, answer)
	require.NoError(t, err)
	assert.True(t, step.IsEnd())
}

func TestSurveyService_ExportKeepsDanglingStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Dangling")
	q1 := env.question(t, s.ID, text("First?"))
	env.question(t, s.ID, text("Second?"))
	q3 := env.question(t, s.ID, text("Third?"))

	env.setNext(t, q1.ID, goTo(t, q3.ID))
	report, err := env.surveys.DeleteQuestion(ctx, q3.ID, env.authorID)
	require.NoError(t, err)
	assert.False(t, report.Valid)

	doc, err := env.surveys.ExportSurvey(s.ID, env.authorID)
	require.NoError(t, err)
	require.Len(t, doc.Questions, 2)
	assert.Equal(t, surveydoc.QuestionRef(3), doc.Questions[0].Next)

	g, err := doc.Graph()
	require.NoError(t, err)
	assert.False(t, flow.Validate(g).Valid)

	_, _, err = env.surveys.ImportSurvey(ctx, env.authorID, doc)
	assert.ErrorIs(t, err, surveydoc.ErrInvalidDocument)
}

func TestResponseService_RatingWithNumericLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.survey(t, "Tens")
	lo, hi := 1, 3
	q := env.question(t, s.ID, QuestionInput{
		Text:     "How many?",
		Kind:     answers.KindRating,
		ScaleMin: &lo,
		ScaleMax: &hi,
		Options:  []OptionInput{{Text: "10"}, {Text: "20"}, {Text: "30"}},
	})
	env.setNext(t, q.ID, flow.Ptr(flow.EndSurvey()))
	_, _, err := env.surveys.Activate(ctx, s.ID, env.authorID)
	require.NoError(t, err)

	start, err := env.responses.StartResponse(ctx, s.ID, 7)
	require.NoError(t, err)
	res, err := env.responses.SubmitAnswer(ctx, start.Response.ID, q.ID, answers.Input{Options: []string{"20"}})
	require.NoError(t, err)
	assert.True(t, res.IsComplete)

	resp, err := env.responses.GetResponse(start.Response.ID, env.authorID)
	require.NoError(t, err)
	values, err := DecodeAnswers(resp.Answers)
	require.NoError(t, err)
	assert.Equal(t, 2, values[q.ID].(answers.Rating).Value())
}
