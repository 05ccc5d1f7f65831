package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventResponseStarted   = "response_started"
	EventAnswerReceived    = "answer_received"
	EventResponseCompleted = "response_completed"
)

// EventPublisher receives live survey events. The websocket hub implements it.
type EventPublisher interface {
	Publish(surveyID uint, eventType string, data interface{})
}

type ResponseService struct {
	db     *gorm.DB
	flows  *FlowService
	events EventPublisher
}

func NewResponseService(db *gorm.DB, flows *FlowService, events EventPublisher) *ResponseService {
	return &ResponseService{db: db, flows: flows, events: events}
}

type StartResult struct {
	Response *models.Response `json:"response"`
	Question *models.Question `json:"question"`
	Resumed  bool             `json:"resumed"`
}

type SubmitResult struct {
	Answer       answers.Value    `json:"answer" swaggertype:"object"`
	NextQuestion *models.Question `json:"next_question,omitempty"`
	IsComplete   bool             `json:"is_complete"`
}

type ResponseSummary struct {
	ID           uint       `json:"id"`
	RespondentID uint       `json:"respondent_id"`
	IsComplete   bool       `json:"is_complete"`
	AnswerCount  int64      `json:"answer_count"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// StartResponse opens a response for a respondent. An unfinished response is
// resumed; a finished one blocks a new start unless the survey allows it.
func (s *ResponseService) StartResponse(ctx context.Context, surveyID, respondentID uint) (*StartResult, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).First(&survey, surveyID).Error; err != nil {
		return nil, ErrSurveyNotFound
	}
	if !survey.IsActive {
		return nil, ErrSurveyInactive
	}

	if respondentID != 0 {
		var existing models.Response
		err := s.db.WithContext(ctx).
			Where("survey_id = ? AND respondent_id = ? AND is_complete = ?", surveyID, respondentID, false).
			Order("id DESC").
			First(&existing).Error
		if err == nil && existing.CurrentQuestionID != nil {
			q, err := s.loadQuestion(s.db.WithContext(ctx), *existing.CurrentQuestionID)
			if err == nil {
				return &StartResult{Response: &existing, Question: q, Resumed: true}, nil
			}
		}

		if !survey.AllowMultipleResponses {
			var done int64
			s.db.WithContext(ctx).Model(&models.Response{}).
				Where("survey_id = ? AND respondent_id = ? AND is_complete = ?", surveyID, respondentID, true).
				Count(&done)
			if done > 0 {
				return nil, ErrAlreadyResponded
			}
		}
	}

	return s.start(ctx, &survey, respondentID)
}

// StartPreview lets an author walk through their own survey before it goes live.
func (s *ResponseService) StartPreview(ctx context.Context, surveyID, authorID uint) (*StartResult, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).Where("id = ? AND author_id = ?", surveyID, authorID).First(&survey).Error; err != nil {
		return nil, ErrSurveyNotFound
	}
	return s.start(ctx, &survey, 0)
}

func (s *ResponseService) start(ctx context.Context, survey *models.Survey, respondentID uint) (*StartResult, error) {
	g, err := s.flows.LoadGraph(ctx, survey.ID)
	if err != nil {
		return nil, err
	}
	first, ok := g.First()
	if !ok {
		return nil, flow.ErrEmptySurvey
	}

	resp := models.Response{
		SurveyID:          survey.ID,
		RespondentID:      respondentID,
		Token:             uuid.NewString(),
		Visited:           datatypes.JSONSlice[uint]{},
		CurrentQuestionID: &first,
	}
	if err := s.db.WithContext(ctx).Create(&resp).Error; err != nil {
		return nil, err
	}

	q, err := s.loadQuestion(s.db.WithContext(ctx), first)
	if err != nil {
		return nil, err
	}

	s.publish(survey.ID, EventResponseStarted, eventData{
		"response_id":   resp.ID,
		"respondent_id": respondentID,
	})
	return &StartResult{Response: &resp, Question: q}, nil
}

// SubmitAnswer validates raw input against the question, resolves the next
// step and persists the answer together with the response progress.
//
// Validation failures come back as *answers.ValidationError and leave the
// response untouched. Flow failures wrap the flow package sentinels.
func (s *ResponseService) SubmitAnswer(ctx context.Context, responseID, questionID uint, input answers.Input) (*SubmitResult, error) {
	var resp models.Response
	if err := s.db.WithContext(ctx).First(&resp, responseID).Error; err != nil {
		return nil, ErrResponseNotFound
	}
	g, err := s.flows.LoadGraph(ctx, resp.SurveyID)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&resp, responseID).Error; err != nil {
			return ErrResponseNotFound
		}
		if resp.IsComplete {
			return ErrResponseComplete
		}

		question, err := s.loadQuestion(tx, questionID)
		if err != nil || question.SurveyID != resp.SurveyID {
			return ErrQuestionNotFound
		}

		progress := &flow.Progress{
			Visited:      append([]uint(nil), resp.Visited...),
			LastAnswered: resp.LastAnsweredQuestionID,
		}
		if progress.HasVisited(questionID) {
			return fmt.Errorf("question %d: %w", questionID, flow.ErrAlreadyAnswered)
		}
		if resp.CurrentQuestionID != nil && *resp.CurrentQuestionID != questionID {
			return fmt.Errorf("expected question %d, got %d: %w", *resp.CurrentQuestionID, questionID, ErrNotCurrentQuestion)
		}

		value, err := answers.Parse(question.Kind, input, QuestionConstraints(*question))
		if err != nil {
			return err
		}

		res, err := flow.NewNavigator(g).ResolveNextQuestion(progress, questionID, value)
		if err != nil {
			return err
		}

		encoded, err := answers.Encode(value)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Create(&models.Answer{
			ResponseID: resp.ID,
			QuestionID: questionID,
			Value:      datatypes.JSON(encoded),
			AnsweredAt: now,
		}).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"visited":                   datatypes.JSONSlice[uint](progress.Visited),
			"last_answered_question_id": questionID,
			"is_complete":               res.IsComplete,
		}
		if res.IsComplete {
			updates["current_question_id"] = nil
			updates["completed_at"] = now
		} else {
			updates["current_question_id"] = res.Next.ID
		}
		if err := tx.Model(&resp).Updates(updates).Error; err != nil {
			return err
		}

		result.Answer = value
		result.IsComplete = res.IsComplete
		if !res.IsComplete {
			next, err := s.loadQuestion(tx, res.Next.ID)
			if err != nil {
				return err
			}
			result.NextQuestion = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(resp.SurveyID, EventAnswerReceived, eventData{
		"response_id": resp.ID,
		"question_id": questionID,
		"answer":      result.Answer,
	})
	if result.IsComplete {
		s.publish(resp.SurveyID, EventResponseCompleted, eventData{"response_id": resp.ID})
	}
	return &result, nil
}

// GetResponse returns a response with its answers, checking survey ownership.
func (s *ResponseService) GetResponse(responseID, authorID uint) (*models.Response, error) {
	var resp models.Response
	err := s.db.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("answered_at ASC, id ASC")
	}).First(&resp, responseID).Error
	if err != nil {
		return nil, ErrResponseNotFound
	}
	if err := s.authorOwnsSurvey(resp.SurveyID, authorID); err != nil {
		return nil, ErrResponseNotFound
	}
	return &resp, nil
}

// GetForRespondent returns the response if it belongs to respondentID.
func (s *ResponseService) GetForRespondent(responseID, respondentID uint) (*models.Response, error) {
	var resp models.Response
	if err := s.db.Where("id = ? AND respondent_id = ?", responseID, respondentID).First(&resp).Error; err != nil {
		return nil, ErrResponseNotFound
	}
	return &resp, nil
}

func (s *ResponseService) ListResponses(surveyID, authorID uint) ([]ResponseSummary, error) {
	if err := s.authorOwnsSurvey(surveyID, authorID); err != nil {
		return nil, err
	}

	var responses []models.Response
	if err := s.db.Where("survey_id = ?", surveyID).Order("started_at DESC").Find(&responses).Error; err != nil {
		return nil, err
	}

	summaries := make([]ResponseSummary, 0, len(responses))
	for _, r := range responses {
		var count int64
		s.db.Model(&models.Answer{}).Where("response_id = ?", r.ID).Count(&count)
		summaries = append(summaries, ResponseSummary{
			ID:           r.ID,
			RespondentID: r.RespondentID,
			IsComplete:   r.IsComplete,
			AnswerCount:  count,
			StartedAt:    r.StartedAt,
			CompletedAt:  r.CompletedAt,
		})
	}
	return summaries, nil
}

// CurrentQuestion returns the question the response is waiting on, or nil
// when the response is complete.
func (s *ResponseService) CurrentQuestion(responseID uint) (*models.Question, error) {
	var resp models.Response
	if err := s.db.First(&resp, responseID).Error; err != nil {
		return nil, ErrResponseNotFound
	}
	if resp.IsComplete || resp.CurrentQuestionID == nil {
		return nil, nil
	}
	return s.loadQuestion(s.db, *resp.CurrentQuestionID)
}

// DecodeAnswers turns stored answer records back into values, keyed by question id.
func DecodeAnswers(list []models.Answer) (map[uint]answers.Value, error) {
	out := make(map[uint]answers.Value, len(list))
	for _, a := range list {
		v, err := answers.Decode(a.Value)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", a.ID, err)
		}
		out[a.QuestionID] = v
	}
	return out, nil
}

func (s *ResponseService) authorOwnsSurvey(surveyID, authorID uint) error {
	var count int64
	s.db.Model(&models.Survey{}).Where("id = ? AND author_id = ?", surveyID, authorID).Count(&count)
	if count == 0 {
		return ErrSurveyNotFound
	}
	return nil
}

func (s *ResponseService) loadQuestion(db *gorm.DB, questionID uint) (*models.Question, error) {
	var q models.Question
	err := db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_num ASC, id ASC")
	}).First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *ResponseService) publish(surveyID uint, eventType string, data interface{}) {
	if s.events != nil {
		s.events.Publish(surveyID, eventType, data)
	}
}

type eventData map[string]interface{}
