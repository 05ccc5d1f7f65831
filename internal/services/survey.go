package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"
)

const (
	MinChoiceOptions = 2
	MaxChoiceOptions = 10
	MaxRatingSpan    = 11
)

type SurveyService struct {
	db    *gorm.DB
	flows *FlowService
}

func NewSurveyService(db *gorm.DB, flows *FlowService) *SurveyService {
	return &SurveyService{db: db, flows: flows}
}

type SurveyInput struct {
	Title                  string `json:"title" binding:"required" example:"Team feedback"`
	Description            string `json:"description"`
	AllowMultipleResponses bool   `json:"allow_multiple_responses"`
}

type QuestionInput struct {
	Text        string        `json:"text" example:"What is your favorite color?"`
	Kind        answers.Kind  `json:"kind" example:"SingleChoice"`
	OrderNum    *int          `json:"order_num,omitempty"`
	ScaleMin    *int          `json:"scale_min,omitempty"`
	ScaleMax    *int          `json:"scale_max,omitempty"`
	NumberMin   *float64      `json:"number_min,omitempty"`
	NumberMax   *float64      `json:"number_max,omitempty"`
	DateMin     *string       `json:"date_min,omitempty"`
	DateMax     *string       `json:"date_max,omitempty"`
	DefaultNext *flow.Step    `json:"default_next,omitempty" swaggertype:"object"`
	Options     []OptionInput `json:"options,omitempty"`
}

type OptionInput struct {
	Text string     `json:"text" example:"Red"`
	Next *flow.Step `json:"next,omitempty" swaggertype:"object"`
}

type QuestionOrder struct {
	ID       uint `json:"id"`
	OrderNum int  `json:"order_num"`
}

type FlowInput struct {
	DefaultNext *flow.Step        `json:"default_next" swaggertype:"object"`
	Options     []OptionFlowInput `json:"options,omitempty"`
}

type OptionFlowInput struct {
	OptionID uint       `json:"option_id"`
	Next     *flow.Step `json:"next" swaggertype:"object"`
}

func preloadQuestions(db *gorm.DB) *gorm.DB {
	return db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_num ASC, id ASC")
	}).Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_num ASC, id ASC")
	})
}

func (s *SurveyService) ListSurveys(authorID uint) ([]models.Survey, error) {
	var surveys []models.Survey
	err := preloadQuestions(s.db).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&surveys).Error
	return surveys, err
}

func (s *SurveyService) CreateSurvey(authorID uint, input SurveyInput) (*models.Survey, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	survey := models.Survey{
		AuthorID:               authorID,
		Title:                  title,
		Description:            strings.TrimSpace(input.Description),
		Code:                   s.generateUniqueCode(),
		AllowMultipleResponses: input.AllowMultipleResponses,
	}
	if err := s.db.Create(&survey).Error; err != nil {
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyService) GetSurvey(surveyID, authorID uint) (*models.Survey, error) {
	var survey models.Survey
	err := preloadQuestions(s.db).
		Where("id = ? AND author_id = ?", surveyID, authorID).
		First(&survey).Error
	if err != nil {
		return nil, ErrSurveyNotFound
	}
	return &survey, nil
}

// GetActiveSurveyByCode is the respondent entry point used by the bot.
func (s *SurveyService) GetActiveSurveyByCode(code string) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.Where("code = ?", strings.TrimSpace(code)).First(&survey).Error; err != nil {
		return nil, ErrSurveyNotFound
	}
	if !survey.IsActive {
		return nil, ErrSurveyInactive
	}
	return &survey, nil
}

func (s *SurveyService) UpdateSurvey(surveyID, authorID uint, input SurveyInput) (*models.Survey, error) {
	survey, err := s.ownedSurvey(s.db, surveyID, authorID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	survey.Title = title
	survey.Description = strings.TrimSpace(input.Description)
	survey.AllowMultipleResponses = input.AllowMultipleResponses
	if err := s.db.Omit("Questions", "FlowVersion").Save(survey).Error; err != nil {
		return nil, err
	}
	return survey, nil
}

func (s *SurveyService) DeleteSurvey(ctx context.Context, surveyID, authorID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND author_id = ?", surveyID, authorID).Delete(&models.Survey{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSurveyNotFound
	}
	s.flows.Invalidate(ctx, surveyID)
	return nil
}

func (s *SurveyService) CreateQuestion(ctx context.Context, surveyID, authorID uint, input QuestionInput) (*models.Question, flow.Report, error) {
	survey, err := s.ownedSurvey(s.db, surveyID, authorID)
	if err != nil {
		return nil, flow.Report{}, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, flow.Report{}, err
	}

	question := questionFromInput(input)
	question.SurveyID = surveyID

	report, err := s.applyEdit(ctx, survey, func(tx *gorm.DB) error {
		if input.OrderNum == nil {
			var maxOrder int
			tx.Model(&models.Question{}).Where("survey_id = ?", surveyID).Select("COALESCE(MAX(order_num), 0)").Scan(&maxOrder)
			question.OrderNum = maxOrder + 1
		}
		return tx.Create(&question).Error
	})
	if err != nil {
		return nil, report, err
	}

	return s.reloadQuestion(question.ID), report, nil
}

func (s *SurveyService) UpdateQuestion(ctx context.Context, questionID, authorID uint, input QuestionInput) (*models.Question, flow.Report, error) {
	question, survey, err := s.ownedQuestion(questionID, authorID)
	if err != nil {
		return nil, flow.Report{}, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, flow.Report{}, err
	}

	updated := questionFromInput(input)
	updated.ID = question.ID
	updated.SurveyID = question.SurveyID
	if input.OrderNum == nil {
		updated.OrderNum = question.OrderNum
	}

	report, err := s.applyEdit(ctx, survey, func(tx *gorm.DB) error {
		if err := tx.Omit("Options").Save(&updated).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		for i := range updated.Options {
			updated.Options[i].QuestionID = questionID
			if err := tx.Create(&updated.Options[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	return s.reloadQuestion(questionID), report, nil
}

func (s *SurveyService) DeleteQuestion(ctx context.Context, questionID, authorID uint) (flow.Report, error) {
	question, survey, err := s.ownedQuestion(questionID, authorID)
	if err != nil {
		return flow.Report{}, err
	}

	return s.applyEdit(ctx, survey, func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, question.ID).Error
	})
}

func (s *SurveyService) ReorderQuestions(ctx context.Context, surveyID, authorID uint, order []QuestionOrder) (flow.Report, error) {
	survey, err := s.ownedSurvey(s.db, surveyID, authorID)
	if err != nil {
		return flow.Report{}, err
	}

	return s.applyEdit(ctx, survey, func(tx *gorm.DB) error {
		for _, q := range order {
			result := tx.Model(&models.Question{}).
				Where("id = ? AND survey_id = ?", q.ID, surveyID).
				Update("order_num", q.OrderNum)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("question %d: %w", q.ID, ErrQuestionNotFound)
			}
		}
		return nil
	})
}

// UpdateQuestionFlow replaces the flow configuration of one question. Branching
// questions take per-option steps, every other kind takes a default step.
func (s *SurveyService) UpdateQuestionFlow(ctx context.Context, questionID, authorID uint, input FlowInput) (*models.Question, flow.Report, error) {
	question, survey, err := s.ownedQuestion(questionID, authorID)
	if err != nil {
		return nil, flow.Report{}, err
	}

	branching := isBranching(question.Kind, len(question.Options))
	if branching && input.DefaultNext.Present() {
		return nil, flow.Report{}, invalidQuestion("%s question %d branches per option, set next on its options", question.Kind, questionID)
	}
	if !branching && len(input.Options) > 0 {
		return nil, flow.Report{}, invalidQuestion("%s question %d does not branch, set default_next instead", question.Kind, questionID)
	}

	owned := make(map[uint]bool, len(question.Options))
	for _, o := range question.Options {
		owned[o.ID] = true
	}
	for _, o := range input.Options {
		if !owned[o.OptionID] {
			return nil, flow.Report{}, invalidQuestion("option %d does not belong to question %d", o.OptionID, questionID)
		}
	}

	report, err := s.applyEdit(ctx, survey, func(tx *gorm.DB) error {
		if !branching {
			return tx.Model(&models.Question{}).Where("id = ?", questionID).
				Update("default_next", stepValue(input.DefaultNext)).Error
		}
		for _, o := range input.Options {
			if err := tx.Model(&models.Option{}).Where("id = ? AND question_id = ?", o.OptionID, questionID).
				Update("next", stepValue(o.Next)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	return s.reloadQuestion(questionID), report, nil
}

// Activate puts the survey live. An invalid flow blocks activation and the
// report is returned inside a FlowValidationError.
func (s *SurveyService) Activate(ctx context.Context, surveyID, authorID uint) (*models.Survey, flow.Report, error) {
	survey, err := s.ownedSurvey(s.db, surveyID, authorID)
	if err != nil {
		return nil, flow.Report{}, err
	}

	s.flows.Invalidate(ctx, surveyID)
	report, err := s.flows.ValidateSurveyFlow(ctx, surveyID)
	if err != nil {
		return nil, report, err
	}
	if !report.Valid {
		return nil, report, &FlowValidationError{Report: report}
	}

	if err := s.db.Model(survey).Update("is_active", true).Error; err != nil {
		return nil, report, err
	}
	survey.IsActive = true
	return survey, report, nil
}

func (s *SurveyService) Deactivate(surveyID, authorID uint) (*models.Survey, error) {
	survey, err := s.ownedSurvey(s.db, surveyID, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(survey).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	survey.IsActive = false
	return survey, nil
}

// applyEdit runs edit and re-validates the flow inside one transaction. On an
// active survey an edit that leaves the flow invalid is rolled back.
func (s *SurveyService) applyEdit(ctx context.Context, survey *models.Survey, edit func(tx *gorm.DB) error) (flow.Report, error) {
	var report flow.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := edit(tx); err != nil {
			return err
		}
		if err := bumpFlowVersion(tx, survey.ID); err != nil {
			return err
		}
		r, err := validateWithin(tx, survey.ID)
		if err != nil {
			return err
		}
		report = r
		if survey.IsActive && !r.Valid {
			return &FlowValidationError{Report: r}
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	s.flows.Invalidate(ctx, survey.ID)
	return report, nil
}

func (s *SurveyService) ownedSurvey(db *gorm.DB, surveyID, authorID uint) (*models.Survey, error) {
	var survey models.Survey
	if err := db.Where("id = ? AND author_id = ?", surveyID, authorID).First(&survey).Error; err != nil {
		return nil, ErrSurveyNotFound
	}
	return &survey, nil
}

func (s *SurveyService) ownedQuestion(questionID, authorID uint) (*models.Question, *models.Survey, error) {
	var question models.Question
	if err := s.db.Preload("Options").First(&question, questionID).Error; err != nil {
		return nil, nil, ErrQuestionNotFound
	}
	survey, err := s.ownedSurvey(s.db, question.SurveyID, authorID)
	if err != nil {
		return nil, nil, ErrAccessDenied
	}
	return &question, survey, nil
}

func (s *SurveyService) reloadQuestion(questionID uint) *models.Question {
	var q models.Question
	s.db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_num ASC, id ASC")
	}).First(&q, questionID)
	return &q
}

func (s *SurveyService) generateUniqueCode() string {
	for {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		var count int64
		s.db.Model(&models.Survey{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			return code
		}
	}
}

func stepValue(step *flow.Step) interface{} {
	if !step.Present() {
		return nil
	}
	return *step
}

func isBranching(kind answers.Kind, options int) bool {
	return kind == answers.KindSingleChoice || (kind == answers.KindRating && options > 0)
}

func questionFromInput(input QuestionInput) models.Question {
	q := models.Question{
		Text:        strings.TrimSpace(input.Text),
		Kind:        input.Kind,
		ScaleMin:    input.ScaleMin,
		ScaleMax:    input.ScaleMax,
		NumberMin:   input.NumberMin,
		NumberMax:   input.NumberMax,
		DateMin:     input.DateMin,
		DateMax:     input.DateMax,
		DefaultNext: presentOrNil(input.DefaultNext),
	}
	if input.OrderNum != nil {
		q.OrderNum = *input.OrderNum
	}
	for i, o := range input.Options {
		q.Options = append(q.Options, models.Option{
			Text:     strings.TrimSpace(o.Text),
			OrderNum: i + 1,
			Next:     presentOrNil(o.Next),
		})
	}
	return q
}

func validateQuestionInput(input QuestionInput) error {
	if strings.TrimSpace(input.Text) == "" {
		return invalidQuestion("text is required")
	}
	if !input.Kind.Valid() {
		return invalidQuestion("unknown question kind %q", input.Kind)
	}

	seen := make(map[string]bool)
	for _, o := range input.Options {
		text := strings.ToLower(strings.TrimSpace(o.Text))
		if text == "" {
			return invalidQuestion("option text is required")
		}
		if seen[text] {
			return invalidQuestion("duplicate option %q", o.Text)
		}
		seen[text] = true
	}

	if input.Kind != answers.KindRating && (input.ScaleMin != nil || input.ScaleMax != nil) {
		return invalidQuestion("only rating questions have a scale")
	}
	if input.Kind != answers.KindNumber && (input.NumberMin != nil || input.NumberMax != nil) {
		return invalidQuestion("only number questions have numeric bounds")
	}
	if input.Kind != answers.KindDate && (input.DateMin != nil || input.DateMax != nil) {
		return invalidQuestion("only date questions have date bounds")
	}

	switch input.Kind {
	case answers.KindSingleChoice, answers.KindMultipleChoice:
		if len(input.Options) < MinChoiceOptions || len(input.Options) > MaxChoiceOptions {
			return invalidQuestion("%s questions need %d to %d options", input.Kind, MinChoiceOptions, MaxChoiceOptions)
		}
		if input.Kind == answers.KindMultipleChoice {
			for _, o := range input.Options {
				if o.Next.Present() {
					return invalidQuestion("multiple choice options cannot set next, use default_next")
				}
			}
		}
	case answers.KindRating:
		scale := answers.DefaultScale
		if (input.ScaleMin == nil) != (input.ScaleMax == nil) {
			return invalidQuestion("scale_min and scale_max must be set together")
		}
		if input.ScaleMin != nil {
			scale = answers.Scale{Min: *input.ScaleMin, Max: *input.ScaleMax}
		}
		if scale.Min >= scale.Max || scale.Max-scale.Min+1 > MaxRatingSpan {
			return invalidQuestion("rating scale %d..%d is not allowed", scale.Min, scale.Max)
		}
		if n := len(input.Options); n > 0 && n != scale.Max-scale.Min+1 {
			return invalidQuestion("rating options must cover the scale %d..%d one per value", scale.Min, scale.Max)
		}
	default:
		if len(input.Options) > 0 {
			return invalidQuestion("%s questions cannot have options", input.Kind)
		}
	}

	if input.NumberMin != nil && input.NumberMax != nil && *input.NumberMin > *input.NumberMax {
		return invalidQuestion("number_min is greater than number_max")
	}
	var dmin, dmax civil.Date
	var err error
	if input.DateMin != nil {
		if dmin, err = civil.ParseDate(*input.DateMin); err != nil {
			return invalidQuestion("date_min must be YYYY-MM-DD")
		}
	}
	if input.DateMax != nil {
		if dmax, err = civil.ParseDate(*input.DateMax); err != nil {
			return invalidQuestion("date_max must be YYYY-MM-DD")
		}
	}
	if input.DateMin != nil && input.DateMax != nil && dmax.Before(dmin) {
		return invalidQuestion("date_min is after date_max")
	}

	if isBranching(input.Kind, len(input.Options)) && input.DefaultNext.Present() {
		return invalidQuestion("%s questions branch per option, set next on options instead of default_next", input.Kind)
	}
	return nil
}
