package services

import (
	"context"
	"fmt"

	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/surveydoc"

	"gorm.io/gorm"
)

// ExportSurvey renders a survey as a portable document. A step that points at
// a question no longer in the survey is exported as a position past the last
// question, so the document stays as invalid as the survey it came from.
func (s *SurveyService) ExportSurvey(surveyID, authorID uint) (*surveydoc.Document, error) {
	survey, err := s.GetSurvey(surveyID, authorID)
	if err != nil {
		return nil, err
	}

	positions := make(map[uint]int, len(survey.Questions))
	for i, q := range survey.Questions {
		positions[q.ID] = i + 1
	}
	ref := func(step *flow.Step) *surveydoc.StepRef {
		if !step.Present() {
			return nil
		}
		if step.IsEnd() {
			return surveydoc.EndRef()
		}
		to, _ := step.Target()
		pos, ok := positions[to]
		if !ok {
			return surveydoc.QuestionRef(len(survey.Questions) + 1)
		}
		return surveydoc.QuestionRef(pos)
	}

	doc := &surveydoc.Document{
		Title:                  survey.Title,
		Description:            survey.Description,
		AllowMultipleResponses: survey.AllowMultipleResponses,
		Questions:              make([]surveydoc.Question, 0, len(survey.Questions)),
	}
	for _, q := range survey.Questions {
		dq := surveydoc.Question{
			Text:      q.Text,
			Kind:      q.Kind,
			ScaleMin:  q.ScaleMin,
			ScaleMax:  q.ScaleMax,
			NumberMin: q.NumberMin,
			NumberMax: q.NumberMax,
			DateMin:   q.DateMin,
			DateMax:   q.DateMax,
			Next:      ref(q.DefaultNext),
		}
		for _, o := range q.Options {
			dq.Options = append(dq.Options, surveydoc.Option{Text: o.Text, Next: ref(o.Next)})
		}
		doc.Questions = append(doc.Questions, dq)
	}
	return doc, nil
}

// ImportSurvey creates a new inactive survey from a document. Questions are
// created first so that steps can be resolved to their new ids.
func (s *SurveyService) ImportSurvey(ctx context.Context, authorID uint, doc *surveydoc.Document) (*models.Survey, flow.Report, error) {
	if err := doc.Check(); err != nil {
		return nil, flow.Report{}, err
	}

	inputs := make([]QuestionInput, len(doc.Questions))
	for i, dq := range doc.Questions {
		input := QuestionInput{
			Text:      dq.Text,
			Kind:      dq.Kind,
			ScaleMin:  dq.ScaleMin,
			ScaleMax:  dq.ScaleMax,
			NumberMin: dq.NumberMin,
			NumberMax: dq.NumberMax,
			DateMin:   dq.DateMin,
			DateMax:   dq.DateMax,
		}
		// placeholders so input validation sees which steps are set
		if dq.Next != nil {
			input.DefaultNext = flow.Ptr(flow.EndSurvey())
		}
		for _, o := range dq.Options {
			oi := OptionInput{Text: o.Text}
			if o.Next != nil {
				oi.Next = flow.Ptr(flow.EndSurvey())
			}
			input.Options = append(input.Options, oi)
		}
		if err := validateQuestionInput(input); err != nil {
			return nil, flow.Report{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		input.DefaultNext = nil
		for j := range input.Options {
			input.Options[j].Next = nil
		}
		inputs[i] = input
	}

	survey := &models.Survey{
		AuthorID:               authorID,
		Title:                  doc.Title,
		Description:            doc.Description,
		Code:                   s.generateUniqueCode(),
		AllowMultipleResponses: doc.AllowMultipleResponses,
	}

	var report flow.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(survey).Error; err != nil {
			return err
		}

		created := make([]models.Question, len(inputs))
		ids := make([]uint, len(inputs))
		for i, input := range inputs {
			q := questionFromInput(input)
			q.SurveyID = survey.ID
			q.OrderNum = i + 1
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			created[i] = q
			ids[i] = q.ID
		}

		for i, dq := range doc.Questions {
			next, err := dq.Next.Step(ids)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			if next != nil {
				if err := tx.Model(&models.Question{}).Where("id = ?", ids[i]).
					Update("default_next", stepValue(next)).Error; err != nil {
					return err
				}
			}
			for j, o := range dq.Options {
				next, err := o.Next.Step(ids)
				if err != nil {
					return fmt.Errorf("question %d option %d: %w", i+1, j+1, err)
				}
				if next == nil {
					continue
				}
				if err := tx.Model(&models.Option{}).Where("id = ?", created[i].Options[j].ID).
					Update("next", stepValue(next)).Error; err != nil {
					return err
				}
			}
		}

		r, err := validateWithin(tx, survey.ID)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	imported, err := s.GetSurvey(survey.ID, authorID)
	if err != nil {
		return nil, report, err
	}
	return imported, report, nil
}
