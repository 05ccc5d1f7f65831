// Package flow holds the conditional question-flow engine: the Step value,
// the per-survey question graph, its validator and the runtime navigator.
package flow

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

type StepType string

const (
	StepGoToQuestion StepType = "GoToQuestion"
	StepEndSurvey    StepType = "EndSurvey"
)

var ErrInvalidStep = errors.New("invalid flow step")

// Step is where a respondent goes after a question or option. A nil *Step
// means nothing is configured.
type Step struct {
	typ    StepType
	target uint
}

func GoToQuestion(questionID uint) (Step, error) {
	if questionID == 0 {
		return Step{}, fmt.Errorf("%w: GoToQuestion needs a positive question id", ErrInvalidStep)
	}
	return Step{typ: StepGoToQuestion, target: questionID}, nil
}

func EndSurvey() Step {
	return Step{typ: StepEndSurvey}
}

func (s Step) Type() StepType { return s.typ }
func (s Step) IsEnd() bool    { return s.typ == StepEndSurvey }

// Target returns the question id of a GoToQuestion step.
func (s Step) Target() (uint, bool) {
	if s.typ != StepGoToQuestion {
		return 0, false
	}
	return s.target, true
}

func (s Step) String() string {
	switch s.typ {
	case StepGoToQuestion:
		return fmt.Sprintf("GoToQuestion(%d)", s.target)
	case StepEndSurvey:
		return "EndSurvey"
	}
	return "<unset>"
}

// Present reports whether p holds a configured step.
func (p *Step) Present() bool {
	return p != nil && p.typ != ""
}

type stepRecord struct {
	Type       StepType `json:"type"`
	QuestionID *int64   `json:"questionId,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	switch s.typ {
	case StepGoToQuestion:
		id := int64(s.target)
		return json.Marshal(stepRecord{Type: StepGoToQuestion, QuestionID: &id})
	case StepEndSurvey:
		return json.Marshal(stepRecord{Type: StepEndSurvey})
	}
	return []byte("null"), nil
}

func (s *Step) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Step{}
		return nil
	}
	var rec stepRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStep, err)
	}
	step, err := rec.step()
	if err != nil {
		return err
	}
	*s = step
	return nil
}

func (r stepRecord) step() (Step, error) {
	switch r.Type {
	case StepGoToQuestion:
		if r.QuestionID == nil || *r.QuestionID <= 0 {
			return Step{}, fmt.Errorf("%w: GoToQuestion needs a positive questionId", ErrInvalidStep)
		}
		return GoToQuestion(uint(*r.QuestionID))
	case StepEndSurvey:
		if r.QuestionID != nil {
			return Step{}, fmt.Errorf("%w: EndSurvey must not carry a questionId", ErrInvalidStep)
		}
		return EndSurvey(), nil
	}
	return Step{}, fmt.Errorf("%w: unknown step type %q", ErrInvalidStep, r.Type)
}

// Value stores the step as its JSON record; an unset step is NULL.
func (s Step) Value() (driver.Value, error) {
	if s.typ == "" {
		return nil, nil
	}
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Step) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = Step{}
		return nil
	case string:
		return s.UnmarshalJSON([]byte(v))
	case []byte:
		return s.UnmarshalJSON(v)
	}
	return fmt.Errorf("%w: cannot scan %T", ErrInvalidStep, src)
}

// Ptr is a convenience for building optional steps.
func Ptr(s Step) *Step {
	return &s
}
