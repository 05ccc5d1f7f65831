package services

import (
	"errors"
	"fmt"
	"strings"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
)

var (
	ErrSurveyNotFound     = errors.New("survey not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrSurveyInactive     = errors.New("survey is not active")
	ErrResponseNotFound   = errors.New("response not found")
	ErrResponseComplete   = errors.New("response is already complete")
	ErrNotCurrentQuestion = errors.New("question is not the current question of the response")
	ErrAlreadyResponded   = errors.New("respondent has already completed this survey")
	ErrInvalidQuestion    = errors.New("invalid question")
)

// FlowValidationError blocks activation, or a flow edit on an active survey,
// and carries the full report for the author.
type FlowValidationError struct {
	Report flow.Report
}

func (e *FlowValidationError) Error() string {
	return "survey flow is invalid: " + strings.Join(e.Report.Errors, "; ")
}

func (e *FlowValidationError) Unwrap() error {
	return e.Report.Err()
}

func invalidQuestion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, fmt.Sprintf(format, args...))
}

// IsFlowRuntimeError reports whether err came from the navigator: a revisit,
// a step to a deleted question or an answer that does not fit the question.
func IsFlowRuntimeError(err error) bool {
	return errors.Is(err, flow.ErrRevisit) ||
		errors.Is(err, flow.ErrAlreadyAnswered) ||
		errors.Is(err, flow.ErrQuestionNotFound) ||
		errors.Is(err, flow.ErrOptionNotFound) ||
		errors.Is(err, flow.ErrAnswerKindMismatch) ||
		errors.Is(err, ErrNotCurrentQuestion) ||
		errors.Is(err, ErrResponseComplete)
}

// IsAnswerValidationError reports whether err should be shown to the
// respondent as a re-prompt.
func IsAnswerValidationError(err error) bool {
	return answers.IsValidationError(err)
}
