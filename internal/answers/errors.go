package answers

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyValue          = errors.New("empty value")
	ErrOutOfRange          = errors.New("value out of range")
	ErrUnknownOption       = errors.New("unknown option")
	ErrDuplicateOption     = errors.New("duplicate option")
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	ErrMalformedValue      = errors.New("malformed value")
	ErrKindMismatch        = errors.New("answer kind mismatch")
	ErrUnknownKind         = errors.New("unknown answer kind")
)

// ValidationError is returned by every factory. Message is safe to show to
// the respondent; Err is one of the sentinels above.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, format string, args ...interface{}) error {
	return &ValidationError{Err: err, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err came from answer validation rather
// than from storage or flow resolution.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage returns the respondent-facing text for a validation error,
// or an empty string if err is not one.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return ""
}
