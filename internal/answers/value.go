// Package answers models the closed set of answer shapes a respondent can
// submit. Every value is built through a validating factory, so a Value that
// exists is always valid for the constraints it was built against.
package answers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
)

const MaxTextLength = 4000

// Value is implemented only by the variants in this package.
type Value interface {
	Kind() Kind
	// Display renders the answer for summaries and bot confirmations.
	Display() string
	json.Marshaler

	sealed()
}

// Text

type Text struct {
	content string
}

func NewText(content string) (Text, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return Text{}, invalid(ErrEmptyValue, "Please enter a text answer.")
	}
	if n := utf8.RuneCountInString(c); n > MaxTextLength {
		return Text{}, invalid(ErrOutOfRange, "The answer is too long (%d characters, max %d).", n, MaxTextLength)
	}
	return Text{content: c}, nil
}

func (Text) Kind() Kind        { return KindText }
func (v Text) Content() string { return v.content }
func (v Text) Display() string { return v.content }
func (Text) sealed()           {}

// SingleChoice

type SingleChoice struct {
	option string
	index  int
}

// NewSingleChoice resolves input against the configured options, ignoring
// case and surrounding whitespace. The stored option uses the configured spelling.
func NewSingleChoice(input string, options []string) (SingleChoice, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return SingleChoice{}, invalid(ErrEmptyValue, "Please choose one of the options.")
	}
	idx := resolveOption(in, options)
	if idx < 0 {
		return SingleChoice{}, unknownOption(in, options)
	}
	return SingleChoice{option: options[idx], index: idx}, nil
}

func restoreSingleChoice(option string, index int) (SingleChoice, error) {
	if strings.TrimSpace(option) == "" {
		return SingleChoice{}, invalid(ErrEmptyValue, "Selected option is empty.")
	}
	if index < 0 {
		return SingleChoice{}, invalid(ErrOutOfRange, "Option index %d is negative.", index)
	}
	return SingleChoice{option: option, index: index}, nil
}

func (SingleChoice) Kind() Kind               { return KindSingleChoice }
func (v SingleChoice) SelectedOption() string { return v.option }
func (v SingleChoice) SelectedIndex() int     { return v.index }
func (v SingleChoice) Display() string        { return v.option }
func (SingleChoice) sealed()                  {}

// MultipleChoice

type MultipleChoice struct {
	options []string
	indices []int
}

// NewMultipleChoice resolves every non-blank input. Selections are stored in
// the configured option order.
func NewMultipleChoice(inputs []string, options []string) (MultipleChoice, error) {
	seen := make(map[int]bool)
	var indices []int
	for _, raw := range inputs {
		in := strings.TrimSpace(raw)
		if in == "" {
			continue
		}
		idx := resolveOption(in, options)
		if idx < 0 {
			return MultipleChoice{}, unknownOption(in, options)
		}
		if seen[idx] {
			return MultipleChoice{}, invalid(ErrDuplicateOption, "%q was selected more than once.", options[idx])
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return MultipleChoice{}, invalid(ErrEmptyValue, "Please choose at least one option.")
	}
	sort.Ints(indices)

	selected := make([]string, len(indices))
	for i, idx := range indices {
		selected[i] = options[idx]
	}
	return MultipleChoice{options: selected, indices: indices}, nil
}

func restoreMultipleChoice(options []string, indices []int) (MultipleChoice, error) {
	if len(options) == 0 {
		return MultipleChoice{}, invalid(ErrEmptyValue, "No options selected.")
	}
	if len(options) != len(indices) {
		return MultipleChoice{}, invalid(ErrMalformedValue, "Selected options and indices differ in length.")
	}
	seen := make(map[int]bool)
	for i, idx := range indices {
		if idx < 0 {
			return MultipleChoice{}, invalid(ErrOutOfRange, "Option index %d is negative.", idx)
		}
		if seen[idx] {
			return MultipleChoice{}, invalid(ErrDuplicateOption, "%q was selected more than once.", options[i])
		}
		if strings.TrimSpace(options[i]) == "" {
			return MultipleChoice{}, invalid(ErrEmptyValue, "Selected option is empty.")
		}
		seen[idx] = true
	}
	if !sort.IntsAreSorted(indices) {
		return MultipleChoice{}, invalid(ErrMalformedValue, "Option indices are not in option order.")
	}
	return MultipleChoice{
		options: append([]string(nil), options...),
		indices: append([]int(nil), indices...),
	}, nil
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }

func (v MultipleChoice) SelectedOptions() []string {
	return append([]string(nil), v.options...)
}

func (v MultipleChoice) SelectedIndices() []int {
	return append([]int(nil), v.indices...)
}

func (v MultipleChoice) Display() string { return strings.Join(v.options, ", ") }
func (MultipleChoice) sealed()           {}

// Rating

type Scale struct {
	Min int
	Max int
}

var DefaultScale = Scale{Min: 1, Max: 5}

func (s Scale) orDefault() Scale {
	if s == (Scale{}) {
		return DefaultScale
	}
	return s
}

type Rating struct {
	value int
	scale Scale
}

// NewRating checks value against scale; the zero Scale means DefaultScale.
func NewRating(value int, scale Scale) (Rating, error) {
	s := scale.orDefault()
	if s.Min > s.Max {
		return Rating{}, invalid(ErrOutOfRange, "Rating scale %d..%d is empty.", s.Min, s.Max)
	}
	if value < s.Min || value > s.Max {
		return Rating{}, invalid(ErrOutOfRange, "Please choose a rating from %d to %d.", s.Min, s.Max)
	}
	return Rating{value: value, scale: s}, nil
}

func (Rating) Kind() Kind        { return KindRating }
func (v Rating) Value() int      { return v.value }
func (v Rating) Scale() Scale    { return v.scale }
func (v Rating) Display() string { return fmt.Sprintf("%d/%d", v.value, v.scale.Max) }
func (Rating) sealed()           {}

// Number

type Bounds struct {
	Min *float64
	Max *float64
}

func (b Bounds) clone() Bounds {
	return Bounds{Min: cloneFloat(b.Min), Max: cloneFloat(b.Max)}
}

type Number struct {
	value  float64
	bounds Bounds
}

func NewNumber(value float64, bounds Bounds) (Number, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Number{}, invalid(ErrMalformedValue, "Please enter a finite number.")
	}
	if bounds.Min != nil && bounds.Max != nil && *bounds.Min > *bounds.Max {
		return Number{}, invalid(ErrOutOfRange, "Number range %s..%s is empty.", formatFloat(*bounds.Min), formatFloat(*bounds.Max))
	}
	if bounds.Min != nil && value < *bounds.Min {
		return Number{}, invalid(ErrOutOfRange, "Please enter a number of at least %s.", formatFloat(*bounds.Min))
	}
	if bounds.Max != nil && value > *bounds.Max {
		return Number{}, invalid(ErrOutOfRange, "Please enter a number of at most %s.", formatFloat(*bounds.Max))
	}
	return Number{value: value, bounds: bounds.clone()}, nil
}

func (Number) Kind() Kind        { return KindNumber }
func (v Number) Value() float64  { return v.value }
func (v Number) Bounds() Bounds  { return v.bounds.clone() }
func (v Number) Display() string { return formatFloat(v.value) }
func (Number) sealed()           {}

// Date

type DateBounds struct {
	Min *civil.Date
	Max *civil.Date
}

func (b DateBounds) clone() DateBounds {
	out := DateBounds{}
	if b.Min != nil {
		d := *b.Min
		out.Min = &d
	}
	if b.Max != nil {
		d := *b.Max
		out.Max = &d
	}
	return out
}

type Date struct {
	value  civil.Date
	bounds DateBounds
}

func NewDate(value civil.Date, bounds DateBounds) (Date, error) {
	if !value.IsValid() {
		return Date{}, invalid(ErrMalformedValue, "%s is not a calendar date.", value)
	}
	if bounds.Min != nil && value.Before(*bounds.Min) {
		return Date{}, invalid(ErrOutOfRange, "Please enter a date on or after %s.", bounds.Min)
	}
	if bounds.Max != nil && value.After(*bounds.Max) {
		return Date{}, invalid(ErrOutOfRange, "Please enter a date on or before %s.", bounds.Max)
	}
	return Date{value: value, bounds: bounds.clone()}, nil
}

func (Date) Kind() Kind           { return KindDate }
func (v Date) Value() civil.Date  { return v.value }
func (v Date) Bounds() DateBounds { return v.bounds.clone() }
func (v Date) Display() string    { return v.value.String() }
func (Date) sealed()              {}

// Location

type Location struct {
	latitude   float64
	longitude  float64
	accuracy   *float64
	capturedAt *time.Time
}

// NewLocation validates coordinates in degrees. Accuracy is in meters.
func NewLocation(latitude, longitude float64, accuracy *float64, capturedAt *time.Time) (Location, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Location{}, invalid(ErrMalformedCoordinate, "Latitude must be between -90 and 90.")
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return Location{}, invalid(ErrMalformedCoordinate, "Longitude must be between -180 and 180.")
	}
	if accuracy != nil && (math.IsNaN(*accuracy) || *accuracy < 0) {
		return Location{}, invalid(ErrMalformedCoordinate, "Location accuracy must not be negative.")
	}
	loc := Location{latitude: latitude, longitude: longitude, accuracy: cloneFloat(accuracy)}
	if capturedAt != nil {
		t := capturedAt.UTC()
		loc.capturedAt = &t
	}
	return loc, nil
}

func (Location) Kind() Kind           { return KindLocation }
func (v Location) Latitude() float64  { return v.latitude }
func (v Location) Longitude() float64 { return v.longitude }
func (v Location) Accuracy() *float64 { return cloneFloat(v.accuracy) }

func (v Location) CapturedAt() *time.Time {
	if v.capturedAt == nil {
		return nil
	}
	t := *v.capturedAt
	return &t
}

func (v Location) Display() string {
	return fmt.Sprintf("%.6f, %.6f", v.latitude, v.longitude)
}

func (Location) sealed() {}

func resolveOption(input string, options []string) int {
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), input) {
			return i
		}
	}
	return -1
}

func unknownOption(input string, options []string) error {
	if len(options) == 0 {
		return invalid(ErrUnknownOption, "%q is not an available option.", input)
	}
	return invalid(ErrUnknownOption, "%q is not one of: %s.", input, strings.Join(options, ", "))
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// wrap keeps a failed factory from leaking a non-nil zero Value.
func wrap(v Value, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
