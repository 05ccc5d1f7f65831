package answers

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Input is the raw submission coming from a channel adapter or the HTTP API.
// Which fields are read depends on the question kind.
type Input struct {
	Text       string     `json:"text,omitempty"`
	Options    []string   `json:"options,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// Constraints are the per-question settings a factory validates against.
type Constraints struct {
	Options []string
	Scale   Scale
	Bounds  Bounds
	Dates   DateBounds
}

var dateLayouts = []string{"02.01.2006", "02/01/2006"}

// Parse routes raw input to the factory for kind.
func Parse(kind Kind, in Input, c Constraints) (Value, error) {
	switch kind {
	case KindText:
		return wrap(NewText(in.Text))
	case KindSingleChoice:
		return wrap(NewSingleChoice(firstSelection(in), c.Options))
	case KindMultipleChoice:
		selections := in.Options
		if len(selections) == 0 && strings.TrimSpace(in.Text) != "" {
			selections = splitList(in.Text)
		}
		return wrap(NewMultipleChoice(selections, c.Options))
	case KindRating:
		raw := firstSelection(in)
		if raw == "" {
			return nil, invalid(ErrEmptyValue, "Please choose a rating.")
		}
		// rating-as-choice: a label maps to its position on the scale,
		// even when the label itself is a number
		if idx := resolveOption(raw, c.Options); idx >= 0 {
			return wrap(NewRating(c.Scale.orDefault().Min+idx, c.Scale))
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid(ErrMalformedValue, "%q is not a whole number.", raw)
		}
		return wrap(NewRating(n, c.Scale))
	case KindNumber:
		raw := strings.TrimSpace(in.Text)
		if raw == "" {
			return nil, invalid(ErrEmptyValue, "Please enter a number.")
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, invalid(ErrMalformedValue, "%q is not a number.", raw)
		}
		return wrap(NewNumber(f, c.Bounds))
	case KindDate:
		raw := strings.TrimSpace(in.Text)
		if raw == "" {
			return nil, invalid(ErrEmptyValue, "Please enter a date.")
		}
		d, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		return wrap(NewDate(d, c.Dates))
	case KindLocation:
		return wrap(parseLocation(in))
	}
	return nil, invalid(ErrUnknownKind, "Unsupported answer kind %q.", kind)
}

// ParseDate accepts YYYY-MM-DD as well as DD.MM.YYYY and DD/MM/YYYY.
func ParseDate(raw string) (civil.Date, error) {
	if d, err := civil.ParseDate(raw); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, invalid(ErrMalformedValue, "%q is not a date, use YYYY-MM-DD.", raw)
}

func parseLocation(in Input) (Value, error) {
	if in.Latitude != nil && in.Longitude != nil {
		return wrap(NewLocation(*in.Latitude, *in.Longitude, in.Accuracy, in.CapturedAt))
	}
	raw := strings.TrimSpace(in.Text)
	if raw == "" {
		return nil, invalid(ErrEmptyValue, "Please share a location.")
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, invalid(ErrMalformedCoordinate, "Send a location or \"latitude, longitude\".")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil, invalid(ErrMalformedCoordinate, "Send a location or \"latitude, longitude\".")
	}
	return wrap(NewLocation(lat, lon, in.Accuracy, in.CapturedAt))
}

func firstSelection(in Input) string {
	for _, o := range in.Options {
		if s := strings.TrimSpace(o); s != "" {
			return s
		}
	}
	return strings.TrimSpace(in.Text)
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
}
