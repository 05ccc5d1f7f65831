package answers

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

type textRecord struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

type singleChoiceRecord struct {
	Kind                Kind   `json:"kind"`
	SelectedOption      string `json:"selectedOption"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
}

type multipleChoiceRecord struct {
	Kind                  Kind     `json:"kind"`
	SelectedOptions       []string `json:"selectedOptions"`
	SelectedOptionIndices []int    `json:"selectedOptionIndices"`
}

type ratingRecord struct {
	Kind     Kind `json:"kind"`
	Value    int  `json:"value"`
	ScaleMin *int `json:"scaleMin,omitempty"`
	ScaleMax *int `json:"scaleMax,omitempty"`
}

type numberRecord struct {
	Kind  Kind     `json:"kind"`
	Value float64  `json:"value"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

type dateRecord struct {
	Kind  Kind        `json:"kind"`
	Value civil.Date  `json:"value"`
	Min   *civil.Date `json:"min,omitempty"`
	Max   *civil.Date `json:"max,omitempty"`
}

type locationRecord struct {
	Kind       Kind       `json:"kind"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
}

func (v Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(textRecord{Kind: KindText, Content: v.content})
}

func (v SingleChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(singleChoiceRecord{
		Kind:                KindSingleChoice,
		SelectedOption:      v.option,
		SelectedOptionIndex: v.index,
	})
}

func (v MultipleChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(multipleChoiceRecord{
		Kind:                  KindMultipleChoice,
		SelectedOptions:       v.options,
		SelectedOptionIndices: v.indices,
	})
}

func (v Rating) MarshalJSON() ([]byte, error) {
	rec := ratingRecord{Kind: KindRating, Value: v.value}
	if v.scale != DefaultScale {
		lo, hi := v.scale.Min, v.scale.Max
		rec.ScaleMin, rec.ScaleMax = &lo, &hi
	}
	return json.Marshal(rec)
}

func (v Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(numberRecord{
		Kind:  KindNumber,
		Value: v.value,
		Min:   v.bounds.Min,
		Max:   v.bounds.Max,
	})
}

func (v Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRecord{
		Kind:  KindDate,
		Value: v.value,
		Min:   v.bounds.Min,
		Max:   v.bounds.Max,
	})
}

func (v Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationRecord{
		Kind:       KindLocation,
		Latitude:   v.latitude,
		Longitude:  v.longitude,
		Accuracy:   v.accuracy,
		CapturedAt: v.capturedAt,
	})
}

// Encode serializes v to its structured record.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("encode answer: nil value")
	}
	return v.MarshalJSON()
}

// Decode reads a record produced by Encode. The kind discriminator selects
// the factory; unknown kinds and records that fail validation are rejected.
func Decode(data []byte) (Value, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}

	switch head.Kind {
	case KindText:
		var rec textRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode text answer: %w", err)
		}
		return wrap(NewText(rec.Content))
	case KindSingleChoice:
		var rec singleChoiceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode single choice answer: %w", err)
		}
		return wrap(restoreSingleChoice(rec.SelectedOption, rec.SelectedOptionIndex))
	case KindMultipleChoice:
		var rec multipleChoiceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode multiple choice answer: %w", err)
		}
		return wrap(restoreMultipleChoice(rec.SelectedOptions, rec.SelectedOptionIndices))
	case KindRating:
		var rec ratingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode rating answer: %w", err)
		}
		if (rec.ScaleMin == nil) != (rec.ScaleMax == nil) {
			return nil, invalid(ErrMalformedValue, "Rating scale needs both scaleMin and scaleMax.")
		}
		scale := DefaultScale
		if rec.ScaleMin != nil {
			scale = Scale{Min: *rec.ScaleMin, Max: *rec.ScaleMax}
		}
		return wrap(NewRating(rec.Value, scale))
	case KindNumber:
		var rec numberRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode number answer: %w", err)
		}
		return wrap(NewNumber(rec.Value, Bounds{Min: rec.Min, Max: rec.Max}))
	case KindDate:
		var rec dateRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode date answer: %w", err)
		}
		return wrap(NewDate(rec.Value, DateBounds{Min: rec.Min, Max: rec.Max}))
	case KindLocation:
		var rec locationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode location answer: %w", err)
		}
		return wrap(NewLocation(rec.Latitude, rec.Longitude, rec.Accuracy, rec.CapturedAt))
	}
	return nil, invalid(ErrUnknownKind, "Unknown answer kind %q.", head.Kind)
}
