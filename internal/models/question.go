package models

import (
	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
)

type Question struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	SurveyID uint         `gorm:"not null;index" json:"survey_id"`
	Text     string       `gorm:"type:text;not null" json:"text"`
	Kind     answers.Kind `gorm:"size:20;not null" json:"kind"`
	OrderNum int          `gorm:"not null" json:"order_num"`

	// Rating scale, defaults to 1..5 when unset.
	ScaleMin *int `json:"scale_min,omitempty"`
	ScaleMax *int `json:"scale_max,omitempty"`
	// Number bounds.
	NumberMin *float64 `json:"number_min,omitempty"`
	NumberMax *float64 `json:"number_max,omitempty"`
	// Date bounds, YYYY-MM-DD.
	DateMin *string `gorm:"size:10" json:"date_min,omitempty"`
	DateMax *string `gorm:"size:10" json:"date_max,omitempty"`

	DefaultNext *flow.Step `gorm:"type:text" json:"default_next"`
	Options     []Option   `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}
