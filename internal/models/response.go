package models

import (
	"time"

	"gorm.io/datatypes"
)

// Response is one respondent's attempt at a survey. Visited only grows.
type Response struct {
	ID                     uint                      `gorm:"primaryKey" json:"id"`
	SurveyID               uint                      `gorm:"not null;index" json:"survey_id"`
	Survey                 Survey                    `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"-"`
	RespondentID           uint                      `gorm:"not null;default:0;index" json:"respondent_id"`
	Token                  string                    `gorm:"size:36;uniqueIndex;not null" json:"token"`
	Visited                datatypes.JSONSlice[uint] `json:"visited"`
	LastAnsweredQuestionID *uint                     `json:"last_answered_question_id,omitempty"`
	CurrentQuestionID      *uint                     `json:"current_question_id,omitempty"`
	IsComplete             bool                      `gorm:"not null;default:false" json:"is_complete"`
	Answers                []Answer                  `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	StartedAt              time.Time                 `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt            *time.Time                `json:"completed_at,omitempty"`
	UpdatedAt              time.Time                 `json:"updated_at"`
}
