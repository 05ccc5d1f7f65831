package models

import "time"

type Survey struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	AuthorID               uint       `gorm:"not null;index" json:"author_id"`
	Author                 Author     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Title                  string     `gorm:"size:255;not null" json:"title"`
	Description            string     `gorm:"type:text" json:"description"`
	Code                   string     `gorm:"size:6;uniqueIndex;not null" json:"code"`
	IsActive               bool       `gorm:"not null;default:false" json:"is_active"`
	AllowMultipleResponses bool       `gorm:"not null;default:false" json:"allow_multiple_responses"`
	FlowVersion            uint64     `gorm:"not null;default:0" json:"-"`
	Questions              []Question `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}
