package models

import (
	"time"

	"gorm.io/datatypes"
)

// Answer stores the encoded answer value record for one question.
type Answer struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ResponseID uint           `gorm:"not null;uniqueIndex:idx_answer_unique" json:"response_id"`
	QuestionID uint           `gorm:"not null;uniqueIndex:idx_answer_unique" json:"question_id"`
	Value      datatypes.JSON `gorm:"not null" json:"value"`
	AnsweredAt time.Time      `gorm:"index" json:"answered_at"`
}
