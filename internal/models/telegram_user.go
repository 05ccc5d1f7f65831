package models

import "time"

// TelegramUser is a respondent known to one author's bot.
type TelegramUser struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID int64     `gorm:"not null;uniqueIndex:idx_tg_author" json:"telegram_id"`
	AuthorID   uint      `gorm:"not null;uniqueIndex:idx_tg_author" json:"author_id"`
	Username   string    `gorm:"size:100" json:"username"`
	FirstName  string    `gorm:"size:100" json:"first_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
