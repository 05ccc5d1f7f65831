package services

import (
	"time"

	"survey-bot-backend/internal/models"

	"gorm.io/gorm"
)

type TelegramUserService struct {
	db *gorm.DB
}

func NewTelegramUserService(db *gorm.DB) *TelegramUserService {
	return &TelegramUserService{db: db}
}

// GetOrCreate registers a respondent the first time they talk to an author's
// bot. Username and first name are refreshed on every call.
func (s *TelegramUserService) GetOrCreate(authorID uint, telegramID int64, username, firstName string) (*models.TelegramUser, bool, error) {
	var user models.TelegramUser
	err := s.db.Where("author_id = ? AND telegram_id = ?", authorID, telegramID).First(&user).Error
	if err == nil {
		if user.Username != username || user.FirstName != firstName {
			user.Username = username
			user.FirstName = firstName
			user.UpdatedAt = time.Now()
			s.db.Save(&user)
		}
		return &user, false, nil
	}

	user = models.TelegramUser{
		TelegramID: telegramID,
		AuthorID:   authorID,
		Username:   username,
		FirstName:  firstName,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func (s *TelegramUserService) Get(authorID uint, telegramID int64) (*models.TelegramUser, error) {
	var user models.TelegramUser
	if err := s.db.Where("author_id = ? AND telegram_id = ?", authorID, telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type HistoryEntry struct {
	ResponseID  uint       `json:"response_id"`
	SurveyID    uint       `json:"survey_id"`
	SurveyTitle string     `json:"survey_title"`
	IsComplete  bool       `json:"is_complete"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetHistory lists the responses a respondent has started, newest first.
func (s *TelegramUserService) GetHistory(respondentID uint) ([]HistoryEntry, error) {
	var responses []models.Response
	err := s.db.Preload("Survey").
		Where("respondent_id = ?", respondentID).
		Order("started_at DESC, id DESC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(responses))
	for _, r := range responses {
		entries = append(entries, HistoryEntry{
			ResponseID:  r.ID,
			SurveyID:    r.SurveyID,
			SurveyTitle: r.Survey.Title,
			IsComplete:  r.IsComplete,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
		})
	}
	return entries, nil
}
