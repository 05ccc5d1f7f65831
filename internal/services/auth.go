package services

import (
	"errors"
	"strings"
	"time"

	"survey-bot-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{db: db, jwtSecret: []byte(jwtSecret)}
}

func (s *AuthService) Register(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return "", errors.New("username is required and password must be at least 6 characters")
	}

	var existing models.Author
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	author := models.Author{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&author).Error; err != nil {
		return "", err
	}

	return s.GenerateToken(author.ID)
}

func (s *AuthService) Login(username, password string) (string, error) {
	var author models.Author
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&author).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(author.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.GenerateToken(author.ID)
}

func (s *AuthService) GenerateToken(authorID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"author_id": authorID,
		"exp":       now.Add(tokenTTL).Unix(),
		"iat":       now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	authorID, ok := claims["author_id"].(float64)
	if !ok || authorID <= 0 {
		return 0, errors.New("invalid author_id in token")
	}

	return uint(authorID), nil
}

func (s *AuthService) GetAuthor(authorID uint) (*models.Author, error) {
	var author models.Author
	if err := s.db.First(&author, authorID).Error; err != nil {
		return nil, errors.New("author not found")
	}
	return &author, nil
}

// UpdateBotSettings stores the author's bot token and public link. An empty
// token disconnects the bot.
func (s *AuthService) UpdateBotSettings(authorID uint, botToken, botLink string) (*models.Author, error) {
	author, err := s.GetAuthor(authorID)
	if err != nil {
		return nil, err
	}

	author.BotToken = strings.TrimSpace(botToken)
	author.BotLink = strings.TrimSpace(botLink)
	if author.BotToken == "" {
		author.BotLink = ""
	}
	if err := s.db.Model(author).Updates(map[string]interface{}{
		"bot_token": author.BotToken,
		"bot_link":  author.BotLink,
	}).Error; err != nil {
		return nil, err
	}
	return author, nil
}

// AuthorsWithBots lists every author who has connected a bot token.
func (s *AuthService) AuthorsWithBots() ([]models.Author, error) {
	var authors []models.Author
	err := s.db.Where("bot_token <> ''").Find(&authors).Error
	return authors, err
}
