package database

import (
	"testing"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/config"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=on", sqliteDSN("a.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", sqliteDSN("file:x?mode=memory"))
}

func TestMigrate_PersistsFlowSteps(t *testing.T) {
	db, err := OpenSQLite("file:migrate_flow?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	author := models.Author{Username: "ann", PasswordHash: "x"}
	require.NoError(t, db.Create(&author).Error)
	survey := models.Survey{AuthorID: author.ID, Title: "Colors", Code: "123456"}
	require.NoError(t, db.Create(&survey).Error)

	q := models.Question{
		SurveyID:    survey.ID,
		Text:        "Favorite?",
		Kind:        answers.KindSingleChoice,
		OrderNum:    1,
		DefaultNext: flow.Ptr(flow.EndSurvey()),
		Options: []models.Option{
			{Text: "Red", OrderNum: 1, Next: flow.Ptr(flow.EndSurvey())},
			{Text: "Blue", OrderNum: 2},
		},
	}
	require.NoError(t, db.Create(&q).Error)

	var loaded models.Question
	require.NoError(t, db.Preload("Options").First(&loaded, q.ID).Error)
	require.True(t, loaded.DefaultNext.Present())
	assert.True(t, loaded.DefaultNext.IsEnd())
	require.Len(t, loaded.Options, 2)
	assert.True(t, loaded.Options[0].Next.Present())
	assert.False(t, loaded.Options[1].Next.Present())

	resp := models.Response{SurveyID: survey.ID, Token: "t-1", Visited: datatypes.JSONSlice[uint]{q.ID}}
	require.NoError(t, db.Create(&resp).Error)

	var got models.Response
	require.NoError(t, db.First(&got, resp.ID).Error)
	assert.Equal(t, []uint{q.ID}, []uint(got.Visited))
	assert.False(t, got.StartedAt.IsZero())
}
