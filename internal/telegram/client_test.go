package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("123:abc")
	c.baseURL = srv.URL
	return c
}

func TestClient_SendMessage(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":77}}`))
	})

	id, err := c.SendMessage(10, "hi", "HTML", ChoiceKeyboard(3, []string{"Red"}))
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "hi", got["text"])

	markup := got["reply_markup"].(map[string]interface{})
	rows := markup["inline_keyboard"].([]interface{})
	button := rows[0].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "ans:3:0", button["callback_data"])
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	})

	_, err := c.GetMe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestClient_GetMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getMe", r.URL.Path)
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Survey","username":"survey_bot"}}`))
	})

	user, err := c.GetMe()
	require.NoError(t, err)
	assert.True(t, user.IsBot)
	assert.Equal(t, "survey_bot", user.Username)
}

func TestTokenSecret(t *testing.T) {
	a := tokenSecret("123:abc")
	assert.Len(t, a, 32)
	assert.Equal(t, a, tokenSecret("123:abc"))
	assert.NotEqual(t, a, tokenSecret("123:abd"))
}
