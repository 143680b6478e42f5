package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/christmas-fire/nexus-push/internal/models"
)

func TestDecode(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		req := require.New(t)
		raw := `{"id":"e1","chatId":"c1","messageId":"m1","message":{"user":{"userId":"u1","name":"Alice"},"text":"hello","createdAt":"2024-01-02T03:04:05Z"}}`

		event, err := Decode([]byte(raw))

		req.NoError(err)
		req.Equal("c1", event.ChatID)
		req.Equal("m1", event.MessageID)
		req.NotNil(event.Message)
		req.Equal(models.Sender{UserID: "u1", Name: "Alice"}, event.Message.User)
		req.Equal(models.TextPayload{Text: "hello"}, event.Message.Payload())
	})

	t.Run("missing message is kept as nil", func(t *testing.T) {
		req := require.New(t)

		event, err := Decode([]byte(`{"chatId":"c1","message":null}`))

		req.NoError(err)
		req.Nil(event.Message)
	})

	t.Run("missing chat id", func(t *testing.T) {
		_, err := Decode([]byte(`{"message":{"user":{"userId":"u1"}}}`))
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte(`not json`))
		require.Error(t, err)
	})
}

func TestFromMessage_RoundTrip(t *testing.T) {
	req := require.New(t)
	msg := models.Message{
		ID:        "m1",
		ChatID:    "c1",
		Sender:    models.Sender{UserID: "u1", Name: "Alice"},
		Payload:   models.ImagePayload{URL: "https://cdn/img.png"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(FromMessage(msg))
	req.NoError(err)
	req.NotContains(string(data), `"text"`)

	event, err := Decode(data)
	req.NoError(err)
	req.Equal("m1", event.MessageID)
	req.Equal(models.ImagePayload{URL: "https://cdn/img.png"}, event.Message.Payload())
	req.True(msg.CreatedAt.Equal(event.Message.CreatedAt))
}

func TestMessageData_Payload(t *testing.T) {
	req := require.New(t)
	data := MessageData{AudioURL: lo.ToPtr("a.m4a")}
	req.Equal(models.AudioPayload{URL: "a.m4a"}, data.Payload())
}
