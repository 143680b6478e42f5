package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/christmas-fire/nexus-push/internal/models"
)

func TestChatKey(t *testing.T) {
	t.Run("should tell apart lists that join to the same text", func(t *testing.T) {
		req := require.New(t)

		req.NotEqual(chatKey([]string{"a,b"}), chatKey([]string{"a", "b"}))
		req.NotEqual(chatKey([]string{"a", "b,c"}), chatKey([]string{"a,b", "c"}))
		req.NotEqual(chatKey([]string{""}), chatKey(nil))
	})

	t.Run("should be stable for the same participants", func(t *testing.T) {
		req := require.New(t)

		first := chatKey(models.ChatKey([]string{"u2", "u1", "u2"}))
		second := chatKey(models.ChatKey([]string{"u1", "u2"}))

		req.Equal(first, second)
		req.Equal(`["u1","u2"]`, first)
	})
}
