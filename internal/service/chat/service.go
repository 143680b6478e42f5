package chat

import (
	"context"
	"errors"
	"slices"

	"github.com/christmas-fire/nexus-push/internal/events"
	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/metrics"
	"github.com/christmas-fire/nexus-push/internal/models"
	"github.com/christmas-fire/nexus-push/internal/repository/chat"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoParticipants   = errors.New("a chat needs at least one participant")
	ErrEmptyMessage     = errors.New("message has no content")
)

type ChatService struct {
	chatRepo  chat.ChatRepository
	publisher events.Publisher
}

func NewChatService(chatRepo chat.ChatRepository, publisher events.Publisher) *ChatService {
	return &ChatService{chatRepo: chatRepo, publisher: publisher}
}

// OpenChat returns the chat between exactly userIDs, creating it on first use.
func (s *ChatService) OpenChat(ctx context.Context, userIDs []string) (*models.Chat, error) {
	key := models.ChatKey(slices.DeleteFunc(slices.Clone(userIDs), func(id string) bool { return id == "" }))
	if len(key) == 0 {
		return nil, ErrNoParticipants
	}

	c, err := s.chatRepo.FindByKey(ctx, key)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, chat.ErrChatNotFound) {
		return nil, err
	}

	c, err = s.chatRepo.Create(ctx, key)
	if errors.Is(err, chat.ErrChatAlreadyExists) {
		// lost a race with a concurrent OpenChat for the same users
		return s.chatRepo.FindByKey(ctx, key)
	}
	return c, err
}

// SendMessage stores a message and announces it on the event bus. A failed
// announcement is logged; the message is still considered sent.
func (s *ChatService) SendMessage(ctx context.Context, chatID string, sender models.Sender, payload models.Payload) (*models.Message, error) {
	switch p := payload.(type) {
	case models.TextPayload:
		if p.Text == "" {
			return nil, ErrEmptyMessage
		}
	case models.ImagePayload, models.AudioPayload:
	default:
		return nil, ErrEmptyMessage
	}

	c, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(c.UserIDs, sender.UserID) {
		return nil, ErrPermissionDenied
	}

	msg := models.Message{
		ChatID:  chatID,
		Sender:  sender,
		Payload: payload,
	}

	msg.ID, msg.CreatedAt, err = s.chatRepo.AddMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	metrics.MessagesPosted.WithLabelValues(payloadKind(payload)).Inc()

	if err := s.publisher.PublishNewMessage(ctx, events.FromMessage(msg)); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldChatID, chatID).
			Str(log.FieldMessageID, msg.ID).
			Msg("failed to publish new message event")
	}

	return &msg, nil
}

func payloadKind(p models.Payload) string {
	switch p.(type) {
	case models.TextPayload:
		return "text"
	case models.ImagePayload:
		return "image"
	case models.AudioPayload:
		return "audio"
	default:
		return "unsupported"
	}
}
