//go:generate go run go.uber.org/mock/mockgen -source=events.go -destination=../mocks/mock_events.go -package=mocks
package events

import (
	"context"
	"time"

	"github.com/christmas-fire/nexus-push/internal/models"
)

// NewMessageEvent is published once for every message that has been stored.
// Message is nil when the producer had no message body to attach.
type NewMessageEvent struct {
	ID        string       `json:"id"`
	ChatID    string       `json:"chatId"`
	MessageID string       `json:"messageId"`
	Message   *MessageData `json:"message"`
}

type MessageData struct {
	User      models.Sender `json:"user"`
	Text      *string       `json:"text,omitempty"`
	ImageURL  *string       `json:"imageUrl,omitempty"`
	AudioURL  *string       `json:"audioUrl,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

func (d MessageData) Payload() models.Payload {
	return models.PayloadFromFields(d.Text, d.ImageURL, d.AudioURL)
}

// FromMessage builds the event for a stored message.
func FromMessage(msg models.Message) NewMessageEvent {
	text, imageURL, audioURL := models.Fields(msg.Payload)
	return NewMessageEvent{
		ChatID:    msg.ChatID,
		MessageID: msg.ID,
		Message: &MessageData{
			User:      msg.Sender,
			Text:      text,
			ImageURL:  imageURL,
			AudioURL:  audioURL,
			CreatedAt: msg.CreatedAt,
		},
	}
}

type Publisher interface {
	PublishNewMessage(ctx context.Context, event NewMessageEvent) error
}

// NopPublisher drops events. It stands in when storing the message is
// itself the trigger.
type NopPublisher struct{}

func (NopPublisher) PublishNewMessage(context.Context, NewMessageEvent) error {
	return nil
}

// Delivery is one event handed out by a Source. Until it is acked the
// source may hand it out again, for example after a restart.
type Delivery struct {
	Event NewMessageEvent
	ack   func(ctx context.Context) error
}

func NewDelivery(event NewMessageEvent, ack func(ctx context.Context) error) Delivery {
	return Delivery{Event: event, ack: ack}
}

// Ack marks the delivery as processed. Sources without acknowledgement
// leave ack nil.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Source delivers events until ctx is cancelled or the underlying
// subscription ends, then closes the returned channel.
type Source interface {
	NewMessages(ctx context.Context) (<-chan Delivery, error)
}
