package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/christmas-fire/nexus-push/internal/events"
	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/metrics"
	"github.com/christmas-fire/nexus-push/internal/models"
	"github.com/christmas-fire/nexus-push/internal/push"
	"github.com/christmas-fire/nexus-push/internal/repository/chat"
	"github.com/christmas-fire/nexus-push/internal/repository/user"
)

// DataKeyUserIDs is the data field carrying the chat participants, used by
// clients to open the right conversation.
const DataKeyUserIDs = "userIds"

type Outcome string

const (
	OutcomeDispatched   Outcome = "dispatched"
	OutcomeNoPayload    Outcome = "no_payload"
	OutcomeChatNotFound Outcome = "chat_not_found"
	OutcomeNoRecipients Outcome = "no_recipients"
	OutcomeNoTokens     Outcome = "no_tokens"
	OutcomeFailed       Outcome = "failed"
)

type Notifier struct {
	chats  chat.ChatRepository
	users  user.UserRepository
	sender push.Sender
	texts  Texts
}

func NewNotifier(chats chat.ChatRepository, users user.UserRepository, sender push.Sender, texts Texts) *Notifier {
	return &Notifier{
		chats:  chats,
		users:  users,
		sender: sender,
		texts:  texts,
	}
}

// audience is the result of the first stage: the chat and who in it should
// be notified.
type audience struct {
	chat       *models.Chat
	recipients []string
}

// Notify sends one multicast push for a newly created message to every
// device of every chat participant except the sender.
//
// Missing payload, unknown chat, no recipients and no tokens are not errors:
// they end the call without side effects and are reported through Outcome.
// Store and push errors are returned as-is and never retried here.
func (n *Notifier) Notify(ctx context.Context, event events.NewMessageEvent) (Outcome, error) {
	if event.Message == nil {
		return OutcomeNoPayload, nil
	}
	msg := *event.Message

	aud, err := n.resolveAudience(ctx, event.ChatID, msg.User.UserID)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return OutcomeChatNotFound, nil
		}
		return OutcomeFailed, err
	}
	if len(aud.recipients) == 0 {
		return OutcomeNoRecipients, nil
	}

	tokens, err := n.collectTokens(ctx, aud.recipients)
	if err != nil {
		return OutcomeFailed, err
	}
	if len(tokens) == 0 {
		return OutcomeNoTokens, nil
	}

	req, err := n.compose(aud.chat, msg, tokens)
	if err != nil {
		return OutcomeFailed, err
	}

	metrics.PushTokensTargeted.Add(float64(len(tokens)))

	report, err := n.sender.SendMulticast(ctx, req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("push dispatch for chat %s: %w", event.ChatID, err)
	}

	metrics.PushDeliveries.WithLabelValues("success").Add(float64(report.SuccessCount))
	metrics.PushDeliveries.WithLabelValues("failure").Add(float64(report.FailureCount))

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldChatID, event.ChatID).
		Int(log.FieldTokens, len(tokens)).
		Int("success", report.SuccessCount).
		Int("failure", report.FailureCount).
		Msg("multicast sent")

	return OutcomeDispatched, nil
}

func (n *Notifier) resolveAudience(ctx context.Context, chatID, senderID string) (audience, error) {
	c, err := n.chats.GetByID(ctx, chatID)
	if err != nil {
		return audience{}, err
	}
	return audience{chat: c, recipients: c.Recipients(senderID)}, nil
}

// collectTokens concatenates the device tokens of the recipients in the
// order the store returned them. A token shared by two users appears twice.
func (n *Notifier) collectTokens(ctx context.Context, recipients []string) ([]string, error) {
	users, err := n.users.ListByIDs(ctx, recipients)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	return lo.FlatMap(users, func(u models.User, _ int) []string {
		return u.FCMTokens
	}), nil
}

func (n *Notifier) compose(c *models.Chat, msg events.MessageData, tokens []string) (push.Multicast, error) {
	userIDs, err := json.Marshal(c.UserIDs)
	if err != nil {
		return push.Multicast{}, fmt.Errorf("encode chat participants: %w", err)
	}

	return push.Multicast{
		Title:  n.texts.Title,
		Body:   n.texts.Body(msg.User, msg.Payload()),
		Tokens: tokens,
		Data:   map[string]string{DataKeyUserIDs: string(userIDs)},
	}, nil
}

// Handle runs Notify for one event and records its outcome. It is the
// entry point used by the event subscriber.
func (n *Notifier) Handle(ctx context.Context, event events.NewMessageEvent) error {
	start := time.Now()
	l := log.Ctx(ctx).With().
		Str(log.FieldChatID, event.ChatID).
		Str(log.FieldMessageID, event.MessageID).
		Logger()
	ctx = log.WithLogger(ctx, l)

	outcome, err := n.Notify(ctx, event)

	metrics.HandlerDuration.Observe(time.Since(start).Seconds())
	metrics.NotificationsTotal.WithLabelValues(string(outcome)).Inc()

	if err != nil {
		l.Error().Err(err).Str(log.FieldOutcome, string(outcome)).Msg("new message notification failed")
		return err
	}

	l.Info().Str(log.FieldOutcome, string(outcome)).Msg("new message handled")
	return nil
}
