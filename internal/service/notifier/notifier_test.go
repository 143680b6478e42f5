package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/christmas-fire/nexus-push/internal/events"
	"github.com/christmas-fire/nexus-push/internal/metrics"
	"github.com/christmas-fire/nexus-push/internal/mocks"
	"github.com/christmas-fire/nexus-push/internal/models"
	"github.com/christmas-fire/nexus-push/internal/push"
	"github.com/christmas-fire/nexus-push/internal/repository/chat"
)

type fixture struct {
	chats  *mocks.MockChatRepository
	users  *mocks.MockUserRepository
	sender *mocks.MockSender
	svc    *Notifier
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		chats:  mocks.NewMockChatRepository(ctrl),
		users:  mocks.NewMockUserRepository(ctrl),
		sender: mocks.NewMockSender(ctrl),
	}
	f.svc = NewNotifier(f.chats, f.users, f.sender, DefaultTexts())
	return f
}

func textEvent(chatID, senderID, senderName, text string) events.NewMessageEvent {
	return events.NewMessageEvent{
		ChatID:    chatID,
		MessageID: "m1",
		Message: &events.MessageData{
			User: models.Sender{UserID: senderID, Name: senderName},
			Text: lo.ToPtr(text),
		},
	}
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("should send one multicast to the other participant's devices", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c1").
			Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, []string{"u2"}).
			Return([]models.User{{ID: "u2", FCMTokens: []string{"tokA", "tokB"}}}, nil)
		f.sender.EXPECT().SendMulticast(ctx, push.Multicast{
			Title:  "메시지가 도착했습니다.",
			Body:   "Alice: hello",
			Tokens: []string{"tokA", "tokB"},
			Data:   map[string]string{"userIds": `["u1","u2"]`},
		}).Return(push.Report{SuccessCount: 2}, nil).Times(1)

		outcome, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.NoError(err)
		req.Equal(OutcomeDispatched, outcome)
	})

	t.Run("should do nothing when the event has no payload", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := f.svc.Notify(ctx, events.NewMessageEvent{ChatID: "c1"})

		req.NoError(err)
		req.Equal(OutcomeNoPayload, outcome)
	})

	t.Run("should stop silently when the chat does not exist", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "gone").Return(nil, chat.ErrChatNotFound)
		f.users.EXPECT().ListByIDs(gomock.Any(), gomock.Any()).Times(0)
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := f.svc.Notify(ctx, textEvent("gone", "u1", "Alice", "hello"))

		req.NoError(err)
		req.Equal(OutcomeChatNotFound, outcome)
	})

	t.Run("should not dispatch for a self chat", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c2").Return(&models.Chat{ID: "c2", UserIDs: []string{"u1"}}, nil)
		f.users.EXPECT().ListByIDs(gomock.Any(), gomock.Any()).Times(0)
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := f.svc.Notify(ctx, textEvent("c2", "u1", "Alice", "hello"))

		req.NoError(err)
		req.Equal(OutcomeNoRecipients, outcome)
	})

	t.Run("should look up every participant but the sender exactly once", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c3").
			Return(&models.Chat{ID: "c3", UserIDs: []string{"A", "B", "C", "B"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, ids []string) ([]models.User, error) {
				req.ElementsMatch([]string{"B", "C"}, ids)
				return nil, nil
			})
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := f.svc.Notify(ctx, textEvent("c3", "A", "Alice", "hi"))

		req.NoError(err)
		req.Equal(OutcomeNoTokens, outcome)
	})

	t.Run("should not dispatch when recipients have no tokens", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2", "u3"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, gomock.Any()).
			Return([]models.User{{ID: "u2"}, {ID: "u3", FCMTokens: []string{}}}, nil)
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Times(0)

		outcome, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.NoError(err)
		req.Equal(OutcomeNoTokens, outcome)
	})

	t.Run("should keep duplicate tokens across users", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2", "u3"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, gomock.Any()).Return([]models.User{
			{ID: "u2", FCMTokens: []string{"shared", "tokB"}},
			{ID: "u3", FCMTokens: []string{"shared"}},
		}, nil)
		f.sender.EXPECT().SendMulticast(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, m push.Multicast) (push.Report, error) {
				req.Equal([]string{"shared", "tokB", "shared"}, m.Tokens)
				req.Equal(`["u1","u2","u3"]`, m.Data[DataKeyUserIDs])
				return push.Report{}, nil
			})

		outcome, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.NoError(err)
		req.Equal(OutcomeDispatched, outcome)
	})

	t.Run("should use the photo placeholder for image messages", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, []string{"u2"}).
			Return([]models.User{{ID: "u2", FCMTokens: []string{"tokA"}}}, nil)
		f.sender.EXPECT().SendMulticast(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, m push.Multicast) (push.Report, error) {
				req.Equal("Alice: 사진", m.Body)
				return push.Report{SuccessCount: 1}, nil
			})

		event := events.NewMessageEvent{
			ChatID: "c1",
			Message: &events.MessageData{
				User:     models.Sender{UserID: "u1", Name: "Alice"},
				ImageURL: lo.ToPtr("https://cdn.example.com/any/path.jpg"),
			},
		}
		outcome, err := f.svc.Notify(ctx, event)

		req.NoError(err)
		req.Equal(OutcomeDispatched, outcome)
	})

	t.Run("should return push failures without retrying", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		boom := errors.New("fcm unavailable")

		f.chats.EXPECT().GetByID(ctx, "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, []string{"u2"}).
			Return([]models.User{{ID: "u2", FCMTokens: []string{"tokA"}}}, nil)
		f.sender.EXPECT().SendMulticast(ctx, gomock.Any()).Return(push.Report{}, boom).Times(1)

		outcome, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.ErrorIs(err, boom)
		req.Equal(OutcomeFailed, outcome)
	})

	t.Run("should count addressed tokens even when the dispatch fails", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)

		f.chats.EXPECT().GetByID(ctx, "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2", "u3"}}, nil)
		f.users.EXPECT().ListByIDs(ctx, []string{"u2", "u3"}).
			Return([]models.User{
				{ID: "u2", FCMTokens: []string{"tokA", "tokB"}},
				{ID: "u3", FCMTokens: []string{"tokC"}},
			}, nil)
		f.sender.EXPECT().SendMulticast(ctx, gomock.Any()).Return(push.Report{}, errors.New("fcm unavailable"))

		before := testutil.ToFloat64(metrics.PushTokensTargeted)
		_, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.Error(err)
		req.Equal(3.0, testutil.ToFloat64(metrics.PushTokensTargeted)-before)
	})

	t.Run("should return store failures", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t)
		boom := errors.New("connection reset")

		f.chats.EXPECT().GetByID(ctx, "c1").Return(nil, boom)

		outcome, err := f.svc.Notify(ctx, textEvent("c1", "u1", "Alice", "hello"))

		req.ErrorIs(err, boom)
		req.Equal(OutcomeFailed, outcome)
	})
}

func TestNotifier_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("skips are not errors", func(t *testing.T) {
		f := newFixture(t)
		f.chats.EXPECT().GetByID(gomock.Any(), "gone").Return(nil, chat.ErrChatNotFound)

		require.NoError(t, f.svc.Handle(ctx, textEvent("gone", "u1", "Alice", "hi")))
	})

	t.Run("dispatch failures are returned", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("fcm unavailable")
		f.chats.EXPECT().GetByID(gomock.Any(), "c1").Return(&models.Chat{ID: "c1", UserIDs: []string{"u1", "u2"}}, nil)
		f.users.EXPECT().ListByIDs(gomock.Any(), []string{"u2"}).
			Return([]models.User{{ID: "u2", FCMTokens: []string{"tokA"}}}, nil)
		f.sender.EXPECT().SendMulticast(gomock.Any(), gomock.Any()).Return(push.Report{}, boom)

		require.ErrorIs(t, f.svc.Handle(ctx, textEvent("c1", "u1", "Alice", "hi")), boom)
	})
}
