package subscriber

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/christmas-fire/nexus-push/internal/events"
	"github.com/christmas-fire/nexus-push/internal/mocks"
)

func feed(evts ...events.NewMessageEvent) <-chan events.Delivery {
	ds := make([]events.Delivery, 0, len(evts))
	for _, e := range evts {
		ds = append(ds, events.NewDelivery(e, nil))
	}
	return feedDeliveries(ds...)
}

func feedDeliveries(ds ...events.Delivery) <-chan events.Delivery {
	ch := make(chan events.Delivery, len(ds))
	for _, d := range ds {
		ch <- d
	}
	close(ch)
	return ch
}

func TestSubscriber_Run(t *testing.T) {
	t.Run("should handle every event once", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).
			Return(feed(events.NewMessageEvent{ChatID: "c1"}, events.NewMessageEvent{ChatID: "c2"}, events.NewMessageEvent{ChatID: "c3"}), nil)

		var mu sync.Mutex
		var seen []string
		handler := HandlerFunc(func(_ context.Context, e events.NewMessageEvent) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, e.ChatID)
			return nil
		})

		err := New(source, handler, 2, time.Second).Run(context.Background())

		req.NoError(err)
		req.ElementsMatch([]string{"c1", "c2", "c3"}, seen)
	})

	t.Run("should keep going after a failing or panicking handler", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).
			Return(feed(events.NewMessageEvent{ChatID: "fail"}, events.NewMessageEvent{ChatID: "panic"}, events.NewMessageEvent{ChatID: "ok"}), nil)

		var handled atomic.Int32
		handler := HandlerFunc(func(_ context.Context, e events.NewMessageEvent) error {
			handled.Add(1)
			switch e.ChatID {
			case "fail":
				return errors.New("boom")
			case "panic":
				panic("unexpected")
			}
			return nil
		})

		err := New(source, handler, 1, time.Second).Run(context.Background())

		req.NoError(err)
		req.Equal(int32(3), handled.Load())
	})

	t.Run("should ack every event after its handler returns", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)

		var mu sync.Mutex
		var handled, acked, early []string
		delivery := func(chatID string) events.Delivery {
			return events.NewDelivery(events.NewMessageEvent{ChatID: chatID}, func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				if !slices.Contains(handled, chatID) {
					early = append(early, chatID)
				}
				acked = append(acked, chatID)
				return nil
			})
		}

		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).
			Return(feedDeliveries(delivery("ok"), delivery("fail"), delivery("panic")), nil)

		handler := HandlerFunc(func(_ context.Context, e events.NewMessageEvent) error {
			mu.Lock()
			handled = append(handled, e.ChatID)
			mu.Unlock()
			switch e.ChatID {
			case "fail":
				return errors.New("boom")
			case "panic":
				panic("unexpected")
			}
			return nil
		})

		req.NoError(New(source, handler, 2, time.Second).Run(context.Background()))
		req.ElementsMatch([]string{"ok", "fail", "panic"}, acked)
		req.Empty(early)
	})

	t.Run("should ack after the subscription is cancelled", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		ctx, cancel := context.WithCancel(context.Background())

		var acked atomic.Bool
		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).Return(feedDeliveries(
			events.NewDelivery(events.NewMessageEvent{ChatID: "c1"}, func(ctx context.Context) error {
				acked.Store(ctx.Err() == nil)
				return nil
			}),
		), nil)

		handler := HandlerFunc(func(context.Context, events.NewMessageEvent) error {
			cancel()
			return nil
		})

		req.NoError(New(source, handler, 1, time.Second).Run(ctx))
		req.True(acked.Load())
	})

	t.Run("should give each event its own deadline", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).Return(feed(events.NewMessageEvent{ChatID: "c1"}), nil)

		var hasDeadline atomic.Bool
		handler := HandlerFunc(func(ctx context.Context, _ events.NewMessageEvent) error {
			_, ok := ctx.Deadline()
			hasDeadline.Store(ok)
			return nil
		})

		req.NoError(New(source, handler, 1, time.Minute).Run(context.Background()))
		req.True(hasDeadline.Load())
	})

	t.Run("should fail when the subscription cannot be opened", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		source := mocks.NewMockSource(ctrl)
		source.EXPECT().NewMessages(gomock.Any()).Return(nil, errors.New("redis down"))

		err := New(source, HandlerFunc(func(context.Context, events.NewMessageEvent) error { return nil }), 1, time.Second).
			Run(context.Background())

		require.Error(t, err)
	})
}
