package events

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/models"
	"github.com/christmas-fire/nexus-push/internal/repository/chat"
	fsstore "github.com/christmas-fire/nexus-push/internal/storage/firestore"
)

type claimDoc struct {
	ClaimedAt time.Time `firestore:"claimedAt,serverTimestamp"`
}

// FirestoreSource turns newly created chats/{chatId}/messages documents into
// events, no matter who wrote them.
//
// Each message is claimed under notifications/{chatId}/claims/{messageId}
// before it is handed out; a message that is already claimed is skipped. So
// several listeners, or a listener that restarts within the lookback window,
// hand every message out once.
type FirestoreSource struct {
	client   *firestore.Client
	lookback time.Duration
}

func NewFirestoreSource(client *firestore.Client, lookback time.Duration) *FirestoreSource {
	return &FirestoreSource{client: client, lookback: lookback}
}

// NewMessages needs a collection group index on messages.createdAt.
func (s *FirestoreSource) NewMessages(ctx context.Context) (<-chan Delivery, error) {
	since := time.Now().Add(-s.lookback)
	it := s.client.CollectionGroup(fsstore.CollectionMessages).
		Where("createdAt", ">", since).
		Snapshots(ctx)

	out := make(chan Delivery, sourceBuffer)
	go func() {
		defer close(out)
		defer it.Stop()

		l := log.Ctx(ctx)
		l.Info().Time("since", since).Msg("listening for new message documents")

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					l.Error().Err(err).Msg("message listener stopped")
				}
				return
			}

			for _, change := range snap.Changes {
				if change.Kind != firestore.DocumentAdded {
					continue
				}

				msg, ok := s.claim(ctx, change.Doc)
				if !ok {
					continue
				}

				select {
				case out <- NewDelivery(FromMessage(msg), nil):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *FirestoreSource) claim(ctx context.Context, doc *firestore.DocumentSnapshot) (models.Message, bool) {
	l := log.Ctx(ctx)

	msg, err := chat.MessageFromSnapshot(doc)
	if err != nil {
		l.Warn().Err(err).Msg("skipping message document")
		return models.Message{}, false
	}

	ref := s.client.Collection(fsstore.CollectionNotifications).
		Doc(msg.ChatID).
		Collection(fsstore.CollectionClaims).
		Doc(msg.ID)

	_, err = ref.Create(ctx, claimDoc{})
	switch {
	case status.Code(err) == codes.AlreadyExists:
		l.Debug().Str(log.FieldChatID, msg.ChatID).Str(log.FieldMessageID, msg.ID).Msg("message already claimed")
		return models.Message{}, false
	case err != nil:
		l.Error().Err(err).Str(log.FieldChatID, msg.ChatID).Str(log.FieldMessageID, msg.ID).Msg("failed to claim message")
		return models.Message{}, false
	}

	return msg, true
}
