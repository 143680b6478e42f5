package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/christmas-fire/nexus-push/internal/models"
	fsstore "github.com/christmas-fire/nexus-push/internal/storage/firestore"
)

type chatDoc struct {
	UserIDs []string `firestore:"userIds"`
}

type senderDoc struct {
	UserID string `firestore:"userId"`
	Name   string `firestore:"name"`
}

type messageDoc struct {
	User      senderDoc `firestore:"user"`
	Text      *string   `firestore:"text,omitempty"`
	ImageURL  *string   `firestore:"imageUrl,omitempty"`
	AudioURL  *string   `firestore:"audioUrl,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

func (d messageDoc) toModel(chatID, messageID string) models.Message {
	return models.Message{
		ID:        messageID,
		ChatID:    chatID,
		Sender:    models.Sender{UserID: d.User.UserID, Name: d.User.Name},
		Payload:   models.PayloadFromFields(d.Text, d.ImageURL, d.AudioURL),
		CreatedAt: d.CreatedAt,
	}
}

// MessageFromSnapshot decodes a document of a chats/{chatId}/messages
// collection, whoever wrote it.
func MessageFromSnapshot(snap *firestore.DocumentSnapshot) (models.Message, error) {
	chatID, ok := parentChatID(snap.Ref)
	if !ok {
		return models.Message{}, fmt.Errorf("document %s is not a chat message", snap.Ref.Path)
	}

	var doc messageDoc
	if err := snap.DataTo(&doc); err != nil {
		return models.Message{}, fmt.Errorf("failed to decode message %s: %w", snap.Ref.Path, err)
	}

	return doc.toModel(chatID, snap.Ref.ID), nil
}

func parentChatID(ref *firestore.DocumentRef) (string, bool) {
	if ref == nil || ref.Parent == nil || ref.Parent.ID != fsstore.CollectionMessages {
		return "", false
	}
	chat := ref.Parent.Parent
	if chat == nil || chat.Parent == nil || chat.Parent.ID != fsstore.CollectionChats {
		return "", false
	}
	return chat.ID, true
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository stores chats in the "chats" collection and their
// messages in the "chats/{chatId}/messages" sub-collection.
func NewFirestoreRepository(client *firestore.Client) ChatRepository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(fsstore.CollectionChats)
}

func (r *firestoreRepository) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	snap, err := r.chats().Doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat %s: %w", chatID, err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode chat %s: %w", chatID, err)
	}

	return &models.Chat{ID: snap.Ref.ID, UserIDs: doc.UserIDs}, nil
}

func (r *firestoreRepository) FindByKey(ctx context.Context, userIDs []string) (*models.Chat, error) {
	iter := r.chats().Where("userIds", "==", userIDs).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat by key: %w", err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode chat %s: %w", snap.Ref.ID, err)
	}

	return &models.Chat{ID: snap.Ref.ID, UserIDs: doc.UserIDs}, nil
}

func (r *firestoreRepository) Create(ctx context.Context, userIDs []string) (*models.Chat, error) {
	ref, _, err := r.chats().Add(ctx, chatDoc{UserIDs: userIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return &models.Chat{ID: ref.ID, UserIDs: userIDs}, nil
}

func (r *firestoreRepository) AddMessage(ctx context.Context, msg models.Message) (string, time.Time, error) {
	text, imageURL, audioURL := models.Fields(msg.Payload)
	doc := messageDoc{
		User:     senderDoc{UserID: msg.Sender.UserID, Name: msg.Sender.Name},
		Text:     text,
		ImageURL: imageURL,
		AudioURL: audioURL,
	}

	messageID := uuid.NewString()
	ref := r.chats().Doc(msg.ChatID).Collection(fsstore.CollectionMessages).Doc(messageID)

	res, err := ref.Create(ctx, doc)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to add message: %w", err)
	}

	return messageID, res.UpdateTime, nil
}
