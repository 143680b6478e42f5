package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/christmas-fire/nexus-push/internal/models"
	fsstore "github.com/christmas-fire/nexus-push/internal/storage/firestore"
)

// Firestore rejects "in" filters with more values than this.
const maxInValues = 30

type userDoc struct {
	UserID     string   `firestore:"userId"`
	Email      string   `firestore:"email"`
	Name       string   `firestore:"name"`
	ProfileURL *string  `firestore:"profileUrl,omitempty"`
	FCMTokens  []string `firestore:"fcmTokens"`
}

func (d userDoc) toModel() models.User {
	return models.User{
		ID:         d.UserID,
		Email:      d.Email,
		Name:       d.Name,
		ProfileURL: d.ProfileURL,
		FCMTokens:  d.FCMTokens,
	}
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository keeps one document per user in the "users"
// collection, keyed by user id.
func NewFirestoreRepository(client *firestore.Client) UserRepository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) users() *firestore.CollectionRef {
	return r.client.Collection(fsstore.CollectionUsers)
}

func (r *firestoreRepository) Create(ctx context.Context, user models.User) error {
	doc := userDoc{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		ProfileURL: user.ProfileURL,
		FCMTokens:  lo.Uniq(user.FCMTokens),
	}

	if _, err := r.users().Doc(user.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *firestoreRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	snap, err := r.users().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}

	user := doc.toModel()
	return &user, nil
}

func (r *firestoreRepository) ListByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	return listInChunks(ctx, userIDs, maxInValues, r.queryByIDs)
}

// queryByIDs returns the users among userIDs that exist; at most
// maxInValues ids per call.
func (r *firestoreRepository) queryByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	snaps, err := r.users().Where("userId", "in", userIDs).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]models.User, 0, len(snaps))
	for _, snap := range snaps {
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", snap.Ref.ID, err)
		}
		users = append(users, doc.toModel())
	}
	return users, nil
}

// listInChunks runs query over ids split into chunks of at most size and
// concatenates what each chunk returns, in chunk order.
func listInChunks(
	ctx context.Context,
	ids []string,
	size int,
	query func(ctx context.Context, chunk []string) ([]models.User, error),
) ([]models.User, error) {
	var users []models.User
	for _, chunk := range lo.Chunk(ids, size) {
		found, err := query(ctx, chunk)
		if err != nil {
			return nil, err
		}
		users = append(users, found...)
	}
	return users, nil
}

func (r *firestoreRepository) AddFCMToken(ctx context.Context, userID, token string) error {
	_, err := r.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "fcmTokens", Value: firestore.ArrayUnion(token)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to add fcm token: %w", err)
	}
	return nil
}
