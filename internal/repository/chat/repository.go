//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_chat_repository.go -package=mocks
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/christmas-fire/nexus-push/internal/models"
)

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrChatAlreadyExists = errors.New("chat already exists")
)

type ChatRepository interface {
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	// FindByKey looks a chat up by its exact participant key (see models.ChatKey).
	FindByKey(ctx context.Context, userIDs []string) (*models.Chat, error)
	Create(ctx context.Context, userIDs []string) (*models.Chat, error)
	AddMessage(ctx context.Context, msg models.Message) (messageID string, createdAt time.Time, err error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) ChatRepository {
	return &postgresRepository{db: db}
}

// chatKey encodes a participant list as a JSON array, so that no two
// different lists share a key whatever characters the ids contain.
func chatKey(userIDs []string) string {
	if userIDs == nil {
		userIDs = []string{}
	}
	key, _ := json.Marshal(userIDs)
	return string(key)
}

func (r *postgresRepository) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	query := "SELECT user_id FROM chat_members WHERE chat_id = $1 ORDER BY position"
	rows, err := r.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat members: %w", err)
	}
	defer rows.Close()

	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat members: %w", err)
	}

	// chats always have at least one member, so no rows means no chat
	if len(userIDs) == 0 {
		return nil, ErrChatNotFound
	}

	return &models.Chat{ID: chatID, UserIDs: userIDs}, nil
}

func (r *postgresRepository) FindByKey(ctx context.Context, userIDs []string) (*models.Chat, error) {
	query := `
		SELECT c.id, array_agg(m.user_id ORDER BY m.position)
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE c.chat_key = $1
		GROUP BY c.id
	`

	var chat models.Chat
	err := r.db.QueryRow(ctx, query, chatKey(userIDs)).Scan(&chat.ID, &chat.UserIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to find chat by key: %w", err)
	}

	return &chat, nil
}

func (r *postgresRepository) Create(ctx context.Context, userIDs []string) (*models.Chat, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var chatID string
	createChatQuery := "INSERT INTO chats (chat_key) VALUES ($1) RETURNING id"
	err = tx.QueryRow(ctx, createChatQuery, chatKey(userIDs)).Scan(&chatID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrChatAlreadyExists
		}
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	addMembersQuery := "INSERT INTO chat_members (chat_id, user_id, position) VALUES ($1, $2, $3)"
	for i, userID := range userIDs {
		_, err = tx.Exec(ctx, addMembersQuery, chatID, userID, i)
		if err != nil {
			return nil, fmt.Errorf("failed to add member %s to chat: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Chat{ID: chatID, UserIDs: userIDs}, nil
}

func (r *postgresRepository) AddMessage(ctx context.Context, msg models.Message) (string, time.Time, error) {
	query := `
		INSERT INTO messages (chat_id, sender_id, sender_name, text, image_url, audio_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	text, imageURL, audioURL := models.Fields(msg.Payload)

	var messageID string
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		msg.ChatID, msg.Sender.UserID, msg.Sender.Name, text, imageURL, audioURL,
	).Scan(&messageID, &createdAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to add message: %w", err)
	}
	return messageID, createdAt, nil
}
