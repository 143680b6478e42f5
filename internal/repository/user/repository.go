//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/christmas-fire/nexus-push/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// ListByIDs returns the users whose id is in userIDs. Unknown ids are
	// skipped without error.
	ListByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	// AddFCMToken registers a device token. Adding a token the user already
	// has is a no-op.
	AddFCMToken(ctx context.Context, userID, token string) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) UserRepository {
	return &postgresRepository{db: db}
}

const selectUsers = `
	SELECT u.id, u.email, u.name, u.profile_url,
	       COALESCE(array_agg(t.token ORDER BY t.created_at, t.token) FILTER (WHERE t.token IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_fcm_tokens t ON t.user_id = u.id
`

func (r *postgresRepository) Create(ctx context.Context, user models.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := "INSERT INTO users (id, email, name, profile_url) VALUES ($1, $2, $3, $4)"
	if _, err := tx.Exec(ctx, query, user.ID, user.Email, user.Name, user.ProfileURL); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	tokenQuery := "INSERT INTO user_fcm_tokens (user_id, token) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	for _, token := range user.FCMTokens {
		if _, err := tx.Exec(ctx, tokenQuery, user.ID, token); err != nil {
			return fmt.Errorf("failed to insert fcm token: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := selectUsers + " WHERE u.id = $1 GROUP BY u.id"

	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

func (r *postgresRepository) ListByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := selectUsers + " WHERE u.id = ANY($1) GROUP BY u.id ORDER BY u.id"
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (r *postgresRepository) AddFCMToken(ctx context.Context, userID, token string) error {
	query := "INSERT INTO user_fcm_tokens (user_id, token) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	if _, err := r.db.Exec(ctx, query, userID, token); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to add fcm token: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.ProfileURL, &user.FCMTokens)
	return user, err
}
