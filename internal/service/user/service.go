package user

import (
	"context"
	"errors"
	"strings"

	"github.com/christmas-fire/nexus-push/internal/models"
	"github.com/christmas-fire/nexus-push/internal/repository/user"
)

var (
	ErrUserIDRequired = errors.New("user id is required")
	ErrEmailRequired  = errors.New("email is required")
	ErrNameRequired   = errors.New("name is required")
	ErrTokenRequired  = errors.New("device token is required")
)

type UserService struct {
	userRepo user.UserRepository
}

func NewUserService(userRepo user.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Register(ctx context.Context, u models.User) error {
	if u.ID == "" {
		return ErrUserIDRequired
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}

	return s.userRepo.Create(ctx, u)
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// RegisterDeviceToken attaches a push token to the user. Registering the
// same token twice is harmless.
func (s *UserService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}
	return s.userRepo.AddFCMToken(ctx, userID, token)
}
