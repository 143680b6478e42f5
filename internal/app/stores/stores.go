package stores

import (
	"context"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"

	"github.com/christmas-fire/nexus-push/internal/config"
	"github.com/christmas-fire/nexus-push/internal/repository/chat"
	"github.com/christmas-fire/nexus-push/internal/repository/user"
	"github.com/christmas-fire/nexus-push/internal/storage/firestore"
	"github.com/christmas-fire/nexus-push/internal/storage/postgres"
)

// Stores holds the repositories of the configured backend.
type Stores struct {
	Chats chat.ChatRepository
	Users user.UserRepository
	// Firestore is the client behind the repositories when the driver is
	// firestore, nil otherwise.
	Firestore *gfirestore.Client
	close     func()
}

func Open(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewStorage(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Stores{
			Chats: chat.NewPostgresRepository(pool),
			Users: user.NewPostgresRepository(pool),
			close: pool.Close,
		}, nil

	case config.DriverFirestore:
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Chats:     chat.NewFirestoreRepository(client),
			Users:     user.NewFirestoreRepository(client),
			Firestore: client,
			close:     func() { client.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}
