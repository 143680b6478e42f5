package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

const (
	CollectionUsers    = "users"
	CollectionChats    = "chats"
	CollectionMessages = "messages"

	// notifications/{chatId}/claims/{messageId} marks messages whose push
	// has been taken by a notifier.
	CollectionNotifications = "notifications"
	CollectionClaims        = "claims"
)

// NewClient opens a Firestore client. credentialsFile may be empty, in which
// case application default credentials are used.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return client, nil
}
