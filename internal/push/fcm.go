package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/samber/lo"
	"google.golang.org/api/option"
)

// MaxTokensPerRequest is the FCM limit for a single multicast request.
const MaxTokensPerRequest = 500

// MessagingClient is the part of *messaging.Client the sender needs.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SendEachForMulticastDryRun(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMSender struct {
	client MessagingClient
	dryRun bool
}

func NewFCMSender(client MessagingClient, dryRun bool) *FCMSender {
	return &FCMSender{client: client, dryRun: dryRun}
}

// NewMessagingClient builds a Firebase messaging client. credentialsFile may
// be empty to use application default credentials.
func NewMessagingClient(ctx context.Context, projectID, credentialsFile string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return client, nil
}

// SendMulticast delivers msg, splitting the token list into requests FCM
// accepts. Batches are sent in order; the first transport error aborts the
// remaining batches.
func (s *FCMSender) SendMulticast(ctx context.Context, msg Multicast) (Report, error) {
	var report Report
	for _, tokens := range lo.Chunk(msg.Tokens, MaxTokensPerRequest) {
		req := &messaging.MulticastMessage{
			Tokens: tokens,
			Data:   msg.Data,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
		}

		send := s.client.SendEachForMulticast
		if s.dryRun {
			send = s.client.SendEachForMulticastDryRun
		}

		resp, err := send(ctx, req)
		if err != nil {
			return report, fmt.Errorf("failed to send multicast: %w", err)
		}

		report.SuccessCount += resp.SuccessCount
		report.FailureCount += resp.FailureCount
	}
	return report, nil
}
