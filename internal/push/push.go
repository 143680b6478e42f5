//go:generate go run go.uber.org/mock/mockgen -source=push.go -destination=../mocks/mock_push_sender.go -package=mocks
package push

import "context"

// Multicast is one notification addressed to many device tokens.
type Multicast struct {
	Title  string
	Body   string
	Tokens []string
	Data   map[string]string
}

// Report summarises per-token delivery results.
type Report struct {
	SuccessCount int
	FailureCount int
}

type Sender interface {
	SendMulticast(ctx context.Context, msg Multicast) (Report, error)
}
