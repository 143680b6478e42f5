package subscriber

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/christmas-fire/nexus-push/internal/events"
	"github.com/christmas-fire/nexus-push/internal/log"
)

type Handler interface {
	Handle(ctx context.Context, event events.NewMessageEvent) error
}

type HandlerFunc func(ctx context.Context, event events.NewMessageEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event events.NewMessageEvent) error {
	return f(ctx, event)
}

const ackTimeout = 5 * time.Second

// Subscriber feeds every event of a Source to a Handler. Each event is
// handled on its own goroutine with its own deadline; at most workers run
// at once. An event is acked once its handler returns, failed or not, so
// failures are logged and never retried.
type Subscriber struct {
	source  events.Source
	handler Handler
	workers int
	timeout time.Duration
}

func New(source events.Source, handler Handler, workers int, timeout time.Duration) *Subscriber {
	if workers < 1 {
		workers = 1
	}
	return &Subscriber{
		source:  source,
		handler: handler,
		workers: workers,
		timeout: timeout,
	}
}

// Run blocks until ctx is cancelled or the source is exhausted, then waits
// for in-flight handlers.
func (s *Subscriber) Run(ctx context.Context) error {
	ch, err := s.source.NewMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	l := log.Ctx(ctx)
	l.Info().Int("workers", s.workers).Dur("timeout", s.timeout).Msg("subscriber started")

	var g errgroup.Group
	g.SetLimit(s.workers)

	for d := range ch {
		g.Go(func() error {
			s.handle(ctx, d)
			return nil
		})
	}

	g.Wait()
	l.Info().Msg("subscriber stopped")
	return nil
}

func (s *Subscriber) handle(ctx context.Context, d events.Delivery) {
	// in-flight events finish and get acked even when the subscription is
	// being shut down
	ctx = context.WithoutCancel(ctx)
	s.process(ctx, d.Event)

	ackCtx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	if err := d.Ack(ackCtx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChatID, d.Event.ChatID).Msg("failed to ack event")
	}
}

func (s *Subscriber) process(ctx context.Context, event events.NewMessageEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l := log.Ctx(ctx)
			l.Error().
				Interface("panic", r).
				Str(log.FieldChatID, event.ChatID).
				Msg("handler panicked")
		}
	}()

	// the handler reports its own failures
	_ = s.handler.Handle(ctx, event)
}
