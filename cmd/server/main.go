package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/christmas-fire/nexus-push/internal/app/rest"
	"github.com/christmas-fire/nexus-push/internal/app/stores"
	"github.com/christmas-fire/nexus-push/internal/config"
	"github.com/christmas-fire/nexus-push/internal/events"
	pkglog "github.com/christmas-fire/nexus-push/internal/log"
	chatService "github.com/christmas-fire/nexus-push/internal/service/chat"
	userService "github.com/christmas-fire/nexus-push/internal/service/user"
	"github.com/christmas-fire/nexus-push/internal/storage/redis"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	cfg.Log.ServiceName = "chat-api"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx := pkglog.WithLogger(context.Background(), logger)

	st, err := stores.Open(ctx, *cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer st.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Trigger() == config.TriggerStream {
		redisClient, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()

		publisher = events.NewRedisPublisher(redisClient, events.StreamConfig{
			Stream: cfg.Redis.Stream,
			MaxLen: cfg.Redis.MaxLen,
		})
	}
	logger.Info().Str("trigger", cfg.Trigger()).Msg("notification trigger selected")

	chService := chatService.NewChatService(st.Chats, publisher)
	usService := userService.NewUserService(st.Users)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      rest.NewRouter(logger, chService, usService),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quitChan:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errChan:
		logger.Error().Err(err).Msg("server error, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
}
