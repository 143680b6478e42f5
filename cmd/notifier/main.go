package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/christmas-fire/nexus-push/internal/app/stores"
	"github.com/christmas-fire/nexus-push/internal/config"
	"github.com/christmas-fire/nexus-push/internal/controller/subscriber"
	"github.com/christmas-fire/nexus-push/internal/events"
	pkglog "github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/push"
	"github.com/christmas-fire/nexus-push/internal/service/notifier"
	"github.com/christmas-fire/nexus-push/internal/storage/redis"
)

const serviceName = "new-message-notifier"

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	cfg.Log.ServiceName = serviceName
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(pkglog.WithLogger(context.Background(), logger))
	defer cancel()

	st, err := stores.Open(ctx, *cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer st.Close()

	var source events.Source
	switch cfg.Trigger() {
	case config.TriggerDocument:
		source = events.NewFirestoreSource(st.Firestore, cfg.Firestore.Lookback)
	default:
		redisClient, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()

		source = events.NewRedisSource(redisClient, events.StreamConfig{
			Stream:   cfg.Redis.Stream,
			Group:    cfg.Redis.Group,
			Consumer: cfg.Redis.Consumer,
			Block:    cfg.Redis.Block,
		})
	}
	logger.Info().Str("trigger", cfg.Trigger()).Msg("notification trigger selected")

	messagingClient, err := push.NewMessagingClient(ctx, cfg.FCM.ProjectID, cfg.FCM.CredentialsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create FCM client")
	}

	n := notifier.NewNotifier(
		st.Chats,
		st.Users,
		push.NewFCMSender(messagingClient, cfg.FCM.DryRun),
		notifier.DefaultTexts().Merge(notifier.Texts(cfg.Notifier.Texts)),
	)

	sub := subscriber.New(
		source,
		n,
		cfg.Notifier.Workers,
		cfg.Notifier.Timeout,
	)

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	errChan := make(chan error, 2)

	go func() {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Health.GRPCPort))
		if err != nil {
			errChan <- fmt.Errorf("failed to listen: %w", err)
			return
		}

		logger.Info().Str("addr", listener.Addr().String()).Msg("gRPC health server is listening")
		if err := grpcServer.Serve(listener); err != nil {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server is listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	subDone := make(chan error, 1)
	go func() {
		subDone <- sub.Run(ctx)
	}()

	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quitChan:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errChan:
		logger.Error().Err(err).Msg("server error, initiating shutdown")
	case err := <-subDone:
		if err != nil {
			logger.Error().Err(err).Msg("subscriber exited with error")
		} else {
			logger.Warn().Msg("subscription closed")
		}
		subDone <- nil
	}

	healthServer.Shutdown()
	cancel()

	select {
	case <-subDone:
	case <-time.After(cfg.Notifier.Timeout + 5*time.Second):
		logger.Warn().Msg("subscriber shutdown timed out")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()

	logger.Info().Msg("notifier stopped")
}
