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

	"github.com/go-trade-client/internal/application/capture"
	"github.com/go-trade-client/internal/application/funding"
	"github.com/go-trade-client/internal/application/kyc"
	"github.com/go-trade-client/internal/application/live"
	"github.com/go-trade-client/internal/application/notification"
	"github.com/go-trade-client/internal/application/push"
	"github.com/go-trade-client/internal/config"
	"github.com/go-trade-client/internal/infrastructure/api"
	"github.com/go-trade-client/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-trade-client/internal/infrastructure/jwt"
	"github.com/go-trade-client/internal/infrastructure/memory"
	"github.com/go-trade-client/internal/infrastructure/realtime"
	"github.com/go-trade-client/internal/infrastructure/redisstore"
	transporthttp "github.com/go-trade-client/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()

	visits, ready, err := newVisitStore(cfg, log)
	if err != nil {
		log.Fatal("visit store", zap.String("backend", cfg.VisitStore), zap.Error(err))
	}

	strategy, err := capture.Select(cfg.CaptureMode)
	if err != nil {
		log.Fatal("capture mode", zap.Error(err))
	}

	// JWT verifier (optional: without a key every route is served unauthenticated, which
	// only makes sense behind another gateway in development).
	var verifier *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		verifier = p
	} else {
		log.Warn("JWT provider not available", zap.Error(err))
	}

	client := api.NewClient(cfg, nil, log)

	hub := live.NewHub(func(userID, token string) (live.Runner, error) {
		return realtime.NewChannel(realtime.Options{
			BaseURL:    cfg.SocketURL,
			UserID:     userID,
			Token:      token,
			MinBackoff: cfg.RealtimeMinBackoff,
			MaxBackoff: cfg.RealtimeMaxBackoff,
		}, log)
	}, cfg.RealtimeQueueSize, log)

	deps := &transporthttp.Deps{
		KYC: kyc.NewService(kyc.ServiceDeps{
			API:      client,
			Visits:   visits,
			Capture:  strategy,
			VisitTTL: cfg.VisitTTL,
			Log:      log,
		}),
		Capture:       strategy,
		Notifications: notification.NewService(client, log),
		Push:          push.NewManager(client, cfg.VAPIDPublicKey, log),
		Funding:       funding.NewService(client, log),
		Hub:           hub,
		Ready:         ready,
		Log:           log,
	}
	if verifier != nil {
		deps.Verifier = verifier
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     transporthttp.NewRouter(cfg, deps),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the realtime relay holds its response open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.String("visit_store", cfg.VisitStore),
			zap.String("capture_mode", string(strategy.Mode())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// pinger is a visit backend that can report whether it is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

func readiness(p pinger) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return p.Ping(ctx) == nil
	}
}

// newVisitStore picks the visit backend and a readiness probe for it.
func newVisitStore(cfg *config.Config, log *zap.Logger) (kyc.VisitStore, func() bool, error) {
	switch cfg.VisitStore {
	case "memory", "":
		return memory.NewVisitStore(), nil, nil
	case "dynamo":
		client, err := dynamo.NewClient(context.Background(), cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(context.Background(), client, cfg.DynamoTables, log)
		repo := dynamo.NewVisitRepo(client, cfg.DynamoTables.Visits)
		return repo, readiness(repo), nil
	case "redis":
		store := redisstore.NewVisitStore(redisstore.NewClient(cfg))
		return store, readiness(store), nil
	}
	return nil, nil, fmt.Errorf("unknown visit store %q", cfg.VisitStore)
}
