package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/handler"
	"github.com/zhouzirui/chat-relay/backend/internal/logger"
	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/repository"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	chatService "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.New(cfg.LogLevel)
	log.Logger = appLog
	if envErr != nil {
		appLog.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		appLog.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to initialize message store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLog.Warn().Err(err).Msg("failed to close message store")
		}
	}()
	appLog.Info().Str("driver", cfg.Store.Driver).Msg("message store ready")

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		appLog.Warn().Err(err).Str("provider", cfg.AI.Provider).Msg("completion provider unavailable, every reply will be the fallback text")
		provider = ai.UnavailableProvider{Reason: err}
	} else {
		appLog.Info().Str("provider", provider.Name()).Str("model", modelName(cfg.AI)).Msg("completion provider initialized")
	}
	gateway := ai.NewService(provider, appLog)

	sessions, err := session.New(cfg.Session, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to initialize session resolver")
	}

	relay := chatService.NewService(store, gateway, appLog)
	router := handler.NewRouter(relay, sessions, handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxConcurrent:  cfg.Server.MaxConcurrentRequests,
	}, appLog)

	addr, _ := cfg.Server.Addr()
	startServer(ctx, appLog, addr, router)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (chat.Store, error) {
	var store chat.Store
	if cfg.Driver == config.StoreDriverMemory {
		store = chat.NewMemoryStore()
	} else {
		db, err := repository.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		store = repository.NewTurnRepository(db)
	}

	if err := store.InitSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func modelName(cfg config.AIConfig) string {
	if cfg.Provider == config.ProviderArk {
		return cfg.Ark.Model
	}
	return cfg.Model
}

func startServer(ctx context.Context, appLog zerolog.Logger, addr string, router http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	appLog.Info().Str("addr", addr).Msg("chat relay listening")
	if err := runServer(ctx, srv); err != nil {
		appLog.Error().Err(err).Msg("server error")
		return
	}
	appLog.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
