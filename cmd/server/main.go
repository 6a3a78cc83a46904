package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/Lovsan/chatterbox/internal/adapters/http"
	"github.com/Lovsan/chatterbox/internal/adapters/ws"
	"github.com/Lovsan/chatterbox/internal/app"
	"github.com/Lovsan/chatterbox/internal/auth"
	"github.com/Lovsan/chatterbox/internal/config"
	"github.com/Lovsan/chatterbox/internal/storage/postgres"
	"github.com/Lovsan/chatterbox/internal/storage/redisstore"
	"github.com/Lovsan/chatterbox/internal/translate"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create uploads dir")
	}

	users := store.Users()
	messages := store.Messages()
	groups := store.Groups()
	attachments := redisstore.NewAttachmentStore(rdb)

	reg := app.NewRegistry()
	rooms := app.NewRooms(reg)
	msgRouter := app.NewRouter(reg, rooms, messages, users, attachments, app.KickSlowPolicy{})
	calls := app.NewCalls(reg)
	relay := app.NewRelay(reg, calls, translate.NewClient(cfg.TranslationURL, cfg.TranslationTimeout))
	coord := app.NewCoordinator(reg, rooms, msgRouter, calls, relay, groups)

	authSvc := auth.NewService(users, cfg.JWTSecret)
	wsCtrl := ws.NewController(coord, users, groups, cfg.ReadLimit, cfg.PingPeriod, cfg.SendBuffer)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Auth:        authSvc,
		Coord:       coord,
		Users:       users,
		Messages:    messages,
		Groups:      groups,
		Attachments: attachments,
		WS:          wsCtrl,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chatterbox server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
