package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaintdesk/backend/internal/account"
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/api/middleware"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/chathub"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/logger"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config; fall back to a bare one.
		l := logger.New("production")
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Environment)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.AppConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenPostgres(cfg.Postgres)
	if err != nil {
		return err
	}
	s := storage.NewStorageService(db)

	var bus chathub.Bus
	rdb, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		bus = storage.NewRoomBus(rdb, log)
	}

	var notifier complaint.Notifier
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.Connect(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		localizer, err := localization.NewDefault()
		if err != nil {
			return err
		}
		tg := telegram.NewNotifier(bot, cfg.Telegram.AdminChatID, cfg.Telegram.Language, localizer, log)
		go tg.Run(ctx)
		notifier = tg
		log.Info().Int64("chat_id", cfg.Telegram.AdminChatID).Msg("telegram notifications enabled")
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	accounts := account.NewService(s, tokens, log)
	complaints := complaint.NewService(s, notifier, log)

	hub := chathub.NewManagerService(complaints, bus, log)
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS(cfg.AllowCORSOrigins),
	)
	h := handler.NewHandler(accounts, complaints, hub, tokens, log)
	h.AllowedOrigins = cfg.AllowCORSOrigins
	h.Register(router)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case err := <-hubDone:
		if err != nil {
			return err
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
	return nil
}
