// Command otpauth-server runs the email-OTP authentication service: gin HTTP
// surface, Redis-backed OTP store, and Postgres-backed users, login history,
// and token blacklist.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	otpAuth "github.com/MrEthical07/otpAuth"
	"github.com/MrEthical07/otpAuth/blacklist"
	"github.com/MrEthical07/otpAuth/internal/config"
	"github.com/MrEthical07/otpAuth/internal/db"
	"github.com/MrEthical07/otpAuth/internal/handler"
	"github.com/MrEthical07/otpAuth/internal/mailer"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "otpauth").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	blacklistStore := blacklist.NewPostgresStore(pg.Pool)
	if err := blacklistStore.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("blacklist schema migration failed")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The OTP store degrades to its in-process fallback, so this is a
		// warning rather than a startup failure.
		logger.Warn().Err(err).Msg("redis unreachable at startup")
	}

	engine, err := otpAuth.New().
		WithConfig(cfg.Auth).
		WithRedis(rdb).
		WithBlacklistStore(blacklistStore).
		WithUserProvider(db.NewUserStore(pg)).
		WithLoginHistory(db.NewLoginHistoryStore(pg)).
		WithLogoutAudit(db.NewLogoutAuditStore(pg)).
		WithMailer(mailer.NewSMTPSender(cfg.SMTP)).
		WithAuditSink(otpAuth.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("engine build failed")
	}
	defer engine.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router, engine)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
