// @title           Sentinel Backend API
// @version         1.0
// @description     Personal safety backend: emergency contacts, alert fan-out over SMS and email, and realtime notifications over websocket.

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sentinel-app/sentinel-backend/internal/auth"
	"github.com/sentinel-app/sentinel-backend/internal/config"
	httpapi "github.com/sentinel-app/sentinel-backend/internal/http"
	"github.com/sentinel-app/sentinel-backend/internal/notify"
	"github.com/sentinel-app/sentinel-backend/internal/observability"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
	"github.com/sentinel-app/sentinel-backend/internal/ws"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	setupLogging(cfg)
	log.Info().Str("version", version).Str("mode", cfg.GinMode).Msg("starting sentinel-backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt verifier")
	}

	dispatcher := buildDispatcher(cfg)
	hub := ws.NewHub(verifier, repo.Directory{DB: db})

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, verifier, dispatcher, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("stopped")
}

// setupLogging applies the configured level and output format to the global
// zerolog logger.
func setupLogging(cfg config.Config) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildDispatcher assembles the notification dispatcher from provider
// credentials. Providers without complete credentials run in simulated mode,
// which logs the message instead of sending it; that keeps local development
// and tests free of external calls.
func buildDispatcher(cfg config.Config) *notify.Dispatcher {
	var sms notify.SMSSender
	if cfg.Twilio.Configured() {
		sms = notify.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		log.Info().Msg("twilio sms delivery enabled")
	} else {
		log.Warn().Msg("twilio not configured, sms delivery simulated")
	}

	var email notify.EmailSender
	if cfg.SendGrid.Configured() {
		email = notify.NewSendGridClient(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail)
		log.Info().Msg("sendgrid email delivery enabled")
	} else {
		log.Warn().Msg("sendgrid not configured, email delivery simulated")
	}

	return notify.NewDispatcher(sms, email)
}
