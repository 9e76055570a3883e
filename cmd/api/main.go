package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "gamenight-api/docs" // swagger docs

	"gamenight-api/internal/app"
	"gamenight-api/internal/auth"
	"gamenight-api/internal/config"
	"gamenight-api/internal/handler"
	"gamenight-api/internal/logger"
	"gamenight-api/internal/metrics"
	"gamenight-api/internal/service"
)

// @title Game Night API
// @version 1.0
// @description Noches de juegos de mesa: catálogo, RSVPs, sugerencias y votos.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "err", err)
	}
	if len(cfg.Defaulted) > 0 {
		log.Infow("config defaults applied", "keys", cfg.Defaulted)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalw("store init failed", "backend", cfg.StoreBackend, "err", err)
	}
	defer func() { _ = backend.Close(context.Background()) }()

	reg := metrics.New()

	// services
	profileSvc := service.NewProfileService(backend.Profiles, backend.Games)
	gameSvc := service.NewGameService(backend.Games, backend.Cache, time.Duration(cfg.CacheTTLSeconds)*time.Second, reg, log)
	nightSvc, err := service.NewGameNightService(backend.GameNights, backend.Games, backend.Profiles, backend.Feed, cfg.DefaultTimezone, reg, log)
	if err != nil {
		log.Fatalw("invalid DEFAULT_TIMEZONE", "tz", cfg.DefaultTimezone, "err", err)
	}
	loc, _ := time.LoadLocation(cfg.DefaultTimezone)
	settingsSvc := service.NewSettingsService(backend.Settings, loc)
	authSvc := service.NewAuthService(
		auth.NewProviderVerifier(cfg.ProviderSecret, cfg.ProviderIssuer, cfg.ProviderAudience),
		auth.NewSessionTokens(cfg.JWTSecret, cfg.SessionTTL),
		backend.Sessions,
		profileSvc,
		cfg.AdminEmailDomain,
	)

	router := handler.NewRouter(handler.Deps{
		Auth:           authSvc,
		Games:          gameSvc,
		GameNights:     nightSvc,
		Profiles:       profileSvc,
		Settings:       settingsSvc,
		Feed:           backend.Feed,
		Metrics:        reg,
		Checks:         backend.Checks,
		Log:            log,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("HTTP escuchando", "port", cfg.HTTPPort, "backend", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("http server", "err", err)
	}
}
