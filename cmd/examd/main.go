package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pKa1/eg2/internal/cache"
	"github.com/pKa1/eg2/internal/client"
	"github.com/pKa1/eg2/internal/config"
	"github.com/pKa1/eg2/internal/engine"
	"github.com/pKa1/eg2/internal/envcap"
	"github.com/pKa1/eg2/internal/events"
	"github.com/pKa1/eg2/internal/handlers"
	"github.com/pKa1/eg2/internal/shuffle"
	"github.com/pKa1/eg2/internal/validator"
	"github.com/pKa1/eg2/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)

	tokens := client.NewTokenSource(cfg.APIBaseURL, cfg.AccessToken, cfg.RefreshToken, nil, logger)
	api := client.New(cfg.APIBaseURL, tokens, logger)

	var svc engine.ExamService = api
	if cfg.RedisURL != "" {
		rdb, err := pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		svc = cache.NewCachingExamService(api, cache.NewRedisCache(rdb, logger), cfg.DefinitionTTL, logger)
		logger.Info("definition cache enabled")
	}

	bus := events.NewBus(logger)
	defer bus.Close()

	validate := validator.New()
	registry := handlers.NewRegistry()

	factory := func(env envcap.Capability) *engine.Controller {
		return engine.NewController(
			svc, env,
			shuffle.NewGenerator(rand.NewSource(time.Now().UnixNano())),
			bus,
			validate,
			logger,
			engine.Config{
				MaxUploadBytes:  cfg.MaxUploadBytes,
				ReconcileWindow: cfg.ReconcileWindow,
			},
		)
	}

	sessionHandler := handlers.NewSessionHandler(registry, factory, logger)
	wsHandler := handlers.NewWSHandler(registry, bus, logger, nil)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandlerManager(sessionHandler, wsHandler).SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("exam session engine listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
