package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"

	assistantimpl "github.com/kavya5cloud/studyroom/external/assistant"
	broadcastimpl "github.com/kavya5cloud/studyroom/external/broadcast"
	configloader "github.com/kavya5cloud/studyroom/external/config"
	"github.com/kavya5cloud/studyroom/external/discord"
	repositoryimpl "github.com/kavya5cloud/studyroom/external/repository"
	webhookimpl "github.com/kavya5cloud/studyroom/external/webhook"
	"github.com/kavya5cloud/studyroom/internal/announce"
	"github.com/kavya5cloud/studyroom/internal/config"
	"github.com/kavya5cloud/studyroom/internal/gateway"
	"github.com/kavya5cloud/studyroom/internal/lobby"
	"github.com/kavya5cloud/studyroom/internal/session"
)

const shutdownTimeout = 20 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	loadDotEnv()
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "nats", cfg.UsesNATS())

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: starting http server", "addr", cfg.HTTPAddr)
	if err := runServer(cfg, injector); err != nil {
		slog.Error("server stopped with error", "error", err)
		shutdownDI(injector)
		os.Exit(1)
	}
	shutdownDI(injector)
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	broadcastimpl.RegisterDI(injector)
	assistantimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	announce.RegisterDI(injector)
	lobby.RegisterDI(injector)
	session.RegisterDI(injector)
	gateway.RegisterDI(injector)

	return injector
}

func shutdownDI(injector do.Injector) {
	if report := injector.Shutdown(); report != nil && !report.Succeed {
		slog.Error("dependency shutdown failed", "error", report.Error())
	}
}

func runServer(cfg *config.Config, injector do.Injector) error {
	handler, err := do.Invoke[*gateway.Handler](injector)
	if err != nil {
		return err
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsHandler.Handler(handler.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return handler.Shutdown()
	})
	return g.Wait()
}
