package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/sewing-vault/internal/config"
	"github.com/msomdec/sewing-vault/internal/domain"
	"github.com/msomdec/sewing-vault/internal/handler"
	"github.com/msomdec/sewing-vault/internal/repository/docstore"
	"github.com/msomdec/sewing-vault/internal/repository/sqlite"
	"github.com/msomdec/sewing-vault/internal/router"
	"github.com/msomdec/sewing-vault/internal/service"
	"github.com/msomdec/sewing-vault/internal/session"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load(os.Args[1:], version)
	if err != nil {
		var usageErr *config.UsageError
		if errors.As(err, &usageErr) {
			if usageErr.Err == nil {
				fmt.Println(usageErr.Usage)
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, usageErr.Usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	db, err := openDatabase(cfg)
	if err != nil {
		slog.Error("failed to open database", "backend", cfg.Backend, "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "backend", cfg.Backend, "path", cfg.DBPath)

	patternService := service.NewPatternService(db.Patterns(), db.GarmentTypes(), db.FileStore(), cfg.PruneGarments)
	imageService := service.NewImageService(db.FileStore(), db.Patterns())
	tokenService := service.NewViewTokenService(cfg.TokenSecret)

	registry := session.NewRegistry()
	commandRouter := router.New(patternService, imageService, registry, handler.NewView, router.Options{})
	defer commandRouter.Close()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.New(commandRouter, registry, tokenService, patternService, imageService))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "url", "http://"+srv.Addr+"/")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Ending the views ends their event streams, which Shutdown waits for.
	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

func openDatabase(cfg *config.Config) (domain.Database, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return docstore.New(cfg.DBPath)
	default:
		return sqlite.New(cfg.DBPath)
	}
}
