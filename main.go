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

	"golang.org/x/sync/errgroup"

	"planql/internal/api"
	"planql/internal/app"
	"planql/internal/config"
	internaldb "planql/internal/db"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	historyDB, err := internaldb.OpenSQLite(cfg.HistoryDBPath)
	if err != nil {
		logger.Error("open history store", "error", err)
		os.Exit(1)
	}
	defer historyDB.Close() //nolint:errcheck

	if err := internaldb.RunMigrations(historyDB); err != nil {
		logger.Error("migrate history store", "error", err)
		os.Exit(1)
	}

	application, err := app.New(app.Deps{
		Cfg:       cfg,
		HistoryDB: historyDB,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("wire application", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(application.Compile, application.Metrics, logger)
	router := handler.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("compile service listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
