package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/app"
	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/httpapi"
	apimw "github.com/hamed0406/uptimeworker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeworker/internal/logging"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker_exit", zap.Error(err))
		logger.Sync()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	for _, w := range cfg.Warnings() {
		logger.Warn("config_warning", zap.String("detail", w))
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sender, closeSenders := app.Senders(cfg, logger)
	defer closeSenders()

	book, err := app.Book(ctx, cfg, logger)
	if err != nil {
		return err
	}
	engine, err := app.Engine(cfg, logger, store, sender, book)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger, engine, book, cfg.MonitorInterval(), cfg.RotationInterval())
	if err := sched.Start(); err != nil {
		return err
	}

	api := httpapi.NewServer(logger, store, sched, book)
	keys := apimw.Keys{Public: cfg.API.PublicKeys, Admin: cfg.API.AdminKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.API.AllowedOrigins, cfg.API.PublicRPM, cfg.API.PublicBurst, cfg.API.AdminRPM, cfg.API.AdminBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return serve(ctx, logger, srv, sched)
}

type stopper interface {
	Stop(ctx context.Context) error
}

// serve runs srv until ctx is done or the listener fails, then shuts down the
// HTTP server and the scheduler. A listener failure is returned so the
// process exits non-zero.
func serve(ctx context.Context, logger *zap.Logger, srv *http.Server, sched stopper) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var failed error
	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("api_serve_error", zap.Error(err))
			failed = fmt.Errorf("serve %s: %w", srv.Addr, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	// Let in-flight cycles finish writing before the stores close.
	return multierr.Append(failed, sched.Stop(shutdownCtx))
}
