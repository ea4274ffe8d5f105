// Command server starts the procurement HTTP API.
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

	"github.com/procureflow/procureflow/internal/adapter/ai"
	"github.com/procureflow/procureflow/internal/adapter/httpserver"
	"github.com/procureflow/procureflow/internal/adapter/mail/smtp"
	"github.com/procureflow/procureflow/internal/adapter/repo/postgres"
	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/config"
	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	rfpRepo := postgres.NewRFPRepo(pool)
	vendorRepo := postgres.NewVendorRepo(pool)
	proposalRepo := postgres.NewProposalRepo(pool)

	oracle := ai.NewOracle(ai.NewOllamaClient(cfg))
	sender := smtp.NewSender(cfg)

	srv := httpserver.NewServer(
		usecase.NewRFPService(rfpRepo, oracle),
		usecase.NewVendorService(vendorRepo),
		usecase.NewDispatchService(rfpRepo, vendorRepo, proposalRepo, sender),
		usecase.NewComparisonService(rfpRepo, proposalRepo, oracle),
	)
	ready := &app.Readiness{DB: pool, Sender: sender}
	handler := app.BuildRouter(cfg, srv, ready)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		slog.Info("http server listening", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
