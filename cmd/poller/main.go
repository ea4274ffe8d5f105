// Command poller runs the mailbox ingestion loop: it periodically fetches
// unseen vendor replies and turns them into parsed proposals.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/procureflow/procureflow/internal/adapter/ai"
	"github.com/procureflow/procureflow/internal/adapter/extractor"
	"github.com/procureflow/procureflow/internal/adapter/mail/imap"
	"github.com/procureflow/procureflow/internal/adapter/repo/postgres"
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

	svc := usecase.NewIngestService(
		postgres.NewRFPRepo(pool),
		postgres.NewVendorRepo(pool),
		postgres.NewProposalRepo(pool),
		ai.NewOracle(ai.NewOllamaClient(cfg)),
		extractor.New(),
		imap.NewMailbox(cfg),
	)

	run := func() {
		cycleCtx, cancel := context.WithTimeout(ctx, cfg.IMAPTimeout+cfg.OllamaTimeout)
		defer cancel()
		since := cfg.PollStart(time.Now())
		n, err := svc.RunCycle(cycleCtx, since)
		if err != nil {
			slog.Error("poll cycle failed", slog.Any("error", err))
			return
		}
		if n > 0 {
			slog.Info("poll cycle stored proposals", slog.Int("count", n))
		}
	}

	// An overlapping tick is skipped rather than run concurrently.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	c.Schedule(cron.Every(cfg.PollInterval), cron.FuncJob(run))

	slog.Info("poller starting",
		slog.Duration("interval", cfg.PollInterval),
		slog.Time("window_start", cfg.PollStart(time.Now())))
	run()
	c.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("poller shutting down")
	<-c.Stop().Done()
}
