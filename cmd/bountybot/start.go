package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amishk599/bountybot/internal/config"
	"github.com/amishk599/bountybot/internal/poller"
	"github.com/amishk599/bountybot/internal/scheduler"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoadConfig()

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"source", cfg.Source.URL,
		"mode", cfg.Source.Mode,
		"store", cfg.Store.Type,
		"sink", cfg.Notification.Type,
	)
	if cfg.Source.Mode == config.ModeMock {
		logger.Info("running against the mock listing API, start it with `bountybot mock-api`")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	httpClient := newHTTPClient()
	sink := setupSink(cfg, httpClient, logger)
	fetcher := buildFetcher(cfg, httpClient, logger)

	p := poller.NewListingPoller(fetcher, st, sink, cfg.Source.PageSize, cfg.Store.ProcessedRetention, logger)
	sched := scheduler.NewScheduler(p, readinessOf(sink), cfg.PollingInterval, logger)
	handle, err := sched.Start(ctx)
	if err != nil {
		logger.Error("scheduler error", "error", err)
		st.Close()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutdown requested, stopping poller")
	handle.Stop()

	logger.Info("goodbye")
	return nil
}
