package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/amishk599/bountybot/internal/notifier"
	"github.com/amishk599/bountybot/internal/poller"
	"github.com/amishk599/bountybot/internal/store"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll once, print matches, exit",
	Long:  "One-shot poll: fetches one page, logs every delivery that would be made, exits. Does not mark listings as processed.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoadConfig()

	logger.Info("check mode: no listings will be marked as processed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	fetcher := buildFetcher(cfg, newHTTPClient(), logger)
	p := poller.NewListingPoller(fetcher, store.NewDryRunStore(st), notifier.NewLogSink(logger), cfg.Source.PageSize, 0, logger)

	stats, err := p.Poll(ctx)
	if err != nil {
		logger.Error("poll failed", "error", err)
		return nil
	}

	logger.Info("check complete",
		"fetched", stats.Fetched,
		"new", stats.New,
		"seen", stats.Seen,
		"would_send", stats.Sent,
		"failed", stats.Failed,
	)
	return nil
}
