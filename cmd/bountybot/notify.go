package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/amishk599/bountybot/internal/notifier"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test <channel>",
	Short: "Send a test notification",
	Long:  "Sends a sample bounty alert to the given channel using the configured sink.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := setupSink(cfg, newHTTPClient(), logger)
	if r := readinessOf(sink); r != nil {
		if err := r.Ready(ctx); err != nil {
			fatal(logger, "sink is not ready", err)
		}
	}

	if err := notifier.SendTestMessage(ctx, sink, args[0]); err != nil {
		fatal(logger, "test notification failed", err)
	}
	logger.Info("test notification sent successfully", "destination_id", args[0])
	return nil
}
