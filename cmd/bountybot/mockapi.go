package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amishk599/bountybot/internal/config"
	"github.com/amishk599/bountybot/internal/mockapi"
	"github.com/spf13/cobra"
)

var mockAPICmd = &cobra.Command{
	Use:   "mock-api",
	Short: "Serve a fake bounty listing API for local testing",
	Long:  "Serves /bounties, /bounty/{id} and /health with generated listings that are replaced every mock_api.refresh. Runs without a config file.",
	RunE:  runMockAPI,
}

func init() {
	rootCmd.AddCommand(mockAPICmd)
}

func runMockAPI(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug, "info")

	cfg, err := loadConfig(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Defaults()
	} else if err != nil {
		fatal(logger, "failed to load config", err)
	}

	srv := &http.Server{
		Addr:              cfg.MockAPI.Addr,
		Handler:           mockapi.NewServer(cfg.MockAPI.Count, cfg.MockAPI.Refresh, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock listing API listening",
		"addr", cfg.MockAPI.Addr,
		"count", cfg.MockAPI.Count,
		"refresh", cfg.MockAPI.Refresh.String(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "mock API server failed", err)
	}

	logger.Info("goodbye")
	return nil
}
