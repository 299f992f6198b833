package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amishk599/bountybot/internal/adapter"
	"github.com/amishk599/bountybot/internal/config"
	"github.com/amishk599/bountybot/internal/model"
	"github.com/amishk599/bountybot/internal/notifier"
	"github.com/amishk599/bountybot/internal/ratelimit"
	"github.com/amishk599/bountybot/internal/retry"
	"github.com/amishk599/bountybot/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "bountybot",
	Short: "Bounty radar: location alerts for every channel",
	Long:  "bountybot polls a bounty listing API and posts each new listing to every tenant channel whose location keywords match it.",
	// Default to `start` so that `bountybot` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: BOUNTYBOT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// resolveConfigPath applies the priority: explicit path arg > BOUNTYBOT_CONFIG env var > "./config.yaml".
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("BOUNTYBOT_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

// loadConfig resolves the config path and parses it.
func loadConfig(path string) (*config.Config, error) {
	return config.Load(resolveConfigPath(path))
}

// mustLoadConfig loads the config and exits non-zero on any error, before
// anything else has started.
func mustLoadConfig() (*config.Config, *slog.Logger) {
	logger := setupLogger(debug, "info")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, setupLogger(debug, cfg.LogLevel)
}

// setupLogger builds the stdout text logger. --debug overrides the configured level.
func setupLogger(dbg bool, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// closableStore is a store backend that holds a connection.
type closableStore interface {
	model.Store
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (closableStore, error) {
	switch cfg.Store.Type {
	case "redis":
		logger.Info("using redis store", "addr", cfg.Store.RedisAddr, "db", cfg.Store.RedisDB)
		st, err := store.OpenRedisStore(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, cfg.Store.ProcessedRetention)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		logger.Info("using sqlite store", "path", cfg.Store.Path)
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// setupSink builds the configured sink. Discord sends are spaced per channel.
func setupSink(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Sink {
	switch cfg.Notification.Type {
	case "discord":
		logger.Info("using discord sink", "min_delay", cfg.Notification.MinDelay.String())
		discord := notifier.NewDiscordSink(cfg.Notification.BaseURL, cfg.Notification.Token, httpClient, logger)
		return ratelimit.NewRateLimitedSink(discord, ratelimit.NewKeyedLimiter(cfg.Notification.MinDelay))
	default:
		return notifier.NewLogSink(logger)
	}
}

// readinessOf returns the sink's readiness check, or nil when it has none.
func readinessOf(sink model.Sink) model.Readier {
	if r, ok := sink.(model.Readier); ok {
		return r
	}
	return nil
}

// buildFetcher wires the source client behind the retry decorator.
func buildFetcher(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.ListingFetcher {
	src := adapter.NewListingAdapter(cfg.Source.URL, cfg.Source.APIKey, cfg.Source.Timeout, httpClient, logger)
	return retry.NewRetryFetcher(src, cfg.Source.MaxRetries, retry.DefaultBaseDelay, retry.DefaultMaxDelay, logger)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
