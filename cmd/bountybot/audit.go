package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/amishk599/bountybot/internal/audit"
	"github.com/amishk599/bountybot/internal/config"
	"github.com/amishk599/bountybot/internal/model"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse bounties against a tenant's subscriptions (TUI)",
	Long:  "Shows the tenant picker TUI, fetches one page of bounties, then launches the split-pane audit view.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoadConfig()

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	// Audit mode runs a TUI and any log output while it is on screen corrupts
	// the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := buildFetcher(cfg, newHTTPClient(), silentLogger)

	runAudit(cmd.Context(), cfg, st, fetcher)
	return nil
}

func loadTenants(ctx context.Context, st model.Store) ([]audit.Tenant, error) {
	dests, err := st.ListTenantDestinations(ctx)
	if err != nil {
		return nil, err
	}
	tenants := make([]audit.Tenant, 0, len(dests))
	for _, d := range dests {
		keywords, err := st.ListSubscriptions(ctx, d.TenantID)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, audit.Tenant{ID: d.TenantID, DestinationID: d.DestinationID, Keywords: keywords})
	}
	return tenants, nil
}

func runAudit(ctx context.Context, cfg *config.Config, st model.Store, fetcher model.ListingFetcher) {
	tenants, err := loadTenants(ctx, st)
	if err != nil {
		fmt.Printf("Error loading tenants: %v\n", err)
		return
	}
	if len(tenants) == 0 {
		fmt.Println("No tenants with a notification channel. Use `bountybot tenant set-channel` first.")
		return
	}

	for {
		choice, err := audit.RunTenantPicker(tenants)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		tenant := tenants[choice]

		listings, err := audit.RunLoader(cfg.Source.URL, func(ctx context.Context) ([]model.Listing, error) {
			return fetcher.FetchListings(ctx, 1, cfg.Source.PageSize)
		})
		if err != nil {
			fmt.Printf("Error fetching bounties: %v\n", err)
			continue
		}

		wantQuit, err := audit.RunAuditTUI(tenant, listings)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}
