package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/bountybot/internal/command"
)

var errCommandFailed = errors.New("command failed")

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage a tenant's channel and location subscriptions",
}

var tenantSetChannelCmd = &cobra.Command{
	Use:   "set-channel <tenant> <channel>",
	Short: "Set the channel that receives a tenant's alerts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTenant(cmd, func(svc *command.Service) command.Response {
			return svc.SetDestination(cmd.Context(), args[0], args[1])
		})
	},
}

var tenantSubscribeCmd = &cobra.Command{
	Use:   "subscribe <tenant> <location>",
	Short: "Get alerts for bounties whose location contains a keyword",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTenant(cmd, func(svc *command.Service) command.Response {
			return svc.Subscribe(cmd.Context(), args[0], strings.Join(args[1:], " "))
		})
	},
}

var tenantUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <tenant> <location>",
	Short: "Stop alerts for a location keyword",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTenant(cmd, func(svc *command.Service) command.Response {
			return svc.Unsubscribe(cmd.Context(), args[0], strings.Join(args[1:], " "))
		})
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list <tenant>",
	Short: "List a tenant's location subscriptions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTenant(cmd, func(svc *command.Service) command.Response {
			return svc.List(cmd.Context(), args[0])
		})
	},
}

var tenantStatusCmd = &cobra.Command{
	Use:   "status <tenant>",
	Short: "Show a tenant's channel, subscriptions and the poller settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTenant(cmd, func(svc *command.Service) command.Response {
			return svc.Status(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantSetChannelCmd, tenantSubscribeCmd, tenantUnsubscribeCmd, tenantListCmd, tenantStatusCmd)
}

// runTenant opens the store, runs one command and prints its response.
// A Failed response makes the process exit non-zero.
func runTenant(cmd *cobra.Command, run func(*command.Service) command.Response) error {
	cfg, logger := mustLoadConfig()

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer st.Close()

	svc := command.NewService(st, cfg.PollingInterval, cfg.Source.Mode, logger)
	resp := run(svc)
	fmt.Println(renderResponse(resp))

	if resp.Kind == command.Failed {
		return errCommandFailed
	}
	return nil
}

func renderResponse(resp command.Response) string {
	switch resp.Kind {
	case command.OK:
		if resp.Status != nil {
			return boxStyle.Render(okStyle.Render("Bounty Bot Status") + "\n\n" + resp.Text)
		}
		return okStyle.Render("✓ ") + resp.Text
	case command.AlreadySubscribed, command.Empty:
		return dimStyle.Render("• ") + resp.Text
	case command.NeedsDestination, command.Invalid:
		return warnStyle.Render("! ") + resp.Text
	default:
		return errStyle.Render("✗ ") + resp.Text
	}
}
