// Package command implements the tenant-facing configuration commands. Each
// command reads or writes the store directly and always produces a Response;
// failures are logged and reported, never returned.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

// Kind classifies a command response.
type Kind int

const (
	OK Kind = iota
	AlreadySubscribed
	NeedsDestination
	Empty
	Invalid
	Failed
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case AlreadySubscribed:
		return "already subscribed"
	case NeedsDestination:
		return "needs destination"
	case Empty:
		return "empty"
	case Invalid:
		return "invalid"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Response is what a command reports back to the tenant.
type Response struct {
	Kind     Kind
	Text     string
	Keywords []string      // set by List
	Status   *StatusReport // set by Status
}

// StatusReport describes a tenant's configuration and the poller settings.
type StatusReport struct {
	TenantID          string
	DestinationID     string // empty when not set
	SubscriptionCount int
	PollInterval      time.Duration
	SourceMode        string
}

// Service runs commands against a store.
type Service struct {
	store        model.Store
	pollInterval time.Duration
	sourceMode   string
	logger       *slog.Logger
}

// NewService creates a command service. pollInterval and sourceMode are only
// reported by Status.
func NewService(st model.Store, pollInterval time.Duration, sourceMode string, logger *slog.Logger) *Service {
	return &Service{
		store:        st,
		pollInterval: pollInterval,
		sourceMode:   sourceMode,
		logger:       logger,
	}
}

func invalid(text string) Response { return Response{Kind: Invalid, Text: text} }

func failed(action string) Response {
	return Response{Kind: Failed, Text: fmt.Sprintf("Failed to %s, please try again.", action)}
}

// SetDestination creates or replaces the tenant's notification destination.
func (s *Service) SetDestination(ctx context.Context, tenantID, destinationID string) Response {
	if tenantID == "" || destinationID == "" {
		return invalid("Tenant and channel must not be empty.")
	}
	if err := s.store.SetDestination(ctx, tenantID, destinationID); err != nil {
		s.logger.Error("setting destination", "tenant_id", tenantID, "destination_id", destinationID, "error", err)
		return failed("set channel")
	}
	s.logger.Info("destination set", "tenant_id", tenantID, "destination_id", destinationID)
	return Response{Kind: OK, Text: fmt.Sprintf("Notification channel set to %s", destinationID)}
}

// Subscribe adds a keyword. A tenant without a destination is rejected before
// the store is asked to add anything.
func (s *Service) Subscribe(ctx context.Context, tenantID, keyword string) Response {
	if tenantID == "" {
		return invalid("Tenant must not be empty.")
	}
	if strings.TrimSpace(keyword) == "" {
		return invalid("Keyword must not be empty.")
	}

	_, ok, err := s.store.GetDestination(ctx, tenantID)
	if err != nil {
		s.logger.Error("checking destination", "tenant_id", tenantID, "error", err)
		return failed("subscribe")
	}
	if !ok {
		return Response{Kind: NeedsDestination, Text: "Please set a notification channel first using `tenant set-channel`."}
	}

	added, err := s.store.AddSubscription(ctx, tenantID, keyword)
	if err != nil {
		s.logger.Error("adding subscription", "tenant_id", tenantID, "keyword", keyword, "error", err)
		return failed("subscribe")
	}
	if !added {
		return Response{Kind: AlreadySubscribed, Text: fmt.Sprintf("Already subscribed to %s", keyword)}
	}
	s.logger.Info("subscribed", "tenant_id", tenantID, "keyword", keyword)
	return Response{Kind: OK, Text: fmt.Sprintf("Subscribed to bounties in %s", keyword)}
}

// Unsubscribe removes a keyword. Removing an absent keyword still succeeds.
func (s *Service) Unsubscribe(ctx context.Context, tenantID, keyword string) Response {
	if tenantID == "" {
		return invalid("Tenant must not be empty.")
	}
	if strings.TrimSpace(keyword) == "" {
		return invalid("Keyword must not be empty.")
	}
	if err := s.store.RemoveSubscription(ctx, tenantID, keyword); err != nil {
		s.logger.Error("removing subscription", "tenant_id", tenantID, "keyword", keyword, "error", err)
		return failed("unsubscribe")
	}
	s.logger.Info("unsubscribed", "tenant_id", tenantID, "keyword", keyword)
	return Response{Kind: OK, Text: fmt.Sprintf("Unsubscribed from %s", keyword)}
}

// List returns the tenant's keywords.
func (s *Service) List(ctx context.Context, tenantID string) Response {
	keywords, err := s.store.ListSubscriptions(ctx, tenantID)
	if err != nil {
		s.logger.Error("listing subscriptions", "tenant_id", tenantID, "error", err)
		return failed("retrieve subscriptions")
	}
	if len(keywords) == 0 {
		return Response{Kind: Empty, Text: "No active subscriptions. Use `tenant subscribe` to add one!"}
	}

	var b strings.Builder
	b.WriteString("Active subscriptions:")
	for _, kw := range keywords {
		b.WriteString("\n• ")
		b.WriteString(kw)
	}
	return Response{Kind: OK, Text: b.String(), Keywords: keywords}
}

// Status reports the tenant's destination, subscription count, poll interval
// and source mode.
func (s *Service) Status(ctx context.Context, tenantID string) Response {
	dest, _, err := s.store.GetDestination(ctx, tenantID)
	if err != nil {
		s.logger.Error("reading destination", "tenant_id", tenantID, "error", err)
		return failed("retrieve status")
	}
	keywords, err := s.store.ListSubscriptions(ctx, tenantID)
	if err != nil {
		s.logger.Error("listing subscriptions", "tenant_id", tenantID, "error", err)
		return failed("retrieve status")
	}

	report := &StatusReport{
		TenantID:          tenantID,
		DestinationID:     dest,
		SubscriptionCount: len(keywords),
		PollInterval:      s.pollInterval,
		SourceMode:        s.sourceMode,
	}

	channel := "Not set"
	if dest != "" {
		channel = dest
	}
	subs := "None"
	if len(keywords) > 0 {
		subs = fmt.Sprintf("%d location(s)", len(keywords))
	}
	text := fmt.Sprintf("Notification channel: %s\nActive subscriptions: %s\nPoll interval: %s\nAPI mode: %s",
		channel, subs, s.pollInterval, s.sourceMode)

	return Response{Kind: OK, Text: text, Status: report}
}
