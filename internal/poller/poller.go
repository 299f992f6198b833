package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/bountybot/internal/filter"
	"github.com/amishk599/bountybot/internal/model"
	"github.com/amishk599/bountybot/internal/notifier"
	"github.com/amishk599/bountybot/internal/store"
)

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	Fetched   int // listings returned by the source
	MissingID int // skipped because the source omitted an ID
	Seen      int // skipped because already processed
	New       int // marked processed this cycle
	Sent      int // successful deliveries
	Failed    int // deliveries or per-tenant lookups that failed
}

// ListingPoller owns the full poll pipeline:
// fetch → dedup → mark processed → fan out to matching tenants.
type ListingPoller struct {
	fetcher   model.ListingFetcher
	store     model.Store
	sink      model.Sink
	pageSize  int
	retention time.Duration
	logger    *slog.Logger
}

// NewListingPoller creates a poller wired with all its dependencies. A positive
// retention prunes old processed records after each cycle when the store
// supports it.
func NewListingPoller(
	fetcher model.ListingFetcher,
	st model.Store,
	sink model.Sink,
	pageSize int,
	retention time.Duration,
	logger *slog.Logger,
) *ListingPoller {
	return &ListingPoller{
		fetcher:   fetcher,
		store:     st,
		sink:      sink,
		pageSize:  pageSize,
		retention: retention,
		logger:    logger,
	}
}

// Poll runs one cycle. Only a fetch failure or cancellation is returned as an
// error; per-listing and per-tenant failures are logged and counted.
func (p *ListingPoller) Poll(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	logger := p.logger.With("cycle_id", uuid.NewString())

	listings, err := p.fetcher.FetchListings(ctx, 1, p.pageSize)
	if err != nil {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		return stats, fmt.Errorf("fetching listings: %w", err)
	}
	stats.Fetched = len(listings)

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if l.ID == "" {
			logger.Warn("listing has no id, skipping", "title", l.Title)
			stats.MissingID++
			continue
		}
		llog := logger.With("listing_id", l.ID)

		done, err := p.store.IsProcessed(ctx, l.ID)
		if err != nil {
			llog.Error("checking processed state, skipping listing", "error", err)
			stats.Failed++
			continue
		}
		if done {
			stats.Seen++
			continue
		}

		// Marked before any send: a crash mid-fanout must not repeat alerts.
		if err := p.store.MarkProcessed(ctx, l.ID); err != nil {
			llog.Error("marking listing processed, skipping fanout", "error", err)
			stats.Failed++
			continue
		}
		stats.New++

		sent, failed, err := p.fanout(ctx, llog, l)
		stats.Sent += sent
		stats.Failed += failed
		if err != nil {
			return stats, err
		}
	}

	p.prune(ctx, logger)

	logger.Info("poll cycle complete",
		"fetched", stats.Fetched,
		"new", stats.New,
		"seen", stats.Seen,
		"missing_id", stats.MissingID,
		"sent", stats.Sent,
		"failed", stats.Failed,
	)
	return stats, nil
}

// fanout delivers one listing to every tenant with a matching keyword. It only
// returns an error on cancellation.
func (p *ListingPoller) fanout(ctx context.Context, logger *slog.Logger, l model.Listing) (sent, failed int, err error) {
	tenants, err := p.store.ListTenantDestinations(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		logger.Error("listing tenant destinations", "error", err)
		return 0, 1, nil
	}

	msg := notifier.Render(l)
	for _, td := range tenants {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		tlog := logger.With("tenant_id", td.TenantID, "destination_id", td.DestinationID)

		keywords, err := p.store.ListSubscriptions(ctx, td.TenantID)
		if err != nil {
			tlog.Error("listing subscriptions", "error", err)
			failed++
			continue
		}
		keyword, ok := filter.FirstMatch(l.Location, keywords)
		if !ok {
			continue
		}

		if err := p.sink.Send(ctx, td.DestinationID, msg); err != nil {
			if ctx.Err() != nil {
				return sent, failed, ctx.Err()
			}
			failed++
			var sinkErr *model.SinkError
			if errors.As(err, &sinkErr) && (sinkErr.Kind == model.SinkNotFound || sinkErr.Kind == model.SinkForbidden) {
				tlog.Warn("destination unavailable, skipping", "keyword", keyword, "reason", sinkErr.Kind.String())
				continue
			}
			tlog.Error("sending alert", "keyword", keyword, "error", err)
			continue
		}
		sent++
		tlog.Info("alert sent", "keyword", keyword)
	}
	return sent, failed, nil
}

func (p *ListingPoller) prune(ctx context.Context, logger *slog.Logger) {
	if p.retention <= 0 {
		return
	}
	pr, ok := p.store.(store.Pruner)
	if !ok {
		return
	}
	n, err := pr.PruneProcessed(ctx, p.retention)
	if err != nil {
		logger.Warn("pruning processed listings", "error", err)
		return
	}
	if n > 0 {
		logger.Debug("pruned processed listings", "count", n, "older_than", p.retention)
	}
}
