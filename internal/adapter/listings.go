package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	DefaultTimeout  = 10 * time.Second

	// maxBodyBytes bounds how much of a response we are willing to buffer.
	maxBodyBytes = 8 << 20
)

// ListingAdapter fetches listings from a JSON HTTP endpoint and normalizes the
// heterogeneous response shapes into model.Listing.
type ListingAdapter struct {
	apiURL  string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

var _ model.ListingFetcher = (*ListingAdapter)(nil)

// NewListingAdapter creates an adapter for apiURL. apiKey may be empty for
// unauthenticated sources. timeout bounds each attempt independently.
func NewListingAdapter(apiURL, apiKey string, timeout time.Duration, client *http.Client, logger *slog.Logger) *ListingAdapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ListingAdapter{
		apiURL:  apiURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// FetchListings retrieves one page of listings.
//
// Only transient failures (network errors, per-attempt timeouts, HTTP 429) are
// returned as errors. Authentication failures, other non-200 statuses and
// malformed bodies are logged and yield an empty result so they are never retried.
func (a *ListingAdapter) FetchListings(ctx context.Context, page, pageSize int) ([]model.Listing, error) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	u, err := url.Parse(a.apiURL)
	if err != nil {
		return nil, fmt.Errorf("listing fetch: parse url %q: %w", a.apiURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("listing fetch: %w", err)
	}
	setHeaders(req, a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, a.transient(ctx, 0, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		a.logger.Error("listing source authentication failed, check source.api_key", "status", resp.StatusCode)
		return []model.Listing{}, nil
	case http.StatusTooManyRequests:
		a.logger.Warn("listing source rate limit hit, backing off", "retry_after", resp.Header.Get("Retry-After"))
		return nil, &model.SourceError{
			Kind:       model.SourceTransient,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New("rate limit exceeded"),
		}
	default:
		a.logger.Error("listing source returned unexpected status", "status", resp.StatusCode)
		return []model.Listing{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, a.transient(ctx, resp.StatusCode, err)
	}

	listings, skipped, err := decodeListings(body)
	if err != nil {
		a.logger.Warn("listing source body could not be normalized", "error", err)
		return []model.Listing{}, nil
	}
	if skipped > 0 {
		a.logger.Warn("dropped non-object listing entries", "count", skipped)
	}

	a.logger.Debug("fetched listings", "page", page, "per_page", pageSize, "count", len(listings))
	return listings, nil
}

// transient classifies a transport failure. Cancellation of the caller's
// context is returned as-is so it is never retried; anything else, including
// the per-attempt timeout, is transient.
func (a *ListingAdapter) transient(ctx context.Context, status int, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.logger.Warn("listing source request failed", "error", err)
	return &model.SourceError{
		Kind:       model.SourceTransient,
		StatusCode: status,
		Err:        fmt.Errorf("listing fetch: %w", err),
	}
}
