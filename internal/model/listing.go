package model

import "context"

// Display fallbacks for listings that omit optional fields.
const (
	DefaultTitle       = "New Bounty"
	DefaultDescription = "No description provided"
	DefaultLocation    = "Remote"
	NotSpecified       = "Not specified"
)

// Listing is one posting from the upstream source. Only ID is ever persisted.
type Listing struct {
	ID          string   // stable unique identifier, empty if the source omitted it
	Title       string   // display title
	Description string   // free text
	Location    string   // match target, "Remote" when absent
	Reward      string   // reward text as given by the source
	Deadline    string   // deadline text as given by the source
	URL         string   // link to the posting
	Skills      []string // may be empty
}

// TenantDestination maps a tenant to the channel its notifications go to.
type TenantDestination struct {
	TenantID      string
	DestinationID string
}

// Message is a rendered notification ready for a sink.
type Message struct {
	ListingID   string
	Title       string
	Description string
	URL         string
	Location    string
	Reward      string
	Deadline    string
	Skills      []string
}

// ListingFetcher fetches one page of listings from the upstream source.
type ListingFetcher interface {
	FetchListings(ctx context.Context, page, pageSize int) ([]Listing, error)
}

// Store persists tenant destinations, keyword subscriptions and the set of
// processed listing IDs.
type Store interface {
	SetDestination(ctx context.Context, tenantID, destinationID string) error
	GetDestination(ctx context.Context, tenantID string) (string, bool, error)
	ListTenantDestinations(ctx context.Context) ([]TenantDestination, error)

	// AddSubscription returns false when the pair already existed.
	AddSubscription(ctx context.Context, tenantID, keyword string) (bool, error)
	RemoveSubscription(ctx context.Context, tenantID, keyword string) error
	ListSubscriptions(ctx context.Context, tenantID string) ([]string, error)

	IsProcessed(ctx context.Context, listingID string) (bool, error)
	MarkProcessed(ctx context.Context, listingID string) error
}

// Sink delivers a rendered message to a destination.
type Sink interface {
	Send(ctx context.Context, destinationID string, msg Message) error
}

// Readier is implemented by sinks that need a connection check before the
// poll loop may start.
type Readier interface {
	Ready(ctx context.Context) error
}
