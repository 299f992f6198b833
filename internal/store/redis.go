package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/bountybot/internal/model"
)

const keyPrefix = "bountybot:"

// RedisStore keeps the same state as SQLiteStore in Redis so several bot
// instances can share it:
//
//	bountybot:destinations        hash tenant -> destination
//	bountybot:subs:<tenant>       sorted set, score is insertion sequence
//	bountybot:subs_seq            counter feeding the scores
//	bountybot:processed:<listing> string, optional TTL
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

var _ model.Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. A positive retention sets a TTL on
// processed markers; zero keeps them forever.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// OpenRedisStore dials addr and verifies the connection with a PING.
func OpenRedisStore(ctx context.Context, addr, password string, db int, retention time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, retention), nil
}

const (
	destinationsKey    = keyPrefix + "destinations"
	subscriptionSeqKey = keyPrefix + "subs_seq"
)

func subscriptionsKey(tenantID string) string {
	return keyPrefix + "subs:" + tenantID
}

func processedKey(listingID string) string {
	return keyPrefix + "processed:" + listingID
}

func (s *RedisStore) SetDestination(ctx context.Context, tenantID, destinationID string) error {
	if err := s.client.HSet(ctx, destinationsKey, tenantID, destinationID).Err(); err != nil {
		return &model.StoreError{Op: "set destination", Err: err}
	}
	return nil
}

func (s *RedisStore) GetDestination(ctx context.Context, tenantID string) (string, bool, error) {
	dest, err := s.client.HGet(ctx, destinationsKey, tenantID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &model.StoreError{Op: "get destination", Err: err}
	}
	return dest, true, nil
}

// ListTenantDestinations returns every tenant with a destination, ordered by tenant ID.
func (s *RedisStore) ListTenantDestinations(ctx context.Context) ([]model.TenantDestination, error) {
	all, err := s.client.HGetAll(ctx, destinationsKey).Result()
	if err != nil {
		return nil, &model.StoreError{Op: "list destinations", Err: err}
	}
	out := make([]model.TenantDestination, 0, len(all))
	for tenant, dest := range all {
		out = append(out, model.TenantDestination{TenantID: tenant, DestinationID: dest})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

// AddSubscription reports false when the keyword was already subscribed.
func (s *RedisStore) AddSubscription(ctx context.Context, tenantID, keyword string) (bool, error) {
	seq, err := s.client.Incr(ctx, subscriptionSeqKey).Result()
	if err != nil {
		return false, &model.StoreError{Op: "add subscription", Err: err}
	}
	added, err := s.client.ZAddNX(ctx, subscriptionsKey(tenantID), redis.Z{
		Score:  float64(seq),
		Member: keyword,
	}).Result()
	if err != nil {
		return false, &model.StoreError{Op: "add subscription", Err: err}
	}
	return added > 0, nil
}

func (s *RedisStore) RemoveSubscription(ctx context.Context, tenantID, keyword string) error {
	if err := s.client.ZRem(ctx, subscriptionsKey(tenantID), keyword).Err(); err != nil {
		return &model.StoreError{Op: "remove subscription", Err: err}
	}
	return nil
}

// ListSubscriptions returns the tenant's keywords in insertion order.
func (s *RedisStore) ListSubscriptions(ctx context.Context, tenantID string) ([]string, error) {
	kws, err := s.client.ZRange(ctx, subscriptionsKey(tenantID), 0, -1).Result()
	if err != nil {
		return nil, &model.StoreError{Op: "list subscriptions", Err: err}
	}
	return kws, nil
}

func (s *RedisStore) IsProcessed(ctx context.Context, listingID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedKey(listingID)).Result()
	if err != nil {
		return false, &model.StoreError{Op: "is processed", Err: fmt.Errorf("listing %s: %w", listingID, err)}
	}
	return n > 0, nil
}

// MarkProcessed records the listing ID. SET NX leaves an existing marker and
// its TTL untouched.
func (s *RedisStore) MarkProcessed(ctx context.Context, listingID string) error {
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := s.client.SetNX(ctx, processedKey(listingID), stamp, s.retention).Err(); err != nil {
		return &model.StoreError{Op: "mark processed", Err: fmt.Errorf("listing %s: %w", listingID, err)}
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
