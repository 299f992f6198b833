package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/bountybot/internal/model"
)

func newTestRedisStore(t *testing.T, retention time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := OpenRedisStore(context.Background(), mr.Addr(), "", 0, retention)
	if err != nil {
		t.Fatalf("OpenRedisStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedis_ProcessedIdempotent(t *testing.T) {
	s, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	done, err := s.IsProcessed(ctx, "listing-1")
	if err != nil || done {
		t.Fatalf("IsProcessed before mark = %v, %v", done, err)
	}
	for i := 0; i < 2; i++ {
		if err := s.MarkProcessed(ctx, "listing-1"); err != nil {
			t.Fatalf("MarkProcessed #%d: %v", i+1, err)
		}
	}
	done, err = s.IsProcessed(ctx, "listing-1")
	if err != nil || !done {
		t.Fatalf("IsProcessed after mark = %v, %v", done, err)
	}
}

func TestRedis_RetentionExpiresMarkers(t *testing.T) {
	s, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := s.MarkProcessed(ctx, "listing-1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	done, err := s.IsProcessed(ctx, "listing-1")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if done {
		t.Error("expected marker to expire after retention")
	}
}

func TestRedis_NoRetentionKeepsMarkers(t *testing.T) {
	s, mr := newTestRedisStore(t, 0)
	ctx := context.Background()

	if err := s.MarkProcessed(ctx, "listing-1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	mr.FastForward(24 * 365 * time.Hour)

	if done, _ := s.IsProcessed(ctx, "listing-1"); !done {
		t.Error("expected marker to persist without retention")
	}
}

func TestRedis_Destinations(t *testing.T) {
	s, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	if _, ok, err := s.GetDestination(ctx, "guild-1"); err != nil || ok {
		t.Fatalf("expected no destination, got ok=%v err=%v", ok, err)
	}

	mustSet := func(tenant, dest string) {
		t.Helper()
		if err := s.SetDestination(ctx, tenant, dest); err != nil {
			t.Fatalf("SetDestination: %v", err)
		}
	}
	mustSet("guild-2", "chan-x")
	mustSet("guild-1", "chan-a")
	mustSet("guild-1", "chan-b")

	dest, ok, err := s.GetDestination(ctx, "guild-1")
	if err != nil || !ok || dest != "chan-b" {
		t.Fatalf("GetDestination = %q, %v, %v", dest, ok, err)
	}

	all, err := s.ListTenantDestinations(ctx)
	if err != nil {
		t.Fatalf("ListTenantDestinations: %v", err)
	}
	want := []model.TenantDestination{
		{TenantID: "guild-1", DestinationID: "chan-b"},
		{TenantID: "guild-2", DestinationID: "chan-x"},
	}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("ListTenantDestinations = %+v, want %+v", all, want)
	}
}

func TestRedis_Subscriptions(t *testing.T) {
	s, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	for _, kw := range []string{"remote", "berlin", "austin"} {
		if added, err := s.AddSubscription(ctx, "guild-1", kw); err != nil || !added {
			t.Fatalf("AddSubscription(%q) = %v, %v", kw, added, err)
		}
	}
	if added, err := s.AddSubscription(ctx, "guild-1", "remote"); err != nil || added {
		t.Fatalf("duplicate AddSubscription = %v, %v; want false", added, err)
	}

	got, err := s.ListSubscriptions(ctx, "guild-1")
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if want := []string{"remote", "berlin", "austin"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListSubscriptions = %v, want %v", got, want)
	}

	if err := s.RemoveSubscription(ctx, "guild-1", "berlin"); err != nil {
		t.Fatalf("RemoveSubscription: %v", err)
	}
	if err := s.RemoveSubscription(ctx, "guild-1", "berlin"); err != nil {
		t.Fatalf("second RemoveSubscription: %v", err)
	}

	got, err = s.ListSubscriptions(ctx, "guild-1")
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if want := []string{"remote", "austin"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after remove = %v, want %v", got, want)
	}
}

func TestRedis_OpenFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := OpenRedisStore(ctx, addr, "", 0, 0); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestRedis_NewRedisStoreWrapsClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, 0)
	defer s.Close()

	if err := s.MarkProcessed(context.Background(), "a"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if !mr.Exists("bountybot:processed:a") {
		t.Error("expected processed key in redis")
	}
}
