package mockapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/bountybot/internal/adapter"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestServer returns a server whose clock is controlled by the caller.
func newTestServer(t *testing.T, count int, refresh time.Duration) (*Server, *fakeClock, *httptest.Server) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewServer(count, refresh, discardLogger())
	s.now = clock.Now
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, clock, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestListBounties_Pagination(t *testing.T) {
	_, _, ts := newTestServer(t, 25, time.Minute)

	var body listResponse
	if code := getJSON(t, ts.URL+"/bounties?page=3&per_page=10", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Bounties) != 5 {
		t.Errorf("got %d bounties on last page, want 5", len(body.Bounties))
	}
	want := pagination{Page: 3, PerPage: 10, Total: 25, TotalPages: 3}
	if body.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", body.Pagination, want)
	}

	if code := getJSON(t, ts.URL+"/bounties?page=9&per_page=10", &body); code != http.StatusOK {
		t.Fatalf("status past end = %d", code)
	}
	if len(body.Bounties) != 0 {
		t.Errorf("page past end returned %d bounties", len(body.Bounties))
	}
}

func TestListBounties_InvalidParams(t *testing.T) {
	_, _, ts := newTestServer(t, 5, time.Minute)

	for _, q := range []string{"page=0", "page=x", "per_page=0", "per_page=101"} {
		var body map[string]string
		if code := getJSON(t, ts.URL+"/bounties?"+q, &body); code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", q, code)
		}
		if body["error"] == "" {
			t.Errorf("%s: missing error message", q)
		}
	}
}

func TestListBounties_Shape(t *testing.T) {
	_, clock, ts := newTestServer(t, 20, time.Minute)

	var body listResponse
	getJSON(t, ts.URL+"/bounties?per_page=100", &body)
	if len(body.Bounties) != 20 {
		t.Fatalf("got %d bounties, want 20", len(body.Bounties))
	}

	seen := make(map[string]bool)
	for i, b := range body.Bounties {
		if seen[b.ID] {
			t.Errorf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
		if b.URL != "https://rentahuman.ai/bounty/"+b.ID {
			t.Errorf("url = %q", b.URL)
		}
		if n := len(b.Skills); n < 2 || n > 4 {
			t.Errorf("bounty %s has %d skills", b.ID, n)
		}
		deadline, err := time.Parse(time.DateOnly, b.Deadline)
		if err != nil {
			t.Fatalf("deadline %q: %v", b.Deadline, err)
		}
		if days := deadline.Sub(clock.Now().Truncate(24 * time.Hour)).Hours() / 24; days < 3 || days > 30 {
			t.Errorf("deadline %s is %.0f days out", b.Deadline, days)
		}
		if i > 0 && b.PostedAt > body.Bounties[i-1].PostedAt {
			t.Errorf("bounties not ordered newest first at index %d", i)
		}
	}
}

func TestListBounties_LocationFilter(t *testing.T) {
	_, _, ts := newTestServer(t, 60, time.Minute)

	var body listResponse
	getJSON(t, ts.URL+"/bounties?per_page=100&location=rEmOtE", &body)
	for _, b := range body.Bounties {
		if !strings.Contains(strings.ToLower(b.Location), "remote") {
			t.Errorf("filter leaked %q", b.Location)
		}
	}
	if body.Pagination.Total != len(body.Bounties) {
		t.Errorf("total = %d, returned = %d", body.Pagination.Total, len(body.Bounties))
	}
	if body.Filters["location"] != "rEmOtE" {
		t.Errorf("filters = %v", body.Filters)
	}
}

func TestGetBounty(t *testing.T) {
	_, _, ts := newTestServer(t, 3, time.Minute)

	var list listResponse
	getJSON(t, ts.URL+"/bounties", &list)
	id := list.Bounties[0].ID

	var b Bounty
	if code := getJSON(t, ts.URL+"/bounty/"+id, &b); code != http.StatusOK || b.ID != id {
		t.Fatalf("GET bounty = %d %+v", code, b)
	}

	var missing map[string]string
	if code := getJSON(t, ts.URL+"/bounty/nope", &missing); code != http.StatusNotFound {
		t.Errorf("missing status = %d", code)
	}
	if missing["error"] != "Bounty not found" {
		t.Errorf("missing body = %v", missing)
	}
}

func TestRegeneratesAfterRefresh(t *testing.T) {
	_, clock, ts := newTestServer(t, 4, time.Minute)

	var first, cached, fresh listResponse
	getJSON(t, ts.URL+"/bounties", &first)

	clock.Advance(30 * time.Second)
	getJSON(t, ts.URL+"/bounties", &cached)
	if cached.Bounties[0].ID != first.Bounties[0].ID {
		t.Error("bounties regenerated before the refresh interval")
	}

	clock.Advance(time.Minute)
	getJSON(t, ts.URL+"/bounties", &fresh)
	ids := make(map[string]bool)
	for _, b := range first.Bounties {
		ids[b.ID] = true
	}
	for _, b := range fresh.Bounties {
		if ids[b.ID] {
			t.Errorf("id %s survived regeneration", b.ID)
		}
	}
}

func TestHealthAndRoot(t *testing.T) {
	_, _, ts := newTestServer(t, 7, time.Minute)
	getJSON(t, ts.URL+"/bounties", nil)

	var health map[string]any
	if code := getJSON(t, ts.URL+"/health", &health); code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if health["status"] != "healthy" || health["bounties_cached"] != float64(7) {
		t.Errorf("health = %v", health)
	}

	var root map[string]any
	if code := getJSON(t, ts.URL+"/", &root); code != http.StatusOK || root["endpoints"] == nil {
		t.Errorf("root = %d %v", code, root)
	}
}

func TestAdapterReadsMockAPI(t *testing.T) {
	_, _, ts := newTestServer(t, 12, time.Minute)

	a := adapter.NewListingAdapter(ts.URL+"/bounties", "", 5*time.Second, ts.Client(), discardLogger())
	listings, err := a.FetchListings(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("FetchListings: %v", err)
	}
	if len(listings) != 10 {
		t.Fatalf("got %d listings, want 10", len(listings))
	}
	for _, l := range listings {
		if l.ID == "" || l.Location == "" || len(l.Skills) < 2 {
			t.Errorf("incomplete listing %+v", l)
		}
	}
}
