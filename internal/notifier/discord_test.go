package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleListing() model.Listing {
	return model.Listing{
		ID:          "1700000000",
		Title:       "Build a Discord Bot for Trading Alerts",
		Description: "We need an experienced developer.",
		Location:    "San Francisco, CA",
		Reward:      "$1,500",
		Deadline:    "2026-11-01",
		URL:         "https://example.com/bounty/1700000000",
		Skills:      []string{"Python", "Docker"},
	}
}

func newTestSink(srv *httptest.Server) *DiscordSink {
	s := NewDiscordSink(srv.URL, "tok", srv.Client(), discardLogger())
	s.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestDiscordSink_Send(t *testing.T) {
	var (
		path, auth string
		body       []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestSink(srv).Send(context.Background(), "12345", Render(sampleListing())); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}

	if path != "/channels/12345/messages" {
		t.Errorf("path = %q", path)
	}
	if auth != "Bot tok" {
		t.Errorf("Authorization = %q", auth)
	}

	var payload discordPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Title != "💰 Build a Discord Bot for Trading Alerts" {
		t.Errorf("title = %q", e.Title)
	}
	if e.URL != "https://example.com/bounty/1700000000" {
		t.Errorf("url = %q", e.URL)
	}
	if e.Color != embedColorGreen {
		t.Errorf("color = %#x", e.Color)
	}
	if e.Footer == nil || e.Footer.Text != "Bounty Alert" {
		t.Errorf("footer = %+v", e.Footer)
	}
	if e.Timestamp != "2026-01-15T10:00:00Z" {
		t.Errorf("timestamp = %q", e.Timestamp)
	}

	wantFields := []discordField{
		{Name: "📍 Location", Value: "San Francisco, CA", Inline: true},
		{Name: "💵 Reward", Value: "$1,500", Inline: true},
		{Name: "⏰ Deadline", Value: "2026-11-01", Inline: true},
		{Name: "🛠️ Skills", Value: "Python, Docker"},
	}
	if len(e.Fields) != len(wantFields) {
		t.Fatalf("fields = %+v", e.Fields)
	}
	for i, f := range wantFields {
		if e.Fields[i] != f {
			t.Errorf("field[%d] = %+v, want %+v", i, e.Fields[i], f)
		}
	}
}

func TestDiscordSink_NoSkillsField(t *testing.T) {
	e := buildEmbed(model.Message{Title: "x"}, time.Now())
	for _, f := range e.Fields {
		if f.Name == "🛠️ Skills" {
			t.Fatal("skills field should be omitted when empty")
		}
	}
}

func TestDiscordSink_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   model.SinkErrorKind
	}{
		{status: http.StatusNotFound, want: model.SinkNotFound},
		{status: http.StatusForbidden, want: model.SinkForbidden},
		{status: http.StatusInternalServerError, want: model.SinkOther},
		{status: http.StatusBadRequest, want: model.SinkOther},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestSink(srv).Send(context.Background(), "chan", Render(sampleListing()))
			var sinkErr *model.SinkError
			if !errors.As(err, &sinkErr) {
				t.Fatalf("expected SinkError, got %v", err)
			}
			if sinkErr.Kind != tt.want {
				t.Errorf("kind = %s, want %s", sinkErr.Kind, tt.want)
			}
			if sinkErr.DestinationID != "chan" {
				t.Errorf("destination = %q", sinkErr.DestinationID)
			}
			if c := calls.Load(); c != 1 {
				t.Errorf("expected exactly 1 request (no retry), got %d", c)
			}
		})
	}
}

func TestDiscordSink_RateLimitedRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestSink(srv).Send(context.Background(), "chan", Render(sampleListing())); err != nil {
		t.Fatalf("Send() = %v, want nil after retry", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 requests, got %d", c)
	}
}

func TestDiscordSink_RateLimitedTwiceFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newTestSink(srv).Send(context.Background(), "chan", Render(sampleListing()))
	var sinkErr *model.SinkError
	if !errors.As(err, &sinkErr) || sinkErr.Kind != model.SinkOther {
		t.Fatalf("expected SinkOther error, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 requests, got %d", c)
	}
}

func TestDiscordSink_Ready(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" || r.Header.Get("Authorization") != "Bot tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"1","username":"bountybot"}`))
	}))
	defer srv.Close()

	if err := newTestSink(srv).Ready(context.Background()); err != nil {
		t.Fatalf("Ready() = %v, want nil", err)
	}

	bad := NewDiscordSink(srv.URL, "wrong", srv.Client(), discardLogger())
	if err := bad.Ready(context.Background()); err == nil {
		t.Fatal("Ready() with bad token should fail")
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingSink{}
	if err := SendTestMessage(context.Background(), rec, "chan-9"); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if len(rec.sent) != 1 || rec.dest[0] != "chan-9" {
		t.Fatalf("expected one message to chan-9, got %v", rec.dest)
	}
	if rec.sent[0].ListingID != "test-001" {
		t.Errorf("listing id = %q", rec.sent[0].ListingID)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":     0,
		"abc":  0,
		"-1":   0,
		"2":    2 * time.Second,
		"0.25": 250 * time.Millisecond,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

type recordingSink struct {
	dest []string
	sent []model.Message
}

func (r *recordingSink) Send(_ context.Context, destinationID string, msg model.Message) error {
	r.dest = append(r.dest, destinationID)
	r.sent = append(r.sent, msg)
	return nil
}
