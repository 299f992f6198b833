package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

const (
	DefaultDiscordBaseURL = "https://discord.com/api/v10"

	embedColorGreen = 0x2ECC71
	embedFooter     = "Bounty Alert"
	userAgent       = "DiscordBot (https://github.com/amishk599/bountybot, 1.0)"

	// maxRateLimitWait bounds the single in-place retry after a 429.
	maxRateLimitWait = 30 * time.Second
)

// Ensure DiscordSink implements model.Sink and model.Readier.
var (
	_ model.Sink    = (*DiscordSink)(nil)
	_ model.Readier = (*DiscordSink)(nil)
)

// DiscordSink posts alerts to Discord channels through the bot REST API.
type DiscordSink struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewDiscordSink returns a sink that authenticates as the bot with token.
// An empty baseURL selects the public Discord API.
func NewDiscordSink(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *DiscordSink {
	if baseURL == "" {
		baseURL = DefaultDiscordBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordSink{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Ready verifies the token by fetching the bot's own user.
func (d *DiscordSink) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users/@me", nil)
	if err != nil {
		return fmt.Errorf("discord ready: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord ready: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord ready: unexpected status %d", resp.StatusCode)
	}

	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err == nil {
		d.logger.Info("discord connection ready", "bot_user", me.Username, "bot_id", me.ID)
	}
	return nil
}

// Send posts msg as an embed to the channel destinationID. A 429 is retried
// once after the advertised delay; 403 and 404 are classified so the caller
// can skip the destination.
func (d *DiscordSink) Send(ctx context.Context, destinationID string, msg model.Message) error {
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{buildEmbed(msg, d.now())}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	status, retryAfter, err := d.post(ctx, destinationID, body)
	if err != nil {
		return &model.SinkError{Kind: model.SinkOther, DestinationID: destinationID, Err: err}
	}

	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		if retryAfter > maxRateLimitWait {
			return &model.SinkError{Kind: model.SinkOther, DestinationID: destinationID,
				Err: fmt.Errorf("rate limited for %v", retryAfter)}
		}
		d.logger.Warn("discord rate limited, retrying", "destination_id", destinationID, "retry_after", retryAfter)

		t := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		status, _, err = d.post(ctx, destinationID, body)
		if err != nil {
			return &model.SinkError{Kind: model.SinkOther, DestinationID: destinationID, Err: fmt.Errorf("retry: %w", err)}
		}
	}

	if err := classifyStatus(destinationID, status); err != nil {
		return err
	}
	d.logger.Debug("discord message sent", "destination_id", destinationID, "listing_id", msg.ListingID)
	return nil
}

func (d *DiscordSink) post(ctx context.Context, channelID string, body []byte) (int, time.Duration, error) {
	endpoint := d.baseURL + "/channels/" + url.PathEscape(channelID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		return 0, 0, fmt.Errorf("post to discord: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func (d *DiscordSink) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("User-Agent", userAgent)
}

func classifyStatus(destinationID string, status int) error {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return &model.SinkError{Kind: model.SinkNotFound, DestinationID: destinationID, Err: fmt.Errorf("channel not found")}
	case http.StatusForbidden:
		return &model.SinkError{Kind: model.SinkForbidden, DestinationID: destinationID, Err: fmt.Errorf("missing permission to post")}
	default:
		return &model.SinkError{Kind: model.SinkOther, DestinationID: destinationID, Err: fmt.Errorf("discord returned %d", status)}
	}
}

// parseRetryAfter reads Discord's Retry-After header, which may carry
// fractional seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// Embed payload types.

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func buildEmbed(msg model.Message, now time.Time) discordEmbed {
	fields := []discordField{
		{Name: "📍 Location", Value: msg.Location, Inline: true},
		{Name: "💵 Reward", Value: msg.Reward, Inline: true},
		{Name: "⏰ Deadline", Value: msg.Deadline, Inline: true},
	}
	if len(msg.Skills) > 0 {
		fields = append(fields, discordField{Name: "🛠️ Skills", Value: strings.Join(msg.Skills, ", ")})
	}

	return discordEmbed{
		Title:       "💰 " + msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       embedColorGreen,
		Fields:      fields,
		Footer:      &discordFooter{Text: embedFooter},
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

// SendTestMessage sends a sample alert to destinationID to verify the integration works.
func SendTestMessage(ctx context.Context, sink model.Sink, destinationID string) error {
	sample := model.Listing{
		ID:          "test-001",
		Title:       "Test Notification - Integration Verified",
		Description: "If you can read this, bountybot can post to this channel.",
		Location:    "Everywhere",
		Reward:      "$0",
		Deadline:    model.NotSpecified,
		URL:         "https://example.com/bounty/test-001",
		Skills:      []string{"Go", "Discord"},
	}
	return sink.Send(ctx, destinationID, Render(sample))
}
