package notifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amishk599/bountybot/internal/model"
)

// Ensure LogSink implements model.Sink.
var _ model.Sink = (*LogSink)(nil)

// LogSink writes alerts to the given logger as structured messages. It is used
// when no chat platform is configured and by the one-shot check command.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs each message via slog.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send logs the message. Returns nil (stdout logging does not fail).
func (n *LogSink) Send(_ context.Context, destinationID string, msg model.Message) error {
	args := []any{
		"destination_id", destinationID,
		"listing_id", msg.ListingID,
		"title", msg.Title,
		"location", msg.Location,
		"reward", msg.Reward,
		"deadline", msg.Deadline,
	}
	if len(msg.Skills) > 0 {
		args = append(args, "skills", strings.Join(msg.Skills, ", "))
	}
	if msg.URL != "" {
		args = append(args, "url", msg.URL)
	}
	n.logger.Info("bounty alert", args...)
	return nil
}
