package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogSink_Send_returnsNil(t *testing.T) {
	n := NewLogSink(discardLogger())
	if err := n.Send(context.Background(), "chan-1", Render(sampleListing())); err != nil {
		t.Errorf("Send() = %v, want nil", err)
	}
}

func TestLogSink_Send_logsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Send(context.Background(), "chan-1", Render(sampleListing())); err != nil {
		t.Fatalf("Send() = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"bounty alert",
		"destination_id=chan-1",
		"listing_id=1700000000",
		`location="San Francisco, CA"`,
		`skills="Python, Docker"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
