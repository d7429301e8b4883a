// Package analytics is a thin reference consumer of the analytics_queue:
// it decodes payment.confirmed events and appends one line per event to
// a local log file. Real analytics/notification processing stays an
// external collaborator; this exists only to exercise the retry-aware
// Subscribe loop end-to-end.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cinema-seats/reservation-engine/internal/eventbus"
)

// Start subscribes to the analytics queue and blocks until ctx is
// cancelled, reconnecting on transient broker failure.
func Start(ctx context.Context, uri string, retryCfg eventbus.RetryConfig) error {
	return eventbus.Subscribe(ctx, uri, eventbus.QueueAnalytics, retryCfg, handle)
}

func handle(ctx context.Context, body []byte) error {
	var ev eventbus.PaymentConfirmed
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("analytics: unmarshal: %w", err)
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("analytics: mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "payments.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("analytics: open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] payment confirmed | reservation_id=%s | user_id=%s | seat_id=%s | amount=%s\n",
		ev.Timestamp, ev.ReservationID, ev.UserID, ev.SeatID, ev.Amount)
	_, err = f.WriteString(line)
	return err
}
