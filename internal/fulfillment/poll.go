package fulfillment

import (
	"context"
	"errors"
	"time"

	"planstore-backend/internal/models"
)

// ErrPollTimeout is returned when an order does not reach a terminal status
// within the attempt budget.
var ErrPollTimeout = errors.New("timed out waiting for order files")

// StatusFunc fetches the current status of one order.
type StatusFunc func(ctx context.Context) (models.OrderStatus, error)

// PollStatus checks the status every interval until it is terminal, the
// attempt budget is spent, or ctx is done. The first check happens
// immediately, so the worst case is maxAttempts checks over
// (maxAttempts-1) intervals. This mirrors the storefront client's 5-second
// polling loop and is used by integration consumers and tests.
//
// On ErrPollTimeout or cancellation the last observed status is returned
// alongside the error, so callers can still report "generating" instead of
// nothing.
func PollStatus(ctx context.Context, fn StatusFunc, interval time.Duration, maxAttempts int) (models.OrderStatus, error) {
	var last models.OrderStatus
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := fn(ctx)
		if err != nil {
			return last, err
		}
		last = status
		if status.Terminal() {
			return status, nil
		}

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
	return last, ErrPollTimeout
}
