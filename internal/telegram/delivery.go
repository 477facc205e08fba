package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formgate/go-form-relay/internal/domain"
)

// Sender abstracts the Bot API call so the delivery loop can be exercised
// against a fake in tests.
type Sender interface {
	SendMessage(ctx context.Context, botToken, chatID, text string) error
}

// DeliveryService relays one message with bounded retries.
//
// Per delivery, each attempt has three outcomes: success; a migration signal,
// which swaps in the replacement chat ID and retries immediately (a redirect,
// not a failure: it consumes no retry budget and incurs no backoff); or any
// other failure, which is retried after a linearly increasing backoff until
// the attempt budget is spent.
type DeliveryService struct {
	sender      Sender
	maxAttempts int
	backoffStep time.Duration
}

// NewDeliveryService returns a DeliveryService with the standard budget of
// three failure-counted attempts and a 400 ms backoff step (400, 800 ms
// between attempts).
func NewDeliveryService(sender Sender) *DeliveryService {
	return &DeliveryService{
		sender:      sender,
		maxAttempts: 3,
		backoffStep: 400 * time.Millisecond,
	}
}

// Deliver sends text to target, following migration redirects. On success the
// result reports the chat the message actually reached and whether that
// differs from the configured one; the caller is responsible for persisting
// an observed migration. On exhausted retries the last error is returned.
func (d *DeliveryService) Deliver(ctx context.Context, target domain.RoutingTarget, text string) (domain.DeliveryResult, error) {
	chatID := target.ChatID
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; {
		err := d.sender.SendMessage(ctx, target.BotToken, chatID, text)
		if err == nil {
			return domain.DeliveryResult{
				ChatID:   chatID,
				Migrated: chatID != target.ChatID,
			}, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.MigrateToChatID != "" && apiErr.MigrateToChatID != chatID {
			// Redirect: adopt the new chat ID and retry immediately.
			chatID = apiErr.MigrateToChatID
			continue
		}

		lastErr = err
		attempt++
		if attempt > d.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return domain.DeliveryResult{}, ctx.Err()
		case <-time.After(time.Duration(attempt-1) * d.backoffStep):
		}
	}

	return domain.DeliveryResult{}, fmt.Errorf("delivery failed after %d attempts: %w", d.maxAttempts, lastErr)
}
