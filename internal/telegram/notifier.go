package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

// Ensure Notifier implements model.Notifier.
var _ model.Notifier = (*Notifier)(nil)

// maxRetryAfter caps how long a single delivery waits on a flood-control answer.
const maxRetryAfter = 30 * time.Second

// Notifier delivers job alerts as Telegram messages.
type Notifier struct {
	client *Client
	logger *slog.Logger
}

// NewNotifier returns a notifier that sends each alert through client.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// Notify sends text to chatID. A 429 answer is retried once after the
// advertised retry_after.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string) error {
	err := n.client.SendMessage(ctx, chatID, text, nil)
	if err == nil {
		n.logger.Debug("telegram message sent", "chat_id", chatID)
		return nil
	}

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 429 {
		return fmt.Errorf("sending to %d: %w", chatID, err)
	}

	wait := httpErr.RetryAfter
	if wait <= 0 {
		wait = time.Second
	}
	if wait > maxRetryAfter {
		return fmt.Errorf("sending to %d: rate limited for %s: %w", chatID, wait, err)
	}
	n.logger.Warn("telegram rate limited, retrying", "chat_id", chatID, "retry_after", wait)

	select {
	case <-ctx.Done():
		return fmt.Errorf("sending to %d: %w", chatID, ctx.Err())
	case <-time.After(wait):
	}

	if err := n.client.SendMessage(ctx, chatID, text, nil); err != nil {
		return fmt.Errorf("sending to %d (retry): %w", chatID, err)
	}
	n.logger.Debug("telegram message sent", "chat_id", chatID, "retried", true)
	return nil
}
