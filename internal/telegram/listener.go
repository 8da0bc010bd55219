package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/upwatch/internal/bot"
	"github.com/amishk599/upwatch/internal/model"
)

// DefaultPollTimeout is the getUpdates long-poll duration.
const DefaultPollTimeout = 30 * time.Second

const errorBackoff = 3 * time.Second

// UpdateHandler processes one chat update. *bot.Handler implements it.
type UpdateHandler interface {
	Handle(ctx context.Context, u bot.Update) error
}

// Listener long-polls the Bot API and feeds updates to a handler, one at a
// time and in order.
type Listener struct {
	client      *Client
	handler     UpdateHandler
	pollTimeout time.Duration
	logger      *slog.Logger
	offset      int64
}

func NewListener(client *Client, handler UpdateHandler, pollTimeout time.Duration, logger *slog.Logger) *Listener {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Listener{
		client:      client,
		handler:     handler,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled. Transport errors are logged and retried.
func (l *Listener) Run(ctx context.Context) error {
	me, err := l.client.GetMe(ctx)
	if err != nil {
		return err
	}
	l.logger.Info("telegram listener started", "bot", me.Username)

	for {
		updates, err := l.client.GetUpdates(ctx, l.offset, l.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("shutting down telegram listener")
				return nil
			}
			delay := errorBackoff
			var httpErr *model.HTTPError
			if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
				delay = httpErr.RetryAfter
			}
			l.logger.Warn("getUpdates failed", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		for _, upd := range updates {
			l.offset = upd.UpdateID + 1
			u, ok := convertUpdate(upd)
			if !ok {
				continue
			}
			// The handler logs and answers its own failures.
			_ = l.handler.Handle(ctx, u)
		}
	}
}

// convertUpdate maps a Bot API update onto a bot.Update. Updates without text
// or callback data are ignored.
func convertUpdate(upd Update) (bot.Update, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		chatID := cq.From.ID
		if cq.Message != nil {
			chatID = cq.Message.Chat.ID
		}
		return bot.Update{
			ChatID:   chatID,
			Username: cq.From.Username,
			Callback: &bot.Callback{ID: cq.ID, Data: cq.Data},
		}, true
	case upd.Message != nil && upd.Message.Text != "":
		msg := upd.Message
		username := msg.Chat.Username
		if msg.From != nil && msg.From.Username != "" {
			username = msg.From.Username
		}
		return bot.Update{ChatID: msg.Chat.ID, Username: username, Text: msg.Text}, true
	}
	return bot.Update{}, false
}
