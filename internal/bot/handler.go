// Package bot implements the chat commands for managing topic subscriptions.
// It does not know about any particular chat transport.
package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode"

	"github.com/amishk599/upwatch/internal/model"
)

// Callback data prefixes carried by inline buttons.
const (
	dataConfirm = "confirm:"
	dataRemove  = "remove:"
	dataCancel  = "cancel"
)

// Button is an inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Callback is a pressed inline button.
type Callback struct {
	ID   string
	Data string
}

// Update is one inbound event from a chat: a text message or a button press.
type Update struct {
	ChatID   int64
	Username string
	Text     string
	Callback *Callback
}

// Replier sends messages back to the chat.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string, buttons [][]Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Handler interprets updates against the subscription and pending stores.
type Handler struct {
	store   model.SubscriptionStore
	pending model.PendingStore
	replier Replier
	logger  *slog.Logger
}

func NewHandler(store model.SubscriptionStore, pending model.PendingStore, replier Replier, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		pending: pending,
		replier: replier,
		logger:  logger,
	}
}

// Handle processes one update. Failures are reported to the user as a short
// apology and returned for logging.
func (h *Handler) Handle(ctx context.Context, u Update) error {
	var err error
	if u.Callback != nil {
		err = h.handleCallback(ctx, u)
	} else {
		err = h.handleMessage(ctx, u)
	}
	if err != nil {
		h.logger.Error("handling update failed", "chat_id", u.ChatID, "error", err)
		if rerr := h.reply(ctx, u.ChatID, msgInternalError); rerr != nil {
			h.logger.Warn("sending error reply failed", "chat_id", u.ChatID, "error", rerr)
		}
		return err
	}
	return nil
}

func (h *Handler) handleMessage(ctx context.Context, u Update) error {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil
	}

	// Commands take precedence over any pending state.
	if cmd, args, ok := parseCommand(text); ok {
		h.logger.Debug("command", "chat_id", u.ChatID, "command", cmd)
		switch cmd {
		case "start":
			return h.start(ctx, u)
		case "help":
			return h.reply(ctx, u.ChatID, msgHelp)
		case "addtopic":
			return h.addTopic(ctx, u.ChatID, args)
		case "removetopic":
			return h.removeTopicMenu(ctx, u.ChatID)
		case "topics":
			return h.listTopics(ctx, u.ChatID)
		case "cancel":
			return h.cancel(ctx, u.ChatID)
		default:
			return h.reply(ctx, u.ChatID, msgUnknownCommand)
		}
	}

	action, err := h.pending.Get(ctx, u.ChatID)
	if err != nil {
		return fmt.Errorf("reading pending action: %w", err)
	}
	switch action.State {
	case model.PendingAwaitingTopic, model.PendingAwaitingConfirmation:
		return h.propose(ctx, u.ChatID, text)
	default:
		return h.reply(ctx, u.ChatID, msgUseHelp)
	}
}

func (h *Handler) handleCallback(ctx context.Context, u Update) error {
	data := u.Callback.Data
	switch {
	case data == dataCancel:
		h.answer(ctx, u.Callback.ID, "")
		return h.cancel(ctx, u.ChatID)
	case strings.HasPrefix(data, dataConfirm):
		topic, ok := validTopic(strings.TrimPrefix(data, dataConfirm))
		if !ok {
			break
		}
		h.answer(ctx, u.Callback.ID, "")
		return h.subscribe(ctx, model.User{ID: u.ChatID, Username: u.Username}, topic)
	case strings.HasPrefix(data, dataRemove):
		topic, ok := validTopic(strings.TrimPrefix(data, dataRemove))
		if !ok {
			break
		}
		h.answer(ctx, u.Callback.ID, "")
		return h.unsubscribe(ctx, u.ChatID, topic)
	}

	h.logger.Warn("malformed callback", "chat_id", u.ChatID, "data", data)
	h.answer(ctx, u.Callback.ID, "Unknown action")
	return nil
}

func (h *Handler) start(ctx context.Context, u Update) error {
	if err := h.store.RegisterUser(ctx, model.User{ID: u.ChatID, Username: u.Username}); err != nil {
		return fmt.Errorf("registering user: %w", err)
	}
	return h.reply(ctx, u.ChatID, msgWelcome+"\n\n"+msgHelp)
}

func (h *Handler) addTopic(ctx context.Context, chatID int64, args string) error {
	if args != "" {
		return h.propose(ctx, chatID, args)
	}
	if err := h.pending.Set(ctx, chatID, model.PendingAction{State: model.PendingAwaitingTopic}); err != nil {
		return fmt.Errorf("saving pending action: %w", err)
	}
	return h.reply(ctx, chatID, msgSendTopic)
}

// propose asks the user to confirm a candidate topic.
func (h *Handler) propose(ctx context.Context, chatID int64, raw string) error {
	topic := model.NormalizeTopic(raw)
	switch {
	case topic == "":
		return h.awaitTopic(ctx, chatID, msgEmptyTopic)
	case len(topic) > model.MaxTopicBytes:
		return h.awaitTopic(ctx, chatID, fmt.Sprintf(msgTopicTooLong, model.MaxTopicBytes))
	}

	action := model.PendingAction{State: model.PendingAwaitingConfirmation, Topic: topic}
	if err := h.pending.Set(ctx, chatID, action); err != nil {
		return fmt.Errorf("saving pending action: %w", err)
	}
	buttons := [][]Button{{
		{Text: "✅ Yes", Data: dataConfirm + topic},
		{Text: "❌ No", Data: dataCancel},
	}}
	return h.replier.Reply(ctx, chatID, fmt.Sprintf(msgConfirm, html.EscapeString(topic)), buttons)
}

func (h *Handler) awaitTopic(ctx context.Context, chatID int64, msg string) error {
	if err := h.pending.Set(ctx, chatID, model.PendingAction{State: model.PendingAwaitingTopic}); err != nil {
		return fmt.Errorf("saving pending action: %w", err)
	}
	return h.reply(ctx, chatID, msg)
}

func (h *Handler) subscribe(ctx context.Context, user model.User, topic string) error {
	added, err := h.store.AddSubscription(ctx, user, topic)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := h.pending.Clear(ctx, user.ID); err != nil {
		return fmt.Errorf("clearing pending action: %w", err)
	}

	h.logger.Info("subscription confirmed", "chat_id", user.ID, "topic", topic, "added", added)
	msg := msgSubscribed
	if !added {
		msg = msgAlreadySubscribed
	}
	return h.reply(ctx, user.ID, fmt.Sprintf(msg, html.EscapeString(topic)))
}

func (h *Handler) unsubscribe(ctx context.Context, chatID int64, topic string) error {
	removed, err := h.store.RemoveSubscription(ctx, chatID, topic)
	if err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", topic, err)
	}
	if !removed {
		return h.reply(ctx, chatID, fmt.Sprintf(msgAlreadyRemoved, html.EscapeString(topic)))
	}
	h.logger.Info("subscription removed", "chat_id", chatID, "topic", topic)
	return h.reply(ctx, chatID, fmt.Sprintf(msgRemoved, html.EscapeString(topic)))
}

func (h *Handler) removeTopicMenu(ctx context.Context, chatID int64) error {
	topics, err := h.store.UserTopics(ctx, chatID)
	if err != nil {
		return fmt.Errorf("listing topics: %w", err)
	}
	if len(topics) == 0 {
		return h.reply(ctx, chatID, msgNoTopics)
	}
	buttons := make([][]Button, 0, len(topics))
	for _, t := range topics {
		buttons = append(buttons, []Button{{Text: "🗑 " + t, Data: dataRemove + t}})
	}
	return h.replier.Reply(ctx, chatID, msgPickRemove, buttons)
}

func (h *Handler) listTopics(ctx context.Context, chatID int64) error {
	topics, err := h.store.UserTopics(ctx, chatID)
	if err != nil {
		return fmt.Errorf("listing topics: %w", err)
	}
	if len(topics) == 0 {
		return h.reply(ctx, chatID, msgNoTopics)
	}
	var b strings.Builder
	b.WriteString("Your topics:\n")
	for _, t := range topics {
		fmt.Fprintf(&b, "• <b>%s</b>\n", html.EscapeString(t))
	}
	return h.reply(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handler) cancel(ctx context.Context, chatID int64) error {
	action, err := h.pending.Get(ctx, chatID)
	if err != nil {
		return fmt.Errorf("reading pending action: %w", err)
	}
	if action.State == model.PendingNone {
		return h.reply(ctx, chatID, msgNothingToCancel)
	}
	if err := h.pending.Clear(ctx, chatID); err != nil {
		return fmt.Errorf("clearing pending action: %w", err)
	}
	return h.reply(ctx, chatID, msgCancelled)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) error {
	return h.replier.Reply(ctx, chatID, text, nil)
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.replier.AnswerCallback(ctx, callbackID, text); err != nil {
		h.logger.Warn("answering callback failed", "error", err)
	}
}

// parseCommand splits "/cmd@botname args" into its parts.
func parseCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, rest = head[:i], head[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), head != ""
}

// validTopic reports whether callback data carries a usable topic name.
func validTopic(raw string) (string, bool) {
	topic := model.NormalizeTopic(raw)
	return topic, topic != "" && len(topic) <= model.MaxTopicBytes
}
