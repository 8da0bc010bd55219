// Package telegram talks to the Telegram Bot API: it sends messages, answers
// button presses and long-polls for updates.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/upwatch/internal/bot"
	"github.com/amishk599/upwatch/internal/model"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const requestTimeout = 15 * time.Second

// Ensure Client implements bot.Replier.
var _ bot.Replier = (*Client)(nil)

// Client is a minimal Bot API client.
type Client struct {
	baseURL    string // <api url>/bot<token>
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a client for the bot identified by token. Request
// deadlines come from the per-call context, so httpClient should not set a
// Timeout shorter than the long-poll timeout.
func NewClient(apiURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// APIError is an error answer from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call posts payload to method and decodes the result into out (if non-nil).
// Failures carry a *model.HTTPError so callers can honour retry_after.
func (c *Client) call(ctx context.Context, method string, payload, out any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding %s response: %w", method, err),
		}
	}
	if !ar.OK {
		code := ar.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		httpErr := &model.HTTPError{
			StatusCode: code,
			Err:        &APIError{Method: method, Code: code, Description: ar.Description},
		}
		if ar.Parameters != nil && ar.Parameters.RetryAfter > 0 {
			httpErr.RetryAfter = time.Duration(ar.Parameters.RetryAfter) * time.Second
		}
		c.logger.Debug("telegram api error", "method", method, "code", code, "description", ar.Description)
		return httpErr
	}

	if out != nil {
		if err := json.Unmarshal(ar.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var u User
	err := c.call(ctx, "getMe", struct{}{}, &u, requestTimeout)
	return u, err
}

// GetUpdates long-polls for updates with id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, pollTimeout time.Duration) ([]Update, error) {
	payload := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(pollTimeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates, pollTimeout+requestTimeout); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends an HTML message, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]InlineKeyboardButton) error {
	payload := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	if len(keyboard) > 0 {
		payload.ReplyMarkup = &InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}
	return c.call(ctx, "sendMessage", payload, nil, requestTimeout)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := answerCallbackRequest{CallbackQueryID: callbackID, Text: text}
	return c.call(ctx, "answerCallbackQuery", payload, nil, requestTimeout)
}

// Reply implements bot.Replier.
func (c *Client) Reply(ctx context.Context, chatID int64, text string, buttons [][]bot.Button) error {
	var keyboard [][]InlineKeyboardButton
	for _, row := range buttons {
		kbRow := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			kbRow = append(kbRow, InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		keyboard = append(keyboard, kbRow)
	}
	return c.SendMessage(ctx, chatID, text, keyboard)
}

// AnswerCallback implements bot.Replier.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.AnswerCallbackQuery(ctx, callbackID, text)
}
