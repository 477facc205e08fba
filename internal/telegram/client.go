// Package telegram implements the outbound messaging side of the relay: a
// thin Telegram Bot API client and the DeliveryService that drives bounded
// retries and group-migration recovery around it.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIBase is the Telegram Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

// APIError is a sendMessage failure reported by the Bot API itself (as
// opposed to a transport error). When Telegram migrated the destination
// group to a supergroup, MigrateToChatID carries the replacement chat ID.
type APIError struct {
	Code            int
	Description     string
	MigrateToChatID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// Client sends messages through the Telegram Bot API. Outbound calls are
// throttled with a shared token bucket so a traffic burst cannot trip
// Telegram's global bot rate limit.
type Client struct {
	httpClient *http.Client
	apiBase    string
	limiter    *rate.Limiter
}

// NewClient returns a Client for apiBase (DefaultAPIBase when empty). The
// bot-wide limit is ~30 messages/s; we throttle below it.
func NewClient(apiBase string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBase:    apiBase,
		limiter:    rate.NewLimiter(rate.Limit(25), 25),
	}
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// sendMessageResponse is the subset of the Bot API envelope we consume.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		MigrateToChatID int64 `json:"migrate_to_chat_id"`
	} `json:"parameters"`
}

// SendMessage posts text to chatID using botToken, HTML parse mode, link
// previews off. API-level failures are returned as *APIError so callers can
// inspect the migration signal; transport failures are returned as-is.
func (c *Client) SendMessage(ctx context.Context, botToken, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram response decode failed: %w", err)
	}
	if out.OK {
		return nil
	}

	apiErr := &APIError{Code: out.ErrorCode, Description: out.Description}
	if out.Parameters != nil && out.Parameters.MigrateToChatID != 0 {
		apiErr.MigrateToChatID = strconv.FormatInt(out.Parameters.MigrateToChatID, 10)
	}
	return apiErr
}
