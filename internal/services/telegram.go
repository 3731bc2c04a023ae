package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "remindbot/internal/errors"
	"remindbot/internal/models"

	"golang.org/x/time/rate"
)

const (
	defaultTelegramAPIURL = "https://api.telegram.org"
	defaultHTTPTimeout    = 30 * time.Second
	longPollMargin        = 10 * time.Second
)

// Timeout bounds each call except getUpdates, which gets its long-poll
// timeout plus a margin.
type TelegramConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	SendRatePerSec int
}

// TelegramClient talks to the Bot API. Every call waits on a shared limiter
// so bursts of deliveries stay under Telegram's flood limits.
type TelegramClient struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewTelegramClient(config TelegramConfig) *TelegramClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultTelegramAPIURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultHTTPTimeout
	}
	if config.SendRatePerSec <= 0 {
		config.SendRatePerSec = 20
	}

	return &TelegramClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		timeout: config.Timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(config.SendRatePerSec), config.SendRatePerSec),
	}
}

// SendMessage sends an HTML message to a chat, optionally as a reply.
// replyTo <= 0 sends a plain message.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	request := models.SendMessageRequest{
		ChatId:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	if replyTo > 0 {
		request.ReplyParameters = &models.ReplyParameters{
			MessageId:                replyTo,
			AllowSendingWithoutReply: true,
		}
	}

	return c.call(ctx, c.timeout, "sendMessage", request, nil)
}

// GetMe returns the bot's own user, which also proves the token works.
func (c *TelegramClient) GetMe(ctx context.Context) (*models.User, error) {
	var me models.User
	if err := c.call(ctx, c.timeout, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for new updates after offset. The request may stay
// open for the whole timeout when nothing arrives.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]models.Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}

	var updates []models.Update
	if err := c.call(ctx, timeout+longPollMargin, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *TelegramClient) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message"},
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, c.timeout, "setWebhook", payload, nil)
}

// DeleteWebhook is required before getUpdates can be used.
func (c *TelegramClient) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, c.timeout, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

func (c *TelegramClient) SetMyDescription(ctx context.Context, description, shortDescription string) error {
	if err := c.call(ctx, c.timeout, "setMyDescription", map[string]string{"description": description}, nil); err != nil {
		return err
	}
	return c.call(ctx, c.timeout, "setMyShortDescription", map[string]string{"short_description": shortDescription}, nil)
}

func (c *TelegramClient) call(ctx context.Context, budget time.Duration, method string, payload any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the token is part of the URL, so keep url errors out of logs
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.WrapRetryable(stripURL(err), apperrors.ErrCodeTelegramAPI, fmt.Sprintf("failed to send %s request", method))
	}
	defer resp.Body.Close()

	var apiResp models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeTelegramAPI, fmt.Sprintf("telegram %s returned unreadable body (status %d)", method, resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK || !apiResp.Ok {
		apiErr := fmt.Errorf("telegram %s API error (status %d): %s", method, resp.StatusCode, apiResp.Description)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apperrors.WrapRetryable(apiErr, apperrors.ErrCodeTelegramAPI, method)
		}
		return apperrors.Wrap(apiErr, apperrors.ErrCodeTelegramAPI, method)
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
