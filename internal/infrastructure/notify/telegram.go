package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTelegramBaseURL = "https://api.telegram.org"

	// Bot API allows about one message per second per chat
	telegramRPS   = 1.0
	telegramBurst = 3
)

// TelegramConfig configures the Bot API notifier
type TelegramConfig struct {
	Token   string
	ChatIDs []string
	BaseURL string
	Timeout time.Duration
}

// TelegramNotifier sends each message to every configured chat via sendMessage
type TelegramNotifier struct {
	httpClient  *http.Client
	cfg         TelegramConfig
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegramNotifier(cfg TelegramConfig, logger *slog.Logger) *TelegramNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTelegramBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(telegramRPS), telegramBurst),
		logger:      logger,
	}
}

// Notify sends text to all chats. A failing chat does not stop delivery to the rest.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.cfg.ChatIDs {
		if err := n.send(ctx, chatID, text); err != nil {
			n.logger.Warn("telegram delivery failed", "chat_id", chatID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *TelegramNotifier) send(ctx context.Context, chatID, text string) error {
	if err := n.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.cfg.BaseURL, "/"), n.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("telegram status %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, result.Description)
	}
	return nil
}
