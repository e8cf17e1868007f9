package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-retryablehttp"
)

// Telegram rejects an open-ended restriction, so a far-future unix timestamp
// stands in for "forever".
const PermanentUntil int64 = 2147483647

var (
	// ErrPermissionDenied means the bot lacks the admin rights the call
	// needs. Surfaced distinctly so the operator can grant them.
	ErrPermissionDenied = errors.New("telegram: not enough rights")

	// ErrMessageNotFound means the target message is already gone.
	ErrMessageNotFound = errors.New("telegram: message not found")
)

type UpdateHandler func(context.Context, tgbotapi.Update)

type Client struct {
	api         *tgbotapi.BotAPI
	logger      *slog.Logger
	handler     UpdateHandler
	pollTimeout int
	downloader  *retryablehttp.Client
	dryRun      bool
}

func NewClient(token string, pollTimeout int, downloadTimeout time.Duration, logger *slog.Logger, handler UpdateHandler) (*Client, error) {
	if handler == nil {
		return nil, errors.New("telegram update handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if downloadTimeout <= 0 {
		downloadTimeout = 30 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 30
	}

	// File retrieval is an idempotent GET, so a couple of retries with brief
	// backoff are safe. Nothing else in this client retries.
	downloader := retryablehttp.NewClient()
	downloader.RetryMax = 2
	downloader.RetryWaitMin = 500 * time.Millisecond
	downloader.RetryWaitMax = 2 * time.Second
	downloader.HTTPClient.Timeout = downloadTimeout
	downloader.Logger = nil

	if strings.TrimSpace(token) == "" {
		return &Client{
			logger:      logger,
			handler:     handler,
			pollTimeout: pollTimeout,
			downloader:  downloader,
			dryRun:      true,
		}, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: apiClientTimeout(pollTimeout)})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:         api,
		logger:      logger,
		handler:     handler,
		pollTimeout: pollTimeout,
		downloader:  downloader,
	}, nil
}

func (c *Client) Start(ctx context.Context) error {
	if c.dryRun {
		c.logger.Warn("BOT_TOKEN is empty, running in dry mode")
		<-ctx.Done()
		return nil
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handler(ctx, update)
		}
	}
}

func (c *Client) Send(msg tgbotapi.Chattable) error {
	if c.dryRun {
		return nil
	}
	_, err := c.api.Send(msg)
	return err
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Send(tgbotapi.NewMessage(chatID, text))
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if c.dryRun {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return classifyError("delete message", err)
	}
	return nil
}

// RestrictUser strips the user's send permissions until the given unix
// timestamp. Pass PermanentUntil for an effectively indefinite mute.
func (c *Client) RestrictUser(ctx context.Context, chatID, userID int64, untilDate int64) error {
	if c.dryRun {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate: untilDate,
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       false,
			CanSendMediaMessages:  false,
			CanSendOtherMessages:  false,
			CanAddWebPagePreviews: false,
		},
	}
	if _, err := c.api.Request(restrict); err != nil {
		return classifyError("restrict user", err)
	}
	return nil
}

// UnrestrictUser restores default send permissions.
func (c *Client) UnrestrictUser(ctx context.Context, chatID, userID int64) error {
	if c.dryRun {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	}
	if _, err := c.api.Request(restrict); err != nil {
		return classifyError("unrestrict user", err)
	}
	return nil
}

func (c *Client) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if c.dryRun {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, classifyError("get chat member", err)
	}
	return member.Status == "creator" || member.Status == "administrator", nil
}

// DownloadFile resolves a file ID and fetches its bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if c.dryRun {
		return nil, errors.New("telegram: file download unavailable in dry mode")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, classifyError("get file", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.downloader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status=%d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return payload, nil
}

// apiClientTimeout bounds every bot API call. Telegram holds an idle
// GetUpdates request open for the whole poll window, so the transport
// timeout has to sit above it with room for RTT and TLS or every quiet
// poll cycle errors out.
func apiClientTimeout(pollTimeout int) time.Duration {
	return time.Duration(pollTimeout)*time.Second + 10*time.Second
}

// classifyError maps Telegram API error text onto the sentinels callers
// branch on. The API reports permission problems only through message text.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "not enough rights"),
		strings.Contains(message, "chat_admin_required"),
		strings.Contains(message, "can't be deleted"),
		strings.Contains(message, "have no rights"):
		return fmt.Errorf("%s: %w: %v", op, ErrPermissionDenied, err)
	case strings.Contains(message, "message to delete not found"),
		strings.Contains(message, "message not found"):
		return fmt.Errorf("%s: %w: %v", op, ErrMessageNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
