package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestAPIClientTimeoutExceedsPollWindow(t *testing.T) {
	for _, pollTimeout := range []int{1, 30, 60, 120} {
		window := time.Duration(pollTimeout) * time.Second
		if got := apiClientTimeout(pollTimeout); got <= window {
			t.Fatalf("poll window %s: client timeout %s must exceed the window Telegram holds the request", window, got)
		}
	}
}

func TestNewClientRequiresHandler(t *testing.T) {
	if _, err := NewClient("", 30, time.Second, nil, nil); err == nil {
		t.Fatal("expected error for missing handler")
	}
}

func TestNewClientEmptyTokenDryRun(t *testing.T) {
	client, err := NewClient("", 30, time.Second, nil, func(context.Context, tgbotapi.Update) {})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	if err := client.DeleteMessage(ctx, 1, 2); err != nil {
		t.Fatalf("dry-run delete: %v", err)
	}
	if err := client.RestrictUser(ctx, 1, 2, PermanentUntil); err != nil {
		t.Fatalf("dry-run restrict: %v", err)
	}
	if _, err := client.DownloadFile(ctx, "file"); err == nil {
		t.Fatal("dry-run download must report unavailability")
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		sentinel error
	}{
		{"not enough rights", "Bad Request: not enough rights to restrict/unrestrict chat member", ErrPermissionDenied},
		{"admin required", "Bad Request: CHAT_ADMIN_REQUIRED", ErrPermissionDenied},
		{"cannot delete", "Bad Request: message can't be deleted", ErrPermissionDenied},
		{"delete target gone", "Bad Request: message to delete not found", ErrMessageNotFound},
		{"message gone", "Bad Request: message not found", ErrMessageNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyError("op", errors.New(tc.raw))
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v for %q, got %v", tc.sentinel, tc.raw, err)
			}
		})
	}

	plain := classifyError("op", errors.New("Too Many Requests: retry after 5"))
	if errors.Is(plain, ErrPermissionDenied) || errors.Is(plain, ErrMessageNotFound) {
		t.Fatalf("unrelated error must not map to a sentinel, got %v", plain)
	}
	if classifyError("op", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}
