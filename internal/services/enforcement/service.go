package enforcement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
	"github.com/mg-anjaan/BotTelegramSCan/internal/infra/telegram"
	"github.com/mg-anjaan/BotTelegramSCan/internal/ui"
)

type ChatAPI interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	RestrictUser(ctx context.Context, chatID, userID int64, untilDate int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type MutedMarker interface {
	MarkMuted(ctx context.Context, chatID, userID int64) error
}

// Service carries out the verdict on a flagged item: delete, mute, notify.
// Every step tolerates the failure of the steps around it; a permission
// problem on one call must not stop the rest.
type Service struct {
	tg          ChatAPI
	ledger      MutedMarker
	ownerChatID int64
	logger      *slog.Logger
}

func NewService(tg ChatAPI, ledger MutedMarker, ownerChatID int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tg: tg, ledger: ledger, ownerChatID: ownerChatID, logger: logger}
}

type Input struct {
	Item         model.MediaItem
	ChatTitle    string
	Signals      []model.SignalScore
	Fusion       model.FusionResult
	OffenseCount int64
	Mute         bool
}

func (s *Service) Enforce(ctx context.Context, input Input) model.EnforcementAction {
	action := model.EnforcementAction{OffenseCount: input.OffenseCount}
	item := input.Item

	action.DeleteAttempted = true
	if err := s.tg.DeleteMessage(ctx, item.ChatID, item.MessageID); err != nil {
		// Deleted-already and no-rights both mean the message is beyond
		// reach; neither is worth a retry.
		switch {
		case errors.Is(err, telegram.ErrMessageNotFound):
			s.logger.Info("message already gone",
				"chat_id", item.ChatID, "message_id", item.MessageID)
		case errors.Is(err, telegram.ErrPermissionDenied):
			s.logger.Warn("no rights to delete message",
				"error", err, "chat_id", item.ChatID, "message_id", item.MessageID)
		default:
			s.logger.Warn("delete message failed",
				"error", err, "chat_id", item.ChatID, "message_id", item.MessageID)
		}
	} else {
		action.DeleteSucceeded = true
	}

	if input.Mute {
		action.MuteAttempted = true
		if err := s.tg.RestrictUser(ctx, item.ChatID, item.UserID, telegram.PermanentUntil); err != nil {
			if errors.Is(err, telegram.ErrPermissionDenied) {
				action.MutePermissionDenied = true
				s.logger.Warn("no rights to mute user",
					"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
				s.NotifyOperator(ctx, ui.PermissionAlert(item.ChatID, item.UserID))
			} else {
				s.logger.Warn("restrict user failed",
					"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
			}
		} else {
			action.MuteSucceeded = true
			if s.ledger != nil {
				if err := s.ledger.MarkMuted(ctx, item.ChatID, item.UserID); err != nil {
					s.logger.Warn("mark muted failed",
						"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
				}
			}
		}
	}

	action.NotifyAttempted = true
	s.NotifyOperator(ctx, ui.MuteNotice(input.ChatTitle, item.UserID, input.Signals, input.Fusion, input.OffenseCount))

	return action
}

// NotifyOperator sends a best-effort message to the owner chat. Failures are
// logged and swallowed; notification must never mask an enforcement result.
func (s *Service) NotifyOperator(ctx context.Context, text string) {
	if s.ownerChatID == 0 {
		return
	}
	if err := s.tg.SendMessage(ctx, s.ownerChatID, text); err != nil {
		s.logger.Warn("operator notification failed", "error", err)
	}
}
