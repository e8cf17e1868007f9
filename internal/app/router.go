package app

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
	"github.com/mg-anjaan/BotTelegramSCan/internal/ui"
)

func (a *App) routeUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if msg.IsCommand() {
		a.routeCommand(ctx, msg)
		return
	}

	fileID, fileName, mimeHint, ok := mediaFile(msg)
	if !ok || msg.From == nil {
		return
	}

	a.tasks.Add(1)
	go func() {
		// Detach from the polling context so an evaluation already in
		// flight completes its enforcement during shutdown.
		defer a.tasks.Done()
		a.handleMedia(context.WithoutCancel(ctx), msg, fileID, fileName, mimeHint)
	}()
}

func (a *App) routeCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		a.reply(ctx, msg.Chat.ID, ui.StartMessage())
	case "status":
		if msg.From == nil || msg.From.ID != a.cfg.OwnerChatID {
			a.reply(ctx, msg.Chat.ID, ui.NotAuthorizedMessage())
			return
		}
		a.reply(ctx, msg.Chat.ID, ui.StatusMessage())
	case "whitelist":
		a.handleWhitelist(ctx, msg, true)
	case "unwhitelist":
		a.handleWhitelist(ctx, msg, false)
	case "unmute":
		a.handleUnmute(ctx, msg)
	}
}

func (a *App) handleMedia(ctx context.Context, msg *tgbotapi.Message, fileID, fileName, mimeHint string) {
	data, err := a.tg.DownloadFile(ctx, fileID)
	if err != nil {
		a.logger.Warn("media download failed",
			"chat_id", msg.Chat.ID,
			"message_id", msg.MessageID,
			"error", err)
		a.enforcementService.NotifyOperator(ctx, ui.DownloadFailureAlert(msg.Chat.ID))
		return
	}

	item := model.MediaItem{
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: msg.MessageID,
		FileName:  fileName,
		MimeHint:  mimeHint,
		Data:      data,
	}
	a.engine.Process(ctx, item, chatTitle(msg.Chat))
}

func (a *App) handleWhitelist(ctx context.Context, msg *tgbotapi.Message, add bool) {
	if !a.canModerate(ctx, msg) {
		a.reply(ctx, msg.Chat.ID, ui.NotAuthorizedMessage())
		return
	}
	userID, ok := targetUser(msg)
	if !ok {
		a.reply(ctx, msg.Chat.ID, ui.TargetRequiredMessage())
		return
	}

	if add {
		added, err := a.whitelistService.Add(ctx, msg.Chat.ID, userID)
		if err != nil {
			a.logger.Warn("whitelist add failed", "chat_id", msg.Chat.ID, "user_id", userID, "error", err)
			a.reply(ctx, msg.Chat.ID, ui.CommandFailedMessage())
			return
		}
		a.reply(ctx, msg.Chat.ID, ui.WhitelistAddedMessage(userID, added))
		return
	}

	removed, err := a.whitelistService.Remove(ctx, msg.Chat.ID, userID)
	if err != nil {
		a.logger.Warn("whitelist remove failed", "chat_id", msg.Chat.ID, "user_id", userID, "error", err)
		a.reply(ctx, msg.Chat.ID, ui.CommandFailedMessage())
		return
	}
	a.reply(ctx, msg.Chat.ID, ui.WhitelistRemovedMessage(userID, removed))
}

func (a *App) handleUnmute(ctx context.Context, msg *tgbotapi.Message) {
	if !a.canModerate(ctx, msg) {
		a.reply(ctx, msg.Chat.ID, ui.NotAuthorizedMessage())
		return
	}
	userID, ok := targetUser(msg)
	if !ok {
		a.reply(ctx, msg.Chat.ID, ui.TargetRequiredMessage())
		return
	}

	if err := a.tg.UnrestrictUser(ctx, msg.Chat.ID, userID); err != nil {
		a.logger.Warn("unmute failed", "chat_id", msg.Chat.ID, "user_id", userID, "error", err)
		a.reply(ctx, msg.Chat.ID, ui.CommandFailedMessage())
		return
	}
	if err := a.ledgerService.ResetUser(ctx, msg.Chat.ID, userID); err != nil {
		a.logger.Warn("offense reset failed", "chat_id", msg.Chat.ID, "user_id", userID, "error", err)
	}
	a.reply(ctx, msg.Chat.ID, ui.UnmuteMessage(userID))
}

// canModerate allows the configured owner and chat administrators.
func (a *App) canModerate(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.From == nil {
		return false
	}
	if a.cfg.OwnerChatID != 0 && msg.From.ID == a.cfg.OwnerChatID {
		return true
	}
	admin, err := a.tg.IsAdmin(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		a.logger.Warn("admin check failed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
		return false
	}
	return admin
}

// targetUser resolves the subject of a moderation command, either from the
// replied-to message or from a numeric argument.
func targetUser(msg *tgbotapi.Message) (int64, bool) {
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From.ID, true
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// mediaFile picks the downloadable image out of a message. Photo sizes come
// ordered smallest first, so the last entry is the best resolution.
func mediaFile(msg *tgbotapi.Message) (fileID, fileName, mimeHint string, ok bool) {
	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		return largest.FileID, "photo.jpg", "image/jpeg", true
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MimeType, "image/") {
		return doc.FileID, doc.FileName, doc.MimeType, true
	}
	return "", "", "", false
}

func chatTitle(chat *tgbotapi.Chat) string {
	if chat == nil {
		return ""
	}
	if chat.Title != "" {
		return chat.Title
	}
	return strconv.FormatInt(chat.ID, 10)
}
