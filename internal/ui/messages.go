package ui

import (
	"fmt"
	"strings"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

func StartMessage() string {
	return "NSFW moderation bot active. I delete explicit images and mute repeat offenders."
}

func StatusMessage() string {
	return "Bot is running."
}

func NotAuthorizedMessage() string {
	return "You are not authorized."
}

// MuteNotice is the operator summary sent after a flagged item was enforced.
func MuteNotice(chatTitle string, userID int64, signals []model.SignalScore, fusion model.FusionResult, offenses int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flagged media from user %d in %s\n", userID, chatTitle)
	for _, signal := range signals {
		if signal.OK {
			fmt.Fprintf(&b, "%s=%.3f\n", strings.ToLower(string(signal.Source)), signal.Value)
		} else {
			fmt.Fprintf(&b, "%s=unavailable\n", strings.ToLower(string(signal.Source)))
		}
	}
	fmt.Fprintf(&b, "final=%.3f\noffenses=%d", fusion.FinalScore, offenses)
	return b.String()
}

// PermissionAlert tells the operator the bot needs elevated rights; this is
// deliberately distinct from a generic failure notice.
func PermissionAlert(chatID, userID int64) string {
	return fmt.Sprintf("Cannot mute user %d in chat %d: bot needs admin rights.", userID, chatID)
}

func AllSignalsDownAlert(chatID, userID int64) string {
	return fmt.Sprintf("All scoring signals failed for media from user %d in chat %d; item passed unchecked.", userID, chatID)
}

func DownloadFailureAlert(chatID int64) string {
	return fmt.Sprintf("Failed to download media file in chat %d; see logs.", chatID)
}

func WhitelistAddedMessage(userID int64, added bool) string {
	if added {
		return fmt.Sprintf("User %d is now whitelisted in this chat.", userID)
	}
	return fmt.Sprintf("User %d is already whitelisted.", userID)
}

func WhitelistRemovedMessage(userID int64, removed bool) string {
	if removed {
		return fmt.Sprintf("User %d removed from the whitelist.", userID)
	}
	return fmt.Sprintf("User %d was not whitelisted.", userID)
}

func TargetRequiredMessage() string {
	return "Reply to the user's message or pass a numeric user id."
}

func CommandFailedMessage() string {
	return "Could not complete the command, see logs."
}

func UnmuteMessage(userID int64) string {
	return fmt.Sprintf("User %d unmuted, offense record cleared.", userID)
}

func SourceName(source enums.SignalSource) string {
	return strings.ToLower(string(source))
}
