package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/enforcement"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/fusion"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/signals"
	"github.com/mg-anjaan/BotTelegramSCan/internal/ui"
)

type WhitelistGuard interface {
	IsExempt(ctx context.Context, chatID, userID int64) bool
}

type SignalCollector interface {
	Collect(ctx context.Context, item model.MediaItem) ([]model.SignalScore, error)
}

type OffenseLedger interface {
	RecordOffense(ctx context.Context, chatID, userID int64) (int64, error)
	ShouldMute(offenseCount int64) bool
}

type Enforcer interface {
	Enforce(ctx context.Context, input enforcement.Input) model.EnforcementAction
	NotifyOperator(ctx context.Context, text string)
}

type EvidenceArchive interface {
	Put(ctx context.Context, chatID int64, payload []byte, contentType string) (string, error)
}

// Result describes what one evaluation did, for logging and tests.
type Result struct {
	Exempt  bool
	Signals []model.SignalScore
	Fusion  model.FusionResult
	Action  *model.EnforcementAction
}

// Engine runs the moderation pipeline for a single media item: whitelist
// guard, signal collection, fusion, then enforcement for flagged items. Each
// item is independent; no failure inside Process may take down the caller's
// update loop, so Process never returns an error.
type Engine struct {
	whitelist WhitelistGuard
	collector SignalCollector
	policy    fusion.Policy
	ledger    OffenseLedger
	enforcer  Enforcer
	archive   EvidenceArchive
	logger    *slog.Logger
}

func New(whitelist WhitelistGuard, collector SignalCollector, policy fusion.Policy, ledger OffenseLedger, enforcer Enforcer, archive EvidenceArchive, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		whitelist: whitelist,
		collector: collector,
		policy:    policy,
		ledger:    ledger,
		enforcer:  enforcer,
		archive:   archive,
		logger:    logger,
	}
}

func (e *Engine) Process(ctx context.Context, item model.MediaItem, chatTitle string) Result {
	evaluationsProcessed.Inc()

	if e.whitelist != nil && e.whitelist.IsExempt(ctx, item.ChatID, item.UserID) {
		whitelistSkips.Inc()
		e.logger.Debug("sender whitelisted, skipping scan",
			"chat_id", item.ChatID, "user_id", item.UserID)
		return Result{Exempt: true}
	}

	collected, err := e.collector.Collect(ctx, item)
	for _, signal := range collected {
		if !signal.OK {
			signalFailures.WithLabelValues(ui.SourceName(signal.Source)).Inc()
		}
	}
	if err != nil {
		if errors.Is(err, signals.ErrAllSignalsUnavailable) {
			// Zero evidence: pass the item through and tell the operator,
			// acting blind would be worse than a missed detection.
			allSignalsDown.Inc()
			e.logger.Error("all scoring signals failed, item passes unflagged",
				"chat_id", item.ChatID, "user_id", item.UserID, "message_id", item.MessageID)
			e.enforcer.NotifyOperator(ctx, ui.AllSignalsDownAlert(item.ChatID, item.UserID))
			return Result{Signals: collected}
		}
		e.logger.Error("signal collection failed",
			"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
		return Result{Signals: collected}
	}

	result := e.policy.Fuse(collected)
	e.logger.Info("media evaluated",
		"chat_id", item.ChatID, "user_id", item.UserID, "message_id", item.MessageID,
		"final", result.FinalScore, "flagged", result.Flagged)

	if !result.Flagged {
		return Result{Signals: collected, Fusion: result}
	}

	itemsFlagged.Inc()
	e.archiveEvidence(ctx, item)

	offenseCount := int64(0)
	if e.ledger != nil {
		offenseCount, err = e.ledger.RecordOffense(ctx, item.ChatID, item.UserID)
		if err != nil {
			// Enforcement still proceeds; the discrepancy between what was
			// enforced and what was recorded is a data-integrity problem.
			e.logger.Error("offense count could not be recorded",
				"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
		}
	}

	action := e.enforcer.Enforce(ctx, enforcement.Input{
		Item:         item,
		ChatTitle:    chatTitle,
		Signals:      collected,
		Fusion:       result,
		OffenseCount: offenseCount,
		Mute:         e.ledger != nil && e.ledger.ShouldMute(offenseCount),
	})

	return Result{Signals: collected, Fusion: result, Action: &action}
}

func (e *Engine) archiveEvidence(ctx context.Context, item model.MediaItem) {
	if e.archive == nil {
		return
	}

	contentType := item.MimeHint
	if strings.TrimSpace(contentType) == "" {
		contentType = "image/jpeg"
	}
	key, err := e.archive.Put(ctx, item.ChatID, item.Data, contentType)
	if err != nil {
		e.logger.Warn("evidence archive failed",
			"error", err, "chat_id", item.ChatID, "message_id", item.MessageID)
		return
	}
	e.logger.Info("flagged media archived", "chat_id", item.ChatID, "key", key)
}
