package dualrepo

import (
	"context"
	"log/slog"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/memory"
)

type OffenseStore interface {
	RecordOffense(context.Context, int64, int64) (int64, error)
	MarkMuted(context.Context, int64, int64) error
	ResetUser(context.Context, int64, int64) error
	GetOffenseCount(context.Context, int64, int64) (int64, error)
	GetRecord(context.Context, int64, int64) (model.OffenseRecord, error)
}

// Ledger prefers the durable store and falls back to an in-memory shadow when
// durable writes fail. Enforcement must not stall on a broken database, but a
// fallback write means the durable count has drifted, so every fallback is
// logged as a data-integrity warning.
type Ledger struct {
	durable  OffenseStore
	fallback *memory.Ledger
	logger   *slog.Logger
}

func NewLedger(durable OffenseStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		durable:  durable,
		fallback: memory.NewLedger(),
		logger:   logger,
	}
}

func (l *Ledger) RecordOffense(ctx context.Context, chatID, userID int64) (int64, error) {
	if l.durable != nil {
		count, err := l.durable.RecordOffense(ctx, chatID, userID)
		if err == nil {
			return count, nil
		}
		l.logger.Warn("durable offense write failed, using in-memory count",
			"error", err, "chat_id", chatID, "user_id", userID)
	}
	return l.fallback.RecordOffense(ctx, chatID, userID)
}

func (l *Ledger) MarkMuted(ctx context.Context, chatID, userID int64) error {
	if l.durable != nil {
		err := l.durable.MarkMuted(ctx, chatID, userID)
		if err == nil {
			return nil
		}
		l.logger.Warn("durable mute flag write failed, using in-memory state",
			"error", err, "chat_id", chatID, "user_id", userID)
	}
	return l.fallback.MarkMuted(ctx, chatID, userID)
}

func (l *Ledger) ResetUser(ctx context.Context, chatID, userID int64) error {
	// Reset both stores so a later durable recovery does not resurrect state
	// the operator already cleared.
	_ = l.fallback.ResetUser(ctx, chatID, userID)
	if l.durable != nil {
		if err := l.durable.ResetUser(ctx, chatID, userID); err != nil {
			l.logger.Warn("durable reset failed",
				"error", err, "chat_id", chatID, "user_id", userID)
			return err
		}
	}
	return nil
}

func (l *Ledger) GetOffenseCount(ctx context.Context, chatID, userID int64) (int64, error) {
	if l.durable != nil {
		count, err := l.durable.GetOffenseCount(ctx, chatID, userID)
		if err == nil {
			return count, nil
		}
		l.logger.Warn("durable offense read failed, using in-memory count",
			"error", err, "chat_id", chatID, "user_id", userID)
	}
	return l.fallback.GetOffenseCount(ctx, chatID, userID)
}

func (l *Ledger) GetRecord(ctx context.Context, chatID, userID int64) (model.OffenseRecord, error) {
	if l.durable != nil {
		record, err := l.durable.GetRecord(ctx, chatID, userID)
		if err == nil {
			return record, nil
		}
		l.logger.Warn("durable offense read failed, using in-memory record",
			"error", err, "chat_id", chatID, "user_id", userID)
	}
	return l.fallback.GetRecord(ctx, chatID, userID)
}
