package ledger

import (
	"context"
	"fmt"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

type Store interface {
	RecordOffense(context.Context, int64, int64) (int64, error)
	MarkMuted(context.Context, int64, int64) error
	ResetUser(context.Context, int64, int64) error
	GetOffenseCount(context.Context, int64, int64) (int64, error)
	GetRecord(context.Context, int64, int64) (model.OffenseRecord, error)
}

// Service tracks offenses per (chat, user). The offense number from which a
// mute applies is configuration layered on top of the store; the
// store itself only counts.
type Service struct {
	store     Store
	muteAfter int64
}

func NewService(store Store, muteAfter int64) *Service {
	if muteAfter < 1 {
		muteAfter = 1
	}
	return &Service{store: store, muteAfter: muteAfter}
}

func (s *Service) RecordOffense(ctx context.Context, chatID, userID int64) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("offense store is not configured")
	}
	return s.store.RecordOffense(ctx, chatID, userID)
}

// ShouldMute reports whether the running offense count has reached the
// configured escalation tier.
func (s *Service) ShouldMute(offenseCount int64) bool {
	return offenseCount >= s.muteAfter
}

func (s *Service) MarkMuted(ctx context.Context, chatID, userID int64) error {
	if s.store == nil {
		return fmt.Errorf("offense store is not configured")
	}
	return s.store.MarkMuted(ctx, chatID, userID)
}

func (s *Service) ResetUser(ctx context.Context, chatID, userID int64) error {
	if s.store == nil {
		return fmt.Errorf("offense store is not configured")
	}
	return s.store.ResetUser(ctx, chatID, userID)
}

func (s *Service) GetOffenseCount(ctx context.Context, chatID, userID int64) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("offense store is not configured")
	}
	return s.store.GetOffenseCount(ctx, chatID, userID)
}

func (s *Service) GetRecord(ctx context.Context, chatID, userID int64) (model.OffenseRecord, error) {
	if s.store == nil {
		return model.OffenseRecord{}, fmt.Errorf("offense store is not configured")
	}
	return s.store.GetRecord(ctx, chatID, userID)
}
