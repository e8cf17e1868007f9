package whitelist

import (
	"context"
	"log/slog"
)

type Repo interface {
	Contains(context.Context, int64, int64) (bool, error)
	Add(context.Context, int64, int64) (bool, error)
	Remove(context.Context, int64, int64) (bool, error)
}

type Cache interface {
	Get(context.Context, int64, int64) (bool, bool, error)
	Set(context.Context, int64, int64, bool) error
	Invalidate(context.Context, int64, int64) error
}

type Service struct {
	repo   Repo
	cache  Cache
	logger *slog.Logger
}

func NewService(repo Repo, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// IsExempt reports whether (chat, user) is whitelisted. A failing store reads
// as "not exempt": the bot over-enforces rather than silently waving media
// through, and the failure is logged so an operator notices.
func (s *Service) IsExempt(ctx context.Context, chatID, userID int64) bool {
	if s.cache != nil {
		member, found, err := s.cache.Get(ctx, chatID, userID)
		if err != nil {
			s.logger.Warn("whitelist cache read failed",
				"error", err, "chat_id", chatID, "user_id", userID)
		} else if found {
			return member
		}
	}

	if s.repo == nil {
		return false
	}

	member, err := s.repo.Contains(ctx, chatID, userID)
	if err != nil {
		s.logger.Warn("whitelist lookup failed, treating user as not exempt",
			"error", err, "chat_id", chatID, "user_id", userID)
		return false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, chatID, userID, member); err != nil {
			s.logger.Warn("whitelist cache write failed",
				"error", err, "chat_id", chatID, "user_id", userID)
		}
	}
	return member
}

func (s *Service) Add(ctx context.Context, chatID, userID int64) (bool, error) {
	if s.repo == nil {
		return false, nil
	}

	added, err := s.repo.Add(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, chatID, userID)
	return added, nil
}

func (s *Service) Remove(ctx context.Context, chatID, userID int64) (bool, error) {
	if s.repo == nil {
		return false, nil
	}

	removed, err := s.repo.Remove(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, chatID, userID)
	return removed, nil
}

func (s *Service) invalidate(ctx context.Context, chatID, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, chatID, userID); err != nil {
		s.logger.Warn("whitelist cache invalidation failed",
			"error", err, "chat_id", chatID, "user_id", userID)
	}
}
