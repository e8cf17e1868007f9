package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

type OffenseRepo struct {
	db *sql.DB
}

func NewOffenseRepo(db *sql.DB) *OffenseRepo {
	return &OffenseRepo{db: db}
}

// RecordOffense increments the offense counter for (chat, user), creating the
// row with count 1 on the first offense. The upsert is a single statement, so
// concurrent offenses for the same pair never lose an update.
func (r *OffenseRepo) RecordOffense(ctx context.Context, chatID, userID int64) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("offense repo has no database")
	}

	var offenses int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO offenders (chat_id, user_id, offenses, last_offense_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (chat_id, user_id)
		DO UPDATE SET
			offenses = offenders.offenses + 1,
			last_offense_at = NOW()
		RETURNING offenses
	`, chatID, userID).Scan(&offenses)
	if err != nil {
		return 0, fmt.Errorf("record offense: %w", err)
	}
	return offenses, nil
}

func (r *OffenseRepo) MarkMuted(ctx context.Context, chatID, userID int64) error {
	if r.db == nil {
		return fmt.Errorf("offense repo has no database")
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE offenders SET muted = TRUE
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("mark muted: %w", err)
	}
	return nil
}

func (r *OffenseRepo) ResetUser(ctx context.Context, chatID, userID int64) error {
	if r.db == nil {
		return fmt.Errorf("offense repo has no database")
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE offenders SET offenses = 0, muted = FALSE
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("reset user: %w", err)
	}
	return nil
}

func (r *OffenseRepo) GetOffenseCount(ctx context.Context, chatID, userID int64) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("offense repo has no database")
	}

	var offenses int64
	err := r.db.QueryRowContext(ctx, `
		SELECT offenses FROM offenders
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID).Scan(&offenses)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get offense count: %w", err)
	}
	return offenses, nil
}

func (r *OffenseRepo) GetRecord(ctx context.Context, chatID, userID int64) (model.OffenseRecord, error) {
	record := model.OffenseRecord{ChatID: chatID, UserID: userID}
	if r.db == nil {
		return record, fmt.Errorf("offense repo has no database")
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT offenses, muted, last_offense_at FROM offenders
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID).Scan(&record.Offenses, &record.Muted, &record.LastOffenseAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return record, nil
		}
		return record, fmt.Errorf("get offense record: %w", err)
	}
	return record, nil
}
