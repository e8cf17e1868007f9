package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

type WhitelistRepo struct {
	db *sql.DB
}

func NewWhitelistRepo(db *sql.DB) *WhitelistRepo {
	return &WhitelistRepo{db: db}
}

func (r *WhitelistRepo) Contains(ctx context.Context, chatID, userID int64) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("whitelist repo has no database")
	}

	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM whitelist
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("whitelist lookup: %w", err)
	}
	return true, nil
}

func (r *WhitelistRepo) Add(ctx context.Context, chatID, userID int64) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("whitelist repo has no database")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO whitelist (chat_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("whitelist add: %w", err)
	}

	added, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("whitelist add rows: %w", err)
	}
	return added > 0, nil
}

func (r *WhitelistRepo) Remove(ctx context.Context, chatID, userID int64) (bool, error) {
	if r.db == nil {
		return false, fmt.Errorf("whitelist repo has no database")
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM whitelist
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("whitelist remove: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("whitelist remove rows: %w", err)
	}
	return removed > 0, nil
}
