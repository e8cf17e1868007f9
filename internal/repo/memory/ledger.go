package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

type pairKey struct {
	chatID int64
	userID int64
}

// Ledger is an in-memory offense store. It backs tests and serves as the
// last-resort fallback when the durable store cannot be written. Increments
// happen under one lock, so concurrent offenses for a pair never race.
type Ledger struct {
	mu      sync.Mutex
	records map[pairKey]*model.OffenseRecord
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[pairKey]*model.OffenseRecord)}
}

func (l *Ledger) RecordOffense(_ context.Context, chatID, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey{chatID: chatID, userID: userID}
	record, ok := l.records[key]
	if !ok {
		record = &model.OffenseRecord{ChatID: chatID, UserID: userID}
		l.records[key] = record
	}
	record.Offenses++
	record.LastOffenseAt = time.Now().UTC()
	return record.Offenses, nil
}

func (l *Ledger) MarkMuted(_ context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey{chatID: chatID, userID: userID}
	record, ok := l.records[key]
	if !ok {
		record = &model.OffenseRecord{ChatID: chatID, UserID: userID}
		l.records[key] = record
	}
	record.Muted = true
	return nil
}

func (l *Ledger) ResetUser(_ context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record, ok := l.records[pairKey{chatID: chatID, userID: userID}]; ok {
		record.Offenses = 0
		record.Muted = false
	}
	return nil
}

func (l *Ledger) GetOffenseCount(_ context.Context, chatID, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record, ok := l.records[pairKey{chatID: chatID, userID: userID}]; ok {
		return record.Offenses, nil
	}
	return 0, nil
}

func (l *Ledger) GetRecord(_ context.Context, chatID, userID int64) (model.OffenseRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record, ok := l.records[pairKey{chatID: chatID, userID: userID}]; ok {
		return *record, nil
	}
	return model.OffenseRecord{ChatID: chatID, UserID: userID}, nil
}
