package memory

import (
	"context"
	"sync"
)

type Whitelist struct {
	mu      sync.Mutex
	entries map[pairKey]struct{}
}

func NewWhitelist() *Whitelist {
	return &Whitelist{entries: make(map[pairKey]struct{})}
}

func (w *Whitelist) Contains(_ context.Context, chatID, userID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.entries[pairKey{chatID: chatID, userID: userID}]
	return ok, nil
}

func (w *Whitelist) Add(_ context.Context, chatID, userID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := pairKey{chatID: chatID, userID: userID}
	if _, ok := w.entries[key]; ok {
		return false, nil
	}
	w.entries[key] = struct{}{}
	return true, nil
}

func (w *Whitelist) Remove(_ context.Context, chatID, userID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := pairKey{chatID: chatID, userID: userID}
	if _, ok := w.entries[key]; !ok {
		return false, nil
	}
	delete(w.entries, key)
	return true, nil
}
