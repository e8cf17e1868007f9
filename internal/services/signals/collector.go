package signals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

// ErrAllSignalsUnavailable means every configured source failed; the item
// cannot be judged and must pass through unflagged with an operator alert.
var ErrAllSignalsUnavailable = errors.New("all scoring signals unavailable")

type RemoteScorer interface {
	Score(ctx context.Context, image []byte, filename string) (float64, error)
}

type LocalScorer interface {
	Score(payload []byte) (float64, error)
}

// Collector fans one media item out to every configured source. Sources run
// concurrently under independent timeouts; one source failing or hanging
// never blocks the others from being collected.
type Collector struct {
	remote  RemoteScorer
	local   LocalScorer
	timeout time.Duration
	logger  *slog.Logger
}

func NewCollector(remote RemoteScorer, local LocalScorer, timeout time.Duration, logger *slog.Logger) *Collector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{remote: remote, local: local, timeout: timeout, logger: logger}
}

func (c *Collector) Collect(ctx context.Context, item model.MediaItem) ([]model.SignalScore, error) {
	if c.remote == nil && c.local == nil {
		return nil, fmt.Errorf("no scoring sources configured: %w", ErrAllSignalsUnavailable)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals []model.SignalScore
	)

	add := func(score model.SignalScore) {
		mu.Lock()
		signals = append(signals, score)
		mu.Unlock()
	}

	if c.remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			add(c.collectModel(ctx, item))
		}()
	}

	if c.local != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			add(c.collectHeuristic(item))
		}()
	}

	wg.Wait()

	for _, signal := range signals {
		if signal.OK {
			return signals, nil
		}
	}
	return signals, ErrAllSignalsUnavailable
}

func (c *Collector) collectModel(ctx context.Context, item model.MediaItem) model.SignalScore {
	scoreCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := c.remote.Score(scoreCtx, item.Data, item.FileName)
	if err != nil {
		c.logger.Warn("model signal unavailable",
			"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
		return model.SignalScore{Source: enums.SignalSourceModel, Err: err}
	}
	return model.SignalScore{Source: enums.SignalSourceModel, Value: value, OK: true}
}

// collectHeuristic bounds the local pass with the same per-source timeout so a
// pathological payload cannot stall the join. The scoring goroutine finishes
// on its own; only the wait is abandoned.
func (c *Collector) collectHeuristic(item model.MediaItem) model.SignalScore {
	type outcome struct {
		value float64
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		value, err := c.local.Score(item.Data)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		if result.err != nil {
			c.logger.Warn("heuristic signal unavailable",
				"error", result.err, "chat_id", item.ChatID, "user_id", item.UserID)
			return model.SignalScore{Source: enums.SignalSourceHeuristic, Err: result.err}
		}
		return model.SignalScore{Source: enums.SignalSourceHeuristic, Value: result.value, OK: true}
	case <-timer.C:
		err := fmt.Errorf("heuristic scoring timed out after %s", c.timeout)
		c.logger.Warn("heuristic signal unavailable",
			"error", err, "chat_id", item.ChatID, "user_id", item.UserID)
		return model.SignalScore{Source: enums.SignalSourceHeuristic, Err: err}
	}
}
