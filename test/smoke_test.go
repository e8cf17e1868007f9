package test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/dualrepo"
	"github.com/mg-anjaan/BotTelegramSCan/internal/repo/memory"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/enforcement"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/engine"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/fusion"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/heuristic"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/ledger"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/signals"
	"github.com/mg-anjaan/BotTelegramSCan/internal/services/whitelist"
)

type stubChatAPI struct {
	deleted    []int
	restricted []int64
	messages   map[int64][]string
}

func newStubChatAPI() *stubChatAPI {
	return &stubChatAPI{messages: map[int64][]string{}}
}

func (s *stubChatAPI) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *stubChatAPI) RestrictUser(_ context.Context, _ int64, userID int64, _ int64) error {
	s.restricted = append(s.restricted, userID)
	return nil
}

func (s *stubChatAPI) SendMessage(_ context.Context, chatID int64, text string) error {
	s.messages[chatID] = append(s.messages[chatID], text)
	return nil
}

func skinPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	tone := color.RGBA{R: 210, G: 150, B: 120, A: 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, tone)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func cleanPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	tone := color.RGBA{R: 20, G: 40, B: 200, A: 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, tone)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type pipeline struct {
	tg        *stubChatAPI
	whitelist *whitelist.Service
	engine    *engine.Engine
}

// newPipeline wires the full moderation path with in-memory stores, the skin
// heuristic as the only signal source, and a mute threshold of two offenses.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tg := newStubChatAPI()
	whitelistSvc := whitelist.NewService(memory.NewWhitelist(), nil, logger)
	ledgerSvc := ledger.NewService(dualrepo.NewLedger(nil, logger), 2)
	collector := signals.NewCollector(nil, heuristic.NewScorer(3, 64), time.Second, logger)
	policy := fusion.Policy{
		Mode:           enums.FusionModeOr,
		ModelThreshold: 0.65,
		SkinThreshold:  0.28,
		SkinWeight:     0.6,
	}
	enforcer := enforcement.NewService(tg, ledgerSvc, 999, logger)
	eng := engine.New(whitelistSvc, collector, policy, ledgerSvc, enforcer, nil, logger)

	return &pipeline{tg: tg, whitelist: whitelistSvc, engine: eng}
}

func TestPipelineFlagsAndEscalates(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	payload := skinPNG(t)

	first := p.engine.Process(ctx, model.MediaItem{
		ChatID: 10, UserID: 20, MessageID: 1, Data: payload,
	}, "Test Group")

	if !first.Fusion.Flagged {
		t.Fatalf("expected first item flagged, final=%f", first.Fusion.FinalScore)
	}
	if first.Action == nil || !first.Action.DeleteSucceeded {
		t.Fatalf("expected message deleted, got %+v", first.Action)
	}
	if first.Action.MuteAttempted {
		t.Fatal("first offense must not mute")
	}
	if len(p.tg.deleted) != 1 || p.tg.deleted[0] != 1 {
		t.Fatalf("unexpected deletions: %v", p.tg.deleted)
	}

	second := p.engine.Process(ctx, model.MediaItem{
		ChatID: 10, UserID: 20, MessageID: 2, Data: payload,
	}, "Test Group")

	if second.Action == nil || !second.Action.MuteSucceeded {
		t.Fatalf("expected second offense to mute, got %+v", second.Action)
	}
	if second.Action.OffenseCount != 2 {
		t.Fatalf("expected offense count 2, got %d", second.Action.OffenseCount)
	}
	if len(p.tg.restricted) != 1 || p.tg.restricted[0] != 20 {
		t.Fatalf("unexpected restrictions: %v", p.tg.restricted)
	}

	notices := p.tg.messages[999]
	if len(notices) != 1 || !strings.Contains(notices[0], "offenses=2") {
		t.Fatalf("expected one operator notice with offense count, got %v", notices)
	}
}

func TestPipelinePassesCleanMedia(t *testing.T) {
	p := newPipeline(t)

	result := p.engine.Process(context.Background(), model.MediaItem{
		ChatID: 10, UserID: 21, MessageID: 3, Data: cleanPNG(t),
	}, "Test Group")

	if result.Fusion.Flagged {
		t.Fatalf("clean image flagged, final=%f", result.Fusion.FinalScore)
	}
	if result.Action != nil {
		t.Fatalf("no enforcement expected, got %+v", result.Action)
	}
	if len(p.tg.deleted) != 0 || len(p.tg.restricted) != 0 {
		t.Fatal("no telegram calls expected for clean media")
	}
}

func TestPipelineSkipsWhitelistedSender(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	if _, err := p.whitelist.Add(ctx, 10, 22); err != nil {
		t.Fatalf("whitelist add: %v", err)
	}

	result := p.engine.Process(ctx, model.MediaItem{
		ChatID: 10, UserID: 22, MessageID: 4, Data: skinPNG(t),
	}, "Test Group")

	if !result.Exempt {
		t.Fatal("expected whitelisted sender to be exempt")
	}
	if len(p.tg.deleted) != 0 {
		t.Fatalf("whitelisted sender's message was deleted: %v", p.tg.deleted)
	}
}

func TestPipelineUndecodableMediaPassesWithAlert(t *testing.T) {
	p := newPipeline(t)

	result := p.engine.Process(context.Background(), model.MediaItem{
		ChatID: 10, UserID: 23, MessageID: 5, Data: []byte("not an image"),
	}, "Test Group")

	if result.Fusion.Flagged {
		t.Fatal("undecodable media must not be flagged")
	}
	notices := p.tg.messages[999]
	if len(notices) != 1 || !strings.Contains(notices[0], "signals failed") {
		t.Fatalf("expected all-signals-down alert, got %v", notices)
	}
}
